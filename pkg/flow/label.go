package flow

import (
	"fmt"
	"strings"

	"github.com/greenoffice/leadchat/pkg/domain"
)

// Label decodes the stored answer of question id into display text.
// It returns "" when the question is unknown or unanswered.
func (g *Graph) Label(id string, answers domain.Answers) string {
	q, ok := g.nodes[id]
	if !ok {
		return ""
	}
	key := q.Key()
	if !answers.Has(key) {
		return ""
	}

	switch q.Kind {
	case domain.KindSingle:
		if i, ok := answers.Int(key); ok {
			return optionLabel(q, i)
		}
	case domain.KindMulti:
		if is, ok := answers.Ints(key); ok {
			labels := make([]string, 0, len(is))
			for _, i := range is {
				labels = append(labels, optionLabel(q, i))
			}
			return strings.Join(labels, "; ")
		}
	case domain.KindYesNo:
		if b, ok := answers.Bool(key); ok {
			if b {
				return "Yes"
			}
			return "No"
		}
	case domain.KindNumber:
		if n, ok := answers.Int(key); ok {
			return fmt.Sprint(n)
		}
	}

	v, _ := answers.Get(key)
	return fmt.Sprint(v)
}

func optionLabel(q domain.Question, i int) string {
	if i < 0 || i >= len(q.Options) {
		return fmt.Sprintf("option %d", i)
	}
	return q.Options[i]
}

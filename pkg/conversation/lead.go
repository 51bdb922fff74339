package conversation

import (
	"github.com/greenoffice/leadchat/internal/runtime"
	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/flow"
	"github.com/greenoffice/leadchat/pkg/scoring"
)

// BuildLead assembles the notification for a captured contact. reason is the
// outcome that started lead capture.
func BuildLead(engine *runtime.Engine, reason domain.Outcome, state *domain.State) domain.Lead {
	g := engine.Graph()
	name, _ := state.Answers.String(domain.AnswerName)
	email, _ := state.Answers.String(domain.AnswerEmail)

	lead := domain.Lead{
		SessionID: state.SessionID,
		Name:      name,
		Email:     email,
		Score:     scoring.Score(state.Answers),
		Reason:    reason,
	}
	lead.Details = Details(g, state.Answers)
	return lead
}

// Details lists answered questionnaire questions with decoded values, in answer order.
// Lead-capture answers are left out.
func Details(g *flow.Graph, answers domain.Answers) []domain.Field {
	var out []domain.Field
	for _, key := range answers.Keys() {
		q, err := g.Get(key)
		if err != nil || q.Section == domain.SectionLead {
			continue
		}
		out = append(out, domain.Field{
			Label: flow.Interpolate(q.Prompt, answers),
			Value: g.Label(key, answers),
		})
	}
	return out
}

package runtime

import (
	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/flow"
)

// Prompt is a question ready to be shown to the user.
type Prompt struct {
	NodeID  string           `json:"node_id"`
	Text    string           `json:"text"`
	Kind    domain.InputKind `json:"kind"`
	Options []string         `json:"options,omitempty"`
	Min     int              `json:"min,omitempty"`
	Max     int              `json:"max,omitempty"`
}

// renderQuestion interpolates the prompt with earlier answers.
func (e *Engine) renderQuestion(q domain.Question, state *domain.State) *Prompt {
	return &Prompt{
		NodeID:  q.ID,
		Text:    flow.Interpolate(q.Prompt, state.Answers),
		Kind:    q.Kind,
		Options: append([]string(nil), q.Options...),
		Min:     q.Min,
		Max:     q.Max,
	}
}

// Render returns the prompt for the current question, or nil when the conversation
// expects no answer (closed, or waiting for a knowledge question).
func (e *Engine) Render(state *domain.State) (*Prompt, error) {
	if state.Closed() || state.Mode == domain.ModeDetour {
		return nil, nil
	}
	q, err := e.graph.Get(state.CurrentNodeID)
	if err != nil {
		return nil, err
	}
	return e.renderQuestion(q, state), nil
}

// Represent renders the current question prefixed with the resume phrase, used after
// answering a knowledge question.
func (e *Engine) Represent(state *domain.State) (*Prompt, error) {
	if state.Closed() {
		return nil, nil
	}
	q, err := e.graph.Get(state.CurrentNodeID)
	if err != nil {
		return nil, err
	}
	p := e.renderQuestion(q, state)
	p.Text = flow.MessageResume + p.Text
	return p, nil
}

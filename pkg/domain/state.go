package domain

import "time"

// Status is the lifecycle of a chat session as seen by the sales team.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCompleted || s == StatusAbandoned
}

// Mode is what the engine expects next.
type Mode string

const (
	// ModeQuestionnaire expects an answer to the current qualifying question.
	ModeQuestionnaire Mode = "questionnaire"
	// ModeDetour expects a free-text question for the knowledge base; the current
	// question is re-presented afterwards.
	ModeDetour Mode = "detour"
	// ModeLead expects an answer inside the lead-capture sub-flow.
	ModeLead Mode = "lead"
	// ModeClosed accepts no further answers.
	ModeClosed Mode = "closed"
)

// State is the snapshot of one conversation. The engine never mutates a State it
// was given; it returns a new one.
type State struct {
	SessionID     string  `json:"session_id"`
	CurrentNodeID string  `json:"current_node_id"`
	Answers       Answers `json:"answers"`

	// Pending holds follow-up questions queued by a fan-out question.
	Pending []string `json:"pending,omitempty"`
	// Resume is where the questionnaire continues once Pending drains.
	Resume string `json:"resume,omitempty"`

	Mode   Mode   `json:"mode"`
	Status Status `json:"status"`

	// Outcome is the last sentinel reached (why lead capture started, or how it ended).
	Outcome Outcome `json:"outcome,omitempty"`

	History []string `json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed carries an encrypted copy of a state when stored through an encrypting store.
	Sealed string `json:"sealed,omitempty"`
}

// NewState creates a clean state starting at a specific node.
func NewState(sessionID, startNodeID string, now time.Time) *State {
	return &State{
		SessionID:     sessionID,
		CurrentNodeID: startNodeID,
		Answers:       NewAnswers(),
		Mode:          ModeQuestionnaire,
		Status:        StatusActive,
		History:       []string{startNodeID},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Snapshot returns a deep copy of the state.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.Answers = s.Answers.Clone()
	next.Pending = append([]string(nil), s.Pending...)
	next.History = append([]string(nil), s.History...)
	return &next
}

// Closed reports whether the conversation accepts no more answers.
func (s *State) Closed() bool {
	return s.Mode == ModeClosed || s.Status == StatusAbandoned
}

package domain

import "time"

// Role identifies who authored a transcript line.
type Role string

const (
	RoleBot       Role = "bot"
	RoleUser      Role = "user"
	RoleKnowledge Role = "knowledge_base"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleBot || r == RoleUser || r == RoleKnowledge
}

// TranscriptEntry is one append-only line of a chat transcript.
type TranscriptEntry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRecord is the persisted summary of a chat session.
type SessionRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Answers   Answers   `json:"answers"`
	Score     int       `json:"score"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Email returns the captured e-mail, if any.
func (r SessionRecord) Email() string {
	s, _ := r.Answers.String(AnswerEmail)
	return s
}

// KnowledgeQuery logs a free-text question and the response given.
type KnowledgeQuery struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Field is one labelled answer, ready for display.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Lead is a captured contact handed to the sales team.
type Lead struct {
	SessionID string  `json:"session_id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Score     int     `json:"score"`
	Reason    Outcome `json:"reason"`
	Details   []Field `json:"details,omitempty"`
}

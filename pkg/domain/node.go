package domain

// InputKind constants define how a question expects to be answered.
const (
	// KindSingle picks exactly one option by index or label.
	KindSingle InputKind = "single"
	// KindMulti picks one or more options.
	KindMulti InputKind = "multi"
	// KindText accepts free text.
	KindText InputKind = "text"
	// KindNumber accepts a whole number within [Min, Max].
	KindNumber InputKind = "number"
	// KindDate accepts a calendar date (YYYY-MM-DD).
	KindDate InputKind = "date"
	// KindYesNo accepts a confirmation.
	KindYesNo InputKind = "yes_no"
	// KindEmail accepts a single e-mail address.
	KindEmail InputKind = "email"
)

// InputKind is the declared answer shape of a question.
type InputKind string

// Section groups questions for reporting and scoring.
type Section string

const (
	SectionQualify Section = "qualify"
	SectionDetail  Section = "detail"
	SectionLead    Section = "lead"
)

// Question represents one step in the questionnaire graph.
type Question struct {
	ID     string    `json:"id" yaml:"id"`
	Prompt string    `json:"prompt" yaml:"prompt"`
	Kind   InputKind `json:"kind" yaml:"kind"`

	// Options holds the labels for single/multi choice questions, in display order.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`

	// Min and Max bound number answers (inclusive).
	Min int `json:"min,omitempty" yaml:"min,omitempty"`
	Max int `json:"max,omitempty" yaml:"max,omitempty"`

	// Rule decides where the conversation goes after a valid answer.
	Rule Rule `json:"rule" yaml:"rule"`

	// FollowUps is index-aligned with Options. Choosing option i queues FollowUps[i]
	// (empty entries queue nothing). Resume is visited once the queue drains.
	FollowUps []string `json:"follow_ups,omitempty" yaml:"follow_ups,omitempty"`
	Resume    string   `json:"resume,omitempty" yaml:"resume,omitempty"`

	// StoreAs overrides the answer key (defaults to ID). Correction steps use it to
	// overwrite an earlier answer.
	StoreAs string `json:"store_as,omitempty" yaml:"store_as,omitempty"`

	Section Section `json:"section" yaml:"section"`
}

// Key returns the answer key this question writes to.
func (q Question) Key() string {
	if q.StoreAs != "" {
		return q.StoreAs
	}
	return q.ID
}

// FansOut reports whether answering the question queues follow-up questions.
func (q Question) FansOut() bool {
	return len(q.FollowUps) > 0
}

package domain

// Field constants for answer keys that are read outside the questionnaire graph.
const (
	// AnswerName is written by the lead-capture sub-flow.
	AnswerName = "name"
	// AnswerEmail is written by the lead-capture sub-flow. Its presence marks a session as a lead.
	AnswerEmail = "email"
)

package domain

import (
	"context"
	"time"
)

// EventType names an engine lifecycle event.
type EventType string

const (
	EventQuestionEnter EventType = "question_enter"
	EventQuestionLeave EventType = "question_leave"
	EventOutcome       EventType = "outcome"
)

// EventBase is shared by every engine event.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// QuestionEvent is emitted when a question is presented and when it is answered.
type QuestionEvent struct {
	EventBase
	NodeID  string  `json:"node_id"`
	Section Section `json:"section"`
}

// OutcomeEvent is emitted when a route ends in a sentinel. Score is the
// qualification score of the answers given so far.
type OutcomeEvent struct {
	EventBase
	NodeID  string  `json:"node_id"`
	Outcome Outcome `json:"outcome"`
	Score   int     `json:"score"`
}

// LifecycleHooks are optional engine callbacks. They run synchronously on the
// answering goroutine and must not block.
type LifecycleHooks struct {
	OnQuestionEnter func(context.Context, *QuestionEvent)
	OnQuestionLeave func(context.Context, *QuestionEvent)
	OnOutcome       func(context.Context, *OutcomeEvent)
}

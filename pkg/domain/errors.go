package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrNodeNotFound is returned when a question ID is not part of the graph.
var ErrNodeNotFound = errors.New("question not found")

// ErrConversationClosed is returned when an answer arrives after the conversation ended.
var ErrConversationClosed = errors.New("conversation is closed")

// ErrAwaitingQuestion is returned when an answer arrives while the engine expects a
// free-text knowledge question.
var ErrAwaitingQuestion = errors.New("awaiting a knowledge question")

// ErrEmptyQuery is returned when a knowledge query has no content.
var ErrEmptyQuery = errors.New("query is empty")

// ValidationError reports an answer that does not fit the current question.
// The conversation stays on the same question.
type ValidationError struct {
	NodeID string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid answer for %s: %s", e.NodeID, e.Reason)
}

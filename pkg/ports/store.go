package ports

import (
	"context"

	"github.com/greenoffice/leadchat/pkg/domain"
)

// StateStore keeps the live position of each conversation: current question, answers,
// follow-up queue and mode. Long-lived records go to a SessionRepository instead.
type StateStore interface {
	Save(ctx context.Context, sessionID string, state *domain.State) error

	// Load returns domain.ErrSessionNotFound for unknown sessions.
	Load(ctx context.Context, sessionID string) (*domain.State, error)

	// Delete is a no-op for unknown sessions.
	Delete(ctx context.Context, sessionID string) error

	// List returns stored session IDs in lexical order.
	List(ctx context.Context) ([]string, error)
}

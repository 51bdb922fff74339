package ports

import (
	"context"
	"time"

	"github.com/greenoffice/leadchat/pkg/domain"
)

// SessionRepository stores what the sales team reads back: one record per session,
// its transcript and the knowledge questions asked.
type SessionRepository interface {
	// EnsureSession returns the record for sessionID, creating an empty active one if needed.
	EnsureSession(ctx context.Context, sessionID string, now time.Time) (domain.SessionRecord, error)

	// UpdateSession upserts answers, score and status by session ID.
	UpdateSession(ctx context.Context, rec domain.SessionRecord) error

	// GetSession returns domain.ErrSessionNotFound for unknown sessions.
	GetSession(ctx context.Context, sessionID string) (domain.SessionRecord, error)

	// ListSessions returns every session, newest first.
	ListSessions(ctx context.Context) ([]domain.SessionRecord, error)

	// AppendMessage adds a transcript line. The session must exist.
	AppendMessage(ctx context.Context, entry domain.TranscriptEntry) error

	// Messages returns a transcript in chronological order.
	Messages(ctx context.Context, sessionID string) ([]domain.TranscriptEntry, error)

	// LogKnowledgeQuery records a free-text question and the answer given.
	LogKnowledgeQuery(ctx context.Context, q domain.KnowledgeQuery) error

	// MarkStale flags active sessions not updated since before as abandoned and
	// returns their IDs.
	MarkStale(ctx context.Context, before time.Time) ([]string, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// LeadNotifier delivers a captured lead to the sales team.
type LeadNotifier interface {
	NotifyLead(ctx context.Context, lead domain.Lead) error
}

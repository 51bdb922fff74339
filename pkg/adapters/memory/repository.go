package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/greenoffice/leadchat/pkg/domain"
)

// Repository implements ports.SessionRepository in memory. It backs the CLI and
// tests when no database is configured.
type Repository struct {
	mu       sync.RWMutex
	sessions map[string]domain.SessionRecord
	messages map[string][]domain.TranscriptEntry
	queries  []domain.KnowledgeQuery
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		sessions: make(map[string]domain.SessionRecord),
		messages: make(map[string][]domain.TranscriptEntry),
	}
}

func (r *Repository) EnsureSession(ctx context.Context, sessionID string, now time.Time) (domain.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.sessions[sessionID]; ok {
		return copyRecord(rec), nil
	}
	rec := domain.SessionRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Answers:   domain.NewAnswers(),
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.sessions[sessionID] = rec
	return copyRecord(rec), nil
}

func (r *Repository) UpdateSession(ctx context.Context, rec domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.sessions[rec.SessionID]
	if !ok {
		cur = domain.SessionRecord{
			ID:        uuid.NewString(),
			SessionID: rec.SessionID,
			CreatedAt: rec.UpdatedAt,
		}
	}
	cur.Answers = rec.Answers.Clone()
	cur.Score = rec.Score
	if rec.Status != "" {
		cur.Status = rec.Status
	}
	cur.UpdatedAt = rec.UpdatedAt
	r.sessions[rec.SessionID] = cur
	return nil
}

func (r *Repository) GetSession(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.sessions[sessionID]
	if !ok {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	return copyRecord(rec), nil
}

func (r *Repository) ListSessions(ctx context.Context) ([]domain.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.SessionRecord, 0, len(r.sessions))
	for _, rec := range r.sessions {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) AppendMessage(ctx context.Context, entry domain.TranscriptEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[entry.SessionID]; !ok {
		return fmt.Errorf("append message: %w", domain.ErrSessionNotFound)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	r.messages[entry.SessionID] = append(r.messages[entry.SessionID], entry)
	return nil
}

func (r *Repository) Messages(ctx context.Context, sessionID string) ([]domain.TranscriptEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.messages[sessionID]
	out := make([]domain.TranscriptEntry, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) LogKnowledgeQuery(ctx context.Context, q domain.KnowledgeQuery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	r.queries = append(r.queries, q)
	return nil
}

// Queries returns every logged knowledge query.
func (r *Repository) Queries() []domain.KnowledgeQuery {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.KnowledgeQuery(nil), r.queries...)
}

func (r *Repository) MarkStale(ctx context.Context, before time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, rec := range r.sessions {
		if rec.Status == domain.StatusActive && rec.UpdatedAt.Before(before) {
			rec.Status = domain.StatusAbandoned
			r.sessions[id] = rec
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Repository) Ping(ctx context.Context) error { return nil }

func copyRecord(rec domain.SessionRecord) domain.SessionRecord {
	rec.Answers = rec.Answers.Clone()
	return rec
}

package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/greenoffice/leadchat/pkg/domain"
)

// Store keeps conversation state in process. It is the default backend for the
// terminal chat and for tests; everything is lost on restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.State
}

func NewStore() *Store {
	return &Store{sessions: map[string]*domain.State{}}
}

// Save stores a snapshot, so the caller may keep mutating its copy.
func (s *Store) Save(_ context.Context, sessionID string, state *domain.State) error {
	snap := state.Snapshot()
	s.mu.Lock()
	s.sessions[sessionID] = snap
	s.mu.Unlock()
	return nil
}

func (s *Store) Load(_ context.Context, sessionID string) (*domain.State, error) {
	s.mu.RLock()
	state, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state.Snapshot(), nil
}

func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *Store) List(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.sessions)), nil
}

// Ping always succeeds; it lets health checks treat every backend alike.
func (s *Store) Ping(context.Context) error { return nil }

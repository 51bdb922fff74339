package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/greenoffice/leadchat/pkg/domain"
)

// streamBuffer is how many diffs a slow client may lag behind before diffs are dropped.
const streamBuffer = 16

// StreamManager fans state diffs out to the SSE clients following a session.
type StreamManager struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	logger *slog.Logger
}

type subscriber struct {
	diffs chan domain.StateDiff
	watch watchSet
}

// NewStreamManager creates an empty fan-out.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subs:   make(map[string]map[*subscriber]struct{}),
		logger: logger,
	}
}

// Subscribe registers a client for sessionID. The returned func unregisters it and
// closes the channel.
func (sm *StreamManager) Subscribe(sessionID string, watch watchSet) (<-chan domain.StateDiff, func()) {
	sub := &subscriber{diffs: make(chan domain.StateDiff, streamBuffer), watch: watch}

	sm.mu.Lock()
	if sm.subs[sessionID] == nil {
		sm.subs[sessionID] = make(map[*subscriber]struct{})
	}
	sm.subs[sessionID][sub] = struct{}{}
	sm.mu.Unlock()

	var once sync.Once
	return sub.diffs, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			set := sm.subs[sessionID]
			delete(set, sub)
			if len(set) == 0 {
				delete(sm.subs, sessionID)
			}
			close(sub.diffs)
		})
	}
}

// Subscribers returns the number of open streams for a session.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subs[sessionID])
}

// Broadcast delivers diff to every subscriber of its session that watches one of
// the fields it touches. Subscribers with a full buffer miss the diff.
func (sm *StreamManager) Broadcast(diff domain.StateDiff) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for sub := range sm.subs[diff.SessionID] {
		if !sub.watch.matches(diff) {
			continue
		}
		select {
		case sub.diffs <- diff:
		default:
			sm.logger.Warn("SSE client lagging, diff dropped", "session_id", diff.SessionID)
		}
	}
}

// watchSet is the parsed ?watch= filter. An empty set matches every diff.
type watchSet map[string]bool

func parseWatch(raw string) watchSet {
	w := watchSet{}
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			w[f] = true
		}
	}
	return w
}

func (w watchSet) matches(d domain.StateDiff) bool {
	if len(w) == 0 {
		return true
	}
	return (w["answers"] && len(d.Answers) > 0) ||
		(w["history"] && d.History != nil) ||
		(w["status"] && (d.Status != nil || d.Mode != nil || d.Outcome != nil)) ||
		(w["pending"] && d.Pending != nil)
}

// publish hands a state diff to the session's subscribers.
func (s *Server) publish(diff *domain.StateDiff) {
	if diff == nil || diff.IsEmpty() {
		return
	}
	s.streams.Broadcast(*diff)
}

// subscribeEvents streams a session's state diffs as server-sent events.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "id")
	diffs, cancel := s.streams.Subscribe(sessionID, parseWatch(r.URL.Query().Get("watch")))
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprint(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client subscribed", "session_id", sessionID)

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "session_id", sessionID)
			return
		case diff, ok := <-diffs:
			if !ok {
				return
			}
			fmt.Fprint(w, "data: ")
			// Encode terminates the line; the blank line ends the event.
			if err := enc.Encode(diff); err != nil {
				s.logger.Error("Diff encode failed", "session_id", sessionID, "error", err)
				return
			}
			fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}
}

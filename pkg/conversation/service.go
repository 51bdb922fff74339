package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/greenoffice/leadchat/internal/logging"
	"github.com/greenoffice/leadchat/internal/runtime"
	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/knowledge"
	"github.com/greenoffice/leadchat/pkg/ports"
	"github.com/greenoffice/leadchat/pkg/scoring"
	"github.com/greenoffice/leadchat/pkg/session"
)

// ErrInvalidSessionID is returned for client-chosen IDs that are not URL-safe.
var ErrInvalidSessionID = errors.New("session id must be 1-128 characters of letters, digits, '-' or '_'")

// ErrEmptyMessage is returned when a transcript line has no text.
var ErrEmptyMessage = errors.New("message is empty")

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// DefaultNotifyTimeout bounds a lead notification.
const DefaultNotifyTimeout = 10 * time.Second

// Observer receives service-level measurements.
type Observer interface {
	ObserveAnswer(nodeID string, accepted bool)
	ObservePersistenceFailure(op string)
	ObserveNotification(err error)
	ObserveSessionStart()
}

type nopObserver struct{}

func (nopObserver) ObserveAnswer(string, bool)       {}
func (nopObserver) ObservePersistenceFailure(string) {}
func (nopObserver) ObserveNotification(error)        {}
func (nopObserver) ObserveSessionStart()             {}

// Reply is what a client renders after a call.
type Reply struct {
	SessionID string            `json:"sessionId"`
	Messages  []string          `json:"messages,omitempty"`
	Prompt    *runtime.Prompt   `json:"prompt,omitempty"`
	Outcome   domain.Outcome    `json:"outcome,omitempty"`
	Score     int               `json:"score"`
	Mode      domain.Mode       `json:"mode,omitempty"`
	Status    domain.Status     `json:"status,omitempty"`
	Knowledge *knowledge.Result `json:"knowledge,omitempty"`
	Diff      *domain.StateDiff `json:"diff,omitempty"`
	Resumed   bool              `json:"resumed,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// View is everything known about one session.
type View struct {
	SessionID string                   `json:"sessionId"`
	State     *domain.State            `json:"state,omitempty"`
	Prompt    *runtime.Prompt          `json:"prompt,omitempty"`
	Record    *domain.SessionRecord    `json:"session,omitempty"`
	Messages  []domain.TranscriptEntry `json:"messages"`
	Score     int                      `json:"score"`
	Breakdown []scoring.Component      `json:"breakdown,omitempty"`
}

// Service runs conversations.
type Service struct {
	engine   *runtime.Engine
	sessions *session.Manager
	repo     ports.SessionRepository
	kb       *knowledge.Service

	notifier      ports.LeadNotifier
	notifyTimeout time.Duration
	observer      Observer
	logger        *slog.Logger
	clock         func() time.Time
	newID         func() string
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier emails captured leads.
func WithNotifier(n ports.LeadNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithNotifyTimeout bounds each lead notification.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// WithObserver wires metrics.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides time.Now for transcript timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithIDGenerator overrides how session IDs are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates a conversation service.
func New(engine *runtime.Engine, sessions *session.Manager, repo ports.SessionRepository, kb *knowledge.Service, opts ...Option) *Service {
	s := &Service{
		engine:        engine,
		sessions:      sessions,
		repo:          repo,
		kb:            kb,
		notifyTimeout: DefaultNotifyTimeout,
		observer:      nopObserver{},
		logger:        logging.NewNop(),
		clock:         time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the flow engine.
func (s *Service) Engine() *runtime.Engine { return s.engine }

// Repository returns the session repository.
func (s *Service) Repository() ports.SessionRepository { return s.repo }

// Knowledge returns the knowledge service.
func (s *Service) Knowledge() *knowledge.Service { return s.kb }

// Start opens a conversation. An empty sessionID mints a new one; an existing
// session is returned as is with Resumed set.
func (s *Service) Start(ctx context.Context, sessionID string) (Reply, error) {
	if sessionID == "" {
		sessionID = s.newID()
	} else if !sessionIDPattern.MatchString(sessionID) {
		return Reply{}, ErrInvalidSessionID
	}

	var turn runtime.Turn
	state, created, err := s.sessions.LoadOrStart(ctx, sessionID, func(ctx context.Context) (*domain.State, error) {
		t, st, err := s.engine.Start(ctx, sessionID)
		turn = t
		return st, err
	})
	if err != nil {
		return Reply{SessionID: sessionID}, fmt.Errorf("start session %s: %w", sessionID, err)
	}

	if !created {
		p, err := s.engine.Render(state)
		if err != nil {
			return Reply{SessionID: sessionID}, err
		}
		r := s.reply(state, runtime.Turn{Prompt: p})
		r.Resumed = true
		return r, nil
	}

	s.observer.ObserveSessionStart()
	s.logger.Info("Session started", "session_id", sessionID)

	bg := context.WithoutCancel(ctx)
	s.persist(bg, "ensure_session", func(ctx context.Context) error {
		_, err := s.repo.EnsureSession(ctx, sessionID, state.CreatedAt)
		return err
	})
	s.record(bg, sessionID, botLines(turn)...)
	return s.reply(state, turn), nil
}

// Answer applies input to the current question. A rejected answer returns a reply
// that re-presents the question together with the *domain.ValidationError.
func (s *Service) Answer(ctx context.Context, sessionID, input string) (Reply, error) {
	clean, err := s.engine.Sanitize(input)
	if err != nil {
		return Reply{SessionID: sessionID}, err
	}

	var (
		prev *domain.State
		turn runtime.Turn
		verr *domain.ValidationError
	)
	next, err := s.sessions.Update(ctx, sessionID, func(cur *domain.State) (*domain.State, error) {
		prev = cur
		t, n, err := s.engine.Advance(ctx, cur, clean)
		turn = t
		if errors.As(err, &verr) {
			return cur, nil
		}
		if err != nil {
			return nil, err
		}
		return n, nil
	})
	if err != nil {
		return Reply{SessionID: sessionID}, err
	}

	if verr != nil {
		s.observer.ObserveAnswer(prev.CurrentNodeID, false)
		r := s.reply(prev, turn)
		r.Error = verr.Reason
		return r, verr
	}
	s.observer.ObserveAnswer(prev.CurrentNodeID, true)

	bg := context.WithoutCancel(ctx)
	lines := append([]line{{domain.RoleUser, clean}}, botLines(turn)...)
	s.record(bg, sessionID, lines...)
	s.sync(bg, next)

	if turn.Outcome == domain.OutcomeLeadCaptured {
		s.notify(bg, BuildLead(s.engine, prev.Outcome, next))
	}
	if next.Closed() {
		s.logger.Info("Conversation closed", "session_id", sessionID, "outcome", next.Outcome, "score", scoring.Score(next.Answers))
	}

	r := s.reply(next, turn)
	r.Diff = domain.Diff(prev, next)
	return r, nil
}

// Ask answers a free-text question. With a live session it also leaves detour mode
// and re-presents the current question.
func (s *Service) Ask(ctx context.Context, sessionID, query string) (Reply, error) {
	clean, err := s.engine.Sanitize(query)
	if err != nil {
		return Reply{SessionID: sessionID}, err
	}
	res, err := s.kb.Lookup(ctx, clean)
	if err != nil {
		return Reply{SessionID: sessionID}, err
	}

	bg := context.WithoutCancel(ctx)
	s.persist(bg, "log_query", func(ctx context.Context) error {
		return s.repo.LogKnowledgeQuery(ctx, domain.KnowledgeQuery{
			SessionID: sessionID,
			Query:     clean,
			Response:  res.Text,
			Source:    string(res.Source),
			CreatedAt: s.clock(),
		})
	})

	reply := Reply{SessionID: sessionID, Messages: []string{res.Text}, Knowledge: &res}
	if sessionID == "" {
		return reply, nil
	}

	var (
		prev *domain.State
		turn runtime.Turn
	)
	next, err := s.sessions.Update(ctx, sessionID, func(cur *domain.State) (*domain.State, error) {
		prev = cur
		t, n, err := s.engine.ResumeAfterDetour(cur)
		turn = t
		return n, err
	})
	if errors.Is(err, domain.ErrSessionNotFound) {
		return reply, nil
	}
	if err != nil {
		return reply, err
	}

	lines := []line{{domain.RoleUser, clean}, {domain.RoleKnowledge, res.Text}}
	if turn.Prompt != nil {
		lines = append(lines, line{domain.RoleBot, turn.Prompt.Text})
	}
	s.record(bg, sessionID, lines...)

	reply.Prompt = turn.Prompt
	reply.Score = scoring.Score(next.Answers)
	reply.Mode = next.Mode
	reply.Status = next.Status
	reply.Diff = domain.Diff(prev, next)
	return reply, nil
}

// Enhance acknowledges a free-text answer with the language model.
func (s *Service) Enhance(ctx context.Context, req knowledge.EnhanceRequest) (knowledge.Result, error) {
	return s.kb.Enhance(ctx, req)
}

// AppendMessage records a transcript line, creating the session record if needed.
func (s *Service) AppendMessage(ctx context.Context, sessionID string, role domain.Role, text string) (domain.SessionRecord, error) {
	if !sessionIDPattern.MatchString(sessionID) {
		return domain.SessionRecord{}, ErrInvalidSessionID
	}
	if strings.TrimSpace(text) == "" {
		return domain.SessionRecord{}, ErrEmptyMessage
	}
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return domain.SessionRecord{}, fmt.Errorf("unknown message type %q", role)
	}

	now := s.clock()
	rec, err := s.repo.EnsureSession(ctx, sessionID, now)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	err = s.repo.AppendMessage(ctx, domain.TranscriptEntry{
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		CreatedAt: now,
	})
	return rec, err
}

// Transcript returns the record, transcript and live state of a session.
func (s *Service) Transcript(ctx context.Context, sessionID string) (View, error) {
	view := View{SessionID: sessionID, Messages: []domain.TranscriptEntry{}}

	state, err := s.sessions.Load(ctx, sessionID)
	switch {
	case err == nil:
		view.State = state
		view.Prompt, _ = s.engine.Render(state)
		view.Score = scoring.Score(state.Answers)
		view.Breakdown = scoring.Explain(state.Answers)
	case !errors.Is(err, domain.ErrSessionNotFound):
		return view, err
	}

	rec, err := s.repo.GetSession(ctx, sessionID)
	switch {
	case err == nil:
		view.Record = &rec
		if view.State == nil {
			view.Score = rec.Score
			view.Breakdown = scoring.Explain(rec.Answers)
		}
	case !errors.Is(err, domain.ErrSessionNotFound):
		return view, err
	}

	if view.State == nil && view.Record == nil {
		return view, domain.ErrSessionNotFound
	}

	msgs, err := s.repo.Messages(ctx, sessionID)
	if err != nil {
		return view, err
	}
	if msgs != nil {
		view.Messages = msgs
	}
	return view, nil
}

// Abandon marks a session abandoned. Completed sessions are left untouched.
func (s *Service) Abandon(ctx context.Context, sessionID string) (Reply, error) {
	var prev *domain.State
	next, err := s.sessions.Update(ctx, sessionID, func(cur *domain.State) (*domain.State, error) {
		prev = cur
		return s.engine.Abandon(cur), nil
	})
	if err != nil {
		return Reply{SessionID: sessionID}, err
	}
	s.sync(context.WithoutCancel(ctx), next)
	r := s.reply(next, runtime.Turn{})
	r.Diff = domain.Diff(prev, next)
	return r, nil
}

// MarkStale abandons sessions idle for longer than idle and returns how many changed.
// The live conversation is closed too, so a late answer cannot revive the record.
func (s *Service) MarkStale(ctx context.Context, idle time.Duration) (int, error) {
	ids, err := s.repo.MarkStale(ctx, s.clock().Add(-idle))
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := s.Abandon(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			s.logger.Warn("Stale session left open", "session_id", id, "error", err)
		}
	}
	if len(ids) > 0 {
		s.logger.Info("Marked stale sessions abandoned", "count", len(ids), "idle", idle)
	}
	return len(ids), nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Health pings the repository and, when supported, the state store.
func (s *Service) Health(ctx context.Context) map[string]string {
	out := map[string]string{"repository": status(s.repo.Ping(ctx))}
	if p, ok := s.sessions.Store().(pinger); ok {
		out["state_store"] = status(p.Ping(ctx))
	}
	return out
}

func status(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func (s *Service) reply(state *domain.State, turn runtime.Turn) Reply {
	return Reply{
		SessionID: state.SessionID,
		Messages:  turn.Messages,
		Prompt:    turn.Prompt,
		Outcome:   turn.Outcome,
		Score:     scoring.Score(state.Answers),
		Mode:      state.Mode,
		Status:    state.Status,
	}
}

type line struct {
	role domain.Role
	text string
}

func botLines(turn runtime.Turn) []line {
	var out []line
	for _, m := range turn.Messages {
		out = append(out, line{domain.RoleBot, m})
	}
	if turn.Prompt != nil {
		out = append(out, line{domain.RoleBot, turn.Prompt.Text})
	}
	return out
}

// record appends transcript lines with strictly increasing timestamps so that
// ordering by time is stable.
func (s *Service) record(ctx context.Context, sessionID string, lines ...line) {
	now := s.clock()
	for i, l := range lines {
		entry := domain.TranscriptEntry{
			SessionID: sessionID,
			Role:      l.role,
			Text:      l.text,
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		}
		s.persist(ctx, "append_message", func(ctx context.Context) error {
			return s.repo.AppendMessage(ctx, entry)
		})
	}
}

func (s *Service) sync(ctx context.Context, state *domain.State) {
	s.persist(ctx, "update_session", func(ctx context.Context) error {
		return s.repo.UpdateSession(ctx, domain.SessionRecord{
			SessionID: state.SessionID,
			Answers:   state.Answers,
			Score:     scoring.Score(state.Answers),
			Status:    state.Status,
			UpdatedAt: state.UpdatedAt,
		})
	})
}

func (s *Service) notify(ctx context.Context, lead domain.Lead) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	err := s.notifier.NotifyLead(ctx, lead)
	s.observer.ObserveNotification(err)
	if err != nil {
		s.logger.Error("Lead notification failed", "session_id", lead.SessionID, "error", err)
		return
	}
	s.logger.Info("Lead notification sent", "session_id", lead.SessionID, "score", lead.Score)
}

func (s *Service) persist(ctx context.Context, op string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		s.observer.ObservePersistenceFailure(op)
		s.logger.Warn("Persistence failed", "op", op, "error", err)
	}
}

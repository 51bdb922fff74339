package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/greenoffice/leadchat/internal/logging"
	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/flow"
	"github.com/greenoffice/leadchat/pkg/scoring"
)

// Engine is the questionnaire state machine. It is stateless: every call takes the
// current State and returns a new one.
type Engine struct {
	graph    *flow.Graph
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	clock    func() time.Time
	location *time.Location
	input    InputPolicy
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) { e.hooks = hooks }
}

// WithClock overrides time.Now, used for timestamps and date validation.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) { e.clock = clock }
}

// WithLocation sets the venue time zone used to decide what "today" is.
func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithInputPolicy sets the size limits applied to visitor input.
func WithInputPolicy(p InputPolicy) EngineOption {
	return func(e *Engine) { e.input = p }
}

// NewEngine creates an engine over graph.
func NewEngine(graph *flow.Graph, opts ...EngineOption) *Engine {
	e := &Engine{
		graph:    graph,
		logger:   logging.NewNop(),
		clock:    time.Now,
		location: time.UTC,
		input:    DefaultInputPolicy,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sanitize applies the engine's input policy to a message that is not an answer,
// such as a free-text question.
func (e *Engine) Sanitize(input string) (string, error) {
	return e.input.Clean(input)
}

// Graph returns the questionnaire graph.
func (e *Engine) Graph() *flow.Graph { return e.graph }

// Turn is what the user sees after an answer: zero or more bot messages followed by
// the next prompt (nil when none is expected).
type Turn struct {
	Messages []string       `json:"messages,omitempty"`
	Prompt   *Prompt        `json:"prompt,omitempty"`
	Outcome  domain.Outcome `json:"outcome,omitempty"`
	Score    int            `json:"score"`
}

// Start creates a fresh conversation at the entry question.
func (e *Engine) Start(ctx context.Context, sessionID string) (Turn, *domain.State, error) {
	state := domain.NewState(sessionID, e.graph.Entry(), e.clock())
	q, err := e.graph.Get(state.CurrentNodeID)
	if err != nil {
		return Turn{}, nil, fmt.Errorf("failed to load entry question: %w", err)
	}
	e.emitQuestionEnter(ctx, state, q)

	turn := Turn{Prompt: e.renderQuestion(q, state)}
	if g := e.graph.Greeting(); g != "" {
		turn.Messages = []string{g}
	}
	return turn, state, nil
}

// Advance validates input against the current question, records it and moves the
// conversation on. On a validation error the returned state is the input state and
// the turn re-presents the same question.
func (e *Engine) Advance(ctx context.Context, current *domain.State, input string) (Turn, *domain.State, error) {
	if current == nil {
		return Turn{}, nil, errors.New("advance called without state")
	}
	if current.Closed() {
		return Turn{}, current, domain.ErrConversationClosed
	}
	if current.Mode == domain.ModeDetour {
		return Turn{}, current, domain.ErrAwaitingQuestion
	}

	q, err := e.graph.Get(current.CurrentNodeID)
	if err != nil {
		return Turn{}, current, err
	}

	now := e.clock()
	value, err := e.parseAnswer(q, input, now)
	if err != nil {
		e.logger.Debug("Answer rejected", "session_id", current.SessionID, "node_id", q.ID, "error", err)
		return Turn{Prompt: e.renderQuestion(q, current), Score: scoring.Score(current.Answers)}, current, err
	}

	route := flow.Resolve(q, value)
	next := current.Snapshot()
	next.UpdatedAt = now

	if route.Kind == domain.RouteOutcome && route.Outcome == domain.OutcomeDetour {
		next.Mode = domain.ModeDetour
		e.emitOutcome(ctx, next, q.ID, domain.OutcomeDetour)
		return Turn{
			Messages: nonEmpty(e.graph.OutcomeMessage(domain.OutcomeDetour)),
			Outcome:  domain.OutcomeDetour,
			Score:    scoring.Score(next.Answers),
		}, next, nil
	}

	next.Answers.Set(q.Key(), value)
	e.emitQuestionLeave(ctx, next, q)

	if q.FansOut() {
		choices, _ := value.([]int)
		next.Pending = flow.FollowUps(q, choices)
		next.Resume = q.Resume
	}

	if route.Kind == domain.RouteDrain {
		route, err = drain(next)
		if err != nil {
			return Turn{}, current, fmt.Errorf("question %s: %w", q.ID, err)
		}
	}

	switch route.Kind {
	case domain.RouteGoto:
		return e.moveTo(ctx, next, route.To)
	case domain.RouteOutcome:
		return e.finish(ctx, next, q.ID, route.Outcome)
	}
	return Turn{}, current, fmt.Errorf("question %s has no route for answer %v", q.ID, value)
}

// ResumeAfterDetour leaves detour mode and re-presents the current question.
func (e *Engine) ResumeAfterDetour(current *domain.State) (Turn, *domain.State, error) {
	next := current
	if current.Mode == domain.ModeDetour {
		next = current.Snapshot()
		next.Mode = domain.ModeQuestionnaire
		next.UpdatedAt = e.clock()
	}
	p, err := e.Represent(next)
	if err != nil {
		return Turn{}, current, err
	}
	return Turn{Prompt: p, Score: scoring.Score(next.Answers)}, next, nil
}

// Abandon marks the conversation abandoned. A completed conversation is left as is.
func (e *Engine) Abandon(current *domain.State) *domain.State {
	if current.Status != domain.StatusActive {
		return current
	}
	next := current.Snapshot()
	next.Status = domain.StatusAbandoned
	next.Pending = nil
	next.UpdatedAt = e.clock()
	return next
}

func (e *Engine) moveTo(ctx context.Context, next *domain.State, id string) (Turn, *domain.State, error) {
	q, err := e.graph.Get(id)
	if err != nil {
		return Turn{}, nil, err
	}
	next.CurrentNodeID = id
	next.History = append(next.History, id)
	e.emitQuestionEnter(ctx, next, q)
	return Turn{Prompt: e.renderQuestion(q, next), Score: scoring.Score(next.Answers)}, next, nil
}

func (e *Engine) finish(ctx context.Context, next *domain.State, from string, o domain.Outcome) (Turn, *domain.State, error) {
	e.emitOutcome(ctx, next, from, o)
	next.Outcome = o
	msgs := nonEmpty(e.graph.OutcomeMessage(o))

	switch {
	case o.StartsLeadCapture():
		next.Mode = domain.ModeLead
		next.Pending = nil
		next.Resume = ""
		turn, next, err := e.moveTo(ctx, next, flow.LeadEntry)
		if err != nil {
			return Turn{}, nil, err
		}
		turn.Messages = msgs
		turn.Outcome = o
		return turn, next, nil

	case o.ClosesConversation():
		next.Mode = domain.ModeClosed
		next.Status = domain.StatusCompleted
		next.Pending = nil
		next.Resume = ""
		return Turn{Messages: msgs, Outcome: o, Score: scoring.Score(next.Answers)}, next, nil
	}
	return Turn{}, nil, fmt.Errorf("unexpected outcome %q", o)
}

// drain pops the next follow-up question, or returns the resume point when the
// queue is empty.
func drain(s *domain.State) (domain.Route, error) {
	if len(s.Pending) > 0 {
		id := s.Pending[0]
		s.Pending = s.Pending[1:]
		if len(s.Pending) == 0 {
			s.Pending = nil
		}
		return domain.Goto(id), nil
	}
	if s.Resume != "" {
		id := s.Resume
		s.Resume = ""
		return domain.Goto(id), nil
	}
	return domain.Route{}, errors.New("follow-up queue is empty and no resume point is set")
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func (e *Engine) emitQuestionEnter(ctx context.Context, s *domain.State, q domain.Question) {
	if e.hooks.OnQuestionEnter == nil {
		return
	}
	e.hooks.OnQuestionEnter(ctx, &domain.QuestionEvent{
		EventBase: domain.EventBase{Timestamp: e.clock(), Type: domain.EventQuestionEnter, SessionID: s.SessionID},
		NodeID:    q.ID,
		Section:   q.Section,
	})
}

func (e *Engine) emitQuestionLeave(ctx context.Context, s *domain.State, q domain.Question) {
	if e.hooks.OnQuestionLeave == nil {
		return
	}
	e.hooks.OnQuestionLeave(ctx, &domain.QuestionEvent{
		EventBase: domain.EventBase{Timestamp: e.clock(), Type: domain.EventQuestionLeave, SessionID: s.SessionID},
		NodeID:    q.ID,
		Section:   q.Section,
	})
}

func (e *Engine) emitOutcome(ctx context.Context, s *domain.State, from string, o domain.Outcome) {
	if e.hooks.OnOutcome == nil {
		return
	}
	e.hooks.OnOutcome(ctx, &domain.OutcomeEvent{
		EventBase: domain.EventBase{Timestamp: e.clock(), Type: domain.EventOutcome, SessionID: s.SessionID},
		NodeID:    from,
		Outcome:   o,
		Score:     scoring.Score(s.Answers),
	})
}

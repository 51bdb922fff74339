package knowledge

import (
	"context"
	"log/slog"
	"strings"

	"github.com/greenoffice/leadchat/internal/logging"
	"github.com/greenoffice/leadchat/pkg/domain"
)

// Source tells where an answer came from.
type Source string

const (
	SourceStatic   Source = "static"
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// HistoryWindow is the number of recent transcript lines given to the model.
const HistoryWindow = 3

// AcknowledgeFallback is used when no model can acknowledge an answer.
const AcknowledgeFallback = "Thank you for your response. I'm here to help you learn more about Green Office Villas and plan your perfect retreat."

// EnhanceRequest asks for a short acknowledgement of a free-text answer.
type EnhanceRequest struct {
	Answer          string   `json:"answer"`
	QuestionContext string   `json:"questionContext"`
	History         []string `json:"conversationHistory"`
}

// Responder is a language model able to answer venue questions.
type Responder interface {
	Answer(ctx context.Context, query string) (string, error)
	Acknowledge(ctx context.Context, req EnhanceRequest) (string, error)
}

// Result is the outcome of a lookup.
type Result struct {
	Text   string `json:"response"`
	Source Source `json:"source"`
	Topic  string `json:"topic,omitempty"`
}

// Service combines the keyword table with an optional Responder.
type Service struct {
	table     *Table
	responder Responder
	llmFirst  bool
	logger    *slog.Logger
	observe   func(Source)
	failures  func()
}

// Option configures a Service.
type Option func(*Service)

// WithResponder wires a language model.
func WithResponder(r Responder) Option {
	return func(s *Service) { s.responder = r }
}

// WithLLMFirst asks the model before the table; the table becomes the fallback.
func WithLLMFirst(enabled bool) Option {
	return func(s *Service) { s.llmFirst = enabled }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithObserver registers callbacks for answered lookups and model failures.
func WithObserver(onLookup func(Source), onFailure func()) Option {
	return func(s *Service) {
		s.observe = onLookup
		s.failures = onFailure
	}
}

// NewService creates a lookup service over table.
func NewService(table *Table, opts ...Option) *Service {
	s := &Service{
		table:  table,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the keyword table.
func (s *Service) Table() *Table { return s.table }

// Lookup answers query. It fails only on an empty query; model errors degrade to the table.
func (s *Service) Lookup(ctx context.Context, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, domain.ErrEmptyQuery
	}

	var res Result
	if s.llmFirst && s.responder != nil {
		if text, ok := s.ask(ctx, query); ok {
			res = Result{Text: text, Source: SourceLLM}
		} else {
			res = s.static(query)
		}
	} else {
		res = s.static(query)
		if res.Source == SourceFallback && s.responder != nil {
			if text, ok := s.ask(ctx, query); ok {
				res = Result{Text: text, Source: SourceLLM}
			}
		}
	}

	if s.observe != nil {
		s.observe(res.Source)
	}
	return res, nil
}

// Enhance acknowledges a free-text answer. Without a model, or when the model fails,
// it returns AcknowledgeFallback.
func (s *Service) Enhance(ctx context.Context, req EnhanceRequest) (Result, error) {
	if strings.TrimSpace(req.Answer) == "" {
		return Result{}, domain.ErrEmptyQuery
	}
	if len(req.History) > HistoryWindow {
		req.History = req.History[len(req.History)-HistoryWindow:]
	}
	if s.responder != nil {
		text, err := s.responder.Acknowledge(ctx, req)
		if err == nil && strings.TrimSpace(text) != "" {
			return Result{Text: text, Source: SourceLLM}, nil
		}
		s.fail("acknowledge", err)
	}
	return Result{Text: AcknowledgeFallback, Source: SourceFallback}, nil
}

func (s *Service) static(query string) Result {
	if tp, ok := s.table.Search(query); ok {
		return Result{Text: tp.Response, Source: SourceStatic, Topic: tp.Name}
	}
	return Result{Text: s.table.Fallback(), Source: SourceFallback}
}

func (s *Service) ask(ctx context.Context, query string) (string, bool) {
	text, err := s.responder.Answer(ctx, query)
	if err != nil || strings.TrimSpace(text) == "" {
		s.fail("answer", err)
		return "", false
	}
	return text, true
}

func (s *Service) fail(op string, err error) {
	if err != nil {
		s.logger.Warn("Language model call failed", "op", op, "error", err)
	} else {
		s.logger.Warn("Language model returned an empty response", "op", op)
	}
	if s.failures != nil {
		s.failures()
	}
}

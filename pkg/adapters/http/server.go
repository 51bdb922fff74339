package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/greenoffice/leadchat/internal/logging"
	"github.com/greenoffice/leadchat/pkg/conversation"
	"github.com/greenoffice/leadchat/pkg/observability"
)

// DefaultStaleAfter is how long an active session may sit idle before cleanup
// marks it abandoned.
const DefaultStaleAfter = 24 * time.Hour

// Server serves the chat API over a conversation.Service.
type Server struct {
	svc     *conversation.Service
	streams *StreamManager
	metrics *observability.Metrics
	logger  *slog.Logger
	clock   func() time.Time

	version     string
	apiVersion  string
	corsOrigins []string
	adminUser   string
	adminPass   string
	staleAfter  time.Duration
	location    *time.Location
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics records request durations and serves /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAdmin enables the admin routes behind HTTP basic auth.
func WithAdmin(username, password string) Option {
	return func(s *Server) {
		s.adminUser = username
		s.adminPass = password
	}
}

// WithStaleAfter sets the idle period used by the cleanup endpoint.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithCORSOrigins allows browser calls from the given origins. "*" allows any.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithLocation sets the time zone used by dashboard date ranges.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) { s.clock = clock }
}

// NewHandler creates the HTTP handler for the chat service.
func NewHandler(svc *conversation.Service, opts ...Option) (http.Handler, error) {
	s := &Server{
		svc:        svc,
		logger:     logging.NewNop(),
		clock:      time.Now,
		version:    "dev",
		staleAfter: DefaultStaleAfter,
		location:   time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)

	doc, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	if doc.Info != nil {
		s.apiVersion = doc.Info.Version
	}
	router, err := newRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build openapi router: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(s.cors)
	r.Use(validateRequests(router))

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.startSession)
		r.Get("/sessions/{id}", s.getSession)
		r.Delete("/sessions/{id}", s.abandonSession)
		r.Post("/sessions/{id}/answers", s.submitAnswer)
		r.Get("/sessions/{id}/events", s.subscribeEvents)

		r.Post("/chat", s.appendMessage)
		r.Get("/chat", s.getChat)
		r.Post("/knowledge", s.askKnowledge)
		r.Post("/assist", s.assist)
		r.Get("/graph", s.getGraph)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminEnabled)
			r.Use(middleware.BasicAuth("leadchat admin", map[string]string{s.adminUser: s.adminPass}))
			r.Get("/sessions", s.listSessions)
			r.Get("/export.csv", s.exportLeads)
			r.Get("/sessions/{id}/debug", s.debugSession)
			r.Post("/cleanup", s.cleanupSessions)
		})
	})

	return r, nil
}

// Streams exposes the SSE fan-out, mainly for tests.
func (s *Server) Streams() *StreamManager { return s.streams }

// observe logs every request and records its duration.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.clock()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := s.clock().Sub(start)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if s.metrics != nil {
			s.metrics.ObserveHTTP(r.Method, route, status, elapsed)
		}
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && len(s.corsOrigins) > 0 {
			allowed := slices.Contains(s.corsOrigins, "*") || slices.Contains(s.corsOrigins, origin)
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// adminEnabled hides the admin routes entirely when no credentials are configured.
func (s *Server) adminEnabled(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminPass == "" {
			writeError(w, http.StatusNotFound, "admin routes are disabled")
			return
		}
		next.ServeHTTP(w, r)
	})
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/greenoffice/leadchat/internal/logging"
	"github.com/greenoffice/leadchat/internal/presentation/graph"
	"github.com/greenoffice/leadchat/pkg/conversation"
	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/knowledge"
	"github.com/greenoffice/leadchat/pkg/scoring"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	GraphURI        = "leadchat://graph"
	GraphMermaidURI = "leadchat://graph/mermaid"
)

// QuestionInfo describes one node of the questionnaire.
type QuestionInfo struct {
	Question domain.Question `json:"question" jsonschema_description:"The node as defined in the graph"`
	Routes   []string        `json:"routes" jsonschema_description:"Where each answer leads, as target node IDs or outcomes"`
}

// ScoreResult is the qualification score of a set of answers.
type ScoreResult struct {
	Score       int                 `json:"score" jsonschema_description:"Qualification score between 0 and 100"`
	Breakdown   []scoring.Component `json:"breakdown" jsonschema_description:"Points per rubric component"`
	Qualified   bool                `json:"qualified"`
	HighQuality bool                `json:"high_quality"`
}

type searchArgs struct {
	Query string `json:"query"`
}

type describeArgs struct {
	NodeID string `json:"node_id"`
}

type scoreArgs struct {
	Answers string `json:"answers"`
}

type startArgs struct {
	SessionID string `json:"session_id"`
}

type answerArgs struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// Server exposes the chat service as an MCP server.
type Server struct {
	svc       *conversation.Service
	mcpServer *server.MCPServer
	logger    *slog.Logger
	version   string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithVersion sets the version advertised to clients.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = strings.TrimSpace(v) }
}

// NewServer creates a new MCP Server instance.
func NewServer(svc *conversation.Service, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("leadchat-mcp", s.version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("search_knowledge",
		mcp.WithDescription("Answer a question about Green Office Villas from the venue knowledge base."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The question to answer")),
		mcp.WithOutputSchema[knowledge.Result](),
	), mcp.NewStructuredToolHandler(s.handleSearch))

	s.mcpServer.AddTool(mcp.NewTool("describe_question",
		mcp.WithDescription("Describe one question of the qualification flow and where its answers lead."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Question ID, e.g. Q1 or D4")),
		mcp.WithOutputSchema[QuestionInfo](),
	), mcp.NewStructuredToolHandler(s.handleDescribe))

	s.mcpServer.AddTool(mcp.NewTool("score_answers",
		mcp.WithDescription("Compute the lead qualification score for a set of answers."),
		mcp.WithString("answers", mcp.Required(), mcp.Description(`JSON object keyed by question ID, e.g. {"Q1":1,"Q3":30}`)),
		mcp.WithOutputSchema[ScoreResult](),
	), mcp.NewStructuredToolHandler(s.handleScore))

	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start or resume a qualification conversation."),
		mcp.WithString("session_id", mcp.Description("Session ID (optional, generated when omitted)")),
		mcp.WithOutputSchema[conversation.Reply](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("submit_answer",
		mcp.WithDescription("Answer the current question of a conversation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("answer", mcp.Required(), mcp.Description("The answer, as an option number, label or value")),
		mcp.WithOutputSchema[conversation.Reply](),
	), mcp.NewStructuredToolHandler(s.handleAnswer))
}

func (s *Server) handleSearch(ctx context.Context, _ mcp.CallToolRequest, args searchArgs) (knowledge.Result, error) {
	reply, err := s.svc.Ask(ctx, "", args.Query)
	if err != nil {
		return knowledge.Result{}, err
	}
	return *reply.Knowledge, nil
}

func (s *Server) handleDescribe(_ context.Context, _ mcp.CallToolRequest, args describeArgs) (QuestionInfo, error) {
	q, err := s.svc.Engine().Graph().Get(args.NodeID)
	if err != nil {
		return QuestionInfo{}, fmt.Errorf("%s: %w", args.NodeID, err)
	}
	var routes []string
	for _, r := range q.Rule.Routes() {
		routes = append(routes, routeName(r))
	}
	routes = append(routes, q.FollowUps...)
	if q.Resume != "" {
		routes = append(routes, q.Resume)
	}
	return QuestionInfo{Question: q, Routes: compact(routes)}, nil
}

func (s *Server) handleScore(_ context.Context, _ mcp.CallToolRequest, args scoreArgs) (ScoreResult, error) {
	answers := domain.NewAnswers()
	if err := json.Unmarshal([]byte(args.Answers), &answers); err != nil {
		return ScoreResult{}, fmt.Errorf("answers must be a JSON object: %w", err)
	}
	score := scoring.Score(answers)
	return ScoreResult{
		Score:       score,
		Breakdown:   scoring.Explain(answers),
		Qualified:   score >= scoring.Qualified,
		HighQuality: score >= scoring.HighQuality,
	}, nil
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args startArgs) (conversation.Reply, error) {
	return s.svc.Start(ctx, args.SessionID)
}

func (s *Server) handleAnswer(ctx context.Context, _ mcp.CallToolRequest, args answerArgs) (conversation.Reply, error) {
	reply, err := s.svc.Answer(ctx, args.SessionID, args.Answer)
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		// The reply re-presents the question; the client only needs to retry.
		return reply, nil
	}
	return reply, err
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Qualification flow",
		mcp.WithResourceDescription("All questions of the qualification flow as JSON"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		g := s.svc.Engine().Graph()
		data, err := json.Marshal(map[string]any{"entry": g.Entry(), "nodes": g.Nodes()})
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: GraphURI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(GraphMermaidURI, "Qualification flow diagram",
		mcp.WithResourceDescription("Mermaid flowchart of the qualification flow"),
		mcp.WithMIMEType("text/vnd.mermaid"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphMermaidURI,
				MIMEType: "text/vnd.mermaid",
				Text:     graph.GenerateMermaid(s.svc.Engine().Graph(), nil),
			},
		}, nil
	})
}

func routeName(r domain.Route) string {
	switch r.Kind {
	case domain.RouteGoto:
		return r.To
	case domain.RouteOutcome:
		return "outcome:" + string(r.Outcome)
	case domain.RouteDrain:
		return "follow-up queue"
	}
	return ""
}

// compact drops empty and repeated entries, keeping the first occurrence.
func compact(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

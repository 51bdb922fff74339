package http

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/greenoffice/leadchat/internal/logging"
	"github.com/greenoffice/leadchat/internal/runtime"
	"github.com/greenoffice/leadchat/pkg/adapters/memory"
	"github.com/greenoffice/leadchat/pkg/admin"
	"github.com/greenoffice/leadchat/pkg/conversation"
	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/flow"
	"github.com/greenoffice/leadchat/pkg/knowledge"
	"github.com/greenoffice/leadchat/pkg/observability"
	"github.com/greenoffice/leadchat/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

type testEnv struct {
	handler http.Handler
	repo    *memory.Repository
	metrics *observability.Metrics
}

func newEnv(t *testing.T, opts ...Option) testEnv {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	repo := memory.NewRepository()
	metrics := observability.New()
	svc := conversation.New(
		runtime.NewEngine(flow.Default(), runtime.WithClock(clock)),
		session.NewManager(memory.NewStore()),
		repo,
		knowledge.NewService(knowledge.Default()),
		conversation.WithClock(clock),
		conversation.WithObserver(metrics),
	)
	opts = append([]Option{
		WithMetrics(metrics),
		WithAdmin("sales", "s3cret"),
		WithClock(clock),
		WithVersion("1.2.3\n"),
	}, opts...)
	h, err := NewHandler(svc, opts...)
	require.NoError(t, err)
	return testEnv{handler: h, repo: repo, metrics: metrics}
}

func (e testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e testEnv) admin(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.SetBasicAuth("sales", "s3cret")
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeReply(t *testing.T, w *httptest.ResponseRecorder) conversation.Reply {
	t.Helper()
	var r conversation.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r), w.Body.String())
	return r
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body["error"]
}

func TestSessionLifecycle(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, "POST", "/api/sessions", `{"sessionId":"s1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	r := decodeReply(t, w)
	assert.Equal(t, "s1", r.SessionID)
	assert.Equal(t, []string{flow.Greeting}, r.Messages)
	assert.Equal(t, "Q1", r.Prompt.NodeID)

	w = env.do(t, "POST", "/api/sessions/s1/answers", `{"answer":"1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Q3", decodeReply(t, w).Prompt.NodeID)

	w = env.do(t, "POST", "/api/sessions/s1/answers", `{"answer":"lots"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	r = decodeReply(t, w)
	assert.Equal(t, "Q3", r.Prompt.NodeID)
	assert.NotEmpty(t, r.Error)

	w = env.do(t, "GET", "/api/sessions/s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var view conversation.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "Q3", view.Prompt.NodeID)
	assert.Len(t, view.Messages, 4)

	for _, a := range []string{"300", "no"} {
		w = env.do(t, "POST", "/api/sessions/s1/answers", `{"answer":"`+a+`"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.Equal(t, domain.OutcomeLeadDeclined, decodeReply(t, w).Outcome)

	w = env.do(t, "POST", "/api/sessions/s1/answers", `{"answer":"yes"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, domain.ErrConversationClosed.Error(), errorOf(t, w))
}

func TestStartWithoutBodyMintsID(t *testing.T) {
	env := newEnv(t)
	w := env.do(t, "POST", "/api/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, decodeReply(t, w).SessionID)
}

func TestRequestValidation(t *testing.T) {
	env := newEnv(t)
	env.do(t, "POST", "/api/sessions", `{"sessionId":"s1"}`)

	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"answer missing", "POST", "/api/sessions/s1/answers", `{}`, http.StatusBadRequest},
		{"answer wrong type", "POST", "/api/sessions/s1/answers", `{"answer":3}`, http.StatusBadRequest},
		{"bad session id", "POST", "/api/sessions", `{"sessionId":"../x"}`, http.StatusBadRequest},
		{"bad path id", "GET", "/api/sessions/bad!id", "", http.StatusBadRequest},
		{"unknown session", "POST", "/api/sessions/nobody/answers", `{"answer":"1"}`, http.StatusNotFound},
		{"unknown view", "GET", "/api/sessions/nobody", "", http.StatusNotFound},
		{"chat without message", "POST", "/api/chat", `{"sessionId":"s1"}`, http.StatusBadRequest},
		{"chat bad type", "POST", "/api/chat", `{"sessionId":"s1","message":"hi","messageType":"robot"}`, http.StatusBadRequest},
		{"chat get without id", "GET", "/api/chat", "", http.StatusBadRequest},
		{"knowledge without query", "POST", "/api/knowledge", `{}`, http.StatusBadRequest},
		{"assist bad type", "POST", "/api/assist", `{"query":"x","type":"poem"}`, http.StatusBadRequest},
		{"assist enhanced without context", "POST", "/api/assist", `{"query":"x","type":"enhanced"}`, http.StatusBadRequest},
		{"graph bad format", "GET", "/api/graph?format=png", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, errorOf(t, w))
		})
	}
}

func TestChatEndpoints(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, "POST", "/api/chat", `{"sessionId":"widget-1","message":"Hello"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"sessionId":"widget-1"}`, w.Body.String())

	w = env.do(t, "GET", "/api/chat?sessionId=widget-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Session  *domain.SessionRecord    `json:"session"`
		Messages []domain.TranscriptEntry `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Session)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, domain.RoleUser, body.Messages[0].Role)

	w = env.do(t, "GET", "/api/chat?sessionId=unknown", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"session":null,"messages":[]}`, w.Body.String())
}

func TestKnowledgeDetour(t *testing.T) {
	env := newEnv(t)
	env.do(t, "POST", "/api/sessions", `{"sessionId":"s1"}`)
	env.do(t, "POST", "/api/sessions/s1/answers", `{"answer":"0"}`)

	w := env.do(t, "POST", "/api/sessions/s1/answers", `{"answer":"`+flow.AskOption+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.ModeDetour, decodeReply(t, w).Mode)

	w = env.do(t, "POST", "/api/sessions/s1/answers", `{"answer":"0"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, "POST", "/api/knowledge", `{"query":"Is the wifi fast?","sessionId":"s1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r := decodeReply(t, w)
	require.NotNil(t, r.Knowledge)
	assert.Equal(t, knowledge.SourceStatic, r.Knowledge.Source)
	assert.Equal(t, "Q2", r.Prompt.NodeID)
}

func TestAssist(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, "POST", "/api/assist", `{"query":"wifi?","type":"knowledge"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"source":"static"`)

	w = env.do(t, "POST", "/api/assist", `{"query":"We love hiking","type":"enhanced","context":{"questionContext":"Goals","conversationHistory":["a","b"]}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"source":"fallback"`)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestGraph(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, "GET", "/api/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Entry string            `json:"entry"`
		Nodes []domain.Question `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Q1", body.Entry)
	assert.Equal(t, flow.Default().Len(), len(body.Nodes))

	w = env.do(t, "GET", "/api/graph?format=mermaid", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph TD\n"))
}

func TestAdminAuth(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, "GET", "/api/admin/sessions", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest("GET", "/api/admin/sessions", nil)
	req.SetBasicAuth("sales", "wrong")
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	disabled := newEnv(t, WithAdmin("", ""))
	assert.Equal(t, http.StatusNotFound, disabled.admin(t, "GET", "/api/admin/sessions").Code)
}

func seed(t *testing.T, repo *memory.Repository) {
	t.Helper()
	ctx := context.Background()
	add := func(id string, created time.Time, score int, status domain.Status, kv ...any) {
		_, err := repo.EnsureSession(ctx, id, created)
		require.NoError(t, err)
		a := domain.NewAnswers()
		for i := 0; i < len(kv); i += 2 {
			a.Set(kv[i].(string), kv[i+1])
		}
		require.NoError(t, repo.UpdateSession(ctx, domain.SessionRecord{
			SessionID: id, Answers: a, Score: score, Status: status, UpdatedAt: created,
		}))
	}
	add("hot", fixedNow.Add(-time.Hour), 80, domain.StatusCompleted, "Q1", 1, "Q3", 30, "name", "Ana", "email", "ana@example.com")
	add("cold", fixedNow.Add(-48*time.Hour), 20, domain.StatusActive, "Q1", 2)
}

func TestAdminSessions(t *testing.T) {
	env := newEnv(t)
	seed(t, env.repo)

	w := env.admin(t, "GET", "/api/admin/sessions?range=all")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Sessions []domain.SessionRecord `json:"sessions"`
		Summary  admin.Summary          `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Sessions, 2)
	assert.Equal(t, 2, body.Summary.Total)
	assert.Equal(t, 1, body.Summary.WithEmail)
	assert.Equal(t, 50, body.Summary.AverageScore)

	w = env.admin(t, "GET", "/api/admin/sessions?range=today&min_score=50&role=1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "hot", body.Sessions[0].SessionID)

	w = env.admin(t, "GET", "/api/admin/sessions?min_score=500")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminExport(t *testing.T) {
	env := newEnv(t)
	seed(t, env.repo)

	w := env.admin(t, "GET", "/api/admin/export.csv")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "green-office-villas-leads-2026-03-10.csv")

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ana@example.com", rows[1][0])
}

func TestAdminDebugAndCleanup(t *testing.T) {
	env := newEnv(t, WithStaleAfter(24*time.Hour))
	seed(t, env.repo)

	w := env.admin(t, "GET", "/api/admin/sessions/hot/debug")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"repository":"ok"`)

	w = env.admin(t, "GET", "/api/admin/sessions/ghost/debug")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.admin(t, "POST", "/api/admin/cleanup")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"abandoned":1`)

	rec, err := env.repo.GetSession(context.Background(), "cold")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAbandoned, rec.Status)
}

func TestOpsEndpoints(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = env.do(t, "GET", "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"app":"leadchat","version":"1.2.3","api_version":"1.0.0"}`, w.Body.String())

	w = env.do(t, "GET", "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	env.do(t, "POST", "/api/sessions", `{"sessionId":"m1"}`)
	w = env.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "leadchat_http_request_duration_seconds")
	assert.Contains(t, w.Body.String(), `route="/api/sessions"`)
	assert.Contains(t, w.Body.String(), "leadchat_sessions_started_total 1")
}

func TestCORS(t *testing.T) {
	env := newEnv(t, WithCORSOrigins("https://greenofficevillas.com"))

	req := httptest.NewRequest("OPTIONS", "/api/sessions", nil)
	req.Header.Set("Origin", "https://greenofficevillas.com")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://greenofficevillas.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents_Session(t *testing.T) {
	env := newEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/sessions", "application/json", strings.NewReader(`{"sessionId":"sse-1"}`))
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/sessions/sse-1/events?watch=answers", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	lines := bufio.NewScanner(stream.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	resp, err = http.Post(srv.URL+"/api/sessions/sse-1/answers", "application/json", strings.NewReader(`{"answer":"1"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data string
	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			data = strings.TrimPrefix(lines.Text(), "data: ")
			break
		}
	}
	var diff domain.StateDiff
	require.NoError(t, json.Unmarshal([]byte(data), &diff))
	assert.Equal(t, "sse-1", diff.SessionID)
	assert.Contains(t, diff.Answers, "Q1")
}

func TestWatchSet(t *testing.T) {
	closed := domain.ModeClosed
	answered := domain.StateDiff{SessionID: "s", Answers: map[string]any{"Q1": 1}}
	moved := domain.StateDiff{SessionID: "s", Mode: &closed}
	drained := domain.StateDiff{SessionID: "s", Pending: &[]string{}}

	assert.True(t, parseWatch("").matches(answered))
	assert.True(t, parseWatch("answers").matches(answered))
	assert.False(t, parseWatch("status").matches(answered))
	assert.True(t, parseWatch(" history , status").matches(moved))
	assert.True(t, parseWatch("pending").matches(drained))
	assert.False(t, parseWatch("answers,history").matches(drained))
}

func TestStreamManager(t *testing.T) {
	sm := NewStreamManager(logging.NewNop())
	all, cancelAll := sm.Subscribe("s", nil)
	answers, cancelAnswers := sm.Subscribe("s", parseWatch("answers"))
	other, cancelOther := sm.Subscribe("t", nil)
	defer cancelOther()
	assert.Equal(t, 2, sm.Subscribers("s"))

	closed := domain.ModeClosed
	sm.Broadcast(domain.StateDiff{SessionID: "s", Mode: &closed})

	got := <-all
	assert.Equal(t, domain.ModeClosed, *got.Mode)
	assert.Empty(t, answers)
	assert.Empty(t, other)

	cancelAnswers()
	cancelAnswers()
	assert.Equal(t, 1, sm.Subscribers("s"))
	_, open := <-answers
	assert.False(t, open)

	cancelAll()
	assert.Zero(t, sm.Subscribers("s"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&domain.ValidationError{NodeID: "Q3"}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusFor(runtime.ErrInputTooLarge))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrAwaitingQuestion))
	assert.Equal(t, http.StatusInternalServerError, statusFor(context.DeadlineExceeded))
}

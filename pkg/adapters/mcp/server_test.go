package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/greenoffice/leadchat/internal/runtime"
	"github.com/greenoffice/leadchat/pkg/adapters/memory"
	"github.com/greenoffice/leadchat/pkg/conversation"
	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/flow"
	"github.com/greenoffice/leadchat/pkg/knowledge"
	"github.com/greenoffice/leadchat/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*Server, *memory.Repository) {
	t.Helper()
	clock := func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }
	repo := memory.NewRepository()
	svc := conversation.New(
		runtime.NewEngine(flow.Default(), runtime.WithClock(clock)),
		session.NewManager(memory.NewStore()),
		repo,
		knowledge.NewService(knowledge.Default()),
		conversation.WithClock(clock),
	)
	return NewServer(svc, WithVersion("1.2.3\n")), repo
}

// call sends a JSON-RPC message through the server and returns the decoded result.
func call(t *testing.T, s *Server, method string, params any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	require.NoError(t, err)

	resp := s.mcpServer.HandleMessage(context.Background(), raw)
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var out struct {
		Result map[string]any `json:"result"`
		Error  any            `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.Nil(t, out.Error, string(data))
	return out.Result
}

func TestServer_ListTools(t *testing.T) {
	s, _ := newServer(t)
	res := call(t, s, "tools/list", map[string]any{})

	var names []string
	for _, tool := range res["tools"].([]any) {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{"search_knowledge", "describe_question", "score_answers", "start_session", "submit_answer"}, names)
}

func TestServer_SearchKnowledge(t *testing.T) {
	s, repo := newServer(t)
	res := call(t, s, "tools/call", map[string]any{
		"name":      "search_knowledge",
		"arguments": map[string]any{"query": "Is the wifi fast?"},
	})

	assert.NotEqual(t, true, res["isError"])
	structured := res["structuredContent"].(map[string]any)
	assert.Equal(t, "static", structured["source"])
	assert.Equal(t, "connectivity", structured["topic"])
	assert.Contains(t, structured["response"], "Starlink")

	assert.Len(t, repo.Queries(), 1)
}

func TestServer_SearchKnowledge_EmptyQuery(t *testing.T) {
	s, _ := newServer(t)
	res := call(t, s, "tools/call", map[string]any{
		"name":      "search_knowledge",
		"arguments": map[string]any{"query": "   "},
	})
	assert.Equal(t, true, res["isError"])
}

func TestServer_DescribeQuestion(t *testing.T) {
	s, _ := newServer(t)

	info, err := s.handleDescribe(context.Background(), mcp.CallToolRequest{}, describeArgs{NodeID: "Q1"})
	require.NoError(t, err)
	assert.Equal(t, "Q1", info.Question.ID)
	assert.Len(t, info.Question.Options, 3)
	assert.Contains(t, info.Routes, "Q2")
	assert.Contains(t, info.Routes, "Q3")

	info, err = s.handleDescribe(context.Background(), mcp.CallToolRequest{}, describeArgs{NodeID: "Q3"})
	require.NoError(t, err)
	assert.Contains(t, info.Routes, "outcome:"+string(domain.OutcomeTooLarge))

	_, err = s.handleDescribe(context.Background(), mcp.CallToolRequest{}, describeArgs{NodeID: "nope"})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestServer_ScoreAnswers(t *testing.T) {
	s, _ := newServer(t)

	res, err := s.handleScore(context.Background(), mcp.CallToolRequest{}, scoreArgs{Answers: `{"Q1":1,"Q3":30}`})
	require.NoError(t, err)
	assert.Equal(t, 40, res.Score)
	assert.False(t, res.Qualified)
	assert.Len(t, res.Breakdown, 7)

	_, err = s.handleScore(context.Background(), mcp.CallToolRequest{}, scoreArgs{Answers: `[1,2]`})
	assert.Error(t, err)
}

func TestServer_Conversation(t *testing.T) {
	s, _ := newServer(t)
	ctx := context.Background()

	reply, err := s.handleStart(ctx, mcp.CallToolRequest{}, startArgs{})
	require.NoError(t, err)
	id := reply.SessionID
	require.NotEmpty(t, id)
	require.NotNil(t, reply.Prompt)
	assert.Equal(t, "Q1", reply.Prompt.NodeID)

	reply, err = s.handleStart(ctx, mcp.CallToolRequest{}, startArgs{SessionID: id})
	require.NoError(t, err)
	assert.True(t, reply.Resumed)

	reply, err = s.handleAnswer(ctx, mcp.CallToolRequest{}, answerArgs{SessionID: id, Answer: "seven"})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Error)
	assert.Equal(t, "Q1", reply.Prompt.NodeID)

	reply, err = s.handleAnswer(ctx, mcp.CallToolRequest{}, answerArgs{SessionID: id, Answer: "2"})
	require.NoError(t, err)
	assert.Equal(t, "Q3", reply.Prompt.NodeID)

	_, err = s.handleAnswer(ctx, mcp.CallToolRequest{}, answerArgs{SessionID: "missing", Answer: "1"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestServer_Resources(t *testing.T) {
	s, _ := newServer(t)

	res := call(t, s, "resources/read", map[string]any{"uri": GraphURI})
	contents := res["contents"].([]any)
	require.Len(t, contents, 1)
	first := contents[0].(map[string]any)
	assert.Equal(t, "application/json", first["mimeType"])

	var g struct {
		Entry string            `json:"entry"`
		Nodes []domain.Question `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(first["text"].(string)), &g))
	assert.Equal(t, "Q1", g.Entry)
	assert.Equal(t, flow.Default().Len(), len(g.Nodes))

	res = call(t, s, "resources/read", map[string]any{"uri": GraphMermaidURI})
	text := res["contents"].([]any)[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, "graph TD")
}

func TestCompact(t *testing.T) {
	assert.Equal(t, []string{"Q2", "Q3"}, compact([]string{"Q2", "", "Q3", "Q2"}))
}

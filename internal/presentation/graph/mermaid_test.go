package graph_test

import (
	"strings"
	"testing"

	"github.com/greenoffice/leadchat/internal/presentation/graph"
	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMermaid_Default(t *testing.T) {
	out := graph.GenerateMermaid(flow.Default(), nil)

	for _, want := range []string{
		"graph TD\n",
		`Q1(("Q1"))`,
		`Q2[/"Q2"/]`,
		`Q3["Q3"]`,
		`Q6[["Q6"]]`,
		`Q1 -- "1: My clients are companies that..." --> Q2`,
		`Q1 -- "other" --> Q3`,
		`Q3 -- "1-110" --> Q4`,
		`Q3 -- "111-400" --> out_lead_capture_waitlist`,
		`Q2 -. ask .-> out_knowledge_detour`,
		`Q6 -. "1: Team-building" .-> Q6_1`,
		`Q6 -. "resume" .-> Q7`,
		`Q6_1 -. "next" .-> queue`,
		`queue{{"follow-up queue"}}`,
		`out_lead_capture_too_large --> L0`,
		`Q9 -- "no" --> out_conversation_complete`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Overlay Styles")
	assert.Equal(t, 1, strings.Count(out, "Q2 -. ask .-> out_knowledge_detour"), "detour edges are collapsed")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(flow.Default(), &graph.GraphOverlay{
		VisitedNodes: []string{"Q1", "Q1", "Q3", "ghost"},
		CurrentNode:  "Q4",
	})
	assert.Contains(t, out, "classDef visited")
	assert.Equal(t, 1, strings.Count(out, "class Q1 visited;"))
	assert.Contains(t, out, "class Q3 visited;")
	assert.NotContains(t, out, "class ghost")
	assert.Contains(t, out, "class Q4 current;")
}

func TestGenerateMermaid_IDSanitization(t *testing.T) {
	g, err := flow.New([]domain.Question{
		{ID: "intro.step-1", Kind: domain.KindText, Rule: domain.Rule{Kind: domain.RuleAlways, Next: domain.Goto("a/b")}},
		{ID: "a/b", Kind: domain.KindYesNo, Rule: domain.Rule{Kind: domain.RuleYesNo, Yes: domain.Finish(domain.OutcomeLeadCaptured), No: domain.Finish(domain.OutcomeLeadDeclined)}},
	})
	require.NoError(t, err)

	out := graph.GenerateMermaid(g, nil)
	assert.Contains(t, out, `intro_step_1(("intro.step-1"))`)
	assert.Contains(t, out, "intro_step_1 --> a_b")
	assert.Contains(t, out, `a_b -- "yes" --> out_lead_captured`)
	assert.Contains(t, out, `out_lead_declined(["lead_declined"])`)
	assert.NotContains(t, out, "out_lead_captured --> ")
}

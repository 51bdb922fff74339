package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/flow"
)

// GraphOverlay contains session data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of the questionnaire.
// Shapes:
// - Entry: ((Circle))
// - Fan-out (multi choice with follow-ups): [[Subroutine]]
// - Choice and yes/no: [/Parallelogram/]
// - Free input (number, date, text, email): [Rectangle]
// - Outcomes: ([Stadium])
// Knowledge detours are collapsed into one dotted edge per question.
func GenerateMermaid(g *flow.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	outcomes := map[domain.Outcome]bool{}
	queued := false
	for _, q := range g.Nodes() {
		id := sanitizeMermaidID(q.ID)
		opener, closer := "[", "]"
		switch {
		case q.ID == g.Entry():
			opener, closer = "((", "))"
		case q.FansOut():
			opener, closer = "[[", "]]"
		case q.Kind == domain.KindSingle || q.Kind == domain.KindMulti || q.Kind == domain.KindYesNo:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, q.ID, closer)

		seen := map[string]bool{}
		edge := func(arrow, to string) {
			line := fmt.Sprintf("    %s %s %s\n", id, arrow, to)
			if !seen[line] {
				seen[line] = true
				sb.WriteString(line)
			}
		}
		for _, e := range edges(q) {
			switch e.route.Kind {
			case domain.RouteGoto:
				edge(labelled("-->", e.label), sanitizeMermaidID(e.route.To))
			case domain.RouteOutcome:
				outcomes[e.route.Outcome] = true
				arrow := labelled("-->", e.label)
				if e.route.Outcome == domain.OutcomeDetour {
					arrow = "-. ask .->"
				}
				edge(arrow, outcomeID(e.route.Outcome))
			case domain.RouteDrain:
				edge(labelled("-.->", "next"), "queue")
				queued = true
			}
		}
		for i, f := range q.FollowUps {
			if f != "" {
				edge(labelled("-.->", optionLabel(q, i)), sanitizeMermaidID(f))
			}
		}
		if q.Resume != "" {
			edge(labelled("-.->", "resume"), sanitizeMermaidID(q.Resume))
		}
	}

	if queued {
		sb.WriteString("    queue{{\"follow-up queue\"}}\n")
	}
	for _, o := range slices.Sorted(maps.Keys(outcomes)) {
		fmt.Fprintf(&sb, "    %s([\"%s\"])\n", outcomeID(o), o)
		if o.StartsLeadCapture() {
			fmt.Fprintf(&sb, "    %s --> %s\n", outcomeID(o), sanitizeMermaidID(flow.LeadEntry))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on light backgrounds regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" && g.Has(id) {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

type labelledRoute struct {
	label string
	route domain.Route
}

func edges(q domain.Question) []labelledRoute {
	r := q.Rule
	var out []labelledRoute
	add := func(label string, rt domain.Route) {
		if !rt.IsZero() {
			out = append(out, labelledRoute{label, rt})
		}
	}
	switch r.Kind {
	case domain.RuleByOption:
		fallback := len(r.Options) < len(q.Options)
		for i, rt := range r.Options {
			if rt.IsZero() {
				fallback = true
				continue
			}
			add(optionLabel(q, i), rt)
		}
		if fallback {
			add("other", r.Next)
		}
	case domain.RuleRange:
		for _, b := range r.Bands {
			add(bandLabel(b), b.Route)
		}
		add("other", r.Next)
	case domain.RuleYesNo:
		add("yes", r.Yes)
		add("no", r.No)
	default:
		add("", r.Next)
	}
	return out
}

func labelled(arrow, label string) string {
	if label == "" {
		return arrow
	}
	label = strings.ReplaceAll(label, "\"", "'")
	if arrow == "-.->" {
		return fmt.Sprintf("-. \"%s\" .->", label)
	}
	return fmt.Sprintf("-- \"%s\" -->", label)
}

func optionLabel(q domain.Question, i int) string {
	if i < len(q.Options) {
		label := q.Options[i]
		if r := []rune(label); len(r) > 32 {
			label = string(r[:29]) + "..."
		}
		return fmt.Sprintf("%d: %s", i+1, label)
	}
	return fmt.Sprint(i + 1)
}

func bandLabel(b domain.Band) string {
	if b.Max == 0 {
		return fmt.Sprintf("%d+", b.Min)
	}
	return fmt.Sprintf("%d-%d", b.Min, b.Max)
}

func outcomeID(o domain.Outcome) string {
	return "out_" + sanitizeMermaidID(string(o))
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}

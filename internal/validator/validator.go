package validator

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/flow"
)

// ValidateGraph checks for broken links, unroutable answers and unreachable
// questions, crawling from the entry question.
func ValidateGraph(g *flow.Graph) error {
	var errors []string
	report := func(format string, args ...any) {
		errors = append(errors, fmt.Sprintf(format, args...))
	}

	followUp := make(map[string]bool)
	for _, q := range g.Nodes() {
		for _, f := range q.FollowUps {
			if f != "" {
				followUp[f] = true
			}
		}
	}

	visited := make(map[string]bool)
	queue := []string{g.Entry()}
	leadQueued := false

	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]
		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		q, err := g.Get(currentID)
		if err != nil {
			continue // reported where the link was found
		}

		visit := func(to, via string) {
			if to == "" {
				return
			}
			if !g.Has(to) {
				report("Missing node '%s' (%s of '%s')", to, via, q.ID)
				return
			}
			if !visited[to] {
				queue = append(queue, to)
			}
		}

		for _, rt := range q.Rule.Routes() {
			switch rt.Kind {
			case domain.RouteGoto:
				visit(rt.To, "transition")
			case domain.RouteOutcome:
				if rt.Outcome.StartsLeadCapture() && !leadQueued {
					leadQueued = true
					visit(flow.LeadEntry, "lead capture")
				}
			case domain.RouteDrain:
				if !q.FansOut() && !followUp[q.ID] {
					report("Node '%s' drains the follow-up queue but is not part of a fan-out", q.ID)
				}
			}
		}
		for _, f := range q.FollowUps {
			visit(f, "follow-up")
		}
		visit(q.Resume, "resume")

		checkRule(q, report)
	}

	for _, q := range g.Nodes() {
		if !visited[q.ID] {
			report("Unreachable node '%s'", q.ID)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}

func checkRule(q domain.Question, report func(string, ...any)) {
	r := q.Rule
	switch r.Kind {
	case domain.RuleByOption:
		if len(r.Options) > len(q.Options) {
			report("Node '%s' has %d routes for %d options", q.ID, len(r.Options), len(q.Options))
		}
		for i := range q.Options {
			if flow.Resolve(q, i).IsZero() {
				report("Option %d of '%s' has no route", i+1, q.ID)
			}
		}
	case domain.RuleRange:
		for _, b := range r.Bands {
			if b.Max != 0 && b.Max < b.Min {
				report("Node '%s' has an empty band %d-%d", q.ID, b.Min, b.Max)
			}
		}
		if r.Next.IsZero() {
			for _, gap := range uncovered(q) {
				report("Answers %s of '%s' fall in no band and there is no fallback route", gap, q.ID)
			}
		}
	case domain.RuleYesNo:
		if r.Yes.IsZero() || r.No.IsZero() {
			report("Node '%s' must route both yes and no", q.ID)
		}
	case domain.RuleAlways:
		if r.Next.IsZero() {
			report("Node '%s' has no next route", q.ID)
		}
	default:
		report("Node '%s' has unknown rule kind %q", q.ID, r.Kind)
	}
	if len(q.FollowUps) > len(q.Options) {
		report("Node '%s' has more follow-ups than options", q.ID)
	}
}

// uncovered lists the parts of the accepted range [q.Min, q.Max] that no routed
// band contains. A zero q.Max means unbounded.
func uncovered(q domain.Question) []string {
	bands := slices.DeleteFunc(slices.Clone(q.Rule.Bands), func(b domain.Band) bool {
		return b.Route.IsZero() || (b.Max != 0 && b.Max < b.Min)
	})
	slices.SortFunc(bands, func(a, b domain.Band) int { return cmp.Compare(a.Min, b.Min) })

	var gaps []string
	span := func(from, to int) string {
		if from == to {
			return strconv.Itoa(from)
		}
		return fmt.Sprintf("%d-%d", from, to)
	}
	next := q.Min
	for _, b := range bands {
		if q.Max != 0 && next > q.Max {
			return gaps
		}
		if b.Max != 0 && b.Max < next {
			continue
		}
		if b.Min > next {
			to := b.Min - 1
			if q.Max != 0 && to > q.Max {
				to = q.Max
			}
			gaps = append(gaps, span(next, to))
		}
		if b.Max == 0 {
			return gaps
		}
		next = b.Max + 1
	}
	switch {
	case q.Max == 0:
		gaps = append(gaps, fmt.Sprintf("%d and above", next))
	case next <= q.Max:
		gaps = append(gaps, span(next, q.Max))
	}
	return gaps
}

package domain

// RouteKind tags the variant held by a Route.
type RouteKind string

const (
	// RouteGoto moves to another question.
	RouteGoto RouteKind = "goto"
	// RouteOutcome ends normal progression with a terminal sentinel.
	RouteOutcome RouteKind = "outcome"
	// RouteDrain pops the next queued follow-up, or continues at the resume point.
	RouteDrain RouteKind = "drain"
)

// Route is the result of evaluating a transition rule.
type Route struct {
	Kind    RouteKind `json:"kind" yaml:"kind"`
	To      string    `json:"to,omitempty" yaml:"to,omitempty"`
	Outcome Outcome   `json:"outcome,omitempty" yaml:"outcome,omitempty"`
}

// Goto routes to the question with the given ID.
func Goto(id string) Route { return Route{Kind: RouteGoto, To: id} }

// Finish routes to a terminal sentinel.
func Finish(o Outcome) Route { return Route{Kind: RouteOutcome, Outcome: o} }

// Drain routes through the follow-up queue.
func Drain() Route { return Route{Kind: RouteDrain} }

// IsZero reports whether the route was left unset.
func (r Route) IsZero() bool { return r.Kind == "" }

// RuleKind tags the variant held by a Rule.
type RuleKind string

const (
	// RuleAlways routes every valid answer to Next.
	RuleAlways RuleKind = "always"
	// RuleByOption routes a chosen option index through Options, falling back to Next.
	RuleByOption RuleKind = "by_option"
	// RuleRange routes a number through the first matching band, falling back to Next.
	RuleRange RuleKind = "range"
	// RuleYesNo routes a confirmation to Yes or No.
	RuleYesNo RuleKind = "yes_no"
)

// Band is an inclusive numeric interval. Max == 0 leaves the band open above.
type Band struct {
	Min   int   `json:"min" yaml:"min"`
	Max   int   `json:"max,omitempty" yaml:"max,omitempty"`
	Route Route `json:"route" yaml:"route"`
}

// Contains reports whether n falls inside the band.
func (b Band) Contains(n int) bool {
	if n < b.Min {
		return false
	}
	return b.Max == 0 || n <= b.Max
}

// Rule is a declarative transition. Only the fields relevant to Kind are read.
type Rule struct {
	Kind    RuleKind `json:"kind" yaml:"kind"`
	Next    Route    `json:"next,omitempty" yaml:"next,omitempty"`
	Options []Route  `json:"options,omitempty" yaml:"options,omitempty"`
	Bands   []Band   `json:"bands,omitempty" yaml:"bands,omitempty"`
	Yes     Route    `json:"yes,omitempty" yaml:"yes,omitempty"`
	No      Route    `json:"no,omitempty" yaml:"no,omitempty"`
}

// Routes lists every route the rule can produce, used for static analysis of the graph.
func (r Rule) Routes() []Route {
	var out []Route
	add := func(rt Route) {
		if !rt.IsZero() {
			out = append(out, rt)
		}
	}
	add(r.Next)
	for _, rt := range r.Options {
		add(rt)
	}
	for _, b := range r.Bands {
		add(b.Route)
	}
	add(r.Yes)
	add(r.No)
	return out
}

// Outcome is a terminal sentinel produced by a transition.
type Outcome string

const (
	OutcomeNone         Outcome = ""
	OutcomeWaitlist     Outcome = "lead_capture_waitlist"
	OutcomeTooLarge     Outcome = "lead_capture_too_large"
	OutcomePartner      Outcome = "lead_capture_partner"
	OutcomeComplete     Outcome = "conversation_complete"
	OutcomeDetour       Outcome = "knowledge_detour"
	OutcomeLeadCaptured Outcome = "lead_captured"
	OutcomeLeadDeclined Outcome = "lead_declined"
)

// StartsLeadCapture reports whether the outcome hands over to the lead-capture sub-flow.
func (o Outcome) StartsLeadCapture() bool {
	switch o {
	case OutcomeWaitlist, OutcomeTooLarge, OutcomePartner, OutcomeComplete:
		return true
	}
	return false
}

// ClosesConversation reports whether the outcome ends the conversation.
func (o Outcome) ClosesConversation() bool {
	return o == OutcomeLeadCaptured || o == OutcomeLeadDeclined
}

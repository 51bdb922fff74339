package flow_test

import (
	"testing"

	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_EveryOptionRoutesSomewhere(t *testing.T) {
	g := flow.Default()
	require.Equal(t, "Q1", g.Entry())

	valid := func(t *testing.T, from string, rt domain.Route) {
		t.Helper()
		switch rt.Kind {
		case domain.RouteGoto:
			assert.Truef(t, g.Has(rt.To), "%s routes to unknown question %q", from, rt.To)
		case domain.RouteOutcome:
			assert.NotEmptyf(t, rt.Outcome, "%s routes to an empty outcome", from)
		case domain.RouteDrain:
		default:
			t.Errorf("%s has an unset route", from)
		}
	}

	for _, q := range g.Nodes() {
		switch q.Kind {
		case domain.KindSingle:
			for i := range q.Options {
				valid(t, q.ID, flow.Resolve(q, i))
			}
		case domain.KindYesNo:
			valid(t, q.ID, flow.Resolve(q, true))
			valid(t, q.ID, flow.Resolve(q, false))
		case domain.KindNumber:
			for n := q.Min; n <= q.Max && n <= 1000; n++ {
				valid(t, q.ID, flow.Resolve(q, n))
			}
			valid(t, q.ID, flow.Resolve(q, q.Max))
		default:
			valid(t, q.ID, flow.Resolve(q, nil))
		}

		if q.FansOut() {
			assert.Len(t, q.FollowUps, len(q.Options), q.ID)
			assert.True(t, g.Has(q.Resume), "%s resumes at unknown question %q", q.ID, q.Resume)
			for _, id := range q.FollowUps {
				assert.True(t, g.Has(id), "%s queues unknown question %q", q.ID, id)
			}
		}
	}
}

func TestDefault_Routing(t *testing.T) {
	g := flow.Default()
	get := func(id string) domain.Question {
		q, err := g.Get(id)
		require.NoError(t, err)
		return q
	}

	tests := []struct {
		name   string
		node   string
		answer any
		want   domain.Route
	}{
		{"planner goes to planner branch", "Q1", 0, domain.Goto("Q2")},
		{"team lead goes to attendee count", "Q1", 1, domain.Goto("Q3")},
		{"other role goes to attendee count", "Q1", 2, domain.Goto("Q3")},
		{"planning for a client", "Q2", 0, domain.Goto("Q2_1")},
		{"scouting venues", "Q2", 1, domain.Goto("Q2_2")},
		{"partnerships", "Q2", 2, domain.Goto("Q2_3")},
		{"ask from planner interest", "Q2", 3, domain.Finish(domain.OutcomeDetour)},
		{"scouting ends in partner capture", "Q2_2", 0, domain.Finish(domain.OutcomePartner)},
		{"30 attendees fit", "Q3", 30, domain.Goto("Q4")},
		{"110 attendees fit", "Q3", 110, domain.Goto("Q4")},
		{"111 attendees waitlist", "Q3", 111, domain.Finish(domain.OutcomeWaitlist)},
		{"400 attendees waitlist", "Q2_1", 400, domain.Finish(domain.OutcomeWaitlist)},
		{"500 attendees too large", "Q3", 500, domain.Finish(domain.OutcomeTooLarge)},
		{"short stay checks minimum", "Q5", 2, domain.Goto("Q5_1")},
		{"long stay skips check", "Q5", 5, domain.Goto("Q6")},
		{"goals drain", "Q6", []int{0, 2}, domain.Drain()},
		{"detailed section opt in", "Q9", true, domain.Goto("D1")},
		{"detailed section opt out", "Q9", false, domain.Finish(domain.OutcomeComplete)},
		{"last detail completes", "D18", 0, domain.Finish(domain.OutcomeComplete)},
		{"free text detail", "D3", "Software", domain.Goto("D4")},
		{"lead opt out", "L0", false, domain.Finish(domain.OutcomeLeadDeclined)},
		{"lead confirmed", "L3", true, domain.Finish(domain.OutcomeLeadCaptured)},
		{"lead correction", "L3", false, domain.Goto("L4")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, flow.Resolve(get(tt.node), tt.answer))
		})
	}
}

func TestFollowUps_OptionOrder(t *testing.T) {
	q, err := flow.Default().Get("Q6")
	require.NoError(t, err)

	assert.Equal(t, []string{"Q6_1", "Q6_3"}, flow.FollowUps(q, []int{2, 0}))
	assert.Equal(t, []string{"Q6_4"}, flow.FollowUps(q, []int{3, 3}))
	assert.Empty(t, flow.FollowUps(q, nil))

	plain, err := flow.Default().Get("Q7")
	require.NoError(t, err)
	assert.Nil(t, flow.FollowUps(plain, []int{0}))
}

func TestGraph_GetUnknown(t *testing.T) {
	_, err := flow.Default().Get("nope")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := flow.New([]domain.Question{{ID: "A"}, {ID: "A"}})
	assert.Error(t, err)

	_, err = flow.New(nil)
	assert.Error(t, err)
}

func TestGraph_Label(t *testing.T) {
	g := flow.Default()
	a := domain.NewAnswers()
	a.Set("Q1", 1)
	a.Set("Q3", 30)
	a.Set("Q5_1", false)
	a.Set("Q6", []int{0, 3})
	a.Set("Q4", "2027-01-15")
	a.Set(domain.AnswerEmail, "ana@example.com")

	assert.Contains(t, g.Label("Q1", a), "internal team lead")
	assert.Equal(t, "30", g.Label("Q3", a))
	assert.Equal(t, "No", g.Label("Q5_1", a))
	assert.Equal(t, "Team-building; Celebration / incentive trip", g.Label("Q6", a))
	assert.Equal(t, "2027-01-15", g.Label("Q4", a))
	assert.Equal(t, "ana@example.com", g.Label("L2", a))
	assert.Equal(t, "", g.Label("Q7", a))
	assert.Equal(t, "", g.Label("missing", a))
}

func TestInterpolate(t *testing.T) {
	a := domain.NewAnswers()
	a.Set(domain.AnswerName, "Ana")
	a.Set(domain.AnswerEmail, "ana@example.com")

	assert.Equal(t, "reach Ana at ana@example.com", flow.Interpolate("reach {name} at {email}", a))
	assert.Equal(t, "no placeholders", flow.Interpolate("no placeholders", a))

	typed := domain.NewAnswers()
	typed.Set("name", `=HYPERLINK("http://x","{email}")`)
	typed.Set("email", "a@b.co")
	assert.Equal(t, `we'll reach =HYPERLINK("http://x","{email}") at a@b.co`,
		flow.Interpolate("we'll reach {name} at {email}", typed))
}

func TestDefault_Sections(t *testing.T) {
	g := flow.Default()
	assert.Len(t, g.Section(domain.SectionDetail), 18)
	assert.Equal(t, []string{"L0", "L1", "L2", "L3", "L4", "L5", "L6"}, g.Section(domain.SectionLead))
	assert.Equal(t, flow.MessageWaitlist, g.OutcomeMessage(domain.OutcomeWaitlist))
}

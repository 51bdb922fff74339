package flow

import (
	"sync"

	"github.com/greenoffice/leadchat/pkg/domain"
)

// AskOption is appended to most choice questions. Picking it opens a knowledge detour
// instead of recording an answer.
const AskOption = "Let me ask a question"

// MaxAttendees bounds attendee answers.
const MaxAttendees = 100000

// Attendee bands shared by both branches of the graph.
const (
	CapacityMax = 110
	WaitlistMax = 400
)

// Fixed messages.
const (
	Greeting = "Welcome! I'll help you explore whether Green Office is a fit by asking you a series of questions. " +
		"You can always change the topic by asking a custom question."

	MessageWaitlist = "We're expanding by 2027-2028 to accommodate larger groups. " +
		"Would you like us to email you updates on availability?"
	MessageTooLarge = "That's quite a large group! We might be able to accommodate subgroups or have alternative suggestions. " +
		"Would you like to discuss options via email?"
	MessagePartner = "Thanks for your interest in working with Green Office Villas! Our partnerships team would love to connect. " +
		"Would you like us to reach out by email?"
	MessageComplete = "Thank you for completing our retreat planning questionnaire! Based on your responses, " +
		"Green Office Villas seems like an excellent fit for your team. We'd love to discuss your specific needs " +
		"and provide a customized proposal. May we have your email to send you detailed information and pricing?"
	MessageDetour       = "Sure! What would you like to know about Green Office Villas?"
	MessageLeadCaptured = "Thank you! We've captured your information and will be in touch soon. " +
		"Feel free to ask any other questions about Green Office Villas."
	MessageLeadDeclined = "No problem! Feel free to ask any other questions about Green Office Villas."
	MessageResume       = "Now, let's continue with your retreat planning. "
)

var (
	defaultOnce  sync.Once
	defaultGraph *Graph
)

// Default returns the Green Office Villas questionnaire.
func Default() *Graph {
	defaultOnce.Do(func() {
		g, err := New(canonical(),
			WithGreeting(Greeting),
			WithOutcomeMessage(domain.OutcomeWaitlist, MessageWaitlist),
			WithOutcomeMessage(domain.OutcomeTooLarge, MessageTooLarge),
			WithOutcomeMessage(domain.OutcomePartner, MessagePartner),
			WithOutcomeMessage(domain.OutcomeComplete, MessageComplete),
			WithOutcomeMessage(domain.OutcomeDetour, MessageDetour),
			WithOutcomeMessage(domain.OutcomeLeadCaptured, MessageLeadCaptured),
			WithOutcomeMessage(domain.OutcomeLeadDeclined, MessageLeadDeclined),
		)
		if err != nil {
			panic(err)
		}
		defaultGraph = g
	})
	return defaultGraph
}

// choice builds a single-choice question. When ask is true the AskOption is appended
// and routed to a knowledge detour; every other option goes to next unless routes
// overrides it.
func choice(id string, sec domain.Section, prompt string, opts []string, ask bool, next domain.Route, routes ...domain.Route) domain.Question {
	options := append([]string(nil), opts...)
	rs := make([]domain.Route, len(options))
	copy(rs, routes)
	if ask {
		options = append(options, AskOption)
		rs = append(rs, domain.Finish(domain.OutcomeDetour))
	}
	return domain.Question{
		ID:      id,
		Prompt:  prompt,
		Kind:    domain.KindSingle,
		Options: options,
		Section: sec,
		Rule: domain.Rule{
			Kind:    domain.RuleByOption,
			Next:    next,
			Options: rs,
		},
	}
}

func attendees(id, prompt string) domain.Question {
	return domain.Question{
		ID:      id,
		Prompt:  prompt,
		Kind:    domain.KindNumber,
		Min:     1,
		Max:     MaxAttendees,
		Section: domain.SectionQualify,
		Rule: domain.Rule{
			Kind: domain.RuleRange,
			Bands: []domain.Band{
				{Min: 1, Max: CapacityMax, Route: domain.Goto("Q4")},
				{Min: CapacityMax + 1, Max: WaitlistMax, Route: domain.Finish(domain.OutcomeWaitlist)},
				{Min: WaitlistMax + 1, Route: domain.Finish(domain.OutcomeTooLarge)},
			},
		},
	}
}

// detail builds one question of the optional detailed section.
func detail(id, prompt string, opts []string, next string) domain.Question {
	to := domain.Goto(next)
	if next == "" {
		to = domain.Finish(domain.OutcomeComplete)
	}
	return choice(id, domain.SectionDetail, prompt, opts, true, to)
}

func canonical() []domain.Question {
	q := domain.SectionQualify
	lead := domain.SectionLead

	return []domain.Question{
		choice("Q1", q, "What best describes your role?", []string{
			"My clients are companies that engage me (or my company) to help them organize retreats (e.g., retreat planner/agency)",
			"We are not retreat planners by profession but are in the midst of organizing a team retreat (e.g., internal team lead)",
			"Something else (e.g., individual traveler or just browsing)",
		}, false, domain.Goto("Q3"), domain.Goto("Q2")),

		choice("Q2", q, "We may be a great fit! Green Office Villas is built to help planners offer clients tailor-made retreats. What best describes your interest?", []string{
			"I am planning a retreat for a client—curious if Green Office is a fit",
			"Scouting venues for our platform/portfolio",
			"Interested in partnerships (e.g., affiliates)",
		}, true, domain.Goto("Q2_1"), domain.Goto("Q2_1"), domain.Goto("Q2_2"), domain.Goto("Q2_3")),

		attendees("Q2_1", "Let's dive into your client's retreat. How many attendees?"),

		choice("Q2_2", q, "Great! Which kinds of retreats does your platform usually feature?", []string{
			"Corporate offsites and leadership retreats",
			"Incentive and reward trips",
			"Workcations for remote teams",
			"A mix of all of these",
		}, true, domain.Finish(domain.OutcomePartner)),

		choice("Q2_3", q, "Wonderful! What kind of partnership are you interested in?", []string{
			"Affiliate / referral program",
			"Preferred-partner rates for my agency",
			"Co-hosting retreats or events",
		}, true, domain.Finish(domain.OutcomePartner)),

		attendees("Q3", "Let's check fit. How many attendees?"),

		{
			ID:      "Q4",
			Prompt:  "When would your group like to arrive? (YYYY-MM-DD)",
			Kind:    domain.KindDate,
			Section: q,
			Rule:    domain.Rule{Kind: domain.RuleAlways, Next: domain.Goto("Q5")},
		},

		{
			ID:      "Q5",
			Prompt:  "How many nights are you planning to stay?",
			Kind:    domain.KindNumber,
			Min:     1,
			Max:     60,
			Section: q,
			Rule: domain.Rule{
				Kind:  domain.RuleRange,
				Bands: []domain.Band{{Min: 1, Max: 2, Route: domain.Goto("Q5_1")}},
				Next:  domain.Goto("Q6"),
			},
		},

		{
			ID:      "Q5_1",
			Prompt:  "Our minimum stay is 3 nights (4 nights in high season, Dec–Apr). Could your group extend its stay to meet it?",
			Kind:    domain.KindYesNo,
			Section: q,
			Rule:    domain.Rule{Kind: domain.RuleYesNo, Yes: domain.Goto("Q6"), No: domain.Goto("Q6")},
		},

		{
			ID:     "Q6",
			Prompt: "Primary retreat goals? (choose all that apply)",
			Kind:   domain.KindMulti,
			Options: []string{
				"Team-building",
				"Work-focused",
				"Relaxation",
				"Celebration / incentive trip",
			},
			FollowUps: []string{"Q6_1", "Q6_2", "Q6_3", "Q6_4"},
			Resume:    "Q7",
			Section:   q,
			Rule:      domain.Rule{Kind: domain.RuleAlways, Next: domain.Drain()},
		},

		choice("Q6_1", q, "What team-building activities interest you most?", []string{
			"Outdoor adventures",
			"Creative workshops",
			"Cultural experiences",
			"Wellness activities",
		}, true, domain.Drain()),

		choice("Q6_2", q, "What work-focused activities are priorities?", []string{
			"Strategic planning sessions",
			"Skills training workshops",
			"Project collaboration",
			"Leadership development",
		}, true, domain.Drain()),

		choice("Q6_3", q, "What relaxation elements are most important?", []string{
			"Spa and wellness",
			"Nature and outdoor spaces",
			"Flexible schedule",
			"Recreational activities",
		}, true, domain.Drain()),

		choice("Q6_4", q, "What are you celebrating or rewarding?", []string{
			"Company milestone or anniversary",
			"Sales or performance incentive",
			"Year-end or holiday celebration",
			"Product launch",
		}, true, domain.Drain()),

		choice("Q7", q, "What's your approximate budget per person?", []string{
			"Under $500",
			"$500-$1000",
			"$1000-$2000",
			"Over $2000",
		}, true, domain.Goto("Q8")),

		choice("Q8", q, "What's your role in the decision-making process?", []string{
			"I make the final decision",
			"I influence the decision",
			"I'm researching options for someone else",
		}, true, domain.Goto("Q9")),

		{
			ID:      "Q9",
			Prompt:  "Thanks, that covers the essentials! Would you like to answer a few more detailed questions so we can tailor a proposal?",
			Kind:    domain.KindYesNo,
			Section: q,
			Rule: domain.Rule{
				Kind: domain.RuleYesNo,
				Yes:  domain.Goto("D1"),
				No:   domain.Finish(domain.OutcomeComplete),
			},
		},

		detail("D1", "How important is sustainability/eco-friendliness for your retreat?", []string{
			"Very important - it's a key requirement",
			"Somewhat important - nice to have",
			"Not a priority",
		}, "D2"),

		detail("D2", "What's your company size?", []string{
			"Under 50 employees",
			"50-500 employees",
			"Over 500 employees",
		}, "D3"),

		{
			ID:      "D3",
			Prompt:  "What industry is your company in?",
			Kind:    domain.KindText,
			Section: domain.SectionDetail,
			Rule:    domain.Rule{Kind: domain.RuleAlways, Next: domain.Goto("D4")},
		},

		detail("D4", "Have you organized team retreats before?", []string{
			"Yes, multiple times",
			"Yes, once or twice",
			"No, this is our first",
		}, "D5"),

		detail("D5", "What's most important for your team's work setup?", []string{
			"High-speed internet and tech support",
			"Quiet, focused work environments",
			"Collaborative spaces for group work",
			"Flexible indoor/outdoor options",
		}, "D6"),

		detail("D6", "Does your team work remotely, in-office, or hybrid?", []string{
			"Fully remote",
			"Hybrid (mix of remote and office)",
			"Primarily in-office",
		}, "D7"),

		detail("D7", "Any special dietary requirements or preferences?", []string{
			"Vegetarian/Vegan options needed",
			"Gluten-free options needed",
			"No special requirements",
			"Multiple dietary needs",
		}, "D8"),

		detail("D8", "Do you need meeting rooms for presentations or workshops?", []string{
			"Yes, essential for our agenda",
			"Yes, would be helpful",
			"No, informal spaces are fine",
		}, "D9"),

		detail("D9", "How important is privacy for your group?", []string{
			"Very important - need exclusive access",
			"Somewhat important - prefer minimal other groups",
			"Not important - comfortable sharing space",
		}, "D10"),

		detail("D10", "Do you need transportation assistance?", []string{
			"Yes, airport transfers needed",
			"Yes, local transportation needed",
			"No, we'll handle our own transport",
		}, "D11"),

		detail("D11", "How important is having 24/7 support during your stay?", []string{
			"Very important - essential for peace of mind",
			"Somewhat important - good to have",
			"Not important - we're self-sufficient",
		}, "D12"),

		detail("D12", "Would you be interested in cultural experiences or local activities?", []string{
			"Yes, very interested - important part of the experience",
			"Yes, somewhat interested - if time allows",
			"No, prefer to focus on work and team activities",
		}, "D13"),

		detail("D13", "What's your biggest concern about organizing this retreat?", []string{
			"Budget and cost management",
			"Logistics and coordination",
			"Ensuring everyone enjoys it",
			"Balancing work and fun",
		}, "D14"),

		detail("D14", "How do you typically measure the success of team events?", []string{
			"Team feedback and satisfaction surveys",
			"Improved collaboration after the event",
			"Achievement of specific goals/outcomes",
			"Overall participation and engagement",
		}, "D15"),

		detail("D15", "Would you like assistance with planning activities and agenda?", []string{
			"Yes, full planning assistance needed",
			"Yes, some guidance would be helpful",
			"No, we prefer to plan our own agenda",
		}, "D16"),

		detail("D16", "How important is having wellness/spa facilities available?", []string{
			"Very important - essential for relaxation",
			"Somewhat important - nice to have",
			"Not important - not a priority",
		}, "D17"),

		detail("D17", "What's your preferred communication style for planning?", []string{
			"Email correspondence",
			"Phone/video calls",
			"In-person meetings",
			"Mix of all methods",
		}, "D18"),

		detail("D18", "Finally, what's the most important factor in choosing Green Office Villas?", []string{
			"Unique combination of work and relaxation",
			"Eco-friendly and sustainable practices",
			"Professional support and service",
			"Value for money",
		}, ""),

		{
			ID:      LeadEntry,
			Prompt:  "Shall we follow up with you by email?",
			Kind:    domain.KindYesNo,
			Section: lead,
			Rule: domain.Rule{
				Kind: domain.RuleYesNo,
				Yes:  domain.Goto("L1"),
				No:   domain.Finish(domain.OutcomeLeadDeclined),
			},
		},
		{
			ID:      "L1",
			Prompt:  "Great! What's your name?",
			Kind:    domain.KindText,
			StoreAs: domain.AnswerName,
			Section: lead,
			Rule:    domain.Rule{Kind: domain.RuleAlways, Next: domain.Goto("L2")},
		},
		{
			ID:      "L2",
			Prompt:  "Thanks, {name}. What's the best email to reach you?",
			Kind:    domain.KindEmail,
			StoreAs: domain.AnswerEmail,
			Section: lead,
			Rule:    domain.Rule{Kind: domain.RuleAlways, Next: domain.Goto("L3")},
		},
		{
			ID:      "L3",
			Prompt:  "Just to confirm: we'll reach {name} at {email}. Is that correct?",
			Kind:    domain.KindYesNo,
			Section: lead,
			Rule: domain.Rule{
				Kind: domain.RuleYesNo,
				Yes:  domain.Finish(domain.OutcomeLeadCaptured),
				No:   domain.Goto("L4"),
			},
		},
		{
			ID:        "L4",
			Prompt:    "What would you like to correct? (choose all that apply)",
			Kind:      domain.KindMulti,
			Options:   []string{"My name", "My email"},
			FollowUps: []string{"L5", "L6"},
			Resume:    "L3",
			Section:   lead,
			Rule:      domain.Rule{Kind: domain.RuleAlways, Next: domain.Drain()},
		},
		{
			ID:      "L5",
			Prompt:  "What's the correct name?",
			Kind:    domain.KindText,
			StoreAs: domain.AnswerName,
			Section: lead,
			Rule:    domain.Rule{Kind: domain.RuleAlways, Next: domain.Drain()},
		},
		{
			ID:      "L6",
			Prompt:  "What's the correct email?",
			Kind:    domain.KindEmail,
			StoreAs: domain.AnswerEmail,
			Section: lead,
			Rule:    domain.Rule{Kind: domain.RuleAlways, Next: domain.Drain()},
		},
	}
}

// LeadEntry is the first question of the lead-capture sub-flow.
const LeadEntry = "L0"

// Package flow holds the questionnaire graph: every question the chat can ask,
// the transition rules between them and the fixed messages tied to each outcome.
package flow

import (
	"fmt"
	"strings"

	"github.com/greenoffice/leadchat/pkg/domain"
)

// Graph is an immutable, ordered set of questions.
type Graph struct {
	entry    string
	order    []string
	nodes    map[string]domain.Question
	greeting string
	messages map[domain.Outcome]string
}

// Option configures a Graph.
type Option func(*Graph)

// WithGreeting sets the text shown before the entry question.
func WithGreeting(text string) Option {
	return func(g *Graph) { g.greeting = text }
}

// WithOutcomeMessage sets the fixed message emitted when an outcome is reached.
func WithOutcomeMessage(o domain.Outcome, text string) Option {
	return func(g *Graph) { g.messages[o] = text }
}

// New builds a graph. The first question is the entry point.
func New(questions []domain.Question, opts ...Option) (*Graph, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("graph has no questions")
	}
	g := &Graph{
		entry:    questions[0].ID,
		nodes:    make(map[string]domain.Question, len(questions)),
		messages: make(map[domain.Outcome]string),
	}
	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d has no id", i)
		}
		if _, dup := g.nodes[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		g.nodes[q.ID] = q
		g.order = append(g.order, q.ID)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Entry returns the ID of the first question.
func (g *Graph) Entry() string { return g.entry }

// Get returns a question by ID.
func (g *Graph) Get(id string) (domain.Question, error) {
	q, ok := g.nodes[id]
	if !ok {
		return domain.Question{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	return q, nil
}

// Has reports whether id is part of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns every question in declaration order.
func (g *Graph) Nodes() []domain.Question {
	out := make([]domain.Question, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of questions.
func (g *Graph) Len() int { return len(g.order) }

// Greeting returns the welcome text shown with the entry question.
func (g *Graph) Greeting() string { return g.greeting }

// OutcomeMessage returns the fixed message for an outcome, or "" when none is set.
func (g *Graph) OutcomeMessage(o domain.Outcome) string { return g.messages[o] }

// Section returns the IDs of every question in a section, in declaration order.
func (g *Graph) Section(s domain.Section) []string {
	var ids []string
	for _, id := range g.order {
		if g.nodes[id].Section == s {
			ids = append(ids, id)
		}
	}
	return ids
}

// Interpolate replaces {key} placeholders in text with the raw answer stored
// under key. Substitution is a single pass: braces inside an inserted answer are
// left as typed.
func Interpolate(text string, answers domain.Answers) string {
	if !strings.Contains(text, "{") {
		return text
	}
	pairs := make([]string, 0, 2*answers.Len())
	for _, k := range answers.Keys() {
		v, _ := answers.Get(k)
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/ports"
)

// Mask replaces redacted answer values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks answers whose keys match any pattern once a conversation
// has closed. Open conversations are stored untouched because later prompts quote
// the contact details back to the visitor.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns, err := compile(patternStrings)
	if err != nil {
		return nil, err
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	if !state.Closed() {
		return m.next.Save(ctx, sessionID, state)
	}
	masked := state.Snapshot()
	masked.Answers = redact(state.Answers, m.patterns)
	return m.next.Save(ctx, sessionID, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Redact returns a copy of answers with matching keys masked.
func Redact(answers domain.Answers, patternStrings []string) (domain.Answers, error) {
	patterns, err := compile(patternStrings)
	if err != nil {
		return domain.Answers{}, err
	}
	return redact(answers, patterns), nil
}

func compile(patternStrings []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return patterns, nil
}

func redact(answers domain.Answers, patterns []*regexp.Regexp) domain.Answers {
	out := answers.Clone()
	for _, k := range out.Keys() {
		for _, p := range patterns {
			if p.MatchString(k) {
				out.Set(k, Mask)
				break
			}
		}
	}
	return out
}

func (m *piiMiddleware) Ping(ctx context.Context) error {
	return ping(ctx, m.next)
}

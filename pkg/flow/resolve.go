package flow

import (
	"github.com/greenoffice/leadchat/pkg/domain"
)

// Resolve maps a validated answer to the next route. It is a pure function of the
// question's rule and the answer value.
//
// Answer values by kind: single and number take int, multi takes []int, yes_no takes
// bool, text/date/email take string. A value of the wrong shape falls through to the
// rule's default route.
func Resolve(q domain.Question, answer any) domain.Route {
	r := q.Rule
	switch r.Kind {
	case domain.RuleAlways:
		return r.Next

	case domain.RuleByOption:
		if idx, ok := answer.(int); ok && idx >= 0 && idx < len(r.Options) {
			if rt := r.Options[idx]; !rt.IsZero() {
				return rt
			}
		}
		return r.Next

	case domain.RuleRange:
		if n, ok := answer.(int); ok {
			for _, b := range r.Bands {
				if b.Contains(n) {
					return b.Route
				}
			}
		}
		return r.Next

	case domain.RuleYesNo:
		if yes, ok := answer.(bool); ok && yes {
			return r.Yes
		}
		return r.No
	}
	return domain.Route{}
}

// FollowUps returns the follow-up questions queued by a fan-out answer, in option order.
func FollowUps(q domain.Question, choices []int) []string {
	if !q.FansOut() {
		return nil
	}
	chosen := make(map[int]bool, len(choices))
	for _, c := range choices {
		chosen[c] = true
	}
	var queue []string
	for i, id := range q.FollowUps {
		if chosen[i] && id != "" {
			queue = append(queue, id)
		}
	}
	return queue
}

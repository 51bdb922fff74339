package domain

import (
	"reflect"
	"slices"
)

// StateDiff is what changed in a conversation between two saves. The chat widget
// subscribes to these over server-sent events and patches its local copy.
type StateDiff struct {
	SessionID string `json:"session_id"`

	CurrentNodeID *string  `json:"current_node_id,omitempty"`
	Mode          *Mode    `json:"mode,omitempty"`
	Status        *Status  `json:"status,omitempty"`
	Outcome       *Outcome `json:"outcome,omitempty"`

	// Answers holds added or changed answers only; answers are never removed.
	Answers map[string]any `json:"answers,omitempty"`

	// Pending is the whole follow-up queue whenever it changed. A drained queue is
	// sent as an empty list.
	Pending *[]string `json:"pending,omitempty"`

	History *HistoryDelta `json:"history,omitempty"`
}

// HistoryDelta lists questions appended to the visited path.
type HistoryDelta struct {
	Appended []string `json:"appended"`
}

// Diff compares two saves of the same conversation. A nil prev describes all of next.
// It returns nil when nothing the widget renders changed.
func Diff(prev, next *State) *StateDiff {
	if next == nil {
		return nil
	}
	if prev == nil {
		prev = &State{Answers: NewAnswers()}
	}

	d := &StateDiff{SessionID: next.SessionID}
	if prev.CurrentNodeID != next.CurrentNodeID {
		d.CurrentNodeID = &next.CurrentNodeID
	}
	if prev.Mode != next.Mode {
		d.Mode = &next.Mode
	}
	if prev.Status != next.Status {
		d.Status = &next.Status
	}
	if prev.Outcome != next.Outcome {
		d.Outcome = &next.Outcome
	}
	if !slices.Equal(prev.Pending, next.Pending) {
		queue := slices.Clone(next.Pending)
		if queue == nil {
			queue = []string{}
		}
		d.Pending = &queue
	}

	for _, k := range next.Answers.Keys() {
		v, _ := next.Answers.Get(k)
		if old, ok := prev.Answers.Get(k); ok && reflect.DeepEqual(old, v) {
			continue
		}
		if d.Answers == nil {
			d.Answers = map[string]any{}
		}
		d.Answers[k] = v
	}

	// History only grows.
	if len(next.History) > len(prev.History) {
		d.History = &HistoryDelta{Appended: slices.Clone(next.History[len(prev.History):])}
	}

	if d.IsEmpty() {
		return nil
	}
	return d
}

// IsEmpty reports whether the diff carries no change.
func (d *StateDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil && d.Mode == nil && d.Status == nil && d.Outcome == nil &&
		len(d.Answers) == 0 && d.Pending == nil && d.History == nil
}

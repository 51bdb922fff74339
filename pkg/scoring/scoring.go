// Package scoring computes the 0–100 qualification score of a lead from its answers.
package scoring

import (
	"time"

	"github.com/greenoffice/leadchat/pkg/domain"
)

// MaxScore is the upper bound of a qualification score.
const MaxScore = 100

// Thresholds used by the sales dashboard.
const (
	Qualified   = 50
	HighQuality = 70
)

// Component is one line of the rubric.
type Component struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
	Max    int    `json:"max"`
}

// Score returns the qualification score for answers, clamped to [0, MaxScore].
// Missing or ill-typed answers contribute nothing.
func Score(answers domain.Answers) int {
	total := 0
	for _, c := range Explain(answers) {
		total += c.Points
	}
	return clamp(total)
}

// Explain returns the rubric breakdown for answers.
func Explain(answers domain.Answers) []Component {
	return []Component{
		{Name: "role", Points: role(answers), Max: 20},
		{Name: "group_size", Points: groupSize(answers), Max: 20},
		{Name: "season", Points: season(answers), Max: 10},
		{Name: "duration", Points: duration(answers), Max: 10},
		{Name: "budget", Points: budget(answers), Max: 15},
		{Name: "authority", Points: authority(answers), Max: 10},
		{Name: "detail", Points: detail(answers), Max: 15},
	}
}

func role(a domain.Answers) int {
	i, ok := a.Int("Q1")
	if !ok {
		return 0
	}
	switch i {
	case 0, 1:
		return 20
	case 2:
		return 10
	}
	return 0
}

// Attendees returns the attendee count from whichever branch asked for it.
func Attendees(a domain.Answers) (int, bool) {
	if n, ok := a.Int("Q2_1"); ok {
		return n, true
	}
	return a.Int("Q3")
}

func groupSize(a domain.Answers) int {
	n, ok := Attendees(a)
	switch {
	case !ok || n < 1:
		return 0
	case n >= 10 && n <= 110:
		return 20
	case n < 10:
		return 10
	case n <= 400:
		return 10
	}
	return 5
}

func season(a domain.Answers) int {
	s, ok := a.String("Q4")
	if !ok {
		return 0
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return 0
	}
	switch d.Month() {
	case time.December, time.January, time.February, time.March, time.April:
		return 10
	case time.May, time.November:
		return 8
	}
	return 6
}

func duration(a domain.Answers) int {
	n, ok := a.Int("Q5")
	if !ok {
		return 0
	}
	switch {
	case n >= 4:
		return 10
	case n == 3:
		return 8
	}
	if extend, _ := a.Bool("Q5_1"); extend {
		return 6
	}
	return 3
}

func budget(a domain.Answers) int {
	i, ok := a.Int("Q7")
	if !ok {
		return 0
	}
	switch i {
	case 1, 2:
		return 15
	case 3:
		return 12
	case 0:
		return 8
	}
	return 0
}

func authority(a domain.Answers) int {
	i, ok := a.Int("Q8")
	if !ok {
		return 0
	}
	switch i {
	case 0:
		return 10
	case 1:
		return 8
	case 2:
		return 5
	}
	return 0
}

func detail(a domain.Answers) int {
	if a.Has("D18") {
		return 15
	}
	for _, k := range a.Keys() {
		if len(k) > 1 && k[0] == 'D' {
			return 5
		}
	}
	return 0
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxScore {
		return MaxScore
	}
	return n
}

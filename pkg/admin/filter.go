package admin

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/scoring"
)

// Range limits records by creation date.
type Range string

const (
	RangeToday Range = "today"
	RangeWeek  Range = "wtd"
	RangeMonth Range = "mtd"
	RangeAll   Range = "all"
)

// ParseRange accepts today, wtd, mtd or all (case-insensitive). Empty means all.
func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RangeAll, nil
	case RangeToday, RangeWeek, RangeMonth, RangeAll:
		return r, nil
	}
	return "", fmt.Errorf("unknown range %q", s)
}

// Filter selects session records for the dashboard. Zero fields match everything.
type Filter struct {
	Range    Range
	MinScore int
	Role     *int
	Status   domain.Status
	// Location decides where "today" starts. Defaults to UTC.
	Location *time.Location
}

// Since returns the earliest creation time matched by the range, or the zero time.
// Weeks start on Sunday.
func (f Filter) Since(now time.Time) time.Time {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch f.Range {
	case RangeToday:
		return today
	case RangeWeek:
		return today.AddDate(0, 0, -int(now.Weekday()))
	case RangeMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	}
	return time.Time{}
}

// Apply returns the records matching f, preserving order.
func (f Filter) Apply(records []domain.SessionRecord, now time.Time) []domain.SessionRecord {
	since := f.Since(now)
	out := make([]domain.SessionRecord, 0, len(records))
	for _, rec := range records {
		if !since.IsZero() && rec.CreatedAt.Before(since) {
			continue
		}
		if rec.Score < f.MinScore {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if f.Role != nil {
			role, ok := rec.Answers.Int("Q1")
			if !ok || role != *f.Role {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

// Summary holds the dashboard counters.
type Summary struct {
	Total        int `json:"total"`
	Qualified    int `json:"qualified"`
	HighQuality  int `json:"high_quality"`
	Completed    int `json:"completed"`
	WithEmail    int `json:"with_email"`
	AverageScore int `json:"average_score"`
}

// Summarize counts records. The average is rounded to the nearest integer.
func Summarize(records []domain.SessionRecord) Summary {
	var s Summary
	sum := 0
	for _, rec := range records {
		s.Total++
		sum += rec.Score
		if rec.Score >= scoring.Qualified {
			s.Qualified++
		}
		if rec.Score >= scoring.HighQuality {
			s.HighQuality++
		}
		if rec.Status == domain.StatusCompleted {
			s.Completed++
		}
		if rec.Email() != "" {
			s.WithEmail++
		}
	}
	if s.Total > 0 {
		s.AverageScore = int(math.Round(float64(sum) / float64(s.Total)))
	}
	return s
}

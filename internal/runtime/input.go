package runtime

import (
	"net/mail"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/greenoffice/leadchat/pkg/domain"
)

// MaxTextLength is the default bound on free-text answers, in runes.
const MaxTextLength = 500

// MaxMonthsAhead bounds arrival dates.
const MaxMonthsAhead = 36

// parseAnswer validates raw input against the question's declared kind and returns
// the typed value to record.
func (e *Engine) parseAnswer(q domain.Question, raw string, now time.Time) (any, error) {
	clean, err := e.input.Clean(raw)
	if err != nil {
		return nil, invalid(q, err.Error())
	}
	input := strings.TrimSpace(clean)
	if input == "" {
		return nil, invalid(q, "an answer is required")
	}

	switch q.Kind {
	case domain.KindSingle:
		idx, ok := matchOption(q.Options, input)
		if !ok {
			return nil, invalid(q, "please choose one of the listed options")
		}
		return idx, nil

	case domain.KindMulti:
		var picks []int
		for _, part := range strings.Split(input, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			idx, ok := matchOption(q.Options, part)
			if !ok {
				return nil, invalid(q, "unknown option "+strconv.Quote(part))
			}
			if !slices.Contains(picks, idx) {
				picks = append(picks, idx)
			}
		}
		if len(picks) == 0 {
			return nil, invalid(q, "please choose at least one option")
		}
		slices.Sort(picks)
		return picks, nil

	case domain.KindNumber:
		n, err := strconv.Atoi(input)
		if err != nil {
			return nil, invalid(q, "please enter a whole number")
		}
		if n < q.Min || (q.Max > 0 && n > q.Max) {
			return nil, invalid(q, "please enter a number between "+strconv.Itoa(q.Min)+" and "+strconv.Itoa(q.Max))
		}
		return n, nil

	case domain.KindDate:
		return e.parseDate(q, input, now)

	case domain.KindYesNo:
		switch strings.ToLower(input) {
		case "y", "yes", "true", "1":
			return true, nil
		case "n", "no", "false", "0":
			return false, nil
		}
		return nil, invalid(q, "please answer yes or no")

	case domain.KindEmail:
		addr, err := mail.ParseAddress(input)
		if err != nil || !strings.Contains(addr.Address, ".") {
			return nil, invalid(q, "please enter a valid email address")
		}
		return strings.ToLower(addr.Address), nil

	case domain.KindText:
		if limit := e.input.maxTextRunes(); utf8.RuneCountInString(input) > limit {
			return nil, invalid(q, "please keep your answer under "+strconv.Itoa(limit)+" characters")
		}
		return input, nil
	}

	return nil, invalid(q, "unsupported input kind "+string(q.Kind))
}

func (e *Engine) parseDate(q domain.Question, input string, now time.Time) (any, error) {
	d, err := time.ParseInLocation(time.DateOnly, input, e.location)
	if err != nil {
		return nil, invalid(q, "please use the format YYYY-MM-DD")
	}
	local := now.In(e.location)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.location)
	if d.Before(today) {
		return nil, invalid(q, "the date is in the past")
	}
	if d.After(today.AddDate(0, MaxMonthsAhead, 0)) {
		return nil, invalid(q, "we take bookings up to "+strconv.Itoa(MaxMonthsAhead)+" months ahead")
	}
	return d.Format(time.DateOnly), nil
}

// matchOption accepts a 0-based index or an option label (case-insensitive).
func matchOption(options []string, input string) (int, bool) {
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 0 && n < len(options) {
			return n, true
		}
		return 0, false
	}
	for i, opt := range options {
		if strings.EqualFold(opt, input) {
			return i, true
		}
	}
	return 0, false
}

func invalid(q domain.Question, reason string) error {
	return &domain.ValidationError{NodeID: q.ID, Reason: reason}
}

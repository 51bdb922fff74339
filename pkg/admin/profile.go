package admin

import (
	"fmt"

	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// LeadProfile is the typed view of the answers the dashboard cares about.
type LeadProfile struct {
	Name             string `mapstructure:"name"`
	Email            string `mapstructure:"email"`
	Role             *int   `mapstructure:"Q1"`
	PlannerAttendees *int   `mapstructure:"Q2_1"`
	TeamAttendees    *int   `mapstructure:"Q3"`
	Arrival          string `mapstructure:"Q4"`
	Nights           *int   `mapstructure:"Q5"`
	Goals            []int  `mapstructure:"Q6"`
	Budget           *int   `mapstructure:"Q7"`
	Decision         *int   `mapstructure:"Q8"`
}

// Attendees returns the group size from whichever branch asked for it.
func (p LeadProfile) Attendees() (int, bool) {
	switch {
	case p.PlannerAttendees != nil:
		return *p.PlannerAttendees, true
	case p.TeamAttendees != nil:
		return *p.TeamAttendees, true
	}
	return 0, false
}

// DecodeProfile maps stored answers onto a LeadProfile. Numbers may arrive as
// int, float64 or json.Number depending on where the record was loaded from.
func DecodeProfile(answers domain.Answers) (LeadProfile, error) {
	var p LeadProfile
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return p, err
	}
	if err := dec.Decode(answers.Map()); err != nil {
		return p, fmt.Errorf("decode answers: %w", err)
	}
	return p, nil
}

package admin

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/flow"
)

// Header is the first row of the lead export.
var Header = []string{
	"Email", "Name", "Score", "Status", "Created", "Role",
	"Attendees", "Arrival", "Nights", "Goals", "Budget", "Decision",
}

var roleNames = []string{"Retreat Planner", "Internal Team Lead", "Other"}

const missing = "N/A"

// ExportFilename names the CSV download for the given day.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("green-office-villas-leads-%s.csv", now.Format(time.DateOnly))
}

// WriteCSV writes one row per record that captured an e-mail address.
func WriteCSV(w io.Writer, records []domain.SessionRecord, g *flow.Graph) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, rec := range records {
		if rec.Email() == "" {
			continue
		}
		row, err := leadRow(rec, g)
		if err != nil {
			return fmt.Errorf("session %s: %w", rec.SessionID, err)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func leadRow(rec domain.SessionRecord, g *flow.Graph) ([]string, error) {
	p, err := DecodeProfile(rec.Answers)
	if err != nil {
		return nil, err
	}

	role := missing
	if p.Role != nil && *p.Role >= 0 && *p.Role < len(roleNames) {
		role = roleNames[*p.Role]
	}
	attendees := missing
	if n, ok := p.Attendees(); ok {
		attendees = strconv.Itoa(n)
	}
	nights := missing
	if p.Nights != nil {
		nights = strconv.Itoa(*p.Nights)
	}

	return neutralize([]string{
		p.Email,
		p.Name,
		strconv.Itoa(rec.Score),
		string(rec.Status),
		rec.CreatedAt.Format(time.DateOnly),
		role,
		attendees,
		orMissing(p.Arrival),
		nights,
		orMissing(g.Label("Q6", rec.Answers)),
		orMissing(g.Label("Q7", rec.Answers)),
		orMissing(g.Label("Q8", rec.Answers)),
	}), nil
}

// neutralize quotes cells a spreadsheet would evaluate as a formula.
func neutralize(row []string) []string {
	for i, cell := range row {
		if cell != "" && strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
			row[i] = "'" + cell
		}
	}
	return row
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}

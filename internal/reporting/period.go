package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/finreports/internal/ledger"
)

const dateLayout = "2006-01-02"

// Period is an inclusive [Start, End] range of calendar days in UTC.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewPeriod normalises both bounds to midnight UTC and rejects start > end.
func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: Day(start), End: Day(end)}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// ParsePeriod builds a Period from two ISO-8601 dates.
func ParsePeriod(start, end string) (Period, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Period{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Period{}, err
	}
	return NewPeriod(s, e)
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD). Full RFC 3339 timestamps are accepted
// and truncated to their UTC day.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidPeriod)
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed date %q", ErrInvalidPeriod, raw)
	}
	return Day(t), nil
}

// MonthPeriod returns the calendar month containing t.
func MonthPeriod(t time.Time) Period {
	first := monthStart(t)
	return Period{Start: first, End: first.AddDate(0, 1, -1)}
}

// Validate checks the ordering invariant.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("%w: missing bound", ErrInvalidPeriod)
	}
	if p.Start.After(p.End) {
		return fmt.Errorf("%w: start %s after end %s", ErrInvalidPeriod, p.Start.Format(dateLayout), p.End.Format(dateLayout))
	}
	return nil
}

// Days is the number of calendar days covered, counting both ends.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// Contains reports whether t falls on a day inside the period.
func (p Period) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Range converts the period into a ledger query range.
func (p Period) Range() ledger.DateRange {
	return ledger.DateRange{From: p.Start, To: p.End}
}

// Label renders "2025-01" for whole calendar months and "2025-01-01..2025-03-31" otherwise.
func (p Period) Label() string {
	if p == MonthPeriod(p.Start) {
		return p.Start.Format("2006-01")
	}
	return p.Start.Format(dateLayout) + ".." + p.End.Format(dateLayout)
}

// PreviousPeriod returns the period of equal length ending the day before p starts.
func (p Period) PreviousPeriod() Period {
	end := p.Start.AddDate(0, 0, -1)
	return Period{Start: end.AddDate(0, 0, -(p.Days() - 1)), End: end}
}

// ShiftYears moves both bounds by n calendar years, clamping Feb 29 to Feb 28.
func (p Period) ShiftYears(n int) Period {
	return Period{Start: ShiftMonths(p.Start, 12*n), End: ShiftMonths(p.End, 12*n)}
}

// Day truncates t to midnight UTC of its UTC calendar day.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ShiftMonths moves t by n months, clamping the day to the target month's length
// (Mar 31 minus one month is Feb 28/29, not Mar 3).
func ShiftMonths(t time.Time, n int) time.Time {
	t = Day(t)
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	t = Day(t)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func yearStart(t time.Time) time.Time {
	return time.Date(Day(t).Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

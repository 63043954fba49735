package reporting

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(raw string) time.Time {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParsePeriodRejectsInvertedRange(t *testing.T) {
	_, err := ParsePeriod("2025-02-01", "2025-01-31")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPeriod))
}

func TestParseDateRejectsMalformedInput(t *testing.T) {
	for _, raw := range []string{"", "2025-13-01", "01/02/2025", "yesterday"} {
		_, err := ParseDate(raw)
		assert.ErrorIs(t, err, ErrInvalidPeriod, raw)
	}
}

func TestParseDateTruncatesTimestamps(t *testing.T) {
	got, err := ParseDate("2025-03-10T23:30:00-02:00")
	require.NoError(t, err)
	assert.Equal(t, day("2025-03-11"), got)
}

func TestSingleDayPeriodIsValid(t *testing.T) {
	p, err := ParsePeriod("2025-01-15", "2025-01-15")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Days())
	assert.True(t, p.Contains(time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC)))
	assert.False(t, p.Contains(day("2025-01-16")))
}

func TestPreviousPeriodHasSameLength(t *testing.T) {
	p := MonthPeriod(day("2025-01-20"))
	prev := p.PreviousPeriod()
	assert.Equal(t, day("2024-12-01"), prev.Start)
	assert.Equal(t, day("2024-12-31"), prev.End)
	assert.Equal(t, p.Days(), prev.Days())
}

func TestShiftMonthsClampsToMonthEnd(t *testing.T) {
	assert.Equal(t, day("2025-02-28"), ShiftMonths(day("2025-03-31"), -1))
	assert.Equal(t, day("2024-02-29"), ShiftMonths(day("2024-03-31"), -1))
	assert.Equal(t, day("2024-11-30"), ShiftMonths(day("2025-01-30"), -2))
	assert.Equal(t, day("2026-01-15"), ShiftMonths(day("2025-01-15"), 12))
}

func TestShiftYearsHandlesLeapDay(t *testing.T) {
	p, err := ParsePeriod("2024-02-01", "2024-02-29")
	require.NoError(t, err)
	shifted := p.ShiftYears(-1)
	assert.Equal(t, day("2023-02-01"), shifted.Start)
	assert.Equal(t, day("2023-02-28"), shifted.End)
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "2025-02", MonthPeriod(day("2025-02-14")).Label())
	p, _ := ParsePeriod("2025-01-01", "2025-03-31")
	assert.Equal(t, "2025-01-01..2025-03-31", p.Label())
}

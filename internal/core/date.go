package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	calendarLayout = "2006-01-02"
	// isoLayout matches the millisecond ISO-8601 form used in persisted blobs.
	isoLayout = "2006-01-02T15:04:05.000Z07:00"

	anchorHour = 12
)

// CalendarDate is a date as picked by a user: no time of day, no zone.
type CalendarDate struct {
	Year  int
	Month int
	Day   int
}

func (d CalendarDate) IsZero() bool {
	return d == CalendarDate{}
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Instant anchors the calendar date at midday UTC. See ToInstant.
func (d CalendarDate) Instant() time.Time {
	return ToInstant(d.Year, d.Month, d.Day)
}

// ToInstant returns 12:00:00 UTC on the given calendar date.
//
// Midday keeps the calendar day stable when the instant is rendered in any
// zone with an offset strictly between -12:00 and +12:00; midnight would
// fall on the previous day west of UTC. No bounds checking is done here,
// out-of-range values are normalized by time.Date.
func ToInstant(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, anchorHour, 0, 0, 0, time.UTC)
}

// CalendarDateString returns the UTC calendar date of t as YYYY-MM-DD.
func CalendarDateString(t time.Time) string {
	return t.UTC().Format(calendarLayout)
}

// FormatISO renders t in UTC as an ISO-8601 timestamp with milliseconds.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseCalendarDate parses a strict YYYY-MM-DD string. Impossible dates
// such as 2024-13-01 or 2023-02-29 are rejected.
func ParseCalendarDate(s string) (CalendarDate, error) {
	t, err := time.Parse(calendarLayout, strings.TrimSpace(s))
	if err != nil {
		return CalendarDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return CalendarDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, nil
}

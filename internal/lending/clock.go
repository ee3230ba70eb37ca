package lending

import "time"

// DateLayout is how calendar dates are rendered.
const DateLayout = "2006-01-02"

// Clock returns the current time.
type Clock func() time.Time

// Day truncates t to its calendar day, expressed as midnight UTC so that dates
// compare and subtract exactly.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FixedClock always reports the given day. It is meant for tests and for
// replaying a session at a known date.
func FixedClock(day time.Time) Clock {
	return func() time.Time { return day }
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

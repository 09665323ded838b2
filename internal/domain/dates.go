package domain

import (
	"math"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate parses a calendar date ("2006-01-02") into a UTC-midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// TruncateToDate drops the time-of-day component, keeping the UTC calendar day.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of days from start to end, rounded up.
// Zero or negative spans return 0.
func DaysBetween(start, end time.Time) int {
	diff := TruncateToDate(end).Sub(TruncateToDate(start))
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff.Hours() / 24))
}

// RangesOverlap reports whether [aStart, aEnd] intersects [bStart, bEnd].
// Both ends are inclusive: a booking ending on a given day still blocks a
// booking starting that same day.
func RangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

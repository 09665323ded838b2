package domain

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		want       int
	}{
		{"one day", "2026-01-01", "2026-01-02", 1},
		{"thirty days", "2026-01-01", "2026-01-31", 30},
		{"across a month boundary", "2026-01-20", "2026-02-03", 14},
		{"same day", "2026-01-01", "2026-01-01", 0},
		{"reversed", "2026-01-10", "2026-01-01", 0},
		{"full non-leap year", "2026-01-01", "2027-01-01", 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(date(tt.start), date(tt.end)); got != tt.want {
				t.Errorf("DaysBetween(%s, %s) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC)
	end := time.Date(2026, 1, 2, 0, 1, 0, 0, time.UTC)

	if got := DaysBetween(start, end); got != 1 {
		t.Errorf("DaysBetween = %d, want 1", got)
	}
}

func TestRangesOverlap(t *testing.T) {
	tests := []struct {
		name         string
		aStart, aEnd string
		bStart, bEnd string
		want         bool
	}{
		{"disjoint before", "2026-01-01", "2026-01-05", "2026-01-10", "2026-01-20", false},
		{"disjoint after", "2026-01-10", "2026-01-20", "2026-01-01", "2026-01-05", false},
		{"contained", "2026-01-01", "2026-01-31", "2026-01-10", "2026-01-15", true},
		{"partial overlap", "2026-01-01", "2026-01-15", "2026-01-10", "2026-01-20", true},
		// An existing booking ending on a day blocks a new one starting that
		// same day: both endpoints count as occupied.
		{"touching at end", "2026-01-01", "2026-01-10", "2026-01-10", "2026-01-20", true},
		{"touching at start", "2026-01-10", "2026-01-20", "2026-01-01", "2026-01-10", true},
		{"one day apart", "2026-01-01", "2026-01-10", "2026-01-11", "2026-01-20", false},
		{"identical", "2026-01-01", "2026-01-10", "2026-01-01", "2026-01-10", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RangesOverlap(date(tt.aStart), date(tt.aEnd), date(tt.bStart), date(tt.bEnd))
			if got != tt.want {
				t.Errorf("RangesOverlap(%s..%s, %s..%s) = %v, want %v",
					tt.aStart, tt.aEnd, tt.bStart, tt.bEnd, got, tt.want)
			}

			// Overlap is symmetric.
			rev := RangesOverlap(date(tt.bStart), date(tt.bEnd), date(tt.aStart), date(tt.aEnd))
			if rev != tt.want {
				t.Errorf("reversed RangesOverlap = %v, want %v", rev, tt.want)
			}
		})
	}
}

func TestTruncateToDate(t *testing.T) {
	// 18:30 at UTC+5 is 13:30 UTC, so the UTC calendar day is still the 17th.
	in := time.Date(2026, 5, 17, 18, 30, 45, 123, time.FixedZone("UTC+5", 5*3600))
	want := time.Date(2026, 5, 17, 0, 0, 0, 0, time.UTC)

	if got := TruncateToDate(in); !got.Equal(want) {
		t.Errorf("TruncateToDate = %v, want %v", got, want)
	}
}

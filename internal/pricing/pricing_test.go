package pricing

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTotalCents(t *testing.T) {
	tests := []struct {
		name             string
		monthlyRateCents int64
		start, end       string
		want             int64
	}{
		{
			// 30 days at $300.00/month: 30/30.44 months, rounded to the cent.
			name:             "thirty days just under a month",
			monthlyRateCents: 30000,
			start:            "2026-01-01",
			end:              "2026-01-31",
			want:             29566,
		},
		{
			name:             "single day",
			monthlyRateCents: 30000,
			start:            "2026-01-01",
			end:              "2026-01-02",
			want:             986, // 1/30.44 * 30000 = 985.55...
		},
		{
			name:             "full year",
			monthlyRateCents: 10000,
			start:            "2026-01-01",
			end:              "2027-01-01",
			want:             119908, // 365/30.44 * 10000
		},
		{
			name:             "zero span",
			monthlyRateCents: 30000,
			start:            "2026-01-01",
			end:              "2026-01-01",
			want:             0,
		},
		{
			name:             "negative span",
			monthlyRateCents: 30000,
			start:            "2026-01-10",
			end:              "2026-01-01",
			want:             0,
		},
		{
			name:             "zero rate",
			monthlyRateCents: 0,
			start:            "2026-01-01",
			end:              "2026-02-01",
			want:             0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TotalCents(tt.monthlyRateCents, date(tt.start), date(tt.end))
			if got != tt.want {
				t.Errorf("TotalCents(%d, %s, %s) = %d, want %d",
					tt.monthlyRateCents, tt.start, tt.end, got, tt.want)
			}
		})
	}
}

// The quote shown at availability time and the amount charged at booking time
// come from the same function, so repeated calls must agree exactly.
func TestTotalCentsDeterministic(t *testing.T) {
	start, end := date("2026-03-15"), date("2026-07-02")

	first := TotalCents(123457, start, end)
	for i := 0; i < 1000; i++ {
		if got := TotalCents(123457, start, end); got != first {
			t.Fatalf("call %d: TotalCents = %d, want %d", i, got, first)
		}
	}
}

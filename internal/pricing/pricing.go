// Package pricing computes booking totals from a listing's monthly rate.
package pricing

import (
	"math"
	"time"

	"github.com/storeaway/inventory-go/internal/domain"
)

// avgDaysPerMonth approximates a calendar month; totals are pro-rated against
// it rather than against real calendar months.
const avgDaysPerMonth = 30.44

// TotalCents returns the total price in minor currency units for renting at
// monthlyRateCents from start to end. The span is counted in whole days
// (rounded up) and converted to fractional months. A zero or negative span
// yields 0, which callers must treat as an invalid range.
func TotalCents(monthlyRateCents int64, start, end time.Time) int64 {
	days := domain.DaysBetween(start, end)
	if days <= 0 {
		return 0
	}

	months := float64(days) / avgDaysPerMonth

	return int64(math.Round(months * float64(monthlyRateCents)))
}

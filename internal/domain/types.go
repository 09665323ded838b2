package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleClient Role = "CLIENT"
	RoleHost   Role = "HOST"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

type Listing struct {
	ID                 uuid.UUID
	HostID             uuid.UUID
	Name               string
	Location           string
	SizeSqFt           int
	PricePerMonthCents int64
	Description        string
	Images             []string
	Features           []string
	IsAvailable        bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Booking struct {
	ID            uuid.UUID
	ListingID     uuid.UUID
	UserID        uuid.UUID
	StartDate     time.Time // calendar date, UTC midnight
	EndDate       time.Time // calendar date, UTC midnight
	TotalCents    int64
	PaymentRef    string
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
}

type Review struct {
	ID        uuid.UUID
	ListingID uuid.UUID
	UserID    uuid.UUID
	Rating    int
	Comment   string
	CreatedAt time.Time
}

type RatingSummary struct {
	Count   int64
	Average float64
}

// CentsToDecimalString renders a minor-unit amount as a plain decimal string,
// e.g. 29566 -> "295.66". Display only; money stays integer everywhere else.
func CentsToDecimalString(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

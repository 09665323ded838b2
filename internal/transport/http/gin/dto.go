package httpgin

import (
	"time"

	"github.com/storeaway/inventory-go/internal/domain"
)

type CreateBookingRequest struct {
	ListingID       string `json:"listing_id" binding:"required,uuid"`
	StartDate       string `json:"start_date" binding:"required"`
	EndDate         string `json:"end_date" binding:"required"`
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

type CompleteBookingRequest struct {
	PaymentRef string `json:"payment_ref" binding:"required"`
	ListingID  string `json:"listing_id" binding:"required,uuid"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
}

type BookingResponse struct {
	ID            string `json:"id"`
	ListingID     string `json:"listing_id"`
	UserID        string `json:"user_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	TotalCents    int64  `json:"total_cents"`
	Total         string `json:"total"`
	PaymentRef    string `json:"payment_ref,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID.String(),
		ListingID:     b.ListingID.String(),
		UserID:        b.UserID.String(),
		StartDate:     domain.FormatDate(b.StartDate),
		EndDate:       domain.FormatDate(b.EndDate),
		TotalCents:    b.TotalCents,
		Total:         domain.CentsToDecimalString(b.TotalCents),
		PaymentRef:    b.PaymentRef,
		PaymentStatus: string(b.PaymentStatus),
		CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ActionRequiredResponse suspends checkout: the client finishes the payment
// challenge with the processor, then calls POST /bookings/complete.
type ActionRequiredResponse struct {
	PaymentRef   string `json:"payment_ref"`
	ClientSecret string `json:"client_secret,omitempty"`
}

type AvailabilityResponse struct {
	Available  bool   `json:"available"`
	TotalCents int64  `json:"total_cents,omitempty"`
	Total      string `json:"total,omitempty"`
}

type ListingRequest struct {
	Name               string   `json:"name" binding:"required"`
	Location           string   `json:"location" binding:"required"`
	SizeSqFt           int      `json:"size_sqft" binding:"required,gt=0"`
	PricePerMonthCents int64    `json:"price_per_month_cents" binding:"required,gt=0"`
	Description        string   `json:"description"`
	Images             []string `json:"images"`
	Features           []string `json:"features"`
	IsAvailable        *bool    `json:"is_available"`
}

func (r *ListingRequest) toDomain() domain.Listing {
	available := true
	if r.IsAvailable != nil {
		available = *r.IsAvailable
	}

	return domain.Listing{
		Name:               r.Name,
		Location:           r.Location,
		SizeSqFt:           r.SizeSqFt,
		PricePerMonthCents: r.PricePerMonthCents,
		Description:        r.Description,
		Images:             r.Images,
		Features:           r.Features,
		IsAvailable:        available,
	}
}

type ListingResponse struct {
	ID                 string   `json:"id"`
	HostID             string   `json:"host_id"`
	Name               string   `json:"name"`
	Location           string   `json:"location"`
	SizeSqFt           int      `json:"size_sqft"`
	PricePerMonthCents int64    `json:"price_per_month_cents"`
	PricePerMonth      string   `json:"price_per_month"`
	Description        string   `json:"description"`
	Images             []string `json:"images"`
	Features           []string `json:"features"`
	IsAvailable        bool     `json:"is_available"`
	CreatedAt          string   `json:"created_at"`
}

func toListingResponse(l *domain.Listing) ListingResponse {
	return ListingResponse{
		ID:                 l.ID.String(),
		HostID:             l.HostID.String(),
		Name:               l.Name,
		Location:           l.Location,
		SizeSqFt:           l.SizeSqFt,
		PricePerMonthCents: l.PricePerMonthCents,
		PricePerMonth:      domain.CentsToDecimalString(l.PricePerMonthCents),
		Description:        l.Description,
		Images:             l.Images,
		Features:           l.Features,
		IsAvailable:        l.IsAvailable,
		CreatedAt:          l.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

type ReviewResponse struct {
	ID        string `json:"id"`
	ListingID string `json:"listing_id"`
	UserID    string `json:"user_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"created_at"`
}

func toReviewResponse(rv *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:        rv.ID.String(),
		ListingID: rv.ListingID.String(),
		UserID:    rv.UserID.String(),
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: rv.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type RatingSummaryResponse struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	// PaymentRef is set on post-payment failures so support can locate the
	// captured charge; the client must not retry payment.
	PaymentRef string `json:"payment_ref,omitempty"`
}

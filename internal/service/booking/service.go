package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/storeaway/inventory-go/internal/domain"
	"github.com/storeaway/inventory-go/internal/payment"
	"github.com/storeaway/inventory-go/internal/pricing"
	redisx "github.com/storeaway/inventory-go/internal/redis"
	"github.com/storeaway/inventory-go/internal/repository"
	redisrepo "github.com/storeaway/inventory-go/internal/repository/redis"
)

// Listings is the slice of the persistence layer the booking flow reads
// listings through. Injected explicitly; there is no process-wide store.
type Listings interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
}

// Bookings is the persistence handle for booking rows. CreateConfirmed must
// apply the booking insert and the listing-availability flip atomically and
// reject overlapping ranges with repository.ErrDatesOverlap.
type Bookings interface {
	ListForListing(ctx context.Context, listingID uuid.UUID) ([]domain.Booking, error)
	CreateConfirmed(ctx context.Context, b *domain.Booking) error
	ByPaymentRef(ctx context.Context, ref string) (*domain.Booking, error)
}

// Coordinator talks to the external payment processor.
type Coordinator interface {
	AuthorizeAndCapture(ctx context.Context, ch payment.Charge) (payment.Result, error)
	Retrieve(ctx context.Context, ref string) (payment.Result, error)
}

type Config struct {
	Currency string
}

type Service struct {
	listings Listings
	bookings Bookings
	payments Coordinator
	cache    *redisrepo.Cache
	pubsub   *redisx.ListingsPubSub
	limiter  *redisrepo.SlidingWindowLimiter
	logger   *slog.Logger
	cfg      Config
}

func New(
	listings Listings,
	bookings Bookings,
	payments Coordinator,
	cache *redisrepo.Cache,
	pubsub *redisx.ListingsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		listings: listings,
		bookings: bookings,
		payments: payments,
		cache:    cache,
		pubsub:   pubsub,
		limiter:  limiter,
		logger:   logger,
		cfg:      cfg,
	}
}

// Quote prices a date range against a listing's monthly rate. The same
// computation feeds the amount later passed to the payment processor, so the
// quote shown to the user always equals the charge.
//
// Returns:
//   - int64: the total in minor currency units.
//   - error: booking.ErrListingNotFound if the listing does not exist.
//   - error: booking.ErrInvalidDateRange if the range prices to zero.
func (s *Service) Quote(ctx context.Context, listingID uuid.UUID, start, end time.Time) (int64, error) {
	const op = "service.booking.Quote"

	l, err := s.listings.Get(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s:%w", op, ErrListingNotFound)
		}

		return 0, fmt.Errorf("%s:%w", op, err)
	}

	total := pricing.TotalCents(l.PricePerMonthCents, start, end)
	if total <= 0 {
		return 0, fmt.Errorf("%s:%w", op, ErrInvalidDateRange)
	}

	return total, nil
}

// Available reports whether a date range can be booked for a listing. This is
// a point-in-time read; the authoritative check is repeated inside the
// persistence transaction when a booking is created.
//
// Returns:
//   - error: booking.ErrInvalidDateRange if end is not after start.
func (s *Service) Available(ctx context.Context, listingID uuid.UUID, start, end time.Time) (bool, error) {
	const op = "service.booking.Available"

	start, end = domain.TruncateToDate(start), domain.TruncateToDate(end)
	if !end.After(start) {
		return false, fmt.Errorf("%s:%w", op, ErrInvalidDateRange)
	}

	conflict, err := s.hasConflict(ctx, listingID, start, end)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	return !conflict, nil
}

// Create runs one booking attempt through the full workflow: validate and
// price the range, check availability, authorize and capture payment, then
// persist the booking and flip the listing unavailable as one atomic unit.
//
// Parameters:
//   - ctx: request-scoped context.
//   - listingID, userID: the listing being booked and the booking user.
//   - start, end: calendar dates (time-of-day is ignored), end > start.
//   - instrumentRef: pre-tokenized payment method reference.
//   - idemKey: idempotency key scoping payment retries; may be empty.
//   - rlKey: rate-limit bucket key; empty disables limiting.
//
// Returns:
//   - *domain.Booking: the persisted booking on success.
//   - error: booking.ErrInvalidDateRange, booking.ErrListingNotFound,
//     booking.ErrDatesUnavailable, *booking.DeclinedError,
//     *booking.ActionRequiredError, or *booking.PersistFailedError.
func (s *Service) Create(
	ctx context.Context,
	listingID, userID uuid.UUID,
	start, end time.Time,
	instrumentRef string,
	idemKey string,
	rlKey string,
) (*domain.Booking, error) {
	const op = "service.booking.Create"

	start, end = domain.TruncateToDate(start), domain.TruncateToDate(end)

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: rate limited, retry in %s", op, retry)
		}
	}

	// Validating
	total, err := s.Quote(ctx, listingID, start, end)
	if err != nil {
		return nil, err
	}

	// CheckingAvailability. A failed check is surfaced, never skipped: booking
	// blind on a broken availability read risks a double booking.
	conflict, err := s.hasConflict(ctx, listingID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s: availability check: %w", op, err)
	}
	if conflict {
		return nil, fmt.Errorf("%s:%w", op, ErrDatesUnavailable)
	}

	// AuthorizingPayment. The amount is the quote, converted nowhere: both are
	// minor units from the same computation.
	res, err := s.payments.AuthorizeAndCapture(ctx, payment.Charge{
		AmountCents:    total,
		Currency:       s.cfg.Currency,
		InstrumentRef:  instrumentRef,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	switch res.Status {
	case payment.StatusSucceeded:
	case payment.StatusFailed:
		return nil, &DeclinedError{Reason: res.FailureReason}
	default:
		// requires_action or still processing: suspend, nothing persisted.
		return nil, &ActionRequiredError{PaymentRef: res.Ref, ClientSecret: res.ClientSecret}
	}

	// Persisting
	b := &domain.Booking{
		ListingID:     listingID,
		UserID:        userID,
		StartDate:     start,
		EndDate:       end,
		TotalCents:    total,
		PaymentRef:    res.Ref,
		PaymentStatus: domain.PaymentSucceeded,
	}

	if err := s.persist(ctx, op, b); err != nil {
		return nil, err
	}

	return b, nil
}

// Complete resumes a booking attempt whose payment reference already exists:
// either the processor demanded an out-of-band challenge, or persistence
// failed after capture. It re-queries the processor for the actual payment
// outcome before persisting, and is idempotent by payment reference: a
// booking already recorded for the reference is returned as-is, with no
// second charge. The submitted listing and dates are re-priced and rejected
// with ErrPaymentMismatch when the captured amount does not pay for them.
func (s *Service) Complete(
	ctx context.Context,
	paymentRef string,
	listingID, userID uuid.UUID,
	start, end time.Time,
) (*domain.Booking, error) {
	const op = "service.booking.Complete"

	if existing, err := s.bookings.ByPaymentRef(ctx, paymentRef); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	res, err := s.payments.Retrieve(ctx, paymentRef)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	switch res.Status {
	case payment.StatusSucceeded:
	case payment.StatusFailed:
		return nil, &DeclinedError{Reason: res.FailureReason}
	default:
		return nil, &ActionRequiredError{PaymentRef: res.Ref, ClientSecret: res.ClientSecret}
	}

	// The caller supplies the listing and dates; the processor only vouches
	// for the amount. Re-price the triple and refuse to record a booking the
	// captured funds do not pay for.
	quoted, err := s.Quote(ctx, listingID, start, end)
	if err != nil {
		return nil, err
	}
	if quoted != res.AmountCents {
		return nil, fmt.Errorf("%s:%w", op, ErrPaymentMismatch)
	}

	b := &domain.Booking{
		ListingID:     listingID,
		UserID:        userID,
		StartDate:     domain.TruncateToDate(start),
		EndDate:       domain.TruncateToDate(end),
		TotalCents:    res.AmountCents,
		PaymentRef:    res.Ref,
		PaymentStatus: domain.PaymentSucceeded,
	}

	if err := s.persist(ctx, op, b); err != nil {
		return nil, err
	}

	return b, nil
}

// persist writes the booking. Payment has been captured by the time this
// runs, so every failure path here is loud: a range conflict means another
// writer won the race and this payment needs support attention; anything
// else is retryable through Complete with the same payment reference.
func (s *Service) persist(ctx context.Context, op string, b *domain.Booking) error {
	err := s.bookings.CreateConfirmed(ctx, b)
	if err == nil {
		s.notifyListingChanged(ctx, b.ListingID)
		return nil
	}

	switch {
	case errors.Is(err, repository.ErrDuplicatePay):
		// The booking for this payment is already on record; adopt it.
		existing, lookupErr := s.bookings.ByPaymentRef(ctx, b.PaymentRef)
		if lookupErr != nil {
			return &PersistFailedError{PaymentRef: b.PaymentRef, Err: lookupErr}
		}
		*b = *existing
		return nil
	case errors.Is(err, repository.ErrDatesOverlap):
		// Another writer won the range race after this payment was captured.
		// The funds are held, so this must surface with the payment
		// reference, not as a plain conflict inviting a fresh attempt.
		s.logger.Error("booking lost date-range race after payment capture",
			"payment_ref", b.PaymentRef,
			"listing_id", b.ListingID,
			"error", err,
		)
		return &PersistFailedError{PaymentRef: b.PaymentRef, Err: ErrDatesUnavailable}
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s:%w", op, ErrListingNotFound)
	default:
		s.logger.Error("booking persistence failed after payment capture",
			"payment_ref", b.PaymentRef,
			"listing_id", b.ListingID,
			"error", err,
		)
		return &PersistFailedError{PaymentRef: b.PaymentRef, Err: err}
	}
}

func (s *Service) hasConflict(ctx context.Context, listingID uuid.UUID, start, end time.Time) (bool, error) {
	existing, err := s.bookings.ListForListing(ctx, listingID)
	if err != nil {
		return false, err
	}

	for _, b := range existing {
		if domain.RangesOverlap(b.StartDate, b.EndDate, start, end) {
			return true, nil
		}
	}

	return false, nil
}

func (s *Service) notifyListingChanged(ctx context.Context, listingID uuid.UUID) {
	if s.cache != nil {
		_ = s.cache.InvalidateListing(ctx, listingID.String())
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishListingChanged(ctx, listingID.String())
	}
}

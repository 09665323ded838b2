package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storeaway/inventory-go/internal/domain"
	"github.com/storeaway/inventory-go/internal/payment"
	"github.com/storeaway/inventory-go/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeListings struct {
	listings map[uuid.UUID]*domain.Listing
}

func (f *fakeListings) Get(_ context.Context, id uuid.UUID) (*domain.Listing, error) {
	l, ok := f.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return l, nil
}

type fakeBookings struct {
	byListing map[uuid.UUID][]domain.Booking
	byRef     map[string]*domain.Booking

	listErr   error
	createErr error
	// createErrOnce makes the next CreateConfirmed fail, then clears itself.
	createErrOnce error

	createCalls int
}

func (f *fakeBookings) ListForListing(_ context.Context, listingID uuid.UUID) ([]domain.Booking, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.byListing[listingID], nil
}

func (f *fakeBookings) CreateConfirmed(_ context.Context, b *domain.Booking) error {
	f.createCalls++
	if f.createErrOnce != nil {
		err := f.createErrOnce
		f.createErrOnce = nil
		return err
	}
	if f.createErr != nil {
		return f.createErr
	}

	b.ID = uuid.New()
	b.CreatedAt = time.Now().UTC()
	stored := *b
	f.byListing[b.ListingID] = append(f.byListing[b.ListingID], stored)
	if f.byRef == nil {
		f.byRef = map[string]*domain.Booking{}
	}
	f.byRef[b.PaymentRef] = &stored
	return nil
}

func (f *fakeBookings) ByPaymentRef(_ context.Context, ref string) (*domain.Booking, error) {
	b, ok := f.byRef[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

type fakeCoordinator struct {
	authorizeResult payment.Result
	authorizeErr    error
	retrieveResult  payment.Result
	retrieveErr     error

	authorizeCalls int
	retrieveCalls  int
	lastCharge     payment.Charge
}

func (f *fakeCoordinator) AuthorizeAndCapture(_ context.Context, ch payment.Charge) (payment.Result, error) {
	f.authorizeCalls++
	f.lastCharge = ch
	return f.authorizeResult, f.authorizeErr
}

func (f *fakeCoordinator) Retrieve(_ context.Context, _ string) (payment.Result, error) {
	f.retrieveCalls++
	return f.retrieveResult, f.retrieveErr
}

func date(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func setupBookingTest(t *testing.T) (*Service, *fakeListings, *fakeBookings, *fakeCoordinator, uuid.UUID) {
	t.Helper()

	listingID := uuid.New()
	listings := &fakeListings{
		listings: map[uuid.UUID]*domain.Listing{
			listingID: {
				ID:                 listingID,
				HostID:             uuid.New(),
				Name:               "Garage in Brooklyn",
				Location:           "Brooklyn, NY",
				SizeSqFt:           120,
				PricePerMonthCents: 30000,
				IsAvailable:        true,
			},
		},
	}
	bookings := &fakeBookings{byListing: map[uuid.UUID][]domain.Booking{}}
	payments := &fakeCoordinator{
		authorizeResult: payment.Result{
			Ref:    "pi_test_1",
			Status: payment.StatusSucceeded,
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(listings, bookings, payments, nil, nil, nil, logger, Config{Currency: "usd"})

	return svc, listings, bookings, payments, listingID
}

func TestQuote(t *testing.T) {
	svc, _, _, _, listingID := setupBookingTest(t)
	ctx := context.Background()

	total, err := svc.Quote(ctx, listingID, date("2026-01-01"), date("2026-01-31"))
	require.NoError(t, err)
	assert.Equal(t, int64(29566), total)
}

func TestQuoteListingNotFound(t *testing.T) {
	svc, _, _, _, _ := setupBookingTest(t)

	_, err := svc.Quote(context.Background(), uuid.New(), date("2026-01-01"), date("2026-01-31"))
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestQuoteInvalidRange(t *testing.T) {
	svc, _, _, _, listingID := setupBookingTest(t)

	_, err := svc.Quote(context.Background(), listingID, date("2026-01-10"), date("2026-01-01"))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestCreateSuccess(t *testing.T) {
	svc, _, bookings, _, listingID := setupBookingTest(t)
	ctx := context.Background()
	userID := uuid.New()

	b, err := svc.Create(ctx, listingID, userID, date("2026-01-01"), date("2026-01-31"), "pm_card", "idem-1", "")
	require.NoError(t, err)

	assert.Equal(t, listingID, b.ListingID)
	assert.Equal(t, userID, b.UserID)
	assert.Equal(t, int64(29566), b.TotalCents)
	assert.Equal(t, "pi_test_1", b.PaymentRef)
	assert.Equal(t, domain.PaymentSucceeded, b.PaymentStatus)
	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, 1, bookings.createCalls)
}

// The amount sent to the payment processor must be the quoted total,
// unconverted and unrounded a second time.
func TestCreateChargesQuotedAmount(t *testing.T) {
	svc, _, _, payments, listingID := setupBookingTest(t)
	ctx := context.Background()

	quoted, err := svc.Quote(ctx, listingID, date("2026-01-01"), date("2026-01-31"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, listingID, uuid.New(), date("2026-01-01"), date("2026-01-31"), "pm_card", "idem-1", "")
	require.NoError(t, err)

	assert.Equal(t, quoted, payments.lastCharge.AmountCents)
	assert.Equal(t, "usd", payments.lastCharge.Currency)
	assert.Equal(t, "idem-1", payments.lastCharge.IdempotencyKey)
}

func TestCreateConflictNoCharge(t *testing.T) {
	svc, _, bookings, payments, listingID := setupBookingTest(t)
	ctx := context.Background()

	bookings.byListing[listingID] = []domain.Booking{{
		ListingID: listingID,
		StartDate: date("2026-01-10"),
		EndDate:   date("2026-01-20"),
	}}

	_, err := svc.Create(ctx, listingID, uuid.New(), date("2026-01-15"), date("2026-02-01"), "pm_card", "", "")
	assert.ErrorIs(t, err, ErrDatesUnavailable)
	assert.Zero(t, payments.authorizeCalls, "conflicting dates must never reach the payment processor")
	assert.Zero(t, bookings.createCalls)
}

// An existing booking ending on the requested start day still conflicts.
func TestCreateTouchingRangeConflicts(t *testing.T) {
	svc, _, bookings, payments, listingID := setupBookingTest(t)
	ctx := context.Background()

	bookings.byListing[listingID] = []domain.Booking{{
		ListingID: listingID,
		StartDate: date("2026-01-01"),
		EndDate:   date("2026-01-10"),
	}}

	_, err := svc.Create(ctx, listingID, uuid.New(), date("2026-01-10"), date("2026-01-20"), "pm_card", "", "")
	assert.ErrorIs(t, err, ErrDatesUnavailable)
	assert.Zero(t, payments.authorizeCalls)
}

func TestCreateAvailabilityCheckErrorSurfaced(t *testing.T) {
	svc, _, bookings, payments, listingID := setupBookingTest(t)

	bookings.listErr = errors.New("connection reset")

	_, err := svc.Create(context.Background(), listingID, uuid.New(), date("2026-01-01"), date("2026-01-31"), "pm_card", "", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDatesUnavailable)
	assert.Zero(t, payments.authorizeCalls, "a failed availability check must not fall through to payment")
}

func TestCreateInvalidRange(t *testing.T) {
	svc, _, _, payments, listingID := setupBookingTest(t)

	_, err := svc.Create(context.Background(), listingID, uuid.New(), date("2026-01-31"), date("2026-01-01"), "pm_card", "", "")
	assert.ErrorIs(t, err, ErrInvalidDateRange)
	assert.Zero(t, payments.authorizeCalls)
}

func TestCreateDeclined(t *testing.T) {
	svc, _, bookings, payments, listingID := setupBookingTest(t)

	payments.authorizeResult = payment.Result{
		Ref:           "pi_test_declined",
		Status:        payment.StatusFailed,
		FailureReason: "card_declined",
	}

	_, err := svc.Create(context.Background(), listingID, uuid.New(), date("2026-01-01"), date("2026-01-31"), "pm_card", "", "")

	var declined *DeclinedError
	require.ErrorAs(t, err, &declined)
	assert.Equal(t, "card_declined", declined.Reason)
	assert.Zero(t, bookings.createCalls, "a declined payment must not persist a booking")
}

func TestCreateRequiresAction(t *testing.T) {
	svc, _, bookings, payments, listingID := setupBookingTest(t)

	payments.authorizeResult = payment.Result{
		Ref:          "pi_test_3ds",
		Status:       payment.StatusRequiresAction,
		ClientSecret: "pi_test_3ds_secret",
	}

	_, err := svc.Create(context.Background(), listingID, uuid.New(), date("2026-01-01"), date("2026-01-31"), "pm_card", "", "")

	var action *ActionRequiredError
	require.ErrorAs(t, err, &action)
	assert.Equal(t, "pi_test_3ds", action.PaymentRef)
	assert.Equal(t, "pi_test_3ds_secret", action.ClientSecret)
	assert.Zero(t, bookings.createCalls, "a suspended payment must not persist a booking")
}

func TestCreatePersistFailureThenComplete(t *testing.T) {
	svc, _, bookings, payments, listingID := setupBookingTest(t)
	ctx := context.Background()
	userID := uuid.New()

	bookings.createErrOnce = errors.New("connection reset during commit")

	_, err := svc.Create(ctx, listingID, userID, date("2026-01-01"), date("2026-01-31"), "pm_card", "idem-1", "")

	var persistErr *PersistFailedError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "pi_test_1", persistErr.PaymentRef)
	assert.Equal(t, 1, payments.authorizeCalls)

	// Recovery: the client retries through Complete with the payment
	// reference from the error. The processor is queried, not re-charged.
	payments.retrieveResult = payment.Result{
		Ref:         "pi_test_1",
		Status:      payment.StatusSucceeded,
		AmountCents: 29566,
	}

	b, err := svc.Complete(ctx, "pi_test_1", listingID, userID, date("2026-01-01"), date("2026-01-31"))
	require.NoError(t, err)

	assert.Equal(t, int64(29566), b.TotalCents)
	assert.Equal(t, "pi_test_1", b.PaymentRef)
	assert.Equal(t, 1, payments.authorizeCalls, "recovery must not charge a second time")
	assert.Equal(t, 1, payments.retrieveCalls)
}

// Losing the range race after capture strands real money: the error must be
// the post-payment persistence class carrying the reference, never the plain
// conflict that tells the user to pick new dates and pay again.
func TestCreateLostRaceAfterCapture(t *testing.T) {
	svc, _, bookings, _, listingID := setupBookingTest(t)

	bookings.createErr = repository.ErrDatesOverlap

	_, err := svc.Create(context.Background(), listingID, uuid.New(), date("2026-01-01"), date("2026-01-31"), "pm_card", "", "")

	var persistErr *PersistFailedError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "pi_test_1", persistErr.PaymentRef)
	assert.ErrorIs(t, err, ErrDatesUnavailable)
}

func TestCreateDuplicatePaymentAdoptsExisting(t *testing.T) {
	svc, _, bookings, _, listingID := setupBookingTest(t)
	ctx := context.Background()
	userID := uuid.New()

	existing := &domain.Booking{
		ID:            uuid.New(),
		ListingID:     listingID,
		UserID:        userID,
		StartDate:     date("2026-01-01"),
		EndDate:       date("2026-01-31"),
		TotalCents:    29566,
		PaymentRef:    "pi_test_1",
		PaymentStatus: domain.PaymentSucceeded,
	}
	bookings.byRef = map[string]*domain.Booking{"pi_test_1": existing}
	bookings.createErr = repository.ErrDuplicatePay

	b, err := svc.Create(ctx, listingID, userID, date("2026-01-01"), date("2026-01-31"), "pm_card", "idem-1", "")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, b.ID)
}

func TestCompleteIdempotentByPaymentRef(t *testing.T) {
	svc, _, bookings, payments, listingID := setupBookingTest(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Create(ctx, listingID, userID, date("2026-01-01"), date("2026-01-31"), "pm_card", "idem-1", "")
	require.NoError(t, err)

	again, err := svc.Complete(ctx, first.PaymentRef, listingID, userID, date("2026-01-01"), date("2026-01-31"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Zero(t, payments.retrieveCalls, "an already-recorded booking must short-circuit before the processor")
	assert.Equal(t, 1, bookings.createCalls)
}

func TestCompleteStillRequiresAction(t *testing.T) {
	svc, _, _, payments, listingID := setupBookingTest(t)

	payments.retrieveResult = payment.Result{
		Ref:          "pi_test_3ds",
		Status:       payment.StatusRequiresAction,
		ClientSecret: "pi_test_3ds_secret",
	}

	_, err := svc.Complete(context.Background(), "pi_test_3ds", listingID, uuid.New(), date("2026-01-01"), date("2026-01-31"))

	var action *ActionRequiredError
	require.ErrorAs(t, err, &action)
	assert.Equal(t, "pi_test_3ds", action.PaymentRef)
}

// Recovery must not let the caller swap in a different range: the submitted
// listing and dates are re-priced and must match the captured amount.
func TestCompleteRejectsMismatchedAmount(t *testing.T) {
	svc, _, bookings, payments, listingID := setupBookingTest(t)
	ctx := context.Background()

	// Captured for Jan 1-31 (29566 cents), resumed for Jan 1 - Mar 1.
	payments.retrieveResult = payment.Result{
		Ref:         "pi_test_1",
		Status:      payment.StatusSucceeded,
		AmountCents: 29566,
	}

	_, err := svc.Complete(ctx, "pi_test_1", listingID, uuid.New(), date("2026-01-01"), date("2026-03-01"))
	assert.ErrorIs(t, err, ErrPaymentMismatch)
	assert.Zero(t, bookings.createCalls, "a mismatched resume must not persist a booking")
}

func TestCompleteFailedPayment(t *testing.T) {
	svc, _, bookings, payments, listingID := setupBookingTest(t)

	payments.retrieveResult = payment.Result{
		Ref:           "pi_test_failed",
		Status:        payment.StatusFailed,
		FailureReason: "card_declined",
	}

	_, err := svc.Complete(context.Background(), "pi_test_failed", listingID, uuid.New(), date("2026-01-01"), date("2026-01-31"))

	var declined *DeclinedError
	require.ErrorAs(t, err, &declined)
	assert.Zero(t, bookings.createCalls)
}

func TestAvailable(t *testing.T) {
	svc, _, bookings, _, listingID := setupBookingTest(t)
	ctx := context.Background()

	bookings.byListing[listingID] = []domain.Booking{{
		ListingID: listingID,
		StartDate: date("2026-01-10"),
		EndDate:   date("2026-01-20"),
	}}

	ok, err := svc.Available(ctx, listingID, date("2026-01-21"), date("2026-01-25"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Available(ctx, listingID, date("2026-01-05"), date("2026-01-12"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Available(ctx, listingID, date("2026-01-10"), date("2026-01-10"))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

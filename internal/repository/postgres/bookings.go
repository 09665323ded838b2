package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/storeaway/inventory-go/internal/domain"
	"github.com/storeaway/inventory-go/internal/repository"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const bookingColumns = `id, listing_id, user_id, start_date, end_date,
	 total_cents, payment_ref, payment_status, created_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.ListingID, &b.UserID, &b.StartDate, &b.EndDate,
		&b.TotalCents, &b.PaymentRef, &b.PaymentStatus, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.StartDate = domain.TruncateToDate(b.StartDate)
	b.EndDate = domain.TruncateToDate(b.EndDate)
	return &b, nil
}

// ListForListing returns every booking recorded against a listing.
func (r *BookingRepo) ListForListing(ctx context.Context, listingID uuid.UUID) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListForListing"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE listing_id = $1
		 ORDER BY start_date`,
		listingID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	return collectBookings(op, rows)
}

// ListForUser returns a user's bookings, newest first.
func (r *BookingRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListForUser"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	return collectBookings(op, rows)
}

func collectBookings(op string, rows pgx.Rows) ([]domain.Booking, error) {
	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	return bookings, nil
}

// ByPaymentRef finds the booking recorded for a payment reference.
//
// Returns:
//   - error: repository.ErrNotFound if no booking carries the reference.
func (r *BookingRepo) ByPaymentRef(ctx context.Context, ref string) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.ByPaymentRef"

	db := r.handle()

	b, err := scanBooking(db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE payment_ref = $1`,
		ref,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return b, nil
}

// CreateConfirmed records a paid booking and flips the listing unavailable as
// one atomic unit. The date range is re-verified inside the transaction; the
// exclusion constraint on (listing_id, daterange) is the backstop for writers
// racing between the check and the insert.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - b: booking to persist; ID and CreatedAt are filled in on success.
//
// Returns:
//   - error: repository.ErrDatesOverlap if the range collides with an
//     existing booking.
//   - error: repository.ErrDuplicatePay if the payment reference was already
//     recorded.
//   - error: repository.ErrNotFound if the listing does not exist.
func (r *BookingRepo) CreateConfirmed(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.CreateConfirmed"

	if r.db != nil {
		if err := r.createConfirmedCore(ctx, r.db, b); err != nil {
			return fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return nil
	}

	// Payment is already captured by the time this runs, so a serialization
	// failure is retried in process rather than escalated to the caller.
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = r.createConfirmedTx(ctx, b)
		if err == nil || !IsRetryable(err) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *BookingRepo) createConfirmedTx(ctx context.Context, b *domain.Booking) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := r.createConfirmedCore(ctx, tx, b); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *BookingRepo) createConfirmedCore(ctx context.Context, db DB, b *domain.Booking) error {
	var overlaps bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE listing_id = $1 AND start_date <= $3 AND end_date >= $2
		 )`,
		b.ListingID, b.StartDate, b.EndDate,
	).Scan(&overlaps)
	if err != nil {
		return err
	}

	if overlaps {
		return repository.ErrDatesOverlap
	}

	tag, err := db.Exec(ctx,
		`UPDATE listings SET is_available = false, updated_at = now() WHERE id = $1`,
		b.ListingID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return db.QueryRow(ctx,
		`INSERT INTO bookings
			(listing_id, user_id, start_date, end_date, total_cents,
			 payment_ref, payment_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		b.ListingID, b.UserID, b.StartDate, b.EndDate, b.TotalCents,
		b.PaymentRef, b.PaymentStatus,
	).Scan(&b.ID, &b.CreatedAt)
}

// CountForListing counts bookings for a listing whose range ends on or after
// the given date. Used to guard listing deletion while bookings are live.
func (r *BookingRepo) CountForListing(ctx context.Context, listingID uuid.UUID, from time.Time) (int64, error) {
	const op = "postgres.BookingRepo.CountForListing"

	db := r.handle()

	var n int64
	err := db.QueryRow(ctx,
		`SELECT count(*) FROM bookings WHERE listing_id = $1 AND end_date >= $2`,
		listingID, from,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return n, nil
}

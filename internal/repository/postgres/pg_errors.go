package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/storeaway/inventory-go/internal/repository"
)

// Constraint names from migrations/0001_init.sql that carry domain meaning.
const (
	constraintBookingsNoOverlap  = "bookings_no_overlap"
	constraintBookingsPaymentRef = "bookings_payment_ref_key"
)

func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}

	return false
}

func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		// exclusion_violation: the (listing_id, daterange) constraint
		case "23P01":
			if pge.ConstraintName == constraintBookingsNoOverlap {
				return repository.ErrDatesOverlap
			}
			return repository.ErrConflict
		// unique_violation
		case "23505":
			if pge.ConstraintName == constraintBookingsPaymentRef {
				return repository.ErrDuplicatePay
			}
			return repository.ErrConflict
		// foreign_key_violation
		case "23503":
			return repository.ErrListingInUse
		}
	}

	return err
}

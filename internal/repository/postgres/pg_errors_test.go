package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/storeaway/inventory-go/internal/repository"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock detected", &pgconn.PgError{Code: "40P01"}, true},
		// Retryability must survive the op-prefix wrapping applied before
		// the transaction loop inspects the error.
		{"wrapped serialization failure", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"exclusion violation", &pgconn.PgError{Code: "23P01"}, false},
		{"plain error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTranslateDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, repository.ErrNotFound},
		{
			"overlap exclusion",
			&pgconn.PgError{Code: "23P01", ConstraintName: constraintBookingsNoOverlap},
			repository.ErrDatesOverlap,
		},
		{
			"other exclusion",
			&pgconn.PgError{Code: "23P01", ConstraintName: "some_other_excl"},
			repository.ErrConflict,
		},
		{
			"duplicate payment ref",
			&pgconn.PgError{Code: "23505", ConstraintName: constraintBookingsPaymentRef},
			repository.ErrDuplicatePay,
		},
		{
			"other unique violation",
			&pgconn.PgError{Code: "23505", ConstraintName: "some_other_key"},
			repository.ErrConflict,
		},
		{
			"foreign key violation",
			&pgconn.PgError{Code: "23503"},
			repository.ErrListingInUse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateDBErr(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("translateDBErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTranslateDBErrPassthrough(t *testing.T) {
	in := errors.New("connection reset")
	if got := translateDBErr(in); got != in {
		t.Errorf("translateDBErr(%v) = %v, want passthrough", in, got)
	}

	if got := translateDBErr(nil); got != nil {
		t.Errorf("translateDBErr(nil) = %v, want nil", got)
	}

	// Retryable codes are not domain errors; they pass through untouched so
	// the transaction loop can still recognize them.
	ser := &pgconn.PgError{Code: "40001"}
	if got := translateDBErr(ser); !IsRetryable(got) {
		t.Errorf("translateDBErr(40001) = %v, lost retryability", got)
	}
}

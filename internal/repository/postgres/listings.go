package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/storeaway/inventory-go/internal/domain"
	"github.com/storeaway/inventory-go/internal/repository"
)

type ListingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ListingRepo) With(db DB) *ListingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ListingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const listingColumns = `id, host_id, name, location, size_sqft, price_per_month_cents,
	 description, images, features, is_available, created_at, updated_at`

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(
		&l.ID, &l.HostID, &l.Name, &l.Location, &l.SizeSqFt, &l.PricePerMonthCents,
		&l.Description, &l.Images, &l.Features, &l.IsAvailable, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a listing and fills in its generated ID and timestamps.
//
// Returns:
//   - error: repository.ErrConflict on a uniqueness violation.
func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	const op = "postgres.ListingRepo.Create"

	db := r.handle()

	err := db.QueryRow(ctx,
		`INSERT INTO listings
			(host_id, name, location, size_sqft, price_per_month_cents,
			 description, images, features, is_available)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		l.HostID, l.Name, l.Location, l.SizeSqFt, l.PricePerMonthCents,
		l.Description, l.Images, l.Features, l.IsAvailable,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Get retrieves a listing by ID.
//
// Returns:
//   - error: repository.ErrNotFound if the listing does not exist.
func (r *ListingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	const op = "postgres.ListingRepo.Get"

	db := r.handle()

	l, err := scanListing(db.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return l, nil
}

// List returns listings ordered newest first. When onlyAvailable is set,
// unavailable listings are filtered out; location does a case-insensitive
// substring match when non-empty.
func (r *ListingRepo) List(
	ctx context.Context,
	onlyAvailable bool,
	location string,
	limit, offset int,
) ([]domain.Listing, error) {
	const op = "postgres.ListingRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+listingColumns+`
		 FROM listings
		 WHERE ($1 = false OR is_available)
		   AND ($2 = '' OR location ILIKE '%' || $2 || '%')
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		onlyAvailable, location, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		listings = append(listings, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return listings, nil
}

func (r *ListingRepo) ListByHost(ctx context.Context, hostID uuid.UUID) ([]domain.Listing, error) {
	const op = "postgres.ListingRepo.ListByHost"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+listingColumns+`
		 FROM listings
		 WHERE host_id = $1
		 ORDER BY created_at DESC`,
		hostID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		listings = append(listings, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return listings, nil
}

// Update rewrites the mutable listing attributes, scoped to the owning host.
//
// Returns:
//   - error: repository.ErrNotFound if no listing matches (id, host_id).
func (r *ListingRepo) Update(ctx context.Context, l *domain.Listing) error {
	const op = "postgres.ListingRepo.Update"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE listings
		 SET name = $3, location = $4, size_sqft = $5, price_per_month_cents = $6,
		     description = $7, images = $8, features = $9, is_available = $10,
		     updated_at = now()
		 WHERE id = $1 AND host_id = $2`,
		l.ID, l.HostID, l.Name, l.Location, l.SizeSqFt, l.PricePerMonthCents,
		l.Description, l.Images, l.Features, l.IsAvailable,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Delete removes a listing owned by hostID.
//
// Returns:
//   - error: repository.ErrNotFound if no listing matches (id, host_id).
//   - error: repository.ErrListingInUse if bookings reference the listing.
func (r *ListingRepo) Delete(ctx context.Context, id, hostID uuid.UUID) error {
	const op = "postgres.ListingRepo.Delete"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`DELETE FROM listings WHERE id = $1 AND host_id = $2`,
		id, hostID,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

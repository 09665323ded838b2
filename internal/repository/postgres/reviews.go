package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/storeaway/inventory-go/internal/domain"
)

type ReviewRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReviewRepo) With(db DB) *ReviewRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReviewRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *ReviewRepo) Create(ctx context.Context, rv *domain.Review) error {
	const op = "postgres.ReviewRepo.Create"

	db := r.handle()

	err := db.QueryRow(ctx,
		`INSERT INTO reviews (listing_id, user_id, rating, comment)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		rv.ListingID, rv.UserID, rv.Rating, rv.Comment,
	).Scan(&rv.ID, &rv.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *ReviewRepo) ListForListing(ctx context.Context, listingID uuid.UUID) ([]domain.Review, error) {
	const op = "postgres.ReviewRepo.ListForListing"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, listing_id, user_id, rating, comment, created_at
		 FROM reviews
		 WHERE listing_id = $1
		 ORDER BY created_at DESC`,
		listingID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.ListingID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return reviews, nil
}

func (r *ReviewRepo) Summary(ctx context.Context, listingID uuid.UUID) (*domain.RatingSummary, error) {
	const op = "postgres.ReviewRepo.Summary"

	db := r.handle()

	var s domain.RatingSummary
	err := db.QueryRow(ctx,
		`SELECT count(*), coalesce(avg(rating), 0)
		 FROM reviews
		 WHERE listing_id = $1`,
		listingID,
	).Scan(&s.Count, &s.Average)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &s, nil
}

package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storeaway/inventory-go/internal/domain"
	"github.com/storeaway/inventory-go/internal/repository"
	postgresrepo "github.com/storeaway/inventory-go/internal/repository/postgres"
	redisrepo "github.com/storeaway/inventory-go/internal/repository/redis"
)

type Config struct {
	SummaryTTL time.Duration
}

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = 60 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// Submit records a review for a listing.
//
// Returns:
//   - error: reviews.ErrInvalidRating if rating is outside 1..5.
//   - error: reviews.ErrListingNotFound if the listing does not exist.
func (s *Service) Submit(ctx context.Context, userID, listingID uuid.UUID, rating int, comment string) (*domain.Review, error) {
	const op = "service.reviews.Submit"

	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidRating)
	}

	if _, err := s.store.Listings().Get(ctx, listingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrListingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	rv := &domain.Review{
		ListingID: listingID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
	}

	if err := s.store.Reviews().Create(ctx, rv); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	_ = s.cache.Del(ctx,
		redisrepo.KeyListingReviews(listingID.String()),
		redisrepo.KeyListingRatingSummary(listingID.String()),
	)

	return rv, nil
}

// ListForListing returns a listing's reviews, newest first.
func (s *Service) ListForListing(ctx context.Context, listingID uuid.UUID) ([]domain.Review, error) {
	const op = "service.reviews.ListForListing"

	key := redisrepo.KeyListingReviews(listingID.String())

	reviews, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.SummaryTTL,
		func(ctx context.Context) ([]domain.Review, error) {
			return s.store.Reviews().ListForListing(ctx, listingID)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return reviews, nil
}

// Summary returns the review count and average rating for a listing.
func (s *Service) Summary(ctx context.Context, listingID uuid.UUID) (*domain.RatingSummary, error) {
	const op = "service.reviews.Summary"

	key := redisrepo.KeyListingRatingSummary(listingID.String())

	summary, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.SummaryTTL,
		func(ctx context.Context) (domain.RatingSummary, error) {
			sm, err := s.store.Reviews().Summary(ctx, listingID)
			if err != nil {
				return domain.RatingSummary{}, err
			}
			return *sm, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &summary, nil
}

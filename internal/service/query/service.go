package query

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
	ListingSummaryTTL  time.Duration
	DefaultListingPage int
	MaxListingPage     int
}

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.ListingSummaryTTL <= 0 {
		cfg.ListingSummaryTTL = 60 * time.Second
	}

	if cfg.DefaultListingPage <= 0 {
		cfg.DefaultListingPage = 50
	}

	if cfg.MaxListingPage <= 0 {
		cfg.MaxListingPage = 200
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// GetListing retrieves a listing by ID through the caching layer.
//
// Returns:
//   - error: query.ErrListingNotFound if the listing is not found.
func (s *Service) GetListing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	const op = "service.query.GetListing"

	key := redisrepo.KeyListingSummary(id.String())

	listing, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.ListingSummaryTTL,
		func(ctx context.Context) (domain.Listing, error) {
			l, err := s.store.Listings().Get(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Listing{}, ErrListingNotFound
				}

				return domain.Listing{}, err
			}

			return *l, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &listing, nil
}

// ListListings returns a page of listings, optionally filtered to available
// ones and by a location substring. Pagination limits are clamped.
func (s *Service) ListListings(
	ctx context.Context,
	onlyAvailable bool,
	location string,
	limit, offset int,
) ([]domain.Listing, error) {
	const op = "service.query.ListListings"

	if limit <= 0 {
		limit = s.cfg.DefaultListingPage
	}

	if limit > s.cfg.MaxListingPage {
		limit = s.cfg.MaxListingPage
	}

	listings, err := s.store.Listings().List(ctx, onlyAvailable, location, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return listings, nil
}

// UserBookings returns the bookings a user has made, newest first.
func (s *Service) UserBookings(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	const op = "service.query.UserBookings"

	bookings, err := s.store.Bookings().ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return bookings, nil
}

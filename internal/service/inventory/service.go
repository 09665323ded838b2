// Package inventory manages a host's listings: the create/edit/delete side of
// the marketplace. Booking-driven availability flips live in the booking
// service; here the flag only changes through explicit host edits.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storeaway/inventory-go/internal/domain"
	redisx "github.com/storeaway/inventory-go/internal/redis"
	"github.com/storeaway/inventory-go/internal/repository"
	postgresrepo "github.com/storeaway/inventory-go/internal/repository/postgres"
	redisrepo "github.com/storeaway/inventory-go/internal/repository/redis"
	"github.com/storeaway/inventory-go/internal/uow"
)

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	pubsub *redisx.ListingsPubSub
	uow    *uow.UoW
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, pubsub *redisx.ListingsPubSub) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		uow:    uow.NewUoW(store),
	}
}

func validate(l *domain.Listing) error {
	if l.Name == "" || l.SizeSqFt <= 0 || l.PricePerMonthCents <= 0 {
		return ErrInvalidListing
	}
	return nil
}

// CreateListing records a new listing owned by hostID.
//
// Returns:
//   - error: inventory.ErrInvalidListing on bad attributes.
//   - error: inventory.ErrListingConflict on a uniqueness violation.
func (s *Service) CreateListing(ctx context.Context, hostID uuid.UUID, l *domain.Listing) error {
	const op = "service.inventory.CreateListing"

	l.HostID = hostID
	if err := validate(l); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Listings().With(tx).Create(ctx, l); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s:%w", op, ErrListingConflict)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateListing(ctx, l.ID.String())
			_ = s.pubsub.PublishListingChanged(ctx, l.ID.String())
		})

		return nil
	})

	return err
}

// UpdateListing rewrites a listing's attributes. Only the owning host may
// update; a mismatched host behaves like a missing listing.
func (s *Service) UpdateListing(ctx context.Context, hostID uuid.UUID, l *domain.Listing) error {
	const op = "service.inventory.UpdateListing"

	l.HostID = hostID
	if err := validate(l); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Listings().With(tx).Update(ctx, l); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrListingNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateListing(ctx, l.ID.String())
			_ = s.pubsub.PublishListingChanged(ctx, l.ID.String())
		})

		return nil
	})

	return err
}

// DeleteListing removes a listing, refusing while any booking still runs
// today or in the future.
//
// Returns:
//   - error: inventory.ErrListingNotFound if no listing matches (id, host).
//   - error: inventory.ErrListingBooked while live bookings exist.
func (s *Service) DeleteListing(ctx context.Context, hostID, listingID uuid.UUID) error {
	const op = "service.inventory.DeleteListing"

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		today := domain.TruncateToDate(time.Now().UTC())

		live, err := s.store.Bookings().With(tx).CountForListing(ctx, listingID, today)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		if live > 0 {
			return fmt.Errorf("%s:%w", op, ErrListingBooked)
		}

		if err := s.store.Listings().With(tx).Delete(ctx, listingID, hostID); err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("%s:%w", op, ErrListingNotFound)
			case errors.Is(err, repository.ErrListingInUse):
				return fmt.Errorf("%s:%w", op, ErrListingBooked)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateListing(ctx, listingID.String())
			_ = s.pubsub.PublishListingChanged(ctx, listingID.String())
		})

		return nil
	})

	return err
}

// HostListings returns every listing owned by hostID.
func (s *Service) HostListings(ctx context.Context, hostID uuid.UUID) ([]domain.Listing, error) {
	const op = "service.inventory.HostListings"

	listings, err := s.store.Listings().ListByHost(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return listings, nil
}

// ListingBookings returns the bookings recorded against one of the host's
// listings, verifying ownership first.
func (s *Service) ListingBookings(ctx context.Context, hostID, listingID uuid.UUID) ([]domain.Booking, error) {
	const op = "service.inventory.ListingBookings"

	l, err := s.store.Listings().Get(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrListingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if l.HostID != hostID {
		return nil, fmt.Errorf("%s:%w", op, ErrListingNotFound)
	}

	bookings, err := s.store.Bookings().ListForListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return bookings, nil
}

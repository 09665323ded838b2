package service

import (
	"log/slog"

	redisx "github.com/storeaway/inventory-go/internal/redis"
	postgres "github.com/storeaway/inventory-go/internal/repository/postgres"
	redis "github.com/storeaway/inventory-go/internal/repository/redis"
	"github.com/storeaway/inventory-go/internal/service/booking"
	"github.com/storeaway/inventory-go/internal/service/inventory"
	"github.com/storeaway/inventory-go/internal/service/query"
	"github.com/storeaway/inventory-go/internal/service/reviews"
)

type Services struct {
	Booking   *booking.Service
	Inventory *inventory.Service
	Query     *query.Service
	Reviews   *reviews.Service
}

type Config struct {
	Booking booking.Config
	Query   query.Config
	Reviews reviews.Config
}

func NewServices(
	store *postgres.Store,
	payments booking.Coordinator,
	cache *redis.Cache,
	pubsub *redisx.ListingsPubSub,
	limiter *redis.SlidingWindowLimiter,
	logger *slog.Logger,
	cfg Config,
) *Services {
	return &Services{
		Booking:   booking.New(store.Listings(), store.Bookings(), payments, cache, pubsub, limiter, logger, cfg.Booking),
		Inventory: inventory.New(store, cache, pubsub),
		Query:     query.New(store, cache, cfg.Query),
		Reviews:   reviews.New(store, cache, cfg.Reviews),
	}
}

package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storeaway/inventory-go/internal/domain"
	redisrepo "github.com/storeaway/inventory-go/internal/repository/redis"
	"github.com/storeaway/inventory-go/internal/service"
	"github.com/storeaway/inventory-go/internal/service/booking"
	"github.com/storeaway/inventory-go/internal/service/inventory"
	"github.com/storeaway/inventory-go/internal/service/query"
	"github.com/storeaway/inventory-go/internal/service/reviews"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	authSecret string,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/listings", handleListListings(svcs))
	r.GET("/listings/:id", handleGetListing(svcs))
	r.GET("/listings/:id/availability", handleGetAvailability(svcs))
	r.GET("/listings/:id/reviews", handleListReviews(svcs))
	r.GET("/listings/:id/rating", handleRatingSummary(svcs))

	// Authenticated API
	auth := r.Group("", AuthRequired(authSecret))
	{
		auth.POST("/bookings", handleCreateBooking(svcs, idem))
		auth.POST("/bookings/complete", handleCompleteBooking(svcs))
		auth.GET("/bookings", handleMyBookings(svcs))
		auth.POST("/listings/:id/reviews", handleSubmitReview(svcs))
	}

	// Host API
	host := r.Group("/host", AuthRequired(authSecret), RequireRole(domain.RoleHost))
	{
		host.GET("/listings", handleHostListings(svcs))
		host.POST("/listings", handleCreateListing(svcs))
		host.PUT("/listings/:id", handleUpdateListing(svcs))
		host.DELETE("/listings/:id", handleDeleteListing(svcs))
		host.GET("/listings/:id/bookings", handleListingBookings(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List listings
// @Param    available query  string  false "true to hide unavailable listings"
// @Param    location  query  string  false "location substring filter"
// @Param    limit     query  int     false "page size"
// @Param    offset    query  int     false "offset"
// @Success  200  {array}  ListingResponse
// @Router   /listings [get]
func handleListListings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		onlyAvailable := c.Query("available") == "true"
		location := c.Query("location")
		limit := parseIntDefault(c.Query("limit"), 50)
		offset := parseIntDefault(c.Query("offset"), 0)

		listings, err := svcs.Query.ListListings(
			c.Request.Context(),
			onlyAvailable,
			location,
			limit,
			offset,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]ListingResponse, 0, len(listings))
		for i := range listings {
			out = append(out, toListingResponse(&listings[i]))
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
	}
}

// @Summary  Get listing
// @Param    id  path  string  true  "Listing ID (uuid)"
// @Success  200  {object}  ListingResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /listings/{id} [get]
func handleGetListing(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		listingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		l, err := svcs.Query.GetListing(c.Request.Context(), listingID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, toListingResponse(l), "public, max-age=60", true)
	}
}

// @Summary  Check date-range availability and price
// @Param    id     path   string  true  "Listing ID (uuid)"
// @Param    start  query  string  true  "start date (2006-01-02)"
// @Param    end    query  string  true  "end date (2006-01-02)"
// @Success  200  {object}  AvailabilityResponse
// @Failure  400  {object}  ErrorResponse
// @Router   /listings/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		listingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		start, err := domain.ParseDate(c.Query("start"))
		if err != nil {
			badRequest(c, "invalid start (2006-01-02)")
			return
		}
		end, err := domain.ParseDate(c.Query("end"))
		if err != nil {
			badRequest(c, "invalid end (2006-01-02)")
			return
		}

		available, err := svcs.Booking.Available(c.Request.Context(), listingID, start, end)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := AvailabilityResponse{Available: available}
		if available {
			total, err := svcs.Booking.Quote(c.Request.Context(), listingID, start, end)
			if err != nil {
				respondErr(c, err)
				return
			}
			resp.TotalCents = total
			resp.Total = domain.CentsToDecimalString(total)
		}

		c.JSON(http.StatusOK, resp)
	}
}

// @Summary  Create booking (idempotent)
// @Param    req body  CreateBookingRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} BookingResponse
// @Success  202 {object} ActionRequiredResponse "payment challenge pending"
// @Failure  400 {object} ErrorResponse
// @Failure  402 {object} ErrorResponse "payment declined"
// @Failure  409 {object} ErrorResponse "dates unavailable / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		listingID, err := uuid.Parse(req.ListingID)
		if err != nil {
			badRequest(c, "invalid listing_id")
			return
		}
		start, err := domain.ParseDate(req.StartDate)
		if err != nil {
			badRequest(c, "invalid start_date (2006-01-02)")
			return
		}
		end, err := domain.ParseDate(req.EndDate)
		if err != nil {
			badRequest(c, "invalid end_date (2006-01-02)")
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(req.ListingID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		rlKey := "ip:" + c.ClientIP()

		b, err := svcs.Booking.Create(
			c.Request.Context(),
			listingID,
			userID,
			start,
			end,
			req.PaymentMethodID,
			idemKey,
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}

			var actionErr *booking.ActionRequiredError
			if errors.As(err, &actionErr) {
				c.JSON(http.StatusAccepted, ActionRequiredResponse{
					PaymentRef:   actionErr.PaymentRef,
					ClientSecret: actionErr.ClientSecret,
				})
				return
			}

			if isRateLimitedErr(err) {
				c.Header("Retry-After", "60")
				c.JSON(
					http.StatusTooManyRequests,
					ErrorResponse{Error: err.Error()},
				)
				return
			}
			respondErr(c, err)
			return
		}

		resp := toBookingResponse(b)

		if idemStorageKey != "" && idem != nil {
			payload, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(payload))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Complete a suspended or persist-failed booking
// @Param    req body  CompleteBookingRequest true "payload"
// @Success  201 {object} BookingResponse
// @Success  202 {object} ActionRequiredResponse
// @Failure  402 {object} ErrorResponse
// @Router   /bookings/complete [post]
func handleCompleteBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		var req CompleteBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		listingID, err := uuid.Parse(req.ListingID)
		if err != nil {
			badRequest(c, "invalid listing_id")
			return
		}
		start, err := domain.ParseDate(req.StartDate)
		if err != nil {
			badRequest(c, "invalid start_date (2006-01-02)")
			return
		}
		end, err := domain.ParseDate(req.EndDate)
		if err != nil {
			badRequest(c, "invalid end_date (2006-01-02)")
			return
		}

		b, err := svcs.Booking.Complete(
			c.Request.Context(),
			req.PaymentRef,
			listingID,
			userID,
			start,
			end,
		)
		if err != nil {
			var actionErr *booking.ActionRequiredError
			if errors.As(err, &actionErr) {
				c.JSON(http.StatusAccepted, ActionRequiredResponse{
					PaymentRef:   actionErr.PaymentRef,
					ClientSecret: actionErr.ClientSecret,
				})
				return
			}
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, toBookingResponse(b))
	}
}

// @Summary  List the current user's bookings
// @Success  200 {array} BookingResponse
// @Router   /bookings [get]
func handleMyBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		bookings, err := svcs.Query.UserBookings(c.Request.Context(), userID)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]BookingResponse, 0, len(bookings))
		for i := range bookings {
			out = append(out, toBookingResponse(&bookings[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  List reviews for a listing
// @Param    id  path  string  true  "Listing ID (uuid)"
// @Success  200 {array} ReviewResponse
// @Router   /listings/{id}/reviews [get]
func handleListReviews(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		listingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		rvs, err := svcs.Reviews.ListForListing(c.Request.Context(), listingID)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]ReviewResponse, 0, len(rvs))
		for i := range rvs {
			out = append(out, toReviewResponse(&rvs[i]))
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
	}
}

// @Summary  Rating summary for a listing
// @Param    id  path  string  true  "Listing ID (uuid)"
// @Success  200 {object} RatingSummaryResponse
// @Router   /listings/{id}/rating [get]
func handleRatingSummary(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		listingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		sm, err := svcs.Reviews.Summary(c.Request.Context(), listingID)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, RatingSummaryResponse{
			Count:   sm.Count,
			Average: sm.Average,
		}, "public, max-age=15", true)
	}
}

// @Summary  Submit a review
// @Param    id  path  string  true  "Listing ID (uuid)"
// @Param    req body  ReviewRequest true "payload"
// @Success  201 {object} ReviewResponse
// @Router   /listings/{id}/reviews [post]
func handleSubmitReview(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		listingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req ReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		rv, err := svcs.Reviews.Submit(c.Request.Context(), userID, listingID, req.Rating, req.Comment)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, toReviewResponse(rv))
	}
}

// @Summary  List the host's listings
// @Success  200 {array} ListingResponse
// @Router   /host/listings [get]
func handleHostListings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		hostID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		listings, err := svcs.Inventory.HostListings(c.Request.Context(), hostID)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]ListingResponse, 0, len(listings))
		for i := range listings {
			out = append(out, toListingResponse(&listings[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Create listing
// @Param    req body  ListingRequest true "payload"
// @Success  201 {object} ListingResponse
// @Router   /host/listings [post]
func handleCreateListing(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		hostID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		var req ListingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		l := req.toDomain()
		if err := svcs.Inventory.CreateListing(c.Request.Context(), hostID, &l); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, toListingResponse(&l))
	}
}

// @Summary  Update listing
// @Param    id  path  string  true  "Listing ID (uuid)"
// @Param    req body  ListingRequest true "payload"
// @Success  200 {object} ListingResponse
// @Router   /host/listings/{id} [put]
func handleUpdateListing(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		hostID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		listingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req ListingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		l := req.toDomain()
		l.ID = listingID
		if err := svcs.Inventory.UpdateListing(c.Request.Context(), hostID, &l); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toListingResponse(&l))
	}
}

// @Summary  Delete listing
// @Param    id  path  string  true  "Listing ID (uuid)"
// @Success  204
// @Failure  409 {object} ErrorResponse "listing has active bookings"
// @Router   /host/listings/{id} [delete]
func handleDeleteListing(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		hostID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		listingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		if err := svcs.Inventory.DeleteListing(c.Request.Context(), hostID, listingID); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  List bookings for one of the host's listings
// @Param    id  path  string  true  "Listing ID (uuid)"
// @Success  200 {array} BookingResponse
// @Router   /host/listings/{id}/bookings [get]
func handleListingBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		hostID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		listingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		bookings, err := svcs.Inventory.ListingBookings(c.Request.Context(), hostID, listingID)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]BookingResponse, 0, len(bookings))
		for i := range bookings {
			out = append(out, toBookingResponse(&bookings[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	s := c.Param(name)
	v, err := uuid.Parse(s)
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func isRateLimitedErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "rate limited")
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	// The one failure mode that must never read as "try again": funds are
	// captured but the booking row is missing. The payment reference lets
	// support resume without a second charge.
	var persistErr *booking.PersistFailedError
	if errors.As(err, &persistErr) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:      "payment was captured but the booking could not be recorded; do not pay again; contact support or retry via /bookings/complete",
			PaymentRef: persistErr.PaymentRef,
		})
		return
	}

	var declinedErr *booking.DeclinedError
	if errors.As(err, &declinedErr) {
		c.JSON(http.StatusPaymentRequired, ErrorResponse{Error: declinedErr.Reason})
		return
	}

	switch {
	// booking service
	case errors.Is(err, booking.ErrInvalidDateRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid date range"})
		return
	case errors.Is(err, booking.ErrDatesUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "dates unavailable"})
		return
	case errors.Is(err, booking.ErrListingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing not found"})
		return
	case errors.Is(err, booking.ErrPaymentMismatch):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "captured payment does not match the requested booking"})
		return
	// inventory service
	case errors.Is(err, inventory.ErrInvalidListing):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid listing"})
		return
	case errors.Is(err, inventory.ErrListingConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "listing conflict"})
		return
	case errors.Is(err, inventory.ErrListingBooked):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "listing has active bookings"})
		return
	case errors.Is(err, inventory.ErrListingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing not found"})
		return
	// query service
	case errors.Is(err, query.ErrListingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing not found"})
		return
	// reviews service
	case errors.Is(err, reviews.ErrInvalidRating):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "rating must be between 1 and 5"})
		return
	case errors.Is(err, reviews.ErrListingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing not found"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

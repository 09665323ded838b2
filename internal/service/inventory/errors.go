package inventory

import "errors"

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrListingConflict = errors.New("listing conflict")
	ErrListingBooked   = errors.New("listing has active bookings")
	ErrInvalidListing  = errors.New("invalid listing")
)

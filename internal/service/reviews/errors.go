package reviews

import "errors"

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
)

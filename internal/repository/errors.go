package repository

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrDatesOverlap  = errors.New("booking dates overlap an existing booking")
	ErrListingInUse  = errors.New("listing has bookings")
	ErrDuplicatePay  = errors.New("payment reference already recorded")
	ErrNotAuthorized = errors.New("not authorized")
)

package booking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrDatesUnavailable = errors.New("dates unavailable")
	ErrListingNotFound  = errors.New("listing not found")
	ErrPaymentMismatch  = errors.New("captured payment does not match the requested booking")
)

// DeclinedError is a payment failure the user can recover from by retrying
// with a different instrument. Reason is safe to display.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined: %s", e.Reason)
}

// ActionRequiredError suspends the booking attempt while the payment
// processor completes an out-of-band challenge (or finishes processing).
// Nothing has been persisted; PaymentRef and ClientSecret are all the state
// needed to resume via Complete.
type ActionRequiredError struct {
	PaymentRef   string
	ClientSecret string
}

func (e *ActionRequiredError) Error() string {
	return fmt.Sprintf("payment %s requires further action", e.PaymentRef)
}

// PersistFailedError reports a persistence failure after funds were captured.
// Retrying from scratch would double-charge; the attempt must be resumed via
// Complete with the same payment reference.
type PersistFailedError struct {
	PaymentRef string
	Err        error
}

func (e *PersistFailedError) Error() string {
	return fmt.Sprintf("booking not recorded after payment %s was captured: %v", e.PaymentRef, e.Err)
}

func (e *PersistFailedError) Unwrap() error {
	return e.Err
}

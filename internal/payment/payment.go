// Package payment wraps the external payment processor behind a small
// coordinator interface. Amounts are integer minor currency units; instrument
// references are pre-tokenized handles, never raw card data.
package payment

type Status string

const (
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	StatusRequiresAction Status = "requires_action"
	StatusPending        Status = "pending"
)

type Charge struct {
	AmountCents   int64
	Currency      string
	InstrumentRef string
	// IdempotencyKey scopes retries: replaying a charge with the same key
	// resolves to the original attempt's outcome instead of a second capture.
	IdempotencyKey string
}

type Result struct {
	Ref         string
	Status      Status
	AmountCents int64
	// ClientSecret is the resumption token handed to the client when the
	// processor demands an out-of-band challenge.
	ClientSecret string
	// FailureReason is displayable to the end user; processor internals are
	// never surfaced here.
	FailureReason string
}

package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

const defaultAttemptTimeout = 30 * time.Second

// StripeCoordinator authorizes and captures funds through Stripe
// PaymentIntents, confirming server-side against a pre-tokenized payment
// method.
type StripeCoordinator struct {
	api     *client.API
	timeout time.Duration
}

func NewStripe(secretKey string, attemptTimeout time.Duration) *StripeCoordinator {
	if attemptTimeout <= 0 {
		attemptTimeout = defaultAttemptTimeout
	}

	api := &client.API{}
	api.Init(secretKey, nil)

	return &StripeCoordinator{
		api:     api,
		timeout: attemptTimeout,
	}
}

// AuthorizeAndCapture creates and confirms a payment intent for the charge.
//
// Each attempt is bounded by the configured timeout. A timed-out attempt is
// ambiguous (the capture may or may not have landed), so it is replayed once
// with the same idempotency key; the processor resolves the replay to the
// first attempt's outcome, so no second charge is possible.
//
// Returns:
//   - Result with StatusFailed and a displayable FailureReason on a decline.
//   - Result with StatusRequiresAction plus the client secret when the
//     processor demands an out-of-band challenge.
//   - error: only for transport/processor failures with no usable outcome.
func (c *StripeCoordinator) AuthorizeAndCapture(ctx context.Context, ch Charge) (Result, error) {
	const op = "payment.StripeCoordinator.AuthorizeAndCapture"

	if ch.AmountCents <= 0 {
		return Result{}, fmt.Errorf("%s: amount must be positive", op)
	}

	res, err := c.confirmOnce(ctx, ch)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		// Ambiguous outcome; replay under the same idempotency key.
		res, err = c.confirmOnce(ctx, ch)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%s:%w", op, err)
	}

	return res, nil
}

func (c *StripeCoordinator) confirmOnce(ctx context.Context, ch Charge) (Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Params:        stripe.Params{Context: attemptCtx},
		Amount:        stripe.Int64(ch.AmountCents),
		Currency:      stripe.String(ch.Currency),
		PaymentMethod: stripe.String(ch.InstrumentRef),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	if ch.IdempotencyKey != "" {
		params.SetIdempotencyKey(ch.IdempotencyKey)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			res := Result{Status: StatusFailed, FailureReason: declineReason(stripeErr)}
			if stripeErr.PaymentIntent != nil {
				res.Ref = stripeErr.PaymentIntent.ID
			}
			return res, nil
		}
		return Result{}, err
	}

	return resultFromIntent(pi), nil
}

// Retrieve re-queries the processor for an intent's actual status. Used to
// resume a suspended attempt and to resolve ambiguity before any retry.
func (c *StripeCoordinator) Retrieve(ctx context.Context, ref string) (Result, error) {
	const op = "payment.StripeCoordinator.Retrieve"

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pi, err := c.api.PaymentIntents.Get(ref, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: attemptCtx},
	})
	if err != nil {
		return Result{}, fmt.Errorf("%s:%w", op, err)
	}

	return resultFromIntent(pi), nil
}

func resultFromIntent(pi *stripe.PaymentIntent) Result {
	res := Result{
		Ref:         pi.ID,
		AmountCents: pi.Amount,
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		res.Status = StatusSucceeded
	case stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusRequiresConfirmation:
		res.Status = StatusRequiresAction
		res.ClientSecret = pi.ClientSecret
	case stripe.PaymentIntentStatusProcessing:
		res.Status = StatusPending
	default:
		res.Status = StatusFailed
		res.FailureReason = "payment was not completed"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			res.FailureReason = pi.LastPaymentError.Msg
		}
	}

	return res
}

func declineReason(err *stripe.Error) string {
	if err.Msg != "" {
		return err.Msg
	}
	return "payment was declined"
}

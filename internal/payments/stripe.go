package payments

import (
	"context"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// StripeAuthorizer places manual-capture PaymentIntent holds for card rides.
// The hold reference is recorded on the ride as payment metadata; this
// service never captures. Settlement is somebody else's job.
type StripeAuthorizer struct{}

func NewStripeAuthorizer(apiKey string) *StripeAuthorizer {
	stripe.Key = apiKey
	return &StripeAuthorizer{}
}

// Authorize creates the hold and returns the PaymentIntent ID.
func (s *StripeAuthorizer) Authorize(ctx context.Context, amount int64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// Release cancels a hold, freeing the funds.
func (s *StripeAuthorizer) Release(ctx context.Context, ref string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := paymentintent.Cancel(ref, params)
	return err
}

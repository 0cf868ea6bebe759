// Package payments places and settles escrow holds with a payment gateway.
package payments

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"parcelroute/internal/domain"
)

// StripeGateway holds funds with manual-capture PaymentIntents.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a gateway using the given secret key.
func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

// Hold creates a PaymentIntent with capture_method=manual and returns its id.
// amountMinor is in the currency's smallest unit.
func (g *StripeGateway) Hold(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountMinor),
		Currency:      stripe.String(currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: stripe hold: %w", domain.ErrProvider, err)
	}
	return pi.ID, nil
}

// Capture finalizes a previously held PaymentIntent.
func (g *StripeGateway) Capture(ctx context.Context, ref string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	if _, err := g.api.PaymentIntents.Capture(ref, params); err != nil {
		return fmt.Errorf("%w: stripe capture: %w", domain.ErrProvider, err)
	}
	return nil
}

// Cancel releases the hold on a PaymentIntent.
func (g *StripeGateway) Cancel(ctx context.Context, ref string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := g.api.PaymentIntents.Cancel(ref, params); err != nil {
		return fmt.Errorf("%w: stripe cancel: %w", domain.ErrProvider, err)
	}
	return nil
}

// Package stripe verifies Stripe webhook deliveries.
package stripe

import (
	"errors"
	"time"

	stripego "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// DefaultTolerance is the accepted age of a signed delivery.
const DefaultTolerance = webhook.DefaultTolerance

// WebhookVerifier checks the Stripe-Signature header against the endpoint
// secret and decodes the event.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

// NewWebhookVerifier creates a verifier. A non-positive tolerance uses
// DefaultTolerance.
func NewWebhookVerifier(secret string, tolerance time.Duration) *WebhookVerifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &WebhookVerifier{secret: secret, tolerance: tolerance}
}

// ConstructEvent verifies payload and returns the decoded event. Every
// failure is an *domain.ErrInvalidSignature.
func (v *WebhookVerifier) ConstructEvent(payload []byte, header string) (stripego.Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripego.Event{}, &domain.ErrInvalidSignature{Reason: reason(err)}
	}
	return evt, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, webhook.ErrNotSigned):
		return "missing signature"
	case errors.Is(err, webhook.ErrInvalidHeader):
		return "malformed signature header"
	case errors.Is(err, webhook.ErrTooOld):
		return "timestamp outside tolerance"
	case errors.Is(err, webhook.ErrNoValidSignature):
		return "no matching signature"
	}
	return "invalid payload"
}

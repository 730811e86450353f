package domain

// ============================================================
// Payment webhook (Stripe)
// ============================================================

// Stripe event types the billing service reacts to.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// WebhookAck is the body returned to Stripe.
type WebhookAck struct {
	Received bool `json:"received"`
}

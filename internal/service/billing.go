package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/stripe/stripe-go/v81"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/observability"
	"github.com/carcashpro/carcash-bfa-go/internal/port"
)

// Webhook processing results, used as metric labels.
const (
	webhookApplied        = "applied"
	webhookIgnored        = "ignored"
	webhookUnknownAccount = "unknown_account"
	webhookFailed         = "failed"
)

// BillingService applies Stripe subscription events to account tiers.
type BillingService struct {
	verifier port.WebhookVerifier
	store    port.AccountStore
	accounts *AccountService
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewBillingService creates the billing service.
func NewBillingService(verifier port.WebhookVerifier, store port.AccountStore, accounts *AccountService, metrics *observability.Metrics, logger *zap.Logger) *BillingService {
	return &BillingService{
		verifier: verifier,
		store:    store,
		accounts: accounts,
		metrics:  metrics,
		logger:   logger,
	}
}

// HandleWebhook verifies and applies one webhook delivery. Events for
// unknown accounts and unhandled event types are acknowledged.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*domain.WebhookAck, error) {
	ctx, span := tracer.Start(ctx, "BillingService.HandleWebhook")
	defer span.End()

	evt, err := s.verifier.ConstructEvent(payload, signature)
	if err != nil {
		s.logger.Warn("webhook signature verification failed", zap.Error(err))
		s.metrics.IncrWebhookEvent("unverified", webhookFailed)
		return nil, err
	}
	if evt.Data == nil {
		return nil, &domain.ErrInvalidSignature{Reason: "invalid payload"}
	}
	eventType := string(evt.Type)
	span.SetAttributes(attribute.String("webhook.type", eventType))

	var result string
	switch eventType {
	case domain.EventCheckoutCompleted:
		result, err = s.checkoutCompleted(ctx, evt)
	case domain.EventSubscriptionDeleted:
		result, err = s.subscriptionDeleted(ctx, evt)
	default:
		s.logger.Info("unhandled webhook event", zap.String("event_type", eventType))
		result = webhookIgnored
	}

	if err != nil {
		s.metrics.IncrWebhookEvent(eventType, webhookFailed)
		s.logger.Error("webhook processing failed",
			zap.String("event_type", eventType),
			zap.String("event_id", evt.ID),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrWebhookEvent(eventType, result)
	return &domain.WebhookAck{Received: true}, nil
}

func (s *BillingService) checkoutCompleted(ctx context.Context, evt stripe.Event) (string, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return "", &domain.ErrInvalidSignature{Reason: "invalid checkout session"}
	}

	email := sessionEmail(&session)
	if email == "" {
		s.logger.Warn("checkout session without email", zap.String("session_id", session.ID))
		return webhookUnknownAccount, nil
	}

	acct, err := s.store.FindAccountByEmail(ctx, email)
	if err != nil {
		return s.lookupFailed(err, zap.String("email", email))
	}

	tier := purchasedTier(&session)
	now := time.Now().UTC()
	if _, err := s.accounts.UpdateSubscription(ctx, acct.ID, func(sub *domain.Subscription) {
		sub.Tier = tier
		if session.Customer != nil {
			sub.StripeCustomerID = session.Customer.ID
		}
		if session.Subscription != nil {
			sub.StripeSubscriptionID = session.Subscription.ID
		}
		sub.ActivatedAt = &now
	}); err != nil {
		return "", fmt.Errorf("activate subscription: %w", err)
	}

	s.logger.Info("subscription activated",
		zap.String("account_id", acct.ID),
		zap.String("tier", string(tier)),
	)
	return webhookApplied, nil
}

func (s *BillingService) subscriptionDeleted(ctx context.Context, evt stripe.Event) (string, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
		return "", &domain.ErrInvalidSignature{Reason: "invalid subscription"}
	}

	acct, err := s.store.FindAccountBySubscription(ctx, sub.ID)
	if err != nil {
		return s.lookupFailed(err, zap.String("subscription_id", sub.ID))
	}

	now := time.Now().UTC()
	if _, err := s.accounts.UpdateSubscription(ctx, acct.ID, func(sub *domain.Subscription) {
		sub.Tier = domain.TierFree
		sub.CancelledAt = &now
	}); err != nil {
		return "", fmt.Errorf("cancel subscription: %w", err)
	}

	s.logger.Info("subscription cancelled", zap.String("account_id", acct.ID))
	return webhookApplied, nil
}

func (s *BillingService) lookupFailed(err error, field zap.Field) (string, error) {
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		s.logger.Warn("webhook account not found", field)
		return webhookUnknownAccount, nil
	}
	return "", fmt.Errorf("find account: %w", err)
}

// sessionEmail returns the buyer email, preferring customer_details.
func sessionEmail(s *stripe.CheckoutSession) string {
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		return s.CustomerDetails.Email
	}
	return s.CustomerEmail
}

// purchasedTier reads the tier from session metadata; anything but GURU is PRO.
func purchasedTier(s *stripe.CheckoutSession) domain.Tier {
	if domain.ParseTier(s.Metadata["tier"]) == domain.TierGuru {
		return domain.TierGuru
	}
	return domain.TierPro
}

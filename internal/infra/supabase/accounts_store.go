package supabase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// ============================================================
// Accounts: settings documents via PostgREST
// ============================================================

// accountRow maps the accounts table; plan, goals and notifications are
// jsonb columns.
type accountRow struct {
	ID                   string                         `json:"id"`
	Email                string                         `json:"email"`
	FirstName            string                         `json:"first_name"`
	LastName             string                         `json:"last_name"`
	Phone                string                         `json:"phone"`
	PayPlan              domain.PayPlan                 `json:"pay_plan"`
	Goals                domain.Goals                   `json:"goals"`
	Notifications        domain.NotificationPreferences `json:"notifications"`
	Tier                 string                         `json:"tier"`
	StripeCustomerID     string                         `json:"stripe_customer_id"`
	StripeSubscriptionID string                         `json:"stripe_subscription_id"`
	ProActivatedAt       *time.Time                     `json:"pro_activated_at"`
	ProCancelledAt       *time.Time                     `json:"pro_cancelled_at"`
	CreatedAt            time.Time                      `json:"created_at"`
}

func toAccountRow(a *domain.Account) accountRow {
	return accountRow{
		ID:                   a.ID,
		Email:                strings.ToLower(a.Email),
		FirstName:            a.FirstName,
		LastName:             a.LastName,
		Phone:                a.Phone,
		PayPlan:              a.PayPlan,
		Goals:                a.Goals,
		Notifications:        a.Notifications,
		Tier:                 string(a.Tier()),
		StripeCustomerID:     a.Subscription.StripeCustomerID,
		StripeSubscriptionID: a.Subscription.StripeSubscriptionID,
		ProActivatedAt:       a.Subscription.ActivatedAt,
		ProCancelledAt:       a.Subscription.CancelledAt,
		CreatedAt:            a.CreatedAt,
	}
}

func (r accountRow) toDomain() *domain.Account {
	return &domain.Account{
		ID:            r.ID,
		Email:         r.Email,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Phone:         r.Phone,
		PayPlan:       r.PayPlan,
		Goals:         r.Goals,
		Notifications: r.Notifications,
		Subscription: domain.Subscription{
			Tier:                 domain.ParseTier(r.Tier),
			StripeCustomerID:     r.StripeCustomerID,
			StripeSubscriptionID: r.StripeSubscriptionID,
			ActivatedAt:          r.ProActivatedAt,
			CancelledAt:          r.ProCancelledAt,
		},
		CreatedAt: r.CreatedAt,
	}
}

func (c *Client) findAccount(ctx context.Context, filter, resource, id string) (*domain.Account, error) {
	return call(ctx, c, "accounts", func() (*domain.Account, error) {
		body, err := c.doGet(ctx, "accounts?"+filter+"&limit=1")
		if err != nil {
			return nil, err
		}
		if isEmpty(body) {
			return nil, &domain.ErrNotFound{Resource: resource, ID: id}
		}

		var rows []accountRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		if len(rows) == 0 {
			return nil, &domain.ErrNotFound{Resource: resource, ID: id}
		}
		return rows[0].toDomain(), nil
	})
}

func (c *Client) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	return c.findAccount(ctx, "id="+eq(accountID), "account", accountID)
}

func (c *Client) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindAccountByEmail")
	defer span.End()

	return c.findAccount(ctx, "email="+eq(strings.ToLower(email)), "account", email)
}

func (c *Client) FindAccountBySubscription(ctx context.Context, subscriptionID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindAccountBySubscription")
	defer span.End()

	return c.findAccount(ctx, "stripe_subscription_id="+eq(subscriptionID), "subscription", subscriptionID)
}

// SaveAccount upserts the whole settings row.
func (c *Client) SaveAccount(ctx context.Context, account *domain.Account) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", account.ID))

	_, err := call(ctx, c, "accounts", func() (struct{}, error) {
		return struct{}{}, c.doUpsert(ctx, "accounts", toAccountRow(account))
	})
	return err
}

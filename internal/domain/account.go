package domain

import "time"

// ============================================================
// Accounts & subscription tier
// ============================================================

// Tier is the subscription level gating coaching depth.
type Tier string

const (
	TierFree Tier = "FREE"
	TierPro  Tier = "PRO"
	TierGuru Tier = "GURU"
)

// ParseTier maps free-form input to a known tier, defaulting to FREE.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierPro:
		return TierPro
	case TierGuru:
		return TierGuru
	}
	return TierFree
}

// Paid reports whether the tier unlocks numeric coaching and chat.
func (t Tier) Paid() bool {
	return t == TierPro || t == TierGuru
}

// NotificationPreferences are the email opt-ins of an account.
type NotificationPreferences struct {
	EmailDailyPace     bool `json:"emailDailyPace" firestore:"emailDailyPace"`
	EmailWeeklySummary bool `json:"emailWeeklySummary" firestore:"emailWeeklySummary"`
	EmailAchievements  bool `json:"emailAchievements" firestore:"emailAchievements"`
}

// DefaultNotifications enables every email.
func DefaultNotifications() NotificationPreferences {
	return NotificationPreferences{EmailDailyPace: true, EmailWeeklySummary: true, EmailAchievements: true}
}

// Subscription carries what the payment webhook wrote onto the account.
type Subscription struct {
	Tier                 Tier       `json:"tier" firestore:"tier"`
	StripeCustomerID     string     `json:"stripeCustomerId,omitempty" firestore:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string     `json:"stripeSubscriptionId,omitempty" firestore:"stripeSubscriptionId,omitempty"`
	ActivatedAt          *time.Time `json:"proActivatedAt,omitempty" firestore:"proActivatedAt,omitempty"`
	CancelledAt          *time.Time `json:"proCancelledAt,omitempty" firestore:"proCancelledAt,omitempty"`
}

// Account is the per-user settings document: profile, plan, goals, tier.
type Account struct {
	ID            string                  `json:"id"`
	Email         string                  `json:"email"`
	FirstName     string                  `json:"firstName,omitempty"`
	LastName      string                  `json:"lastName,omitempty"`
	Phone         string                  `json:"phone,omitempty"`
	PayPlan       PayPlan                 `json:"payPlan"`
	Goals         Goals                   `json:"goals"`
	Notifications NotificationPreferences `json:"notifications"`
	Subscription  Subscription            `json:"subscription"`
	CreatedAt     time.Time               `json:"createdAt"`
}

// Tier returns the effective subscription tier.
func (a *Account) Tier() Tier {
	return ParseTier(string(a.Subscription.Tier))
}

// NewAccount builds an account document populated with defaults.
func NewAccount(id, email string, defaults Defaults, now time.Time) *Account {
	return &Account{
		ID:            id,
		Email:         email,
		PayPlan:       defaults.PayPlan.Clone(),
		Goals:         defaults.Goals,
		Notifications: DefaultNotifications(),
		Subscription:  Subscription{Tier: TierFree},
		CreatedAt:     now,
	}
}

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	AccountID string
	Email     string
}

// ExportBundle is the payload of GET /v1/export.
type ExportBundle struct {
	Deals   []Deal  `json:"deals"`
	PayPlan PayPlan `json:"payPlan"`
	Goals   Goals   `json:"goals"`
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/observability"
	"github.com/carcashpro/carcash-bfa-go/internal/port"
)

var tracer = otel.Tracer("service")

func accountKey(id string) string { return "account:" + id }

// AccountService owns the settings document of each account: profile,
// pay plan, goals, notification opt-ins and subscription tier.
type AccountService struct {
	store     port.AccountStore
	cache     port.Cache[*domain.Account]
	publisher port.ChangePublisher
	defaults  domain.Defaults
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewAccountService creates the account service with all dependencies injected.
func NewAccountService(
	store port.AccountStore,
	cache port.Cache[*domain.Account],
	publisher port.ChangePublisher,
	defaults domain.Defaults,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		defaults:  defaults,
		metrics:   metrics,
		logger:    logger,
	}
}

// Ensure returns the caller's account, creating it with the default plan
// and goals on first access. A changed email is written back so webhook
// lookups by email keep working.
func (s *AccountService) Ensure(ctx context.Context, p domain.Principal) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "AccountService.Ensure")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", p.AccountID))

	acct, err := s.Get(ctx, p.AccountID)
	if err == nil {
		if p.Email != "" && !strings.EqualFold(acct.Email, p.Email) {
			return s.update(ctx, p.AccountID, domain.ChangeSettings, func(a *domain.Account) error {
				a.Email = p.Email
				return nil
			})
		}
		return acct, nil
	}

	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		return nil, err
	}

	acct = domain.NewAccount(p.AccountID, p.Email, s.defaults, time.Now().UTC())
	if err := s.store.SaveAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.logger.Info("account created with defaults", zap.String("account_id", p.AccountID))
	s.cache.Set(accountKey(acct.ID), acct)
	return copyAccount(acct), nil
}

// Get returns the account settings, served from cache when possible.
// Callers get their own copy and may modify it.
func (s *AccountService) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	if cached, ok := s.cache.Get(accountKey(accountID)); ok && cached != nil {
		s.metrics.IncrCacheHit(observability.AccountCache)
		return copyAccount(cached), nil
	}
	s.metrics.IncrCacheMiss(observability.AccountCache)

	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(accountKey(accountID), acct)
	return copyAccount(acct), nil
}

// GetPayPlan returns the account pay plan.
func (s *AccountService) GetPayPlan(ctx context.Context, accountID string) (domain.PayPlan, error) {
	acct, err := s.Get(ctx, accountID)
	if err != nil {
		return domain.PayPlan{}, err
	}
	return acct.PayPlan, nil
}

// UpdatePayPlan replaces the pay plan.
func (s *AccountService) UpdatePayPlan(ctx context.Context, accountID string, plan domain.PayPlan) (domain.PayPlan, error) {
	ctx, span := tracer.Start(ctx, "AccountService.UpdatePayPlan")
	defer span.End()

	acct, err := s.update(ctx, accountID, domain.ChangeSettings, func(a *domain.Account) error {
		a.PayPlan = plan.Clone()
		return nil
	})
	if err != nil {
		return domain.PayPlan{}, err
	}
	return acct.PayPlan, nil
}

// GetGoals returns the account goals.
func (s *AccountService) GetGoals(ctx context.Context, accountID string) (domain.Goals, error) {
	acct, err := s.Get(ctx, accountID)
	if err != nil {
		return domain.Goals{}, err
	}
	return acct.Goals, nil
}

// UpdateGoals replaces the monthly goals.
func (s *AccountService) UpdateGoals(ctx context.Context, accountID string, goals domain.Goals) (domain.Goals, error) {
	ctx, span := tracer.Start(ctx, "AccountService.UpdateGoals")
	defer span.End()

	acct, err := s.update(ctx, accountID, domain.ChangeSettings, func(a *domain.Account) error {
		a.Goals = goals
		return nil
	})
	if err != nil {
		return domain.Goals{}, err
	}
	return acct.Goals, nil
}

// UpdateNotifications replaces the email opt-ins.
func (s *AccountService) UpdateNotifications(ctx context.Context, accountID string, prefs domain.NotificationPreferences) (domain.NotificationPreferences, error) {
	acct, err := s.update(ctx, accountID, domain.ChangeSettings, func(a *domain.Account) error {
		a.Notifications = prefs
		return nil
	})
	if err != nil {
		return domain.NotificationPreferences{}, err
	}
	return acct.Notifications, nil
}

// UpdateSubscription applies fn to the stored subscription of accountID.
func (s *AccountService) UpdateSubscription(ctx context.Context, accountID string, fn func(*domain.Subscription)) (*domain.Account, error) {
	return s.update(ctx, accountID, domain.ChangeTier, func(a *domain.Account) error {
		fn(&a.Subscription)
		return nil
	})
}

// update reads the stored document (never the cache), applies fn, saves,
// drops the cache entry and publishes a change.
func (s *AccountService) update(ctx context.Context, accountID string, kind domain.ChangeKind, fn func(*domain.Account) error) (*domain.Account, error) {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	acct = copyAccount(acct)
	if err := fn(acct); err != nil {
		return nil, err
	}
	if err := s.store.SaveAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}

	s.cache.Delete(accountKey(accountID))
	s.publisher.Publish(domain.ChangeEvent{AccountID: accountID, Kind: kind, At: time.Now().UTC()})
	s.logger.Info("account updated",
		zap.String("account_id", accountID),
		zap.String("kind", string(kind)),
	)
	return acct, nil
}

// Invalidate drops the cached settings for accountID so the next read goes
// to the store.
func (s *AccountService) Invalidate(accountID string) {
	s.cache.Delete(accountKey(accountID))
}

func copyAccount(a *domain.Account) *domain.Account {
	cp := *a
	cp.PayPlan = a.PayPlan.Clone()
	return &cp
}

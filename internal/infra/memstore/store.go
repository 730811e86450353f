// Package memstore is an in-process store for local development and tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// Store keeps accounts and deals in mutex-guarded maps. Values are copied
// in and out so callers never share memory with the store.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
	deals    map[string]map[string]domain.Deal
}

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[string]domain.Account),
		deals:    make(map[string]map[string]domain.Deal),
	}
}

// ListDeals returns the account's deals, newest first.
func (s *Store) ListDeals(_ context.Context, accountID string) ([]domain.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Deal, 0, len(s.deals[accountID]))
	for _, d := range s.deals[accountID] {
		out = append(out, cloneDeal(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetDeal(_ context.Context, accountID, dealID string) (*domain.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deals[accountID][dealID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "deal", ID: dealID}
	}
	out := cloneDeal(d)
	return &out, nil
}

func (s *Store) CreateDeal(_ context.Context, accountID string, deal *domain.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deals[accountID] == nil {
		s.deals[accountID] = make(map[string]domain.Deal)
	}
	s.deals[accountID][deal.ID] = cloneDeal(*deal)
	return nil
}

func (s *Store) UpdateDeal(_ context.Context, accountID string, deal *domain.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deals[accountID][deal.ID]; !ok {
		return &domain.ErrNotFound{Resource: "deal", ID: deal.ID}
	}
	s.deals[accountID][deal.ID] = cloneDeal(*deal)
	return nil
}

func (s *Store) DeleteDeal(_ context.Context, accountID, dealID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deals[accountID][dealID]; !ok {
		return &domain.ErrNotFound{Resource: "deal", ID: dealID}
	}
	delete(s.deals[accountID], dealID)
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return cloneAccount(a), nil
}

func (s *Store) SaveAccount(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[account.ID] = *cloneAccount(*account)
	return nil
}

// FindAccountByEmail matches case-insensitively.
func (s *Store) FindAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			return cloneAccount(a), nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "account", ID: email}
}

func (s *Store) FindAccountBySubscription(_ context.Context, subscriptionID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if subscriptionID != "" && a.Subscription.StripeSubscriptionID == subscriptionID {
			return cloneAccount(a), nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "subscription", ID: subscriptionID}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cloneDeal(d domain.Deal) domain.Deal {
	if d.Pack != nil {
		d.Pack = domain.AmountPtr(d.Pack.Float())
	}
	return d
}

func cloneAccount(a domain.Account) *domain.Account {
	a.PayPlan = a.PayPlan.Clone()
	if a.Subscription.ActivatedAt != nil {
		t := *a.Subscription.ActivatedAt
		a.Subscription.ActivatedAt = &t
	}
	if a.Subscription.CancelledAt != nil {
		t := *a.Subscription.CancelledAt
		a.Subscription.CancelledAt = &t
	}
	return &a
}

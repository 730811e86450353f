// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v81"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// DealStore persists the deals of one account.
type DealStore interface {
	// ListDeals returns every deal of the account, most recent first.
	ListDeals(ctx context.Context, accountID string) ([]domain.Deal, error)
	GetDeal(ctx context.Context, accountID, dealID string) (*domain.Deal, error)
	// CreateDeal stores a deal whose ID and CreatedAt are already set.
	CreateDeal(ctx context.Context, accountID string, deal *domain.Deal) error
	UpdateDeal(ctx context.Context, accountID string, deal *domain.Deal) error
	DeleteDeal(ctx context.Context, accountID, dealID string) error
}

// AccountStore persists account settings documents.
type AccountStore interface {
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	SaveAccount(ctx context.Context, account *domain.Account) error
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindAccountBySubscription(ctx context.Context, subscriptionID string) (*domain.Account, error)
}

// Store is a full persistence backend.
type Store interface {
	DealStore
	AccountStore
	Ping(ctx context.Context) error
	Close() error
}

// ChangeWatcher is implemented by stores that can push changes made
// outside this process (another instance, the console, a migration).
type ChangeWatcher interface {
	WatchAccount(ctx context.Context, accountID string) (<-chan domain.ChangeEvent, error)
}

// ChangePublisher fans a change out to live subscribers.
type ChangePublisher interface {
	Publish(evt domain.ChangeEvent)
}

// CoachCompleter sends a chat completion to the language model.
type CoachCompleter interface {
	Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error)
}

// TokenVerifier resolves a bearer token to the calling account.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Principal, error)
}

// WebhookVerifier authenticates an inbound payment webhook and decodes it.
type WebhookVerifier interface {
	ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// RateLimiter meters requests per key. retryAfter is a hint for the client
// when the request is rejected.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

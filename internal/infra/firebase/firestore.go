package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// Layout: users/{uid} holds the settings document, users/{uid}/deals/{id}
// holds one document per deal.
const (
	usersCollection = "users"
	dealsCollection = "deals"
)

// accountDoc is the users/{uid} document.
type accountDoc struct {
	Email                string                         `firestore:"email"`
	FirstName            string                         `firestore:"firstName,omitempty"`
	LastName             string                         `firestore:"lastName,omitempty"`
	Phone                string                         `firestore:"phone,omitempty"`
	PayPlan              domain.PayPlan                 `firestore:"payPlan"`
	Goals                domain.Goals                   `firestore:"goals"`
	Notifications        domain.NotificationPreferences `firestore:"notifications"`
	Tier                 string                         `firestore:"tier"`
	IsPro                bool                           `firestore:"isPro"`
	StripeCustomerID     string                         `firestore:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string                         `firestore:"stripeSubscriptionId,omitempty"`
	ProActivatedAt       *time.Time                     `firestore:"proActivatedAt,omitempty"`
	ProCancelledAt       *time.Time                     `firestore:"proCancelledAt,omitempty"`
	CreatedAt            time.Time                      `firestore:"createdAt"`
}

func toAccountDoc(a *domain.Account) accountDoc {
	tier := a.Tier()
	return accountDoc{
		Email:                strings.ToLower(a.Email),
		FirstName:            a.FirstName,
		LastName:             a.LastName,
		Phone:                a.Phone,
		PayPlan:              a.PayPlan,
		Goals:                a.Goals,
		Notifications:        a.Notifications,
		Tier:                 string(tier),
		IsPro:                tier.Paid(),
		StripeCustomerID:     a.Subscription.StripeCustomerID,
		StripeSubscriptionID: a.Subscription.StripeSubscriptionID,
		ProActivatedAt:       a.Subscription.ActivatedAt,
		ProCancelledAt:       a.Subscription.CancelledAt,
		CreatedAt:            a.CreatedAt,
	}
}

func (d accountDoc) toDomain(id string) *domain.Account {
	tier := domain.ParseTier(d.Tier)
	// Documents written before tiers existed only carry isPro.
	if d.Tier == "" && d.IsPro {
		tier = domain.TierPro
	}
	return &domain.Account{
		ID:            id,
		Email:         d.Email,
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		Phone:         d.Phone,
		PayPlan:       d.PayPlan,
		Goals:         d.Goals,
		Notifications: d.Notifications,
		Subscription: domain.Subscription{
			Tier:                 tier,
			StripeCustomerID:     d.StripeCustomerID,
			StripeSubscriptionID: d.StripeSubscriptionID,
			ActivatedAt:          d.ProActivatedAt,
			CancelledAt:          d.ProCancelledAt,
		},
		CreatedAt: d.CreatedAt,
	}
}

// Store implements port.Store and port.ChangeWatcher on Firestore.
type Store struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewStore opens the Firestore client of app.
func NewStore(ctx context.Context, app *firebase.App, logger *zap.Logger) (*Store, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore: %w", err)
	}
	return &Store{client: client, logger: logger}, nil
}

func (s *Store) user(accountID string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(accountID)
}

func (s *Store) deals(accountID string) *firestore.CollectionRef {
	return s.user(accountID).Collection(dealsCollection)
}

func wrap(op string, err error) error {
	return &domain.ErrExternalService{Service: "firestore/" + op, Err: err}
}

// --- Deals ---

func (s *Store) ListDeals(ctx context.Context, accountID string) ([]domain.Deal, error) {
	ctx, span := tracer.Start(ctx, "Firestore.ListDeals")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	docs, err := s.deals(accountID).OrderBy("createdAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, wrap("deals", err)
	}

	out := make([]domain.Deal, 0, len(docs))
	for _, doc := range docs {
		var d domain.Deal
		if err := doc.DataTo(&d); err != nil {
			s.logger.Warn("firestore: skipping undecodable deal",
				zap.String("account_id", accountID),
				zap.String("deal_id", doc.Ref.ID),
				zap.Error(err),
			)
			continue
		}
		d.ID = doc.Ref.ID
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) GetDeal(ctx context.Context, accountID, dealID string) (*domain.Deal, error) {
	ctx, span := tracer.Start(ctx, "Firestore.GetDeal")
	defer span.End()

	doc, err := s.deals(accountID).Doc(dealID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, &domain.ErrNotFound{Resource: "deal", ID: dealID}
	}
	if err != nil {
		return nil, wrap("deals", err)
	}

	var d domain.Deal
	if err := doc.DataTo(&d); err != nil {
		return nil, wrap("deals", err)
	}
	d.ID = doc.Ref.ID
	return &d, nil
}

func (s *Store) CreateDeal(ctx context.Context, accountID string, deal *domain.Deal) error {
	ctx, span := tracer.Start(ctx, "Firestore.CreateDeal")
	defer span.End()

	if _, err := s.deals(accountID).Doc(deal.ID).Create(ctx, deal); err != nil {
		return wrap("deals", err)
	}
	return nil
}

func (s *Store) UpdateDeal(ctx context.Context, accountID string, deal *domain.Deal) error {
	ctx, span := tracer.Start(ctx, "Firestore.UpdateDeal")
	defer span.End()

	ref := s.deals(accountID).Doc(deal.ID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, deal)
	})
	if status.Code(err) == codes.NotFound {
		return &domain.ErrNotFound{Resource: "deal", ID: deal.ID}
	}
	if err != nil {
		return wrap("deals", err)
	}
	return nil
}

func (s *Store) DeleteDeal(ctx context.Context, accountID, dealID string) error {
	ctx, span := tracer.Start(ctx, "Firestore.DeleteDeal")
	defer span.End()

	_, err := s.deals(accountID).Doc(dealID).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return &domain.ErrNotFound{Resource: "deal", ID: dealID}
	}
	if err != nil {
		return wrap("deals", err)
	}
	return nil
}

// --- Accounts ---

func (s *Store) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Firestore.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	doc, err := s.user(accountID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	if err != nil {
		return nil, wrap("users", err)
	}

	var d accountDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, wrap("users", err)
	}
	return d.toDomain(doc.Ref.ID), nil
}

func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) error {
	ctx, span := tracer.Start(ctx, "Firestore.SaveAccount")
	defer span.End()

	if _, err := s.user(account.ID).Set(ctx, toAccountDoc(account)); err != nil {
		return wrap("users", err)
	}
	return nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.findOne(ctx, "email", strings.ToLower(email), "account")
}

func (s *Store) FindAccountBySubscription(ctx context.Context, subscriptionID string) (*domain.Account, error) {
	return s.findOne(ctx, "stripeSubscriptionId", subscriptionID, "subscription")
}

func (s *Store) findOne(ctx context.Context, field, value, resource string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Firestore.FindAccount")
	defer span.End()
	span.SetAttributes(attribute.String("field", field))

	it := s.client.Collection(usersCollection).Where(field, "==", value).Limit(1).Documents(ctx)
	defer it.Stop()

	doc, err := it.Next()
	if errors.Is(err, iterator.Done) {
		return nil, &domain.ErrNotFound{Resource: resource, ID: value}
	}
	if err != nil {
		return nil, wrap("users", err)
	}

	var d accountDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, wrap("users", err)
	}
	return d.toDomain(doc.Ref.ID), nil
}

// Ping reads at most one document to prove connectivity.
func (s *Store) Ping(ctx context.Context) error {
	it := s.client.Collection(usersCollection).Limit(1).Documents(ctx)
	defer it.Stop()
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return wrap("ping", err)
	}
	return nil
}

// Close releases the gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// --- Live updates ---

// WatchAccount listens to the user document and its deals collection and
// emits an event for every change after the initial snapshot. The channel
// closes once both listeners have stopped.
func (s *Store) WatchAccount(ctx context.Context, accountID string) (<-chan domain.ChangeEvent, error) {
	out := make(chan domain.ChangeEvent, 8)
	done := make(chan struct{}, 2)

	emit := func(kind domain.ChangeKind) {
		select {
		case out <- domain.ChangeEvent{AccountID: accountID, Kind: kind, At: time.Now()}:
		default:
			// A pending event already forces a rebuild.
		}
	}

	go func() {
		defer func() { done <- struct{}{} }()
		it := s.deals(accountID).Snapshots(ctx)
		defer it.Stop()
		first := true
		for {
			if _, err := it.Next(); err != nil {
				s.logListenerEnd(ctx, accountID, "deals", err)
				return
			}
			if first {
				first = false
				continue
			}
			emit(domain.ChangeDeals)
		}
	}()

	go func() {
		defer func() { done <- struct{}{} }()
		it := s.user(accountID).Snapshots(ctx)
		defer it.Stop()
		first := true
		for {
			if _, err := it.Next(); err != nil {
				s.logListenerEnd(ctx, accountID, "user", err)
				return
			}
			if first {
				first = false
				continue
			}
			emit(domain.ChangeSettings)
		}
	}()

	go func() {
		<-done
		<-done
		close(out)
	}()

	return out, nil
}

func (s *Store) logListenerEnd(ctx context.Context, accountID, listener string, err error) {
	if ctx.Err() != nil || status.Code(err) == codes.Canceled {
		return
	}
	s.logger.Warn("firestore: listener stopped",
		zap.String("account_id", accountID),
		zap.String("listener", listener),
		zap.Error(err),
	)
}

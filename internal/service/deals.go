package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/engine"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/observability"
	"github.com/carcashpro/carcash-bfa-go/internal/port"
)

// Deal mutation kinds.
const (
	MutationCreate = "create"
	MutationUpdate = "update"
	MutationDelete = "delete"
)

// DealService manages the deal log of an account.
type DealService struct {
	store     port.DealStore
	accounts  *AccountService
	publisher port.ChangePublisher
	loc       *time.Location
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewDealService creates the deal service. loc decides how delivery
// timestamps map to calendar days.
func NewDealService(
	store port.DealStore,
	accounts *AccountService,
	publisher port.ChangePublisher,
	loc *time.Location,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DealService {
	if loc == nil {
		loc = time.UTC
	}
	return &DealService{
		store:     store,
		accounts:  accounts,
		publisher: publisher,
		loc:       loc,
		metrics:   metrics,
		logger:    logger,
	}
}

// List returns every deal of the account, latest delivery first.
// Deals with an unreadable delivery date sort last.
func (s *DealService) List(ctx context.Context, accountID string) ([]domain.Deal, error) {
	ctx, span := tracer.Start(ctx, "DealService.List")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	deals, err := s.store.ListDeals(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}

	keys := make(map[string]time.Time, len(deals))
	for _, d := range deals {
		if t, ok := engine.ParseDeliveryDate(d.DeliveryDate, s.loc); ok {
			keys[d.ID] = t
		}
	}
	sort.SliceStable(deals, func(i, j int) bool {
		ti, iok := keys[deals[i].ID]
		tj, jok := keys[deals[j].ID]
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})
	return deals, nil
}

// Get returns a single deal.
func (s *DealService) Get(ctx context.Context, accountID, dealID string) (*domain.Deal, error) {
	ctx, span := tracer.Start(ctx, "DealService.Get")
	defer span.End()

	return s.store.GetDeal(ctx, accountID, dealID)
}

// Create stores a new deal built from draft. Flat and spiffs left out of the
// draft are filled from the account pay plan.
func (s *DealService) Create(ctx context.Context, accountID string, draft domain.DealDraft) (*domain.Deal, error) {
	ctx, span := tracer.Start(ctx, "DealService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	if err := s.checkDraft(draft); err != nil {
		return nil, err
	}

	plan, err := s.accounts.GetPayPlan(ctx, accountID)
	if err != nil {
		return nil, err
	}

	deal := draft.ToDeal(plan)
	deal.ID = uuid.NewString()
	deal.CreatedAt = time.Now().UTC()

	if err := s.store.CreateDeal(ctx, accountID, &deal); err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}

	s.mutated(accountID, deal.ID, MutationCreate)
	return &deal, nil
}

// Update replaces every editable field of an existing deal. ID and
// CreatedAt are preserved.
func (s *DealService) Update(ctx context.Context, accountID, dealID string, draft domain.DealDraft) (*domain.Deal, error) {
	ctx, span := tracer.Start(ctx, "DealService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("deal.id", dealID))

	if err := s.checkDraft(draft); err != nil {
		return nil, err
	}

	existing, err := s.store.GetDeal(ctx, accountID, dealID)
	if err != nil {
		return nil, err
	}
	plan, err := s.accounts.GetPayPlan(ctx, accountID)
	if err != nil {
		return nil, err
	}

	deal := draft.ToDeal(plan)
	deal.ID = existing.ID
	deal.CreatedAt = existing.CreatedAt

	if err := s.store.UpdateDeal(ctx, accountID, &deal); err != nil {
		return nil, err
	}

	s.mutated(accountID, deal.ID, MutationUpdate)
	return &deal, nil
}

// Delete removes a deal.
func (s *DealService) Delete(ctx context.Context, accountID, dealID string) error {
	ctx, span := tracer.Start(ctx, "DealService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("deal.id", dealID))

	if err := s.store.DeleteDeal(ctx, accountID, dealID); err != nil {
		return err
	}

	s.mutated(accountID, dealID, MutationDelete)
	return nil
}

// Export returns every deal with the plan and goals they were computed with.
func (s *DealService) Export(ctx context.Context, accountID string) (*domain.ExportBundle, error) {
	ctx, span := tracer.Start(ctx, "DealService.Export")
	defer span.End()

	data, err := loadAccountData(ctx, s.accounts, s.store, accountID)
	if err != nil {
		return nil, err
	}
	deals := data.deals
	if deals == nil {
		deals = []domain.Deal{}
	}
	return &domain.ExportBundle{Deals: deals, PayPlan: data.account.PayPlan, Goals: data.account.Goals}, nil
}

// Import is not supported.
func (s *DealService) Import(context.Context, string, []byte) error {
	return &domain.ErrNotImplemented{Feature: "data import"}
}

func (s *DealService) checkDraft(draft domain.DealDraft) error {
	if _, ok := engine.ParseDeliveryDate(draft.DeliveryDate, s.loc); !ok {
		return &domain.ErrValidation{Field: "deliveryDate", Message: "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"}
	}
	return nil
}

func (s *DealService) mutated(accountID, dealID, kind string) {
	s.metrics.IncrDealMutation(kind)
	s.publisher.Publish(domain.ChangeEvent{AccountID: accountID, Kind: domain.ChangeDeals, At: time.Now().UTC()})
	s.logger.Info("deal "+kind+"d",
		zap.String("account_id", accountID),
		zap.String("deal_id", dealID),
	)
}

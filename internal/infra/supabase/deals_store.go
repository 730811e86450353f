package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// ============================================================
// Deals: CRUD via PostgREST
// ============================================================

// dealRow maps the deals table.
type dealRow struct {
	ID              string               `json:"id"`
	AccountID       string               `json:"account_id"`
	CustomerName    string               `json:"customer_name"`
	Type            domain.DealType      `json:"type"`
	Year            string               `json:"year"`
	Make            string               `json:"make"`
	Model           string               `json:"model"`
	FrontGross      domain.Amount        `json:"front_gross"`
	BackGross       domain.Amount        `json:"back_gross"`
	FinanceGross    domain.Amount        `json:"finance_gross"`
	Pack            *domain.Amount       `json:"pack"`
	Flat            domain.Amount        `json:"flat"`
	Spiffs          domain.Amount        `json:"spiffs"`
	Products        domain.ProductStatus `json:"products"`
	Chargeback      domain.Amount        `json:"chargeback"`
	DeliveryDate    string               `json:"delivery_date"`
	Note            string               `json:"note"`
	CreatedAt       time.Time            `json:"created_at"`
	OverrideFront   domain.Amount        `json:"override_front"`
	OverrideBack    domain.Amount        `json:"override_back"`
	OverrideReserve domain.Amount        `json:"override_reserve"`
}

func toDealRow(accountID string, d *domain.Deal) dealRow {
	return dealRow{
		ID:              d.ID,
		AccountID:       accountID,
		CustomerName:    d.CustomerName,
		Type:            d.Type,
		Year:            d.Year,
		Make:            d.Make,
		Model:           d.Model,
		FrontGross:      d.FrontGross,
		BackGross:       d.BackGross,
		FinanceGross:    d.FinanceGross,
		Pack:            d.Pack,
		Flat:            d.Flat,
		Spiffs:          d.Spiffs,
		Products:        d.Products,
		Chargeback:      d.Chargeback,
		DeliveryDate:    d.DeliveryDate,
		Note:            d.Note,
		CreatedAt:       d.CreatedAt,
		OverrideFront:   d.OverrideFront,
		OverrideBack:    d.OverrideBack,
		OverrideReserve: d.OverrideReserve,
	}
}

func (r dealRow) toDomain() domain.Deal {
	return domain.Deal{
		ID:              r.ID,
		CustomerName:    r.CustomerName,
		Type:            r.Type,
		Year:            r.Year,
		Make:            r.Make,
		Model:           r.Model,
		FrontGross:      r.FrontGross,
		BackGross:       r.BackGross,
		FinanceGross:    r.FinanceGross,
		Pack:            r.Pack,
		Flat:            r.Flat,
		Spiffs:          r.Spiffs,
		Products:        r.Products,
		Chargeback:      r.Chargeback,
		DeliveryDate:    r.DeliveryDate,
		Note:            r.Note,
		CreatedAt:       r.CreatedAt,
		OverrideFront:   r.OverrideFront,
		OverrideBack:    r.OverrideBack,
		OverrideReserve: r.OverrideReserve,
	}
}

func decodeDeals(body []byte) ([]domain.Deal, error) {
	if isEmpty(body) {
		return []domain.Deal{}, nil
	}
	var rows []dealRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode deals: %w", err)
	}
	out := make([]domain.Deal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (c *Client) ListDeals(ctx context.Context, accountID string) ([]domain.Deal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListDeals")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	return call(ctx, c, "deals", func() ([]domain.Deal, error) {
		body, err := c.doGet(ctx, fmt.Sprintf("deals?account_id=%s&order=created_at.desc", eq(accountID)))
		if err != nil {
			return nil, err
		}
		return decodeDeals(body)
	})
}

func (c *Client) GetDeal(ctx context.Context, accountID, dealID string) (*domain.Deal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetDeal")
	defer span.End()

	return call(ctx, c, "deals", func() (*domain.Deal, error) {
		body, err := c.doGet(ctx, fmt.Sprintf("deals?account_id=%s&id=%s&limit=1", eq(accountID), eq(dealID)))
		if err != nil {
			return nil, err
		}
		deals, err := decodeDeals(body)
		if err != nil {
			return nil, err
		}
		if len(deals) == 0 {
			return nil, &domain.ErrNotFound{Resource: "deal", ID: dealID}
		}
		return &deals[0], nil
	})
}

func (c *Client) CreateDeal(ctx context.Context, accountID string, deal *domain.Deal) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateDeal")
	defer span.End()

	_, err := call(ctx, c, "deals", func() ([]byte, error) {
		return c.doPost(ctx, "deals", toDealRow(accountID, deal))
	})
	return err
}

func (c *Client) UpdateDeal(ctx context.Context, accountID string, deal *domain.Deal) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateDeal")
	defer span.End()

	_, err := call(ctx, c, "deals", func() (struct{}, error) {
		path := fmt.Sprintf("deals?account_id=%s&id=%s", eq(accountID), eq(deal.ID))
		body, err := c.doPatch(ctx, path, toDealRow(accountID, deal))
		if err != nil {
			return struct{}{}, err
		}
		if isEmpty(body) {
			return struct{}{}, &domain.ErrNotFound{Resource: "deal", ID: deal.ID}
		}
		return struct{}{}, nil
	})
	return err
}

func (c *Client) DeleteDeal(ctx context.Context, accountID, dealID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteDeal")
	defer span.End()

	_, err := call(ctx, c, "deals", func() (struct{}, error) {
		body, err := c.doDelete(ctx, fmt.Sprintf("deals?account_id=%s&id=%s", eq(accountID), eq(dealID)))
		if err != nil {
			return struct{}{}, err
		}
		if isEmpty(body) {
			return struct{}{}, &domain.ErrNotFound{Resource: "deal", ID: dealID}
		}
		return struct{}{}, nil
	})
	return err
}

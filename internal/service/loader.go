package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/port"
)

// accountData is everything the read models are computed from.
type accountData struct {
	account *domain.Account
	deals   []domain.Deal
}

// loadAccountData fetches the account and its deals concurrently.
func loadAccountData(ctx context.Context, accounts *AccountService, deals port.DealStore, accountID string) (*accountData, error) {
	var out accountData

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		acct, err := accounts.Get(gCtx, accountID)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		out.account = acct
		return nil
	})
	g.Go(func() error {
		list, err := deals.ListDeals(gCtx, accountID)
		if err != nil {
			return fmt.Errorf("load deals: %w", err)
		}
		out.deals = list
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

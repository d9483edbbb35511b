// Package service implements asset CRUD and the balance query the
// allocation engine reads from: manual balance (via the transaction
// provider) plus on-chain balance (via the on-chain provider), summed.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/asset/domain"
	"savingsplanner/internal/module/savings/asset/repository"
	"savingsplanner/internal/savingserr"
)

// Service manages Asset aggregates and resolves their total balance.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, currencyCode string, address, chainID *string) (*domain.Asset, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Asset, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.Asset, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Balance returns manual_balance + on_chain_balance for the asset, per
	// the funded-portion formula's input.
	Balance(ctx context.Context, cc core.CoreContext, assetID uuid.UUID, forceRefresh bool) (decimal.Decimal, error)
}

type service struct {
	repo repository.Repository
}

// New constructs the asset Service.
func New(repo repository.Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, currencyCode string, address, chainID *string) (*domain.Asset, error) {
	if currencyCode == "" {
		return nil, savingserr.ErrValidation.WithDetails("field", "currency_code")
	}
	a := &domain.Asset{ID: uuid.New(), UserID: userID, CurrencyCode: currencyCode, Address: address, ChainID: chainID}
	if !a.ValidAddressPair() {
		return nil, savingserr.ErrValidation.WithDetails("field", "address_chain_pair")
	}
	if address != nil {
		if existing, err := s.repo.GetByAddress(ctx, *address); err == nil && existing != nil {
			return nil, savingserr.ErrValidation.WithDetails("field", "address").WithDetails("reason", "already in use")
		}
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return a, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, savingserr.ErrNotFound.WithDetails("asset_id", id.String())
	}
	return a, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]domain.Asset, error) {
	assets, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return assets, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return savingserr.ErrInternal.WithError(err)
	}
	return nil
}

// Balance sums the manually-tracked balance with the on-chain balance, when
// the asset carries an address. On-chain failures are surfaced: unlike the
// requirement calculator's fail-open stance on currency conversion, a
// balance the caller can't observe must not be silently treated as zero.
func (s *service) Balance(ctx context.Context, cc core.CoreContext, assetID uuid.UUID, forceRefresh bool) (decimal.Decimal, error) {
	a, err := s.Get(ctx, assetID)
	if err != nil {
		return decimal.Zero, err
	}

	manual := decimal.Zero
	if cc.Transactions != nil {
		manual, err = cc.Transactions.GetManualBalance(ctx, assetID)
		if err != nil {
			return decimal.Zero, savingserr.ErrInternal.WithError(err)
		}
	}

	if !a.IsOnChain() || cc.OnChainBalance == nil {
		return manual, nil
	}

	result, err := cc.OnChainBalance.GetBalance(ctx, assetID, *a.Address, *a.ChainID, forceRefresh)
	if err != nil {
		return decimal.Zero, savingserr.ErrInternal.WithError(err)
	}
	return manual.Add(result.Balance), nil
}

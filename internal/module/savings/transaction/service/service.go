// Package service implements transaction recording and the manual-balance
// and idempotency queries the core.TransactionProvider port exposes to the
// allocation engine.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"savingsplanner/internal/module/savings/calendar"
	"savingsplanner/internal/module/savings/events"
	"savingsplanner/internal/module/savings/transaction/domain"
	"savingsplanner/internal/module/savings/transaction/repository"
	"savingsplanner/internal/savingserr"
)

// Service records transactions and answers balance/idempotency queries.
// It implements core.TransactionProvider directly, so it can be handed to
// CoreContext as-is.
type Service interface {
	Record(ctx context.Context, assetID uuid.UUID, amount decimal.Decimal, date calendar.EpochMillis, source domain.Source, externalID, counterparty, comment *string) (*domain.Transaction, error)
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]domain.Transaction, error)
	GetManualBalance(ctx context.Context, assetID uuid.UUID) (decimal.Decimal, error)
	GetByExternalID(ctx context.Context, externalID string) (bool, error)
}

type service struct {
	repo repository.Repository
	bus  *events.Bus
}

// New constructs the transaction Service.
func New(repo repository.Repository, bus *events.Bus) Service {
	return &service{repo: repo, bus: bus}
}

// Record validates and persists a transaction. When source is `import` and
// ExternalID is already recorded, Record is idempotent: it returns the
// existing row instead of creating a duplicate; ExternalID is unique
// when present.
func (s *service) Record(ctx context.Context, assetID uuid.UUID, amount decimal.Decimal, date calendar.EpochMillis, source domain.Source, externalID, counterparty, comment *string) (*domain.Transaction, error) {
	if amount.IsZero() {
		return nil, savingserr.ErrValidation.WithDetails("field", "amount")
	}
	if !source.IsValid() {
		return nil, savingserr.ErrValidation.WithDetails("field", "source")
	}

	if externalID != nil {
		existing, err := s.repo.GetByExternalID(ctx, *externalID)
		if err != nil {
			return nil, savingserr.ErrInternal.WithError(err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	t := &domain.Transaction{
		ID:           uuid.New(),
		AssetID:      assetID,
		Amount:       amount,
		Date:         date,
		Source:       source,
		ExternalID:   externalID,
		Counterparty: counterparty,
		Comment:      comment,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	s.bus.Publish(events.Event{Kind: events.KindAllocationChanged, AssetID: assetID})
	return t, nil
}

func (s *service) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]domain.Transaction, error) {
	txs, err := s.repo.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return txs, nil
}

func (s *service) GetManualBalance(ctx context.Context, assetID uuid.UUID) (decimal.Decimal, error) {
	total, err := s.repo.SumByAsset(ctx, assetID)
	if err != nil {
		return decimal.Zero, savingserr.ErrInternal.WithError(err)
	}
	return total, nil
}

// GetByExternalID reports only whether the id is already recorded: the
// caller only needs the idempotency signal, not the row itself.
func (s *service) GetByExternalID(ctx context.Context, externalID string) (bool, error) {
	existing, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return false, savingserr.ErrInternal.WithError(err)
	}
	return existing != nil, nil
}

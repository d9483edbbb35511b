package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"savingsplanner/internal/module/savings/transaction/domain"
)

// Repository persists Transaction rows and sums manual balances.
type Repository interface {
	Create(ctx context.Context, t *domain.Transaction) error
	GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error)
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]domain.Transaction, error)
	SumByAsset(ctx context.Context, assetID uuid.UUID) (decimal.Decimal, error)
}

type gormRepository struct {
	db *gorm.DB
}

// New constructs a gorm-backed Repository.
func New(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, t *domain.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *gormRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	if err := r.db.WithContext(ctx).Where("asset_id = ?", assetID).Order("date asc").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// SumByAsset computes the manual balance: the sum of the amounts of the
// asset's transactions whose source is manual. On-chain and import rows are
// not counted; live on-chain balance is read separately through
// OnChainBalanceProvider.
func (r *gormRepository) SumByAsset(ctx context.Context, assetID uuid.UUID) (decimal.Decimal, error) {
	var rows []domain.Transaction
	if err := r.db.WithContext(ctx).Where("asset_id = ? AND source = ?", assetID, domain.SourceManual).Find(&rows).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, tx := range rows {
		total = total.Add(tx.Amount)
	}
	return total, nil
}

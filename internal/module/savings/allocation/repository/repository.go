// Package repository persists Allocation rows and appends AllocationHistory
// in the same transaction every write touches, so the ledger can never
// disagree with the live allocation state.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"savingsplanner/internal/module/savings/allocation/domain"
)

// Repository persists Allocation aggregates and their History trail.
type Repository interface {
	GetByAssetAndGoal(ctx context.Context, assetID, goalID uuid.UUID) (*domain.Allocation, error)
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]domain.Allocation, error)
	ListByGoal(ctx context.Context, goalID uuid.UUID) ([]domain.Allocation, error)

	// LastHistoryAmount returns the most recently recorded history amount
	// for (assetID, goalID), and whether any row exists at all.
	LastHistoryAmount(ctx context.Context, assetID, goalID uuid.UUID) (*domain.History, error)
	ListHistoryByAllocation(ctx context.Context, assetID, goalID uuid.UUID) ([]domain.History, error)

	// WriteWithHistory upserts the Allocation (or deletes it when alloc is
	// nil) and appends a History row in one transaction.
	WriteWithHistory(ctx context.Context, alloc *domain.Allocation, hist *domain.History) error
	Delete(ctx context.Context, assetID, goalID uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

// New constructs a gorm-backed Repository.
func New(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetByAssetAndGoal(ctx context.Context, assetID, goalID uuid.UUID) (*domain.Allocation, error) {
	var a domain.Allocation
	err := r.db.WithContext(ctx).Where("asset_id = ? AND goal_id = ?", assetID, goalID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *gormRepository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]domain.Allocation, error) {
	var rows []domain.Allocation
	if err := r.db.WithContext(ctx).Where("asset_id = ?", assetID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) ListByGoal(ctx context.Context, goalID uuid.UUID) ([]domain.Allocation, error) {
	var rows []domain.Allocation
	if err := r.db.WithContext(ctx).Where("goal_id = ?", goalID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) LastHistoryAmount(ctx context.Context, assetID, goalID uuid.UUID) (*domain.History, error) {
	var h domain.History
	err := r.db.WithContext(ctx).
		Where("asset_id = ? AND goal_id = ?", assetID, goalID).
		Order("timestamp DESC").
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *gormRepository) ListHistoryByAllocation(ctx context.Context, assetID, goalID uuid.UUID) ([]domain.History, error) {
	var rows []domain.History
	err := r.db.WithContext(ctx).
		Where("asset_id = ? AND goal_id = ?", assetID, goalID).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) WriteWithHistory(ctx context.Context, alloc *domain.Allocation, hist *domain.History) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if alloc == nil {
			// Deletion: an amount of 0 marks a delete; remove the row
			// the history entry's (asset, goal) pair identifies.
			if hist != nil {
				if err := tx.Where("asset_id = ? AND goal_id = ?", hist.AssetID, hist.GoalID).Delete(&domain.Allocation{}).Error; err != nil {
					return err
				}
			}
		} else if alloc.ID == uuid.Nil {
			alloc.ID = uuid.New()
			if err := tx.Create(alloc).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Save(alloc).Error; err != nil {
				return err
			}
		}
		if hist != nil {
			hist.ID = uuid.New()
			if err := tx.Create(hist).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the Allocation row for (assetID, goalID), used once the
// history row recording the amount=0 delete has already been written.
func (r *gormRepository) Delete(ctx context.Context, assetID, goalID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("asset_id = ? AND goal_id = ?", assetID, goalID).Delete(&domain.Allocation{}).Error
}

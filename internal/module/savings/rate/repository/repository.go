// Package repository implements the rate provider's durable write-through
// store: the last known rate for a pair, so a process restart doesn't start
// cold on every conversion.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"savingsplanner/internal/module/savings/rate/domain"
)

// Repository persists the last known rate per (from, to) pair.
type Repository interface {
	Get(ctx context.Context, from, to string) (*domain.RateRecord, error)
	Upsert(ctx context.Context, rec *domain.RateRecord) error
}

type gormRepository struct {
	db *gorm.DB
}

// New constructs a gorm-backed Repository.
func New(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Get(ctx context.Context, from, to string) (*domain.RateRecord, error) {
	var rec domain.RateRecord
	err := r.db.WithContext(ctx).Where("from_currency = ? AND to_currency = ?", from, to).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert writes rec, replacing any existing row for the same pair. Write
// failures here never fail the caller's FetchRate: the in-memory cache is
// the primary source of truth during a single process's lifetime.
func (r *gormRepository) Upsert(ctx context.Context, rec *domain.RateRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "from_currency"}, {Name: "to_currency"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "fetched_at", "updated_at"}),
	}).Create(rec).Error
}

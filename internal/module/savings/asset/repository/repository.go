package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"savingsplanner/internal/module/savings/asset/domain"
)

// Repository persists Asset aggregates.
type Repository interface {
	Create(ctx context.Context, a *domain.Asset) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error)
	GetByAddress(ctx context.Context, address string) (*domain.Asset, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Asset, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

// New constructs a gorm-backed Repository.
func New(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, a *domain.Asset) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	var a domain.Asset
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *gormRepository) GetByAddress(ctx context.Context, address string) (*domain.Asset, error) {
	var a domain.Asset
	if err := r.db.WithContext(ctx).Where("address = ?", address).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *gormRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Asset, error) {
	var assets []domain.Asset
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Asset{}, "id = ?", id).Error
}

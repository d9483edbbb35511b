package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"savingsplanner/internal/module/savings/goal/domain"
)

// Repository persists Goal aggregates.
type Repository interface {
	Create(ctx context.Context, g *domain.Goal) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Goal, error)
	Update(ctx context.Context, g *domain.Goal) error
	ListByUser(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]domain.Goal, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

// New constructs a gorm-backed Repository.
func New(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, g *domain.Goal) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Goal, error) {
	var g domain.Goal
	if err := r.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *gormRepository) Update(ctx context.Context, g *domain.Goal) error {
	return r.db.WithContext(ctx).Save(g).Error
}

func (r *gormRepository) ListByUser(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]domain.Goal, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeArchived {
		q = q.Where("lifecycle <> ?", domain.LifecycleArchived)
	}
	var goals []domain.Goal
	if err := q.Order("deadline asc").Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Goal{}, "id = ?", id).Error
}

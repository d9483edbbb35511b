package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"savingsplanner/internal/module/savings/settings/domain"
)

// Repository persists planning Settings.
type Repository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Settings, error)
	Create(ctx context.Context, s *domain.Settings) error
	Update(ctx context.Context, s *domain.Settings) error
	// ListAutoEnabled returns every user's settings row with auto-start or
	// auto-complete switched on, for the execution scheduler's daily pass.
	ListAutoEnabled(ctx context.Context) ([]domain.Settings, error)
}

type gormRepository struct {
	db *gorm.DB
}

// New constructs a gorm-backed Repository.
func New(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Settings, error) {
	var s domain.Settings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) Create(ctx context.Context, s *domain.Settings) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *gormRepository) Update(ctx context.Context, s *domain.Settings) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *gormRepository) ListAutoEnabled(ctx context.Context) ([]domain.Settings, error) {
	var rows []domain.Settings
	err := r.db.WithContext(ctx).
		Where("auto_start_enabled = ? OR auto_complete_enabled = ?", true, true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

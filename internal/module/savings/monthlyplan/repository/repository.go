package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"savingsplanner/internal/module/savings/monthlyplan/domain"
)

// Repository persists MonthlyGoalPlan rows, unique on (month, goal).
type Repository interface {
	Create(ctx context.Context, p *domain.MonthlyGoalPlan) error
	Update(ctx context.Context, p *domain.MonthlyGoalPlan) error
	GetByMonthAndGoal(ctx context.Context, monthLabel string, goalID uuid.UUID) (*domain.MonthlyGoalPlan, error)
	ListByMonth(ctx context.Context, monthLabel string) ([]domain.MonthlyGoalPlan, error)
	ListByGoal(ctx context.Context, goalID uuid.UUID) ([]domain.MonthlyGoalPlan, error)
}

type gormRepository struct {
	db *gorm.DB
}

// New constructs a gorm-backed Repository.
func New(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, p *domain.MonthlyGoalPlan) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *gormRepository) Update(ctx context.Context, p *domain.MonthlyGoalPlan) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *gormRepository) GetByMonthAndGoal(ctx context.Context, monthLabel string, goalID uuid.UUID) (*domain.MonthlyGoalPlan, error) {
	var p domain.MonthlyGoalPlan
	err := r.db.WithContext(ctx).Where("month_label = ? AND goal_id = ?", monthLabel, goalID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) ListByMonth(ctx context.Context, monthLabel string) ([]domain.MonthlyGoalPlan, error) {
	var rows []domain.MonthlyGoalPlan
	if err := r.db.WithContext(ctx).Where("month_label = ?", monthLabel).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) ListByGoal(ctx context.Context, goalID uuid.UUID) ([]domain.MonthlyGoalPlan, error) {
	var rows []domain.MonthlyGoalPlan
	if err := r.db.WithContext(ctx).Where("goal_id = ?", goalID).Order("month_label asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

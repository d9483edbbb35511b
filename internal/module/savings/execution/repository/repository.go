package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"savingsplanner/internal/module/savings/execution/domain"
)

// Repository persists execution records, their immutable snapshots, and
// the contribution ledger.
type Repository interface {
	CreateRecord(ctx context.Context, r *domain.ExecutionRecord) error
	UpdateRecord(ctx context.Context, r *domain.ExecutionRecord) error
	GetRecord(ctx context.Context, id uuid.UUID) (*domain.ExecutionRecord, error)
	GetRecordByMonth(ctx context.Context, monthLabel string) (*domain.ExecutionRecord, error)
	// GetOpenRecord returns the record that is not yet closed, if any;
	// at most one exists across all months.
	GetOpenRecord(ctx context.Context, userID uuid.UUID) (*domain.ExecutionRecord, error)

	CreateSnapshots(ctx context.Context, snapshots []domain.ExecutionSnapshot) error
	ListSnapshots(ctx context.Context, recordID uuid.UUID) ([]domain.ExecutionSnapshot, error)

	CreateContribution(ctx context.Context, c *domain.CompletedExecution) error
	ListContributions(ctx context.Context, recordID uuid.UUID) ([]domain.CompletedExecution, error)
}

type gormRepository struct {
	db *gorm.DB
}

// New constructs a gorm-backed Repository.
func New(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateRecord(ctx context.Context, rec *domain.ExecutionRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *gormRepository) UpdateRecord(ctx context.Context, rec *domain.ExecutionRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *gormRepository) GetRecord(ctx context.Context, id uuid.UUID) (*domain.ExecutionRecord, error) {
	var rec domain.ExecutionRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) GetRecordByMonth(ctx context.Context, monthLabel string) (*domain.ExecutionRecord, error) {
	var rec domain.ExecutionRecord
	err := r.db.WithContext(ctx).Where("month_label = ?", monthLabel).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) GetOpenRecord(ctx context.Context, userID uuid.UUID) (*domain.ExecutionRecord, error) {
	var rec domain.ExecutionRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, domain.StatusClosed).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) CreateSnapshots(ctx context.Context, snapshots []domain.ExecutionSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&snapshots).Error
}

func (r *gormRepository) ListSnapshots(ctx context.Context, recordID uuid.UUID) ([]domain.ExecutionSnapshot, error) {
	var rows []domain.ExecutionSnapshot
	if err := r.db.WithContext(ctx).Where("execution_record_id = ?", recordID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) CreateContribution(ctx context.Context, c *domain.CompletedExecution) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *gormRepository) ListContributions(ctx context.Context, recordID uuid.UUID) ([]domain.CompletedExecution, error) {
	var rows []domain.CompletedExecution
	err := r.db.WithContext(ctx).
		Where("execution_record_id = ?", recordID).
		Order("recorded_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

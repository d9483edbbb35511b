// Package service implements planning settings: a per-user singleton row
// with an atomically incremented version used by every other module as a
// cache-invalidation key.
package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/settings/domain"
	"savingsplanner/internal/module/savings/settings/repository"
	"savingsplanner/internal/savingserr"
)

// Service reads and mutates a user's planning Settings.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Settings, error)
	Update(ctx context.Context, userID uuid.UUID, mutate func(*domain.Settings)) (*domain.Settings, error)
	Snapshot(ctx context.Context, userID uuid.UUID) (core.SettingsSnapshot, error)
}

type service struct {
	repo repository.Repository
	mu   sync.Mutex
}

// New constructs the settings Service.
func New(repo repository.Repository) Service {
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*domain.Settings, error) {
	settings, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		defaults := domain.Defaults(userID)
		if err := s.repo.Create(ctx, &defaults); err != nil {
			return nil, savingserr.ErrInternal.WithError(err)
		}
		return &defaults, nil
	}
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return settings, nil
}

// Update applies mutate under a lock and bumps Version, guaranteeing that
// every caller observing a stale Version knows to refetch.
func (s *service) Update(ctx context.Context, userID uuid.UUID, mutate func(*domain.Settings)) (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	mutate(settings)
	if !settings.RecalculationPolicy.IsValid() {
		return nil, savingserr.ErrValidation.WithDetails("field", "recalculation_policy")
	}
	if settings.PaymentDay < 1 || settings.PaymentDay > 31 {
		return nil, savingserr.ErrValidation.WithDetails("field", "payment_day")
	}
	if !settings.ValidateUndoGrace() {
		return nil, savingserr.ErrValidation.WithDetails("field", "undo_grace_period_hours")
	}
	if settings.NotificationDays < 1 || settings.NotificationDays > 7 {
		return nil, savingserr.ErrValidation.WithDetails("field", "notification_days")
	}
	settings.Normalize()

	settings.Version++
	if err := s.repo.Update(ctx, settings); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return settings, nil
}

func (s *service) Snapshot(ctx context.Context, userID uuid.UUID) (core.SettingsSnapshot, error) {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return core.SettingsSnapshot{}, err
	}
	return core.SettingsSnapshot{
		Version:                  settings.Version,
		PaymentDay:               settings.PaymentDay,
		RecalculationPolicy:      string(settings.RecalculationPolicy),
		AutoStartEnabled:         settings.AutoStartEnabled,
		AutoCompleteEnabled:      settings.AutoCompleteEnabled,
		RateFallbackMaxAgeDays:   settings.RateFallbackMaxAgeDays,
		DisplayCurrency:          settings.DisplayCurrency,
		ExecutionDisplayCurrency: settings.ExecutionDisplayCurrency,
		NotificationsEnabled:     settings.NotificationsEnabled,
		NotificationDays:         settings.NotificationDays,
		UndoGracePeriodHours:     settings.UndoGracePeriodHours,
		MonthlyBudget:            settings.MonthlyBudget,
		BudgetCurrency:           settings.BudgetCurrency,
	}, nil
}

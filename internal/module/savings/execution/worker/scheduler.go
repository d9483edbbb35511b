// Package worker runs the execution tracker's calendar automation: users
// who opted in get their month's record started on the first day and
// closed on the last, without opening the app.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/calendar"
	executionservice "savingsplanner/internal/module/savings/execution/service"
	goaldomain "savingsplanner/internal/module/savings/goal/domain"
	goalservice "savingsplanner/internal/module/savings/goal/service"
	settingsdomain "savingsplanner/internal/module/savings/settings/domain"
	"savingsplanner/internal/savingserr"
)

// AutoUserSource lists the users whose settings have either automation
// flag enabled.
type AutoUserSource interface {
	ListAutoEnabled(ctx context.Context) ([]settingsdomain.Settings, error)
}

// ContextFactory builds a user's CoreContext for an automation run.
type ContextFactory interface {
	For(ctx context.Context, userID uuid.UUID) (core.CoreContext, error)
}

// Scheduler drives auto-start and auto-close off a daily cron tick. The
// state machine itself lives in the execution service; the scheduler is a
// thin calendar adapter and stays optional.
type Scheduler struct {
	users     AutoUserSource
	goals     goalservice.Service
	execution executionservice.Service
	factory   ContextFactory
	logger    *zap.Logger

	cron *cron.Cron
}

// NewScheduler constructs the Scheduler.
func NewScheduler(users AutoUserSource, goals goalservice.Service, execution executionservice.Service, factory ContextFactory, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		users:     users,
		goals:     goals,
		execution: execution,
		factory:   factory,
		logger:    logger,
		cron:      cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start schedules the daily tick shortly after UTC midnight.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc("5 0 * * *", func() { s.tick(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("execution scheduler started", zap.String("schedule", "daily 00:05 UTC"))
	return nil
}

// Stop halts the cron loop and waits for a running tick to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		s.logger.Warn("execution scheduler shutdown timeout")
	}
	return nil
}

// tick runs one automation pass for every opted-in user.
func (s *Scheduler) tick(ctx context.Context) {
	settingsRows, err := s.users.ListAutoEnabled(ctx)
	if err != nil {
		s.logger.Error("execution scheduler: listing auto-enabled users failed", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	firstOfMonth := now.Day() == 1
	lastOfMonth := now.AddDate(0, 0, 1).Day() == 1
	monthLabel := calendar.MonthLabel(calendar.Now())

	for _, row := range settingsRows {
		if row.AutoStartEnabled && firstOfMonth {
			s.autoStart(ctx, row.UserID, monthLabel)
		}
		if row.AutoCompleteEnabled && lastOfMonth {
			s.autoClose(ctx, row.UserID, monthLabel)
		}
	}
}

func (s *Scheduler) autoStart(ctx context.Context, userID uuid.UUID, monthLabel string) {
	cc, err := s.factory.For(ctx, userID)
	if err != nil {
		s.logger.Error("auto-start: context build failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	goals, err := s.goals.List(ctx, userID, false)
	if err != nil {
		s.logger.Error("auto-start: goal list failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	active := make([]goaldomain.Goal, 0, len(goals))
	for _, g := range goals {
		if g.Lifecycle == goaldomain.LifecycleActive {
			active = append(active, g)
		}
	}
	if len(active) == 0 {
		return
	}

	_, err = s.execution.Start(ctx, cc, userID, monthLabel, active)
	if err != nil {
		// An already-started month is the expected steady state, not a
		// failure worth alerting on.
		if savingserr.Is(err, savingserr.CodeStateViolation) {
			return
		}
		s.logger.Error("auto-start failed", zap.String("user_id", userID.String()), zap.String("month", monthLabel), zap.Error(err))
		return
	}
	s.logger.Info("auto-started execution", zap.String("user_id", userID.String()), zap.String("month", monthLabel))
}

func (s *Scheduler) autoClose(ctx context.Context, userID uuid.UUID, monthLabel string) {
	record, err := s.execution.GetByMonth(ctx, monthLabel)
	if err != nil {
		if savingserr.Is(err, savingserr.CodeNotFound) {
			return
		}
		s.logger.Error("auto-close: record lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	if record.UserID != userID {
		return
	}

	if _, err := s.execution.Close(ctx, record.ID); err != nil {
		if savingserr.Is(err, savingserr.CodeStateViolation) {
			return
		}
		s.logger.Error("auto-close failed", zap.String("user_id", userID.String()), zap.String("month", monthLabel), zap.Error(err))
		return
	}
	s.logger.Info("auto-closed execution", zap.String("user_id", userID.String()), zap.String("month", monthLabel))
}

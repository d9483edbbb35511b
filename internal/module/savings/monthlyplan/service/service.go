// Package service implements the monthly plan store: the draft rows a
// month's requirements materialize into, the user's protect/skip/custom
// overrides, and the state transitions the execution tracker drives.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/calendar"
	goaldomain "savingsplanner/internal/module/savings/goal/domain"
	"savingsplanner/internal/module/savings/monthlyplan/domain"
	"savingsplanner/internal/module/savings/monthlyplan/repository"
	requirementservice "savingsplanner/internal/module/savings/requirement/service"
	"savingsplanner/internal/savingserr"
)

// Override is a patch to a plan row's editable fields; nil fields are
// left unchanged.
type Override struct {
	CustomAmount *decimal.Decimal
	IsProtected  *bool
	IsSkipped    *bool
}

// Service manages MonthlyGoalPlan rows.
type Service interface {
	// EnsureMonth materializes one draft row per active goal for the
	// month, from freshly computed requirements. Existing rows are
	// refreshed in place while still in draft and left alone otherwise.
	EnsureMonth(ctx context.Context, cc core.CoreContext, monthLabel string, goals []goaldomain.Goal) ([]domain.MonthlyGoalPlan, error)

	Get(ctx context.Context, monthLabel string, goalID uuid.UUID) (*domain.MonthlyGoalPlan, error)
	ListByMonth(ctx context.Context, monthLabel string) ([]domain.MonthlyGoalPlan, error)

	// Apply patches a row's overrides; rejected once the row is completed.
	Apply(ctx context.Context, monthLabel string, goalID uuid.UUID, override Override) (*domain.MonthlyGoalPlan, error)

	// Transition moves the listed goals' rows for the month to the given
	// state, enforcing the draft → executing → completed order. Used by
	// the execution tracker when a record starts, closes, or reopens.
	Transition(ctx context.Context, monthLabel string, goalIDs []uuid.UUID, to domain.State) error
}

type service struct {
	repo         repository.Repository
	requirements requirementservice.Service
}

// New constructs the monthly plan Service.
func New(repo repository.Repository, requirements requirementservice.Service) Service {
	return &service{repo: repo, requirements: requirements}
}

func (s *service) EnsureMonth(ctx context.Context, cc core.CoreContext, monthLabel string, goals []goaldomain.Goal) ([]domain.MonthlyGoalPlan, error) {
	requirements, err := s.requirements.ComputeAll(ctx, cc, goals, calendar.Today())
	if err != nil {
		return nil, err
	}

	out := make([]domain.MonthlyGoalPlan, 0, len(requirements))
	for _, req := range requirements {
		existing, err := s.repo.GetByMonthAndGoal(ctx, monthLabel, req.GoalID)
		if err != nil {
			return nil, savingserr.ErrInternal.WithError(err)
		}
		if existing == nil {
			row := domain.MonthlyGoalPlan{
				ID:              uuid.New(),
				GoalID:          req.GoalID,
				MonthLabel:      monthLabel,
				RequiredMonthly: req.RequiredMonthly,
				Remaining:       req.Remaining,
				MonthsRemaining: req.MonthsRemaining,
				Currency:        req.Currency,
				Status:          req.Status,
				State:           domain.StateDraft,
			}
			if err := s.repo.Create(ctx, &row); err != nil {
				return nil, savingserr.ErrInternal.WithError(err)
			}
			out = append(out, row)
			continue
		}
		// Draft rows track the latest computation; rows an execution has
		// claimed keep the figures they were claimed with.
		if existing.State == domain.StateDraft {
			existing.RequiredMonthly = req.RequiredMonthly
			existing.Remaining = req.Remaining
			existing.MonthsRemaining = req.MonthsRemaining
			existing.Status = req.Status
			if err := s.repo.Update(ctx, existing); err != nil {
				return nil, savingserr.ErrInternal.WithError(err)
			}
		}
		out = append(out, *existing)
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, monthLabel string, goalID uuid.UUID) (*domain.MonthlyGoalPlan, error) {
	row, err := s.repo.GetByMonthAndGoal(ctx, monthLabel, goalID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	if row == nil {
		return nil, savingserr.ErrNotFound.WithDetails("month_label", monthLabel).WithDetails("goal_id", goalID.String())
	}
	return row, nil
}

func (s *service) ListByMonth(ctx context.Context, monthLabel string) ([]domain.MonthlyGoalPlan, error) {
	rows, err := s.repo.ListByMonth(ctx, monthLabel)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return rows, nil
}

func (s *service) Apply(ctx context.Context, monthLabel string, goalID uuid.UUID, override Override) (*domain.MonthlyGoalPlan, error) {
	row, err := s.Get(ctx, monthLabel, goalID)
	if err != nil {
		return nil, err
	}
	if !row.State.Editable() {
		return nil, savingserr.ErrStateViolation.
			WithDetails("state", string(row.State)).
			WithDetails("reason", "completed plans are frozen")
	}
	if override.CustomAmount != nil && override.CustomAmount.IsNegative() {
		return nil, savingserr.ErrValidation.WithDetails("field", "custom_amount")
	}

	if override.CustomAmount != nil {
		row.CustomAmount = override.CustomAmount
	}
	if override.IsProtected != nil {
		row.IsProtected = *override.IsProtected
	}
	if override.IsSkipped != nil {
		row.IsSkipped = *override.IsSkipped
	}
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return row, nil
}

func (s *service) Transition(ctx context.Context, monthLabel string, goalIDs []uuid.UUID, to domain.State) error {
	if !to.IsValid() {
		return savingserr.ErrValidation.WithDetails("field", "state")
	}
	for _, goalID := range goalIDs {
		row, err := s.Get(ctx, monthLabel, goalID)
		if err != nil {
			return err
		}
		if row.State == to {
			continue
		}
		if !row.CanTransitionTo(to) {
			return savingserr.ErrStateViolation.
				WithDetails("from", string(row.State)).
				WithDetails("to", string(to)).
				WithDetails("goal_id", goalID.String())
		}
		row.State = to
		if err := s.repo.Update(ctx, row); err != nil {
			return savingserr.ErrInternal.WithError(err)
		}
	}
	return nil
}

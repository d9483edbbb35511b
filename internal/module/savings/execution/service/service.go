// Package service implements the execution tracker: the per-month
// draft → executing → closed state machine, the immutable snapshots a
// start freezes plans into, contribution accounting against those
// snapshots, and the bounded undo window a close can be walked back in.
package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/calendar"
	"savingsplanner/internal/module/savings/execution/domain"
	"savingsplanner/internal/module/savings/execution/repository"
	goaldomain "savingsplanner/internal/module/savings/goal/domain"
	plandomain "savingsplanner/internal/module/savings/monthlyplan/domain"
	"savingsplanner/internal/savingserr"
)

// PlanStore is the slice of the monthly plan store the tracker
// drives: materializing a month's rows and moving them through their
// states as the record starts, closes, and reopens.
type PlanStore interface {
	EnsureMonth(ctx context.Context, cc core.CoreContext, monthLabel string, goals []goaldomain.Goal) ([]plandomain.MonthlyGoalPlan, error)
	Transition(ctx context.Context, monthLabel string, goalIDs []uuid.UUID, to plandomain.State) error
}

// CurrentTotals resolves a goal's funded total at snapshot time.
type CurrentTotals interface {
	CurrentTotal(ctx context.Context, cc core.CoreContext, goal *goaldomain.Goal) (decimal.Decimal, error)
}

// Service is the execution tracker.
type Service interface {
	// Start freezes the month's plans into snapshots and begins tracking.
	// Fails when another month's record is still open, or the month's
	// record is already past draft.
	Start(ctx context.Context, cc core.CoreContext, userID uuid.UUID, monthLabel string, goals []goaldomain.Goal) (*domain.ExecutionRecord, error)

	// LogContribution accrues a contribution (in the goal's currency)
	// against an executing record.
	LogContribution(ctx context.Context, recordID, goalID uuid.UUID, amount decimal.Decimal, transactionID *uuid.UUID) (*domain.CompletedExecution, error)

	// Close sums per-goal contributions, marks the month's plans
	// completed, and transitions the record to closed.
	Close(ctx context.Context, recordID uuid.UUID) (*domain.CompletedSummary, error)

	// Reopen returns a closed record to executing when still inside the
	// undo grace window. Snapshots are untouched.
	Reopen(ctx context.Context, cc core.CoreContext, recordID uuid.UUID) (*domain.ExecutionRecord, error)

	// RemainingToClose returns max(0, planned − contributed) for one goal,
	// converted into targetCurrency. A nil result with a nil error means
	// the rate was unavailable and the remainder is unknown; it is never
	// silently converted 1:1.
	RemainingToClose(ctx context.Context, cc core.CoreContext, recordID, goalID uuid.UUID, targetCurrency string) (*decimal.Decimal, error)

	Get(ctx context.Context, recordID uuid.UUID) (*domain.ExecutionRecord, error)
	GetByMonth(ctx context.Context, monthLabel string) (*domain.ExecutionRecord, error)
	Snapshots(ctx context.Context, recordID uuid.UUID) ([]domain.ExecutionSnapshot, error)
}

type service struct {
	repo   repository.Repository
	plans  PlanStore
	totals CurrentTotals
	logger *zap.Logger

	// mu serializes lifecycle transitions so start/close/reopen for a
	// month are total-ordered.
	mu sync.Mutex
}

// New constructs the execution Service.
func New(repo repository.Repository, plans PlanStore, totals CurrentTotals, logger *zap.Logger) Service {
	return &service{repo: repo, plans: plans, totals: totals, logger: logger}
}

func (s *service) Start(ctx context.Context, cc core.CoreContext, userID uuid.UUID, monthLabel string, goals []goaldomain.Goal) (*domain.ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.repo.GetOpenRecord(ctx, userID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	if open != nil && open.MonthLabel != monthLabel {
		return nil, savingserr.ErrStateViolation.
			WithDetails("reason", "another month is still open").
			WithDetails("open_month", open.MonthLabel)
	}

	record, err := s.repo.GetRecordByMonth(ctx, monthLabel)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	if record != nil && record.Status != domain.StatusDraft {
		return nil, savingserr.ErrStateViolation.
			WithDetails("status", string(record.Status)).
			WithDetails("reason", "record already started")
	}

	plans, err := s.plans.EnsureMonth(ctx, cc, monthLabel, goals)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, savingserr.ErrValidation.WithDetails("reason", "no active goals to track")
	}

	goalByID := make(map[uuid.UUID]*goaldomain.Goal, len(goals))
	for i := range goals {
		goalByID[goals[i].ID] = &goals[i]
	}

	goalIDs := make([]uuid.UUID, 0, len(plans))
	snapshots := make([]domain.ExecutionSnapshot, 0, len(plans))
	now := calendar.Now()

	if record == nil {
		record = &domain.ExecutionRecord{
			ID:         uuid.New(),
			UserID:     userID,
			MonthLabel: monthLabel,
			Status:     domain.StatusDraft,
		}
		if err := s.repo.CreateRecord(ctx, record); err != nil {
			return nil, savingserr.ErrInternal.WithError(err)
		}
	}

	for _, plan := range plans {
		goal, ok := goalByID[plan.GoalID]
		if !ok {
			continue
		}
		currentTotal, err := s.totals.CurrentTotal(ctx, cc, goal)
		if err != nil {
			return nil, err
		}
		goalIDs = append(goalIDs, plan.GoalID)
		snapshots = append(snapshots, domain.ExecutionSnapshot{
			ID:                  uuid.New(),
			ExecutionRecordID:   record.ID,
			GoalID:              plan.GoalID,
			GoalName:            goal.Name,
			Currency:            plan.Currency,
			TargetAmount:        goal.Target,
			CurrentTotalAtStart: currentTotal,
			RequiredAmount:      plan.RequiredMonthly,
			IsProtected:         plan.IsProtected,
			IsSkipped:           plan.IsSkipped,
			CustomAmount:        plan.CustomAmount,
		})
	}
	if len(goalIDs) == 0 {
		return nil, savingserr.ErrValidation.WithDetails("reason", "no plans matched the given goals")
	}

	if err := s.repo.CreateSnapshots(ctx, snapshots); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	if err := s.plans.Transition(ctx, monthLabel, goalIDs, plandomain.StateExecuting); err != nil {
		return nil, err
	}

	record.GoalIDs = goalIDs
	if !record.Start(now) {
		return nil, savingserr.ErrStateViolation.WithDetails("status", string(record.Status))
	}
	if err := s.repo.UpdateRecord(ctx, record); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return record, nil
}

func (s *service) LogContribution(ctx context.Context, recordID, goalID uuid.UUID, amount decimal.Decimal, transactionID *uuid.UUID) (*domain.CompletedExecution, error) {
	if !amount.IsPositive() {
		return nil, savingserr.ErrValidation.WithDetails("field", "amount")
	}
	record, err := s.mustGet(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.Status != domain.StatusExecuting {
		return nil, savingserr.ErrStateViolation.
			WithDetails("status", string(record.Status)).
			WithDetails("reason", "contributions only accrue while executing")
	}
	if !trackedGoal(record, goalID) {
		return nil, savingserr.ErrNotFound.WithDetails("goal_id", goalID.String()).WithDetails("reason", "goal not tracked by record")
	}

	contribution := &domain.CompletedExecution{
		ID:                uuid.New(),
		ExecutionRecordID: recordID,
		GoalID:            goalID,
		ContributedAmount: amount,
		TransactionID:     transactionID,
		RecordedAt:        calendar.Now(),
	}
	if err := s.repo.CreateContribution(ctx, contribution); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return contribution, nil
}

func (s *service) Close(ctx context.Context, recordID uuid.UUID) (*domain.CompletedSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.mustGet(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.Status != domain.StatusExecuting {
		return nil, savingserr.ErrStateViolation.
			WithDetails("status", string(record.Status)).
			WithDetails("reason", "only an executing record can close")
	}

	summary, err := s.buildSummary(ctx, record)
	if err != nil {
		return nil, err
	}

	if err := s.plans.Transition(ctx, record.MonthLabel, record.GoalIDs, plandomain.StateCompleted); err != nil {
		return nil, err
	}

	now := calendar.Now()
	record.Close(now)
	if err := s.repo.UpdateRecord(ctx, record); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	summary.ClosedAt = now
	return summary, nil
}

func (s *service) Reopen(ctx context.Context, cc core.CoreContext, recordID uuid.UUID) (*domain.ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.mustGet(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if !record.WithinUndoWindow(calendar.Now(), cc.Settings.UndoGracePeriodHours) {
		return nil, savingserr.ErrStateViolation.
			WithDetails("status", string(record.Status)).
			WithDetails("reason", "outside undo window")
	}
	if err := s.plans.Transition(ctx, record.MonthLabel, record.GoalIDs, plandomain.StateExecuting); err != nil {
		return nil, err
	}
	record.Reopen()
	if err := s.repo.UpdateRecord(ctx, record); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return record, nil
}

func (s *service) RemainingToClose(ctx context.Context, cc core.CoreContext, recordID, goalID uuid.UUID, targetCurrency string) (*decimal.Decimal, error) {
	record, err := s.mustGet(ctx, recordID)
	if err != nil {
		return nil, err
	}
	snapshots, err := s.repo.ListSnapshots(ctx, record.ID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	var snapshot *domain.ExecutionSnapshot
	for i := range snapshots {
		if snapshots[i].GoalID == goalID {
			snapshot = &snapshots[i]
			break
		}
	}
	if snapshot == nil {
		return nil, savingserr.ErrNotFound.WithDetails("goal_id", goalID.String())
	}

	contributed, err := s.contributedTo(ctx, record.ID, goalID)
	if err != nil {
		return nil, err
	}
	remaining := core.ClampNonNegative(snapshot.PlannedAmount().Sub(contributed))

	if targetCurrency == "" {
		targetCurrency = cc.Settings.ExecutionDisplayCurrency
	}
	if targetCurrency == "" || targetCurrency == snapshot.Currency {
		remaining = core.Round(remaining)
		return &remaining, nil
	}

	quote, err := cc.RateProvider.FetchRate(ctx, snapshot.Currency, targetCurrency)
	if err != nil {
		// Unknown beats wrong: a missing rate yields no prefill value, not
		// a 1:1 guess.
		if s.logger != nil {
			s.logger.Warn("remaining-to-close conversion unavailable",
				zap.String("from", snapshot.Currency),
				zap.String("to", targetCurrency),
				zap.Error(err))
		}
		return nil, nil
	}
	converted := core.Round(remaining.Mul(quote.Rate))
	return &converted, nil
}

func (s *service) Get(ctx context.Context, recordID uuid.UUID) (*domain.ExecutionRecord, error) {
	return s.mustGet(ctx, recordID)
}

func (s *service) GetByMonth(ctx context.Context, monthLabel string) (*domain.ExecutionRecord, error) {
	record, err := s.repo.GetRecordByMonth(ctx, monthLabel)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	if record == nil {
		return nil, savingserr.ErrNotFound.WithDetails("month_label", monthLabel)
	}
	return record, nil
}

func (s *service) Snapshots(ctx context.Context, recordID uuid.UUID) ([]domain.ExecutionSnapshot, error) {
	rows, err := s.repo.ListSnapshots(ctx, recordID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return rows, nil
}

func (s *service) mustGet(ctx context.Context, recordID uuid.UUID) (*domain.ExecutionRecord, error) {
	record, err := s.repo.GetRecord(ctx, recordID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	if record == nil {
		return nil, savingserr.ErrNotFound.WithDetails("record_id", recordID.String())
	}
	return record, nil
}

func (s *service) contributedTo(ctx context.Context, recordID, goalID uuid.UUID) (decimal.Decimal, error) {
	contributions, err := s.repo.ListContributions(ctx, recordID)
	if err != nil {
		return decimal.Zero, savingserr.ErrInternal.WithError(err)
	}
	total := decimal.Zero
	for _, c := range contributions {
		if c.GoalID == goalID {
			total = total.Add(c.ContributedAmount)
		}
	}
	return total, nil
}

func (s *service) buildSummary(ctx context.Context, record *domain.ExecutionRecord) (*domain.CompletedSummary, error) {
	snapshots, err := s.repo.ListSnapshots(ctx, record.ID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	contributions, err := s.repo.ListContributions(ctx, record.ID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}

	contributed := make(map[uuid.UUID]decimal.Decimal, len(snapshots))
	for _, c := range contributions {
		contributed[c.GoalID] = contributed[c.GoalID].Add(c.ContributedAmount)
	}

	summary := &domain.CompletedSummary{RecordID: record.ID, MonthLabel: record.MonthLabel}
	for _, snap := range snapshots {
		summary.Goals = append(summary.Goals, domain.GoalSummary{
			GoalID:      snap.GoalID,
			GoalName:    snap.GoalName,
			Currency:    snap.Currency,
			Planned:     snap.PlannedAmount(),
			Contributed: core.Round(contributed[snap.GoalID]),
		})
	}
	return summary, nil
}

func trackedGoal(record *domain.ExecutionRecord, goalID uuid.UUID) bool {
	for _, id := range record.GoalIDs {
		if id == goalID {
			return true
		}
	}
	return false
}

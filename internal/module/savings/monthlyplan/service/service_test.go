package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savingsplanner/internal/module/savings/monthlyplan/domain"
	reqdomain "savingsplanner/internal/module/savings/requirement/domain"
	"savingsplanner/internal/savingserr"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeRepo struct {
	rows map[string]*domain.MonthlyGoalPlan // month|goal
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]*domain.MonthlyGoalPlan)}
}

func rowKey(month string, goal uuid.UUID) string { return month + "|" + goal.String() }

func (r *fakeRepo) Create(ctx context.Context, p *domain.MonthlyGoalPlan) error {
	cp := *p
	r.rows[rowKey(p.MonthLabel, p.GoalID)] = &cp
	return nil
}

func (r *fakeRepo) Update(ctx context.Context, p *domain.MonthlyGoalPlan) error {
	cp := *p
	r.rows[rowKey(p.MonthLabel, p.GoalID)] = &cp
	return nil
}

func (r *fakeRepo) GetByMonthAndGoal(ctx context.Context, month string, goal uuid.UUID) (*domain.MonthlyGoalPlan, error) {
	row := r.rows[rowKey(month, goal)]
	if row == nil {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *fakeRepo) ListByMonth(ctx context.Context, month string) ([]domain.MonthlyGoalPlan, error) {
	var out []domain.MonthlyGoalPlan
	for _, row := range r.rows {
		if row.MonthLabel == month {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListByGoal(ctx context.Context, goal uuid.UUID) ([]domain.MonthlyGoalPlan, error) {
	var out []domain.MonthlyGoalPlan
	for _, row := range r.rows {
		if row.GoalID == goal {
			out = append(out, *row)
		}
	}
	return out, nil
}

func seedRow(repo *fakeRepo, month string, state domain.State) *domain.MonthlyGoalPlan {
	row := &domain.MonthlyGoalPlan{
		ID:              uuid.New(),
		GoalID:          uuid.New(),
		MonthLabel:      month,
		RequiredMonthly: dec("100"),
		Remaining:       dec("1200"),
		MonthsRemaining: 12,
		Currency:        "USD",
		Status:          reqdomain.StatusOnTrack,
		State:           state,
	}
	repo.rows[rowKey(month, row.GoalID)] = row
	return row
}

func TestEffectiveAmount(t *testing.T) {
	row := &domain.MonthlyGoalPlan{RequiredMonthly: dec("100")}
	assert.True(t, dec("100").Equal(row.EffectiveAmount()))

	custom := dec("250")
	row.CustomAmount = &custom
	assert.True(t, dec("250").Equal(row.EffectiveAmount()))

	row.IsSkipped = true
	assert.True(t, row.EffectiveAmount().IsZero(), "skip wins over custom amount")
}

func TestApply_OverridesEditableRow(t *testing.T) {
	repo := newFakeRepo()
	row := seedRow(repo, "2026-03", domain.StateDraft)
	svc := New(repo, nil)

	custom := dec("150")
	protected := true
	updated, err := svc.Apply(context.Background(), "2026-03", row.GoalID, Override{CustomAmount: &custom, IsProtected: &protected})
	require.NoError(t, err)

	assert.True(t, dec("150").Equal(*updated.CustomAmount))
	assert.True(t, updated.IsProtected)
}

func TestApply_ExecutingRowStillEditable(t *testing.T) {
	repo := newFakeRepo()
	row := seedRow(repo, "2026-03", domain.StateExecuting)
	svc := New(repo, nil)

	skipped := true
	updated, err := svc.Apply(context.Background(), "2026-03", row.GoalID, Override{IsSkipped: &skipped})
	require.NoError(t, err)
	assert.True(t, updated.IsSkipped)
}

func TestApply_CompletedRowIsFrozen(t *testing.T) {
	repo := newFakeRepo()
	row := seedRow(repo, "2026-03", domain.StateCompleted)
	svc := New(repo, nil)

	skipped := true
	_, err := svc.Apply(context.Background(), "2026-03", row.GoalID, Override{IsSkipped: &skipped})
	require.Error(t, err)
	assert.True(t, savingserr.Is(err, savingserr.CodeStateViolation))
}

func TestApply_NegativeCustomAmountRejected(t *testing.T) {
	repo := newFakeRepo()
	row := seedRow(repo, "2026-03", domain.StateDraft)
	svc := New(repo, nil)

	bad := dec("-5")
	_, err := svc.Apply(context.Background(), "2026-03", row.GoalID, Override{CustomAmount: &bad})
	assert.True(t, savingserr.Is(err, savingserr.CodeValidationError))
}

func TestTransition_DraftToExecutingToCompleted(t *testing.T) {
	repo := newFakeRepo()
	row := seedRow(repo, "2026-03", domain.StateDraft)
	svc := New(repo, nil)

	require.NoError(t, svc.Transition(context.Background(), "2026-03", []uuid.UUID{row.GoalID}, domain.StateExecuting))
	got, _ := repo.GetByMonthAndGoal(context.Background(), "2026-03", row.GoalID)
	assert.Equal(t, domain.StateExecuting, got.State)

	require.NoError(t, svc.Transition(context.Background(), "2026-03", []uuid.UUID{row.GoalID}, domain.StateCompleted))
	got, _ = repo.GetByMonthAndGoal(context.Background(), "2026-03", row.GoalID)
	assert.Equal(t, domain.StateCompleted, got.State)
}

func TestTransition_DraftCannotComplete(t *testing.T) {
	repo := newFakeRepo()
	row := seedRow(repo, "2026-03", domain.StateDraft)
	svc := New(repo, nil)

	err := svc.Transition(context.Background(), "2026-03", []uuid.UUID{row.GoalID}, domain.StateCompleted)
	require.Error(t, err)
	assert.True(t, savingserr.Is(err, savingserr.CodeStateViolation))
}

// A reopened execution record pulls its completed rows back to executing.
func TestTransition_CompletedReopensToExecuting(t *testing.T) {
	repo := newFakeRepo()
	row := seedRow(repo, "2026-03", domain.StateCompleted)
	svc := New(repo, nil)

	require.NoError(t, svc.Transition(context.Background(), "2026-03", []uuid.UUID{row.GoalID}, domain.StateExecuting))
	got, _ := repo.GetByMonthAndGoal(context.Background(), "2026-03", row.GoalID)
	assert.Equal(t, domain.StateExecuting, got.State)
}

func TestTransition_MissingRowSurfacesNotFound(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, nil)

	err := svc.Transition(context.Background(), "2026-03", []uuid.UUID{uuid.New()}, domain.StateExecuting)
	require.Error(t, err)
	assert.True(t, savingserr.Is(err, savingserr.CodeNotFound))
}

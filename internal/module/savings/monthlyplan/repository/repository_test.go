package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"savingsplanner/internal/module/savings/monthlyplan/domain"
	reqdomain "savingsplanner/internal/module/savings/requirement/domain"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	// Create table manually with SQLite-compatible schema
	sqlStmt := `
	CREATE TABLE savings_monthly_goal_plans (
		id TEXT PRIMARY KEY,
		goal_id TEXT NOT NULL,
		month_label TEXT NOT NULL,
		required_monthly NUMERIC NOT NULL,
		remaining NUMERIC NOT NULL,
		months_remaining INTEGER NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'draft',
		custom_amount NUMERIC,
		is_protected BOOLEAN NOT NULL DEFAULT 0,
		is_skipped BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);
	CREATE UNIQUE INDEX idx_plan_month_goal ON savings_monthly_goal_plans(month_label, goal_id);
	CREATE INDEX idx_plans_deleted_at ON savings_monthly_goal_plans(deleted_at);
	`
	err = db.Exec(sqlStmt).Error
	require.NoError(t, err)

	return db
}

func testPlan(month string, goalID uuid.UUID) *domain.MonthlyGoalPlan {
	return &domain.MonthlyGoalPlan{
		ID:              uuid.New(),
		GoalID:          goalID,
		MonthLabel:      month,
		RequiredMonthly: decimal.NewFromInt(100),
		Remaining:       decimal.NewFromInt(1200),
		MonthsRemaining: 12,
		Currency:        "USD",
		Status:          reqdomain.StatusOnTrack,
		State:           domain.StateDraft,
	}
}

func TestCreateAndGetByMonthAndGoal(t *testing.T) {
	db := setupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	goalID := uuid.New()
	plan := testPlan("2026-03", goalID)
	require.NoError(t, repo.Create(ctx, plan))

	got, err := repo.GetByMonthAndGoal(ctx, "2026-03", goalID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, plan.ID, got.ID)
	assert.True(t, plan.RequiredMonthly.Equal(got.RequiredMonthly))
	assert.Equal(t, domain.StateDraft, got.State)
}

func TestGetByMonthAndGoal_MissingReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	repo := New(db)

	got, err := repo.GetByMonthAndGoal(context.Background(), "2026-03", uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

// The (month_label, goal_id) pair is unique: a second row for the same
// month and goal is rejected at the store layer.
func TestCreate_DuplicateMonthGoalRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	goalID := uuid.New()
	require.NoError(t, repo.Create(ctx, testPlan("2026-03", goalID)))

	err := repo.Create(ctx, testPlan("2026-03", goalID))
	assert.Error(t, err)
}

func TestUpdate_PersistsStateAndOverrides(t *testing.T) {
	db := setupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	goalID := uuid.New()
	plan := testPlan("2026-03", goalID)
	require.NoError(t, repo.Create(ctx, plan))

	custom := decimal.NewFromInt(250)
	plan.State = domain.StateExecuting
	plan.CustomAmount = &custom
	plan.IsProtected = true
	require.NoError(t, repo.Update(ctx, plan))

	got, err := repo.GetByMonthAndGoal(ctx, "2026-03", goalID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateExecuting, got.State)
	require.NotNil(t, got.CustomAmount)
	assert.True(t, custom.Equal(*got.CustomAmount))
	assert.True(t, got.IsProtected)
}

func TestListByMonth_And_ListByGoal(t *testing.T) {
	db := setupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	goalA := uuid.New()
	goalB := uuid.New()
	require.NoError(t, repo.Create(ctx, testPlan("2026-03", goalA)))
	require.NoError(t, repo.Create(ctx, testPlan("2026-03", goalB)))
	require.NoError(t, repo.Create(ctx, testPlan("2026-04", goalA)))

	march, err := repo.ListByMonth(ctx, "2026-03")
	require.NoError(t, err)
	assert.Len(t, march, 2)

	forA, err := repo.ListByGoal(ctx, goalA)
	require.NoError(t, err)
	require.Len(t, forA, 2)
	assert.Equal(t, "2026-03", forA[0].MonthLabel, "ordered by month label")
	assert.Equal(t, "2026-04", forA[1].MonthLabel)
}

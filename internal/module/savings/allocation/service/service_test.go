package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/allocation/domain"
	"savingsplanner/internal/module/savings/calendar"
	"savingsplanner/internal/module/savings/events"
)

type fakeRepo struct {
	allocations map[string]*domain.Allocation // key: asset|goal
	history     map[string][]domain.History
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{allocations: make(map[string]*domain.Allocation), history: make(map[string][]domain.History)}
}

func key(asset, goal uuid.UUID) string { return asset.String() + "|" + goal.String() }

func (r *fakeRepo) GetByAssetAndGoal(ctx context.Context, assetID, goalID uuid.UUID) (*domain.Allocation, error) {
	a := r.allocations[key(assetID, goalID)]
	if a == nil {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]domain.Allocation, error) {
	var out []domain.Allocation
	for _, a := range r.allocations {
		if a.AssetID == assetID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListByGoal(ctx context.Context, goalID uuid.UUID) ([]domain.Allocation, error) {
	var out []domain.Allocation
	for _, a := range r.allocations {
		if a.GoalID == goalID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRepo) LastHistoryAmount(ctx context.Context, assetID, goalID uuid.UUID) (*domain.History, error) {
	rows := r.history[key(assetID, goalID)]
	if len(rows) == 0 {
		return nil, nil
	}
	last := rows[len(rows)-1]
	return &last, nil
}

func (r *fakeRepo) ListHistoryByAllocation(ctx context.Context, assetID, goalID uuid.UUID) ([]domain.History, error) {
	return r.history[key(assetID, goalID)], nil
}

func (r *fakeRepo) WriteWithHistory(ctx context.Context, alloc *domain.Allocation, hist *domain.History) error {
	if alloc == nil {
		if hist != nil {
			delete(r.allocations, key(hist.AssetID, hist.GoalID))
		}
	} else {
		if alloc.ID == uuid.Nil {
			alloc.ID = uuid.New()
		}
		cp := *alloc
		r.allocations[key(alloc.AssetID, alloc.GoalID)] = &cp
	}
	if hist != nil {
		k := key(hist.AssetID, hist.GoalID)
		r.history[k] = append(r.history[k], *hist)
	}
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, assetID, goalID uuid.UUID) error {
	delete(r.allocations, key(assetID, goalID))
	return nil
}

type fakeBalance struct {
	balances map[uuid.UUID]decimal.Decimal
}

func (f *fakeBalance) Balance(ctx context.Context, cc core.CoreContext, assetID uuid.UUID, forceRefresh bool) (decimal.Decimal, error) {
	return f.balances[assetID], nil
}

func TestFundedPortions_ProportionalScaling(t *testing.T) {
	assetID := uuid.New()
	goal1, goal2 := uuid.New(), uuid.New()

	repo := newFakeRepo()
	repo.allocations[key(assetID, goal1)] = &domain.Allocation{ID: uuid.New(), AssetID: assetID, GoalID: goal1, Amount: decimal.NewFromInt(8)}
	repo.allocations[key(assetID, goal2)] = &domain.Allocation{ID: uuid.New(), AssetID: assetID, GoalID: goal2, Amount: decimal.NewFromInt(4)}

	bal := &fakeBalance{balances: map[uuid.UUID]decimal.Decimal{assetID: decimal.NewFromInt(10)}}
	svc := New(repo, bal, events.NewBus())

	funded, err := svc.FundedPortions(context.Background(), core.CoreContext{}, assetID)
	require.NoError(t, err)

	sum := funded[goal1].Add(funded[goal2])
	assert.True(t, core.AlmostEqual(sum, decimal.NewFromInt(10)), "funded portions must sum to the balance when over-allocated, got %s", sum)
	assert.True(t, core.AlmostEqual(funded[goal1], decimal.RequireFromString("6.66666667")), "got %s", funded[goal1])
	assert.True(t, core.AlmostEqual(funded[goal2], decimal.RequireFromString("3.33333333")), "got %s", funded[goal2])
}

func TestFundedPortions_FullyFundedIsExact(t *testing.T) {
	assetID, goal := uuid.New(), uuid.New()
	repo := newFakeRepo()
	repo.allocations[key(assetID, goal)] = &domain.Allocation{ID: uuid.New(), AssetID: assetID, GoalID: goal, Amount: decimal.NewFromInt(100)}
	bal := &fakeBalance{balances: map[uuid.UUID]decimal.Decimal{assetID: decimal.NewFromInt(1000)}}
	svc := New(repo, bal, events.NewBus())

	funded, err := svc.FundedPortions(context.Background(), core.CoreContext{}, assetID)
	require.NoError(t, err)
	assert.True(t, funded[goal].Equal(decimal.NewFromInt(100)))
}

func TestAdd_RejectsOverAllocationWithoutOverride(t *testing.T) {
	assetID, goal1, goal2 := uuid.New(), uuid.New(), uuid.New()
	repo := newFakeRepo()
	repo.allocations[key(assetID, goal1)] = &domain.Allocation{ID: uuid.New(), AssetID: assetID, GoalID: goal1, Amount: decimal.NewFromInt(80)}
	bal := &fakeBalance{balances: map[uuid.UUID]decimal.Decimal{assetID: decimal.NewFromInt(100)}}
	svc := New(repo, bal, events.NewBus())

	_, err := svc.Add(context.Background(), core.CoreContext{}, assetID, goal2, decimal.NewFromInt(30), "2026-01", false)
	require.Error(t, err)

	_, err = svc.Add(context.Background(), core.CoreContext{}, assetID, goal2, decimal.NewFromInt(30), "2026-01", true)
	require.NoError(t, err, "override flag must permit deliberate over-allocation")
}

func TestAdd_RejectsDuplicatePair(t *testing.T) {
	assetID, goal := uuid.New(), uuid.New()
	repo := newFakeRepo()
	bal := &fakeBalance{balances: map[uuid.UUID]decimal.Decimal{assetID: decimal.NewFromInt(1000)}}
	svc := New(repo, bal, events.NewBus())

	_, err := svc.Add(context.Background(), core.CoreContext{}, assetID, goal, decimal.NewFromInt(10), "2026-01", false)
	require.NoError(t, err)

	_, err = svc.Add(context.Background(), core.CoreContext{}, assetID, goal, decimal.NewFromInt(20), "2026-01", false)
	require.Error(t, err)
}

func TestModify_SuppressesHistoryRowWhenAmountUnchanged(t *testing.T) {
	assetID, goal := uuid.New(), uuid.New()
	repo := newFakeRepo()
	bal := &fakeBalance{balances: map[uuid.UUID]decimal.Decimal{assetID: decimal.NewFromInt(1000)}}
	svc := New(repo, bal, events.NewBus())

	_, err := svc.Add(context.Background(), core.CoreContext{}, assetID, goal, decimal.NewFromInt(50), "2026-01", false)
	require.NoError(t, err)
	_, err = svc.Modify(context.Background(), core.CoreContext{}, assetID, goal, decimal.NewFromInt(75), "2026-02", false)
	require.NoError(t, err)
	_, err = svc.Modify(context.Background(), core.CoreContext{}, assetID, goal, decimal.NewFromInt(75), "2026-03", false)
	require.NoError(t, err)

	hist, err := svc.History(context.Background(), assetID, goal)
	require.NoError(t, err)
	assert.Len(t, hist, 2, "a same-amount modify must not append a new history row")
}

func TestDelete_WritesZeroAmountHistoryRow(t *testing.T) {
	assetID, goal := uuid.New(), uuid.New()
	repo := newFakeRepo()
	bal := &fakeBalance{balances: map[uuid.UUID]decimal.Decimal{assetID: decimal.NewFromInt(1000)}}
	svc := New(repo, bal, events.NewBus())

	_, err := svc.Add(context.Background(), core.CoreContext{}, assetID, goal, decimal.NewFromInt(50), "2026-01", false)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), assetID, goal, "2026-02"))

	hist, err := svc.History(context.Background(), assetID, goal)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.True(t, hist[1].Amount.IsZero())

	_, err = repo.GetByAssetAndGoal(context.Background(), assetID, goal)
	require.NoError(t, err)
}

func TestApplyDeposit_ExtendsDedicatedAllocation(t *testing.T) {
	assetID, goal := uuid.New(), uuid.New()
	repo := newFakeRepo()
	repo.allocations[key(assetID, goal)] = &domain.Allocation{ID: uuid.New(), AssetID: assetID, GoalID: goal, Amount: decimal.NewFromInt(100)}
	// The balance after the 50 deposit is 200, so the balance before it was
	// 150 and the unallocated excess before the deposit was 150 - 100 = 50,
	// exactly the deposit.
	bal := &fakeBalance{balances: map[uuid.UUID]decimal.Decimal{assetID: decimal.NewFromInt(200)}} // balanceAfter
	svc := New(repo, bal, events.NewBus())

	extended, err := svc.ApplyDeposit(context.Background(), core.CoreContext{}, assetID, decimal.NewFromInt(50), calendar.Now(), "2026-01")
	require.NoError(t, err)
	assert.True(t, extended)

	updated, err := repo.GetByAssetAndGoal(context.Background(), assetID, goal)
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(150)))
}

func TestApplyDeposit_SkipsWhenMultipleAllocations(t *testing.T) {
	assetID, goal1, goal2 := uuid.New(), uuid.New(), uuid.New()
	repo := newFakeRepo()
	repo.allocations[key(assetID, goal1)] = &domain.Allocation{ID: uuid.New(), AssetID: assetID, GoalID: goal1, Amount: decimal.NewFromInt(10)}
	repo.allocations[key(assetID, goal2)] = &domain.Allocation{ID: uuid.New(), AssetID: assetID, GoalID: goal2, Amount: decimal.NewFromInt(10)}
	bal := &fakeBalance{balances: map[uuid.UUID]decimal.Decimal{assetID: decimal.NewFromInt(30)}}
	svc := New(repo, bal, events.NewBus())

	extended, err := svc.ApplyDeposit(context.Background(), core.CoreContext{}, assetID, decimal.NewFromInt(10), calendar.Now(), "2026-01")
	require.NoError(t, err)
	assert.False(t, extended)
}

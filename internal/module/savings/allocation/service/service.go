// Package service implements the allocation engine: the funded-portion
// formula, the validated add/modify/delete write path with its append-only
// history trail, and the dedicated-asset auto-allocation extension rule.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/allocation/domain"
	"savingsplanner/internal/module/savings/allocation/repository"
	"savingsplanner/internal/module/savings/calendar"
	"savingsplanner/internal/module/savings/events"
	"savingsplanner/internal/savingserr"
)

// BalanceResolver is the narrow slice of asset/service.Service the
// allocation engine needs: an asset's total balance (manual + on-chain).
// Accepting the interface here, rather than importing the asset package,
// keeps the engine's dependency direction pointing only at what it uses.
type BalanceResolver interface {
	Balance(ctx context.Context, cc core.CoreContext, assetID uuid.UUID, forceRefresh bool) (decimal.Decimal, error)
}

// Service is the allocation engine.
type Service interface {
	// FundedPortions returns, for every Allocation against assetID, the
	// amount of it currently backed by the asset's balance after
	// proportional scaling.
	FundedPortions(ctx context.Context, cc core.CoreContext, assetID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	Add(ctx context.Context, cc core.CoreContext, assetID, goalID uuid.UUID, amount decimal.Decimal, monthLabel string, allowOverAllocation bool) (*domain.Allocation, error)
	Modify(ctx context.Context, cc core.CoreContext, assetID, goalID uuid.UUID, newAmount decimal.Decimal, monthLabel string, allowOverAllocation bool) (*domain.Allocation, error)
	Delete(ctx context.Context, assetID, goalID uuid.UUID, monthLabel string) error

	ListByGoal(ctx context.Context, goalID uuid.UUID) ([]domain.Allocation, error)
	History(ctx context.Context, assetID, goalID uuid.UUID) ([]domain.History, error)

	// ApplyDeposit implements the dedicated-asset auto-allocation rule: a
	// deposit already recorded against assetID is absorbed into its sole
	// existing allocation when it exactly matches the asset's currently
	// unallocated excess. It reports whether the extension happened.
	ApplyDeposit(ctx context.Context, cc core.CoreContext, assetID uuid.UUID, depositAmount decimal.Decimal, depositTimestamp calendar.EpochMillis, monthLabel string) (bool, error)
}

type service struct {
	repo    repository.Repository
	balance BalanceResolver
	bus     *events.Bus
}

// New constructs the allocation Service.
func New(repo repository.Repository, balance BalanceResolver, bus *events.Bus) Service {
	return &service{repo: repo, balance: balance, bus: bus}
}

func (s *service) FundedPortions(ctx context.Context, cc core.CoreContext, assetID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	allocations, err := s.repo.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}

	totalAllocated := decimal.Zero
	for _, a := range allocations {
		totalAllocated = totalAllocated.Add(a.Amount)
	}

	result := make(map[uuid.UUID]decimal.Decimal, len(allocations))
	if totalAllocated.IsZero() {
		for _, a := range allocations {
			result[a.GoalID] = decimal.Zero
		}
		return result, nil
	}

	balance, err := s.balance.Balance(ctx, cc, assetID, false)
	if err != nil {
		return nil, err
	}

	ratio := balance.Div(totalAllocated)
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		ratio = decimal.NewFromInt(1)
	}
	if ratio.IsNegative() {
		ratio = decimal.Zero
	}

	for _, a := range allocations {
		result[a.GoalID] = core.Round(a.Amount.Mul(ratio))
	}
	return result, nil
}

func (s *service) Add(ctx context.Context, cc core.CoreContext, assetID, goalID uuid.UUID, amount decimal.Decimal, monthLabel string, allowOverAllocation bool) (*domain.Allocation, error) {
	if amount.IsNegative() {
		return nil, savingserr.ErrValidation.WithDetails("field", "amount")
	}
	existing, err := s.repo.GetByAssetAndGoal(ctx, assetID, goalID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	if existing != nil {
		return nil, savingserr.ErrDuplicateAllocation.WithDetails("asset_id", assetID.String()).WithDetails("goal_id", goalID.String())
	}

	if err := s.checkOverAllocation(ctx, cc, assetID, goalID, decimal.Zero, amount, allowOverAllocation); err != nil {
		return nil, err
	}

	alloc := &domain.Allocation{AssetID: assetID, GoalID: goalID, Amount: amount}
	hist := s.historyFor(ctx, assetID, goalID, amount, monthLabel)
	if err := s.repo.WriteWithHistory(ctx, alloc, hist); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	s.bus.Publish(events.Event{Kind: events.KindAllocationChanged, AssetID: assetID, GoalID: goalID, MonthLabel: monthLabel})
	return alloc, nil
}

func (s *service) Modify(ctx context.Context, cc core.CoreContext, assetID, goalID uuid.UUID, newAmount decimal.Decimal, monthLabel string, allowOverAllocation bool) (*domain.Allocation, error) {
	if newAmount.IsNegative() {
		return nil, savingserr.ErrValidation.WithDetails("field", "amount")
	}
	existing, err := s.repo.GetByAssetAndGoal(ctx, assetID, goalID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	if existing == nil {
		return nil, savingserr.ErrNotFound.WithDetails("asset_id", assetID.String()).WithDetails("goal_id", goalID.String())
	}

	if err := s.checkOverAllocation(ctx, cc, assetID, goalID, existing.Amount, newAmount, allowOverAllocation); err != nil {
		return nil, err
	}

	existing.Amount = newAmount
	hist := s.historyFor(ctx, assetID, goalID, newAmount, monthLabel)
	if err := s.repo.WriteWithHistory(ctx, existing, hist); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	s.bus.Publish(events.Event{Kind: events.KindAllocationChanged, AssetID: assetID, GoalID: goalID, MonthLabel: monthLabel})
	return existing, nil
}

// Delete removes the allocation and records a history row with amount = 0,
// recording the delete as a history row with amount = 0.
func (s *service) Delete(ctx context.Context, assetID, goalID uuid.UUID, monthLabel string) error {
	existing, err := s.repo.GetByAssetAndGoal(ctx, assetID, goalID)
	if err != nil {
		return savingserr.ErrInternal.WithError(err)
	}
	if existing == nil {
		return savingserr.ErrNotFound.WithDetails("asset_id", assetID.String()).WithDetails("goal_id", goalID.String())
	}

	hist := s.historyFor(ctx, assetID, goalID, decimal.Zero, monthLabel)
	if err := s.repo.WriteWithHistory(ctx, nil, hist); err != nil {
		return savingserr.ErrInternal.WithError(err)
	}
	s.bus.Publish(events.Event{Kind: events.KindAllocationChanged, AssetID: assetID, GoalID: goalID, MonthLabel: monthLabel})
	return nil
}

func (s *service) ListByGoal(ctx context.Context, goalID uuid.UUID) ([]domain.Allocation, error) {
	rows, err := s.repo.ListByGoal(ctx, goalID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return rows, nil
}

func (s *service) History(ctx context.Context, assetID, goalID uuid.UUID) ([]domain.History, error) {
	rows, err := s.repo.ListHistoryByAllocation(ctx, assetID, goalID)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return rows, nil
}

// checkOverAllocation rejects a write that would push the asset's total
// allocations above its balance, unless allowOverAllocation is set.
// existingAmount is the goal's own allocation before this write (zero for
// Add); it's excluded from the "other goals" total so a goal can always be
// re-sized down, and a same-amount no-op never falsely trips the check.
func (s *service) checkOverAllocation(ctx context.Context, cc core.CoreContext, assetID, goalID uuid.UUID, existingAmount, newAmount decimal.Decimal, allowOverAllocation bool) error {
	if allowOverAllocation {
		return nil
	}
	others, err := s.repo.ListByAsset(ctx, assetID)
	if err != nil {
		return savingserr.ErrInternal.WithError(err)
	}
	total := newAmount
	for _, a := range others {
		if a.GoalID == goalID {
			continue
		}
		total = total.Add(a.Amount)
	}
	balance, err := s.balance.Balance(ctx, cc, assetID, false)
	if err != nil {
		return err
	}
	if total.GreaterThan(balance) && !core.AlmostEqual(total, balance) {
		return savingserr.ErrOverAllocation.
			WithDetails("asset_id", assetID.String()).
			WithDetails("requested_total", total.String()).
			WithDetails("balance", balance.String())
	}
	return nil
}

// historyFor builds the history row to append, or nil when the new amount
// exactly matches the most recently recorded one, so an unchanged amount
// never appends a duplicate row.
func (s *service) historyFor(ctx context.Context, assetID, goalID uuid.UUID, amount decimal.Decimal, monthLabel string) *domain.History {
	last, err := s.repo.LastHistoryAmount(ctx, assetID, goalID)
	if err == nil && last != nil && core.AlmostEqual(last.Amount, amount) {
		return nil
	}
	return &domain.History{
		AssetID:    assetID,
		GoalID:     goalID,
		Amount:     amount,
		MonthLabel: monthLabel,
		Timestamp:  calendar.Now(),
	}
}

// ApplyDeposit is the dedicated-auto-allocation rule: when an asset
// carries exactly one active allocation and a freshly recorded deposit
// exactly matches the asset's unallocated excess (within tolerance), the
// deposit is absorbed into that allocation rather than left idle.
func (s *service) ApplyDeposit(ctx context.Context, cc core.CoreContext, assetID uuid.UUID, depositAmount decimal.Decimal, depositTimestamp calendar.EpochMillis, monthLabel string) (bool, error) {
	if !depositAmount.IsPositive() {
		return false, nil
	}

	allocations, err := s.repo.ListByAsset(ctx, assetID)
	if err != nil {
		return false, savingserr.ErrInternal.WithError(err)
	}
	if len(allocations) != 1 {
		return false, nil
	}
	alloc := allocations[0]

	balanceAfter, err := s.balance.Balance(ctx, cc, assetID, false)
	if err != nil {
		return false, err
	}
	balanceBefore := balanceAfter.Sub(depositAmount)
	unallocatedExcess := core.ClampNonNegative(balanceBefore.Sub(alloc.Amount))

	tolerance := core.Epsilon
	scale := decimal.Max(unallocatedExcess, depositAmount).Mul(decimal.New(1, -6))
	if scale.GreaterThan(tolerance) {
		tolerance = scale
	}

	if depositAmount.Sub(unallocatedExcess).Abs().GreaterThan(tolerance) {
		return false, nil
	}

	alloc.Amount = alloc.Amount.Add(depositAmount)
	hist := &domain.History{
		AssetID:    assetID,
		GoalID:     alloc.GoalID,
		Amount:     alloc.Amount,
		MonthLabel: monthLabel,
		Timestamp:  depositTimestamp,
	}
	if err := s.repo.WriteWithHistory(ctx, &alloc, hist); err != nil {
		return false, savingserr.ErrInternal.WithError(err)
	}
	s.bus.Publish(events.Event{Kind: events.KindAllocationChanged, AssetID: assetID, GoalID: alloc.GoalID, MonthLabel: monthLabel})
	return true, nil
}

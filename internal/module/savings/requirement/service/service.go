// Package service implements the requirement calculator: a goal's
// current funded total (aggregated across its allocations, converted into
// the goal's currency), the per-month amount it still needs, and the status
// band that places it in.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"savingsplanner/internal/core"
	allocdomain "savingsplanner/internal/module/savings/allocation/domain"
	"savingsplanner/internal/module/savings/calendar"
	goaldomain "savingsplanner/internal/module/savings/goal/domain"
	"savingsplanner/internal/module/savings/requirement/domain"
)

// AllocationReader is the slice of the allocation engine the
// requirement calculator consumes: a goal's allocations and each asset's
// funded portions.
type AllocationReader interface {
	ListByGoal(ctx context.Context, goalID uuid.UUID) ([]allocdomain.Allocation, error)
	FundedPortions(ctx context.Context, cc core.CoreContext, assetID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

// AssetCurrencyResolver resolves an asset's native currency code, needed to
// convert its funded portion into the goal's currency.
type AssetCurrencyResolver interface {
	CurrencyCode(ctx context.Context, assetID uuid.UUID) (string, error)
}

// Service computes per-goal requirements and current totals.
type Service interface {
	// CurrentTotal aggregates the goal's funded portions across all of its
	// allocations, converted into the goal's currency. Conversion is
	// fail-open: a funded amount whose rate cannot be resolved is added
	// unconverted rather than silently erased.
	CurrentTotal(ctx context.Context, cc core.CoreContext, goal *goaldomain.Goal) (decimal.Decimal, error)

	// Compute returns the goal's Requirement as of today.
	Compute(ctx context.Context, cc core.CoreContext, goal *goaldomain.Goal, today calendar.EpochDay) (*domain.Requirement, error)

	// ComputeAll computes requirements for every given goal, skipping goals
	// that are not active.
	ComputeAll(ctx context.Context, cc core.CoreContext, goals []goaldomain.Goal, today calendar.EpochDay) ([]domain.Requirement, error)
}

type service struct {
	allocations AllocationReader
	assets      AssetCurrencyResolver
	logger      *zap.Logger
}

// New constructs the requirement Service.
func New(allocations AllocationReader, assets AssetCurrencyResolver, logger *zap.Logger) Service {
	return &service{allocations: allocations, assets: assets, logger: logger}
}

func (s *service) CurrentTotal(ctx context.Context, cc core.CoreContext, goal *goaldomain.Goal) (decimal.Decimal, error) {
	allocations, err := s.allocations.ListByGoal(ctx, goal.ID)
	if err != nil {
		return decimal.Zero, err
	}

	// Funded portions are computed per asset, so resolve each asset once
	// even when several of the goal's allocations share it.
	fundedByAsset := make(map[uuid.UUID]map[uuid.UUID]decimal.Decimal)
	total := decimal.Zero
	for _, alloc := range allocations {
		portions, ok := fundedByAsset[alloc.AssetID]
		if !ok {
			portions, err = s.allocations.FundedPortions(ctx, cc, alloc.AssetID)
			if err != nil {
				return decimal.Zero, err
			}
			fundedByAsset[alloc.AssetID] = portions
		}
		funded := portions[goal.ID]
		if funded.IsZero() {
			continue
		}
		total = total.Add(s.convertFailOpen(ctx, cc, alloc.AssetID, funded, goal.Currency))
	}
	return core.Round(total), nil
}

// convertFailOpen converts funded from the asset's currency into the goal
// currency. When the asset currency cannot be resolved or the rate provider
// fails, the unconverted amount is returned: a wrong-currency figure is
// recoverable, a silently vanished balance is not.
func (s *service) convertFailOpen(ctx context.Context, cc core.CoreContext, assetID uuid.UUID, funded decimal.Decimal, goalCurrency string) decimal.Decimal {
	assetCurrency, err := s.assets.CurrencyCode(ctx, assetID)
	if err != nil {
		s.warn("asset currency lookup failed, using unconverted amount", assetID, goalCurrency, err)
		return funded
	}
	if assetCurrency == goalCurrency {
		return funded
	}
	quote, err := cc.RateProvider.FetchRate(ctx, assetCurrency, goalCurrency)
	if err != nil {
		s.warn("rate fetch failed, using unconverted amount", assetID, goalCurrency, err)
		return funded
	}
	return funded.Mul(quote.Rate)
}

func (s *service) warn(msg string, assetID uuid.UUID, goalCurrency string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, zap.String("asset_id", assetID.String()), zap.String("goal_currency", goalCurrency), zap.Error(err))
	}
}

func (s *service) Compute(ctx context.Context, cc core.CoreContext, goal *goaldomain.Goal, today calendar.EpochDay) (*domain.Requirement, error) {
	currentTotal, err := s.CurrentTotal(ctx, cc, goal)
	if err != nil {
		return nil, err
	}
	req := ComputeRequirement(goal, currentTotal, today, calendar.NewPaymentCalendar(cc.Settings.PaymentDay))
	return &req, nil
}

func (s *service) ComputeAll(ctx context.Context, cc core.CoreContext, goals []goaldomain.Goal, today calendar.EpochDay) ([]domain.Requirement, error) {
	out := make([]domain.Requirement, 0, len(goals))
	for i := range goals {
		if goals[i].Lifecycle != goaldomain.LifecycleActive {
			continue
		}
		req, err := s.Compute(ctx, cc, &goals[i], today)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, nil
}

// ComputeRequirement is the pure arithmetic core: no I/O, callable
// from any context. currentTotal must already be in the goal's currency.
func ComputeRequirement(goal *goaldomain.Goal, currentTotal decimal.Decimal, today calendar.EpochDay, pc calendar.PaymentCalendar) domain.Requirement {
	remaining := core.ClampNonNegative(goal.Target.Sub(currentTotal))
	months := pc.MonthsRemaining(today, goal.Deadline)
	required := core.Round(remaining.Div(decimal.NewFromInt(int64(months))))

	return domain.Requirement{
		GoalID:          goal.ID,
		Currency:        goal.Currency,
		Target:          goal.Target,
		CurrentTotal:    currentTotal,
		Remaining:       remaining,
		MonthsRemaining: months,
		RequiredMonthly: required,
		Status:          domain.Classify(goal.Target, remaining, months, required),
	}
}

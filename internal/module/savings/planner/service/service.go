// Package service implements the fixed-budget planner's suspending
// shell: it converts each active goal's remaining amount into the target
// currency through the rate provider, hands the pure arithmetic to the
// domain package, and memoizes generated plans behind a TTL cache that the
// event bus and settings version invalidate.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/calendar"
	"savingsplanner/internal/module/savings/events"
	goaldomain "savingsplanner/internal/module/savings/goal/domain"
	"savingsplanner/internal/module/savings/planner/domain"
	settingsdomain "savingsplanner/internal/module/savings/settings/domain"
	"savingsplanner/internal/savingserr"
)

// CurrentTotals is the slice of the requirement calculator the
// planner consumes: a goal's funded total in the goal's own currency.
type CurrentTotals interface {
	CurrentTotal(ctx context.Context, cc core.CoreContext, goal *goaldomain.Goal) (decimal.Decimal, error)
}

// Service is the fixed-budget planner: the driver surface an embedding
// application calls.
type Service interface {
	MinimumBudget(ctx context.Context, cc core.CoreContext, goals []goaldomain.Goal, currency string) (decimal.Decimal, error)
	CheckFeasibility(ctx context.Context, cc core.CoreContext, goals []goaldomain.Goal, budget decimal.Decimal, currency string) (*domain.FeasibilityResult, error)
	GenerateSchedule(ctx context.Context, cc core.CoreContext, goals []goaldomain.Goal, budget decimal.Decimal, currency string) (*domain.FixedBudgetPlan, error)
	BuildTimelineBlocks(plan *domain.FixedBudgetPlan) []domain.ScheduledGoalBlock
	RecalculateAfterContribution(ctx context.Context, cc core.CoreContext, plan *domain.FixedBudgetPlan, actual decimal.Decimal, paymentNumber int, goals []goaldomain.Goal, policy domain.RecalculationPolicy) (*domain.FixedBudgetPlan, error)
}

type service struct {
	totals CurrentTotals
	cache  *planCache
	logger *zap.Logger
}

// New constructs the planner Service. Goal and allocation changes flush
// the plan cache; settings changes are covered by the snapshot version
// baked into every cache key.
func New(totals CurrentTotals, bus *events.Bus, logger *zap.Logger) Service {
	s := &service{totals: totals, cache: newPlanCache(), logger: logger}
	if bus != nil {
		bus.Subscribe(events.KindGoalChanged, func(events.Event) { s.cache.invalidate() })
		bus.Subscribe(events.KindAllocationChanged, func(events.Event) { s.cache.invalidate() })
	}
	return s
}

func priorityRank(p goaldomain.Priority) int {
	switch p {
	case goaldomain.PriorityHigh:
		return 0
	case goaldomain.PriorityLow:
		return 2
	default:
		return 1
	}
}

// buildPlanGoals resolves each active goal's remaining amount and converts
// it into the target currency. A goal whose conversion fails lands in the
// issues list and is excluded; the caller decides whether that is fatal.
func (s *service) buildPlanGoals(ctx context.Context, cc core.CoreContext, goals []goaldomain.Goal, currency string) ([]domain.PlanGoal, []string, error) {
	planGoals := make([]domain.PlanGoal, 0, len(goals))
	var issues []string

	for i := range goals {
		g := &goals[i]
		if g.Lifecycle != goaldomain.LifecycleActive {
			continue
		}

		currentTotal, err := s.totals.CurrentTotal(ctx, cc, g)
		if err != nil {
			return nil, nil, err
		}
		remaining := core.ClampNonNegative(g.Target.Sub(currentTotal))

		if g.Currency != currency && remaining.IsPositive() {
			quote, err := cc.RateProvider.FetchRate(ctx, g.Currency, currency)
			if err != nil {
				issues = append(issues, g.Name)
				if s.logger != nil {
					s.logger.Warn("planner: conversion failed for goal",
						zap.String("goal_id", g.ID.String()),
						zap.String("from", g.Currency),
						zap.String("to", currency),
						zap.Error(err))
				}
				continue
			}
			remaining = core.Round(remaining.Mul(quote.Rate))
		}

		planGoals = append(planGoals, domain.PlanGoal{
			ID:        g.ID,
			Name:      g.Name,
			Currency:  g.Currency,
			Remaining: remaining,
			Deadline:  g.Deadline,
			Priority:  priorityRank(g.Priority),
		})
	}
	return planGoals, issues, nil
}

func (s *service) MinimumBudget(ctx context.Context, cc core.CoreContext, goals []goaldomain.Goal, currency string) (decimal.Decimal, error) {
	planGoals, issues, err := s.buildPlanGoals(ctx, cc, goals, currency)
	if err != nil {
		return decimal.Zero, err
	}
	if len(issues) > 0 {
		return decimal.Zero, savingserr.ErrRateUnavailable.WithDetails("goals", issues)
	}
	pc := calendar.NewPaymentCalendar(cc.Settings.PaymentDay)
	return domain.MinimumBudget(planGoals, calendar.Today(), pc), nil
}

func (s *service) CheckFeasibility(ctx context.Context, cc core.CoreContext, goals []goaldomain.Goal, budget decimal.Decimal, currency string) (*domain.FeasibilityResult, error) {
	if budget.IsNegative() {
		return nil, savingserr.ErrValidation.WithDetails("field", "budget")
	}
	planGoals, issues, err := s.buildPlanGoals(ctx, cc, goals, currency)
	if err != nil {
		return nil, err
	}
	pc := calendar.NewPaymentCalendar(cc.Settings.PaymentDay)
	result := domain.CheckFeasibility(planGoals, budget, calendar.Today(), pc)
	result.Currency = currency
	result.RateIssues = issues
	for i := range result.Suggestions {
		if result.Suggestions[i].Kind == domain.SuggestIncreaseBudget {
			result.Suggestions[i].Currency = currency
		}
	}
	return &result, nil
}

func (s *service) GenerateSchedule(ctx context.Context, cc core.CoreContext, goals []goaldomain.Goal, budget decimal.Decimal, currency string) (*domain.FixedBudgetPlan, error) {
	if !budget.IsPositive() {
		return nil, savingserr.ErrValidation.WithDetails("field", "budget")
	}

	goalIDs := make([]uuid.UUID, 0, len(goals))
	for i := range goals {
		if goals[i].Lifecycle == goaldomain.LifecycleActive {
			goalIDs = append(goalIDs, goals[i].ID)
		}
	}
	key := cacheKey(goalIDs, budget, currency, cc.Settings.Version)
	if cached, ok := s.cache.get(key); ok {
		return cached, nil
	}

	planGoals, issues, err := s.buildPlanGoals(ctx, cc, goals, currency)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		return nil, savingserr.ErrRateUnavailable.WithDetails("goals", issues)
	}
	if err := ctx.Err(); err != nil {
		// Cancelled mid-conversion: return nothing rather than a schedule
		// built from a partial read, and leave the cache untouched.
		return nil, savingserr.ErrInternal.WithError(err)
	}

	pc := calendar.NewPaymentCalendar(cc.Settings.PaymentDay)
	plan := domain.GenerateSchedule(planGoals, budget, calendar.Today(), pc)
	plan.Currency = currency
	plan.GeneratedAt = calendar.Now()

	s.cache.put(key, &plan)
	return &plan, nil
}

func (s *service) BuildTimelineBlocks(plan *domain.FixedBudgetPlan) []domain.ScheduledGoalBlock {
	return domain.BuildTimelineBlocks(plan)
}

func (s *service) RecalculateAfterContribution(ctx context.Context, cc core.CoreContext, plan *domain.FixedBudgetPlan, actual decimal.Decimal, paymentNumber int, goals []goaldomain.Goal, policy domain.RecalculationPolicy) (*domain.FixedBudgetPlan, error) {
	if actual.IsNegative() {
		return nil, savingserr.ErrValidation.WithDetails("field", "actual")
	}
	if policy == "" {
		policy = DefaultPolicy(cc.Settings)
	}
	if !policy.IsValid() {
		return nil, savingserr.ErrValidation.WithDetails("field", "policy")
	}

	planGoals, issues, err := s.buildPlanGoals(ctx, cc, goals, plan.Currency)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		return nil, savingserr.ErrRateUnavailable.WithDetails("goals", issues)
	}

	// buildPlanGoals subtracts what is already funded today; the replayed
	// plan needs the positions the original generation started from, which
	// are exactly these (contributions recorded since then are reflected
	// in current totals and therefore already excluded from remaining).
	pc := calendar.NewPaymentCalendar(cc.Settings.PaymentDay)
	recalced, err := domain.RecalculateAfterContribution(plan, planGoals, actual, paymentNumber, policy, calendar.Today(), pc)
	if err != nil {
		return nil, savingserr.ErrValidation.WithDetails("field", "payment_number").WithError(err)
	}
	recalced.GeneratedAt = calendar.Now()
	return recalced, nil
}

// DefaultPolicy maps the persisted settings recalculation preference onto
// the planner's policy variants: keep_pace holds every deadline and lowers
// future payments, bank_surplus holds the budget and finishes faster.
func DefaultPolicy(snapshot core.SettingsSnapshot) domain.RecalculationPolicy {
	if snapshot.RecalculationPolicy == string(settingsdomain.RecalcBankSurplus) {
		return domain.PolicyFinishFaster
	}
	return domain.PolicyLowerPayments
}

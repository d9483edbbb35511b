// Package domain holds the fixed-budget planner's types and its pure
// scheduling arithmetic: minimum-budget derivation, feasibility analysis,
// deadline-aware payment scheduling, and timeline aggregation. Nothing in
// this package performs I/O; every amount is already expressed in the
// plan's target currency by the service layer before it gets here.
package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"savingsplanner/internal/module/savings/calendar"
)

// PlanGoal is the planner's view of a goal: its remaining amount already
// converted into the plan's target currency, its deadline, and the
// priority used only to break exact deadline ties.
type PlanGoal struct {
	ID        uuid.UUID            `json:"id"`
	Name      string               `json:"name"`
	Currency  string               `json:"currency"` // the goal's native currency, kept for display back-conversion
	Remaining decimal.Decimal      `json:"remaining"`
	Deadline  calendar.EpochDay    `json:"deadline"`
	Priority  int                  `json:"priority"` // lower sorts first among equal deadlines
}

// ScheduledContribution is one goal's share of one payment.
type ScheduledContribution struct {
	GoalID         uuid.UUID       `json:"goal_id"`
	GoalName       string          `json:"goal_name"`
	Amount         decimal.Decimal `json:"amount"`
	IsGoalStart    bool            `json:"is_goal_start"`
	IsGoalComplete bool            `json:"is_goal_complete"`
}

// ScheduledPayment is one payment-anchor date with its per-goal split.
type ScheduledPayment struct {
	Number        int                     `json:"number"`
	Date          calendar.EpochDay       `json:"date"`
	Contributions []ScheduledContribution `json:"contributions"`
	Total         decimal.Decimal         `json:"total"`
}

// InfeasibleGoal reports a goal whose deadline cannot be met at the
// proposed budget, with the monthly amount that would be needed and how
// far short the budget falls.
type InfeasibleGoal struct {
	GoalID    uuid.UUID       `json:"goal_id"`
	GoalName  string          `json:"goal_name"`
	Required  decimal.Decimal `json:"required"`
	Shortfall decimal.Decimal `json:"shortfall"`
}

// SuggestionKind tags a FeasibilitySuggestion variant.
type SuggestionKind string

const (
	SuggestIncreaseBudget SuggestionKind = "increase_budget"
	SuggestExtendDeadline SuggestionKind = "extend_deadline"
	SuggestReduceTarget   SuggestionKind = "reduce_target"
	SuggestEditGoal       SuggestionKind = "edit_goal"
)

// FeasibilitySuggestion is a tagged variant: only the fields matching Kind
// are populated. Renderers dispatch on Kind exhaustively.
type FeasibilitySuggestion struct {
	Kind SuggestionKind `json:"kind"`

	// SuggestIncreaseBudget
	Amount   decimal.Decimal `json:"amount,omitempty"`
	Currency string          `json:"currency,omitempty"`

	// SuggestExtendDeadline / SuggestReduceTarget / SuggestEditGoal
	GoalID   uuid.UUID `json:"goal_id,omitempty"`
	ByMonths int       `json:"by_months,omitempty"`
}

// FeasibilityResult is the outcome of checking a proposed budget against a
// goal set: which goals the budget cannot carry to their deadlines, the
// reference budgets, and at most two actionable suggestions.
type FeasibilityResult struct {
	Feasible        bool                    `json:"feasible"`
	Budget          decimal.Decimal         `json:"budget"`
	Currency        string                  `json:"currency"`
	MinimumBudget   decimal.Decimal         `json:"minimum_budget"`
	LeveledBudget   decimal.Decimal         `json:"leveled_budget"`
	InfeasibleGoals []InfeasibleGoal        `json:"infeasible_goals"`
	Suggestions     []FeasibilitySuggestion `json:"suggestions"`

	// RateIssues lists goals whose remaining amount could not be converted
	// into the target currency; those goals are excluded from the scan
	// rather than silently priced 1:1.
	RateIssues []string `json:"rate_issues,omitempty"`
}

// FixedBudgetPlan is a generated payment-by-payment schedule. Infeasible
// carries any goals whose deadlines the budget could not meet; an empty
// Infeasible set means every goal completes on or before its deadline.
type FixedBudgetPlan struct {
	Currency      string             `json:"currency"`
	MonthlyBudget decimal.Decimal    `json:"monthly_budget"`
	Payments      []ScheduledPayment `json:"payments"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	Infeasible    []InfeasibleGoal   `json:"infeasible,omitempty"`
	GeneratedAt   calendar.EpochMillis `json:"generated_at"`
}

// PaymentCount returns the number of scheduled payments.
func (p *FixedBudgetPlan) PaymentCount() int { return len(p.Payments) }

// ContributionsTo returns the total the plan contributes to the goal.
func (p *FixedBudgetPlan) ContributionsTo(goalID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, payment := range p.Payments {
		for _, c := range payment.Contributions {
			if c.GoalID == goalID {
				total = total.Add(c.Amount)
			}
		}
	}
	return total
}

// ScheduledGoalBlock aggregates a goal's consecutive contributions into one
// timeline block for rendering.
type ScheduledGoalBlock struct {
	GoalID       uuid.UUID         `json:"goal_id"`
	GoalName     string            `json:"goal_name"`
	StartPayment int               `json:"start_payment"`
	EndPayment   int               `json:"end_payment"`
	StartDate    calendar.EpochDay `json:"start_date"`
	EndDate      calendar.EpochDay `json:"end_date"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	PaymentCount int               `json:"payment_count"`
}

// RecalculationPolicy selects how the remaining schedule absorbs a
// contribution that diverged from plan.
type RecalculationPolicy string

const (
	// PolicyFinishFaster keeps the original monthly budget; a surplus
	// compresses the timeline.
	PolicyFinishFaster RecalculationPolicy = "finish_faster"
	// PolicyLowerPayments re-levels the remaining amount over the
	// remaining payments, floored at the minimum budget.
	PolicyLowerPayments RecalculationPolicy = "lower_payments"
)

func (p RecalculationPolicy) IsValid() bool {
	return p == PolicyFinishFaster || p == PolicyLowerPayments
}

package dto

import (
	"github.com/shopspring/decimal"

	"savingsplanner/internal/module/savings/planner/domain"
)

// FeasibilityRequest asks whether a proposed monthly budget can carry
// every active goal to its deadline.
type FeasibilityRequest struct {
	Budget   decimal.Decimal `json:"budget" binding:"required"`
	Currency string          `json:"currency" binding:"required"`
}

// ScheduleRequest asks for a payment-by-payment plan at the given budget.
type ScheduleRequest struct {
	Budget   decimal.Decimal `json:"budget" binding:"required"`
	Currency string          `json:"currency" binding:"required"`
}

// RecalculateRequest reports an actual contribution against a scheduled
// payment and asks for the remainder of the plan to be rebuilt. Policy is
// optional; the user's settings decide when it is blank.
type RecalculateRequest struct {
	Budget        decimal.Decimal            `json:"budget" binding:"required"`
	Currency      string                     `json:"currency" binding:"required"`
	Actual        decimal.Decimal            `json:"actual"`
	PaymentNumber int                        `json:"payment_number" binding:"required"`
	Policy        domain.RecalculationPolicy `json:"policy,omitempty"`
}

// MinimumBudgetResponse reports the smallest budget meeting every deadline.
type MinimumBudgetResponse struct {
	MinimumBudget decimal.Decimal `json:"minimum_budget"`
	Currency      string          `json:"currency"`
}

// TimelineResponse carries the aggregated per-goal timeline blocks.
type TimelineResponse struct {
	Blocks []domain.ScheduledGoalBlock `json:"blocks"`
}

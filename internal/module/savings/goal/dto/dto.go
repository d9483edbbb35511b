package dto

import (
	"github.com/shopspring/decimal"

	"savingsplanner/internal/module/savings/calendar"
	"savingsplanner/internal/module/savings/goal/domain"
)

// CreateGoalRequest is the payload to create a new savings goal.
type CreateGoalRequest struct {
	Name     string            `json:"name" binding:"required"`
	Currency string            `json:"currency" binding:"required"`
	Target   decimal.Decimal   `json:"target" binding:"required"`
	Deadline calendar.EpochDay `json:"deadline" binding:"required"`
	Priority domain.Priority   `json:"priority,omitempty"`
	Category *string           `json:"category,omitempty"`
}

// UpdateGoalRequest patches an existing goal. Nil fields are left unchanged.
type UpdateGoalRequest struct {
	Name     *string            `json:"name,omitempty"`
	Target   *decimal.Decimal   `json:"target,omitempty"`
	Deadline *calendar.EpochDay `json:"deadline,omitempty"`
	Priority *domain.Priority   `json:"priority,omitempty"`
	Category *string            `json:"category,omitempty"`
}

// TransitionRequest requests a lifecycle change.
type TransitionRequest struct {
	Lifecycle domain.Lifecycle `json:"lifecycle" binding:"required"`
}

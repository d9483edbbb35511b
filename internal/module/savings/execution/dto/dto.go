package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StartRequest begins tracking a month.
type StartRequest struct {
	MonthLabel string `json:"month_label" binding:"required"`
}

// ContributionRequest logs a contribution against an executing record.
type ContributionRequest struct {
	GoalID        uuid.UUID       `json:"goal_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
}

// RemainingResponse carries the remaining-to-close prefill for one goal.
// Amount is null when the conversion rate was unavailable.
type RemainingResponse struct {
	GoalID   uuid.UUID        `json:"goal_id"`
	Currency string           `json:"currency"`
	Amount   *decimal.Decimal `json:"amount"`
}

// Package domain holds the requirement calculator's output shape: how much
// a goal needs per month to stay on schedule, and the coarse status band
// that figure places it in.
package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status classifies how a goal is tracking against its deadline. Unlike
// Goal.Lifecycle it is derived, never stored as truth: every computation
// re-derives it from the goal's remaining amount and months left.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusOnTrack   Status = "on_track"
	StatusAttention Status = "attention"
	StatusCritical  Status = "critical"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusCompleted, StatusOnTrack, StatusAttention, StatusCritical:
		return true
	default:
		return false
	}
}

// Classification thresholds. Critical means the goal is effectively out of
// time with most of the target still unfunded; attention means the monthly
// ask is a large share of the whole target.
var (
	criticalRemainingShare = decimal.NewFromFloat(0.8)
	attentionMonthlyShare  = decimal.NewFromFloat(0.5)
)

// Classify derives the Status for a goal with the given target, remaining
// amount, and months left until its deadline.
func Classify(target, remaining decimal.Decimal, monthsRemaining int, requiredMonthly decimal.Decimal) Status {
	if remaining.IsZero() {
		return StatusCompleted
	}
	if monthsRemaining <= 1 && remaining.GreaterThan(target.Mul(criticalRemainingShare)) {
		return StatusCritical
	}
	if requiredMonthly.GreaterThan(target.Mul(attentionMonthlyShare)) {
		return StatusAttention
	}
	return StatusOnTrack
}

// Requirement is the per-goal monthly requirement: what the goal still
// needs, over how many payment anchors, and the status band that implies.
// All amounts are in the goal's own currency.
type Requirement struct {
	GoalID          uuid.UUID       `json:"goal_id"`
	Currency        string          `json:"currency"`
	Target          decimal.Decimal `json:"target"`
	CurrentTotal    decimal.Decimal `json:"current_total"`
	Remaining       decimal.Decimal `json:"remaining"`
	MonthsRemaining int             `json:"months_remaining"`
	RequiredMonthly decimal.Decimal `json:"required_monthly"`
	Status          Status          `json:"status"`
}

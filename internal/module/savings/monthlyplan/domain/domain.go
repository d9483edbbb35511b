// Package domain holds the MonthlyGoalPlan aggregate: one row per goal per
// month recording what the requirement calculator asked for, the user's
// overrides (protect, skip, custom amount), and where the row sits in the
// draft → executing → completed lifecycle.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	reqdomain "savingsplanner/internal/module/savings/requirement/domain"
)

// State is the plan row's execution lifecycle. Draft rows are freely
// editable; executing rows belong to a started execution record and remain
// editable; completed rows are frozen history.
type State string

const (
	StateDraft     State = "draft"
	StateExecuting State = "executing"
	StateCompleted State = "completed"
)

func (s State) IsValid() bool {
	switch s {
	case StateDraft, StateExecuting, StateCompleted:
		return true
	default:
		return false
	}
}

// Editable reports whether override fields may still change in this state.
func (s State) Editable() bool {
	return s == StateDraft || s == StateExecuting
}

// MonthlyGoalPlan is the per-goal per-month planning row. Unique on
// (MonthLabel, GoalID).
type MonthlyGoalPlan struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GoalID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_plan_month_goal;column:goal_id" json:"goal_id"`
	MonthLabel string    `gorm:"type:varchar(7);not null;uniqueIndex:idx_plan_month_goal;column:month_label" json:"month_label"`

	RequiredMonthly decimal.Decimal  `gorm:"type:decimal(24,8);not null;column:required_monthly" json:"required_monthly"`
	Remaining       decimal.Decimal  `gorm:"type:decimal(24,8);not null;column:remaining" json:"remaining"`
	MonthsRemaining int              `gorm:"not null;column:months_remaining" json:"months_remaining"`
	Currency        string           `gorm:"type:varchar(10);not null;column:currency" json:"currency"`
	Status          reqdomain.Status `gorm:"type:varchar(20);not null;column:status" json:"status"`
	State           State            `gorm:"type:varchar(20);not null;default:'draft';column:state" json:"state"`

	CustomAmount *decimal.Decimal `gorm:"type:decimal(24,8);column:custom_amount" json:"custom_amount,omitempty"`
	IsProtected  bool             `gorm:"not null;default:false;column:is_protected" json:"is_protected"`
	IsSkipped    bool             `gorm:"not null;default:false;column:is_skipped" json:"is_skipped"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"deleted_at,omitempty"`
}

func (MonthlyGoalPlan) TableName() string { return "savings_monthly_goal_plans" }

// EffectiveAmount is what the month actually plans to contribute: zero
// when skipped, the custom amount when one is set, otherwise the computed
// requirement.
func (p *MonthlyGoalPlan) EffectiveAmount() decimal.Decimal {
	if p.IsSkipped {
		return decimal.Zero
	}
	if p.CustomAmount != nil {
		return *p.CustomAmount
	}
	return p.RequiredMonthly
}

// CanTransitionTo reports whether the plan may move directly to next.
func (p *MonthlyGoalPlan) CanTransitionTo(next State) bool {
	switch p.State {
	case StateDraft:
		return next == StateExecuting
	case StateExecuting:
		return next == StateCompleted || next == StateExecuting
	case StateCompleted:
		// Completed rows only move back when an execution record is
		// reopened inside the undo window.
		return next == StateExecuting
	default:
		return false
	}
}

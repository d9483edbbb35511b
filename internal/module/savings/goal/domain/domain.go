// Package domain holds the Goal aggregate: a target amount of a given
// currency by a given deadline, plus the lifecycle and reminder state
// layered on top of it.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/calendar"
)

// Goal is a named savings target: an amount of Currency to reach by
// Deadline. Amounts are decimal, never float64; dates are epoch days, never
// time.Time, so a goal's deadline reads the same regardless of the
// reader's timezone.
type Goal struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`

	Name     string          `gorm:"type:varchar(255);not null;column:name" json:"name"`
	Currency string          `gorm:"type:varchar(10);not null;column:currency" json:"currency"`
	Target   decimal.Decimal `gorm:"type:decimal(24,8);not null;column:target" json:"target"`

	Deadline calendar.EpochDay `gorm:"not null;column:deadline" json:"deadline"`

	Lifecycle Lifecycle `gorm:"type:varchar(20);not null;default:'active';column:lifecycle" json:"lifecycle"`
	Priority  Priority  `gorm:"type:varchar(20);not null;default:'medium';column:priority" json:"priority"`
	Category  *string   `gorm:"type:varchar(100);column:category" json:"category,omitempty"`

	Reminder Reminder `gorm:"type:jsonb;column:reminder" json:"reminder"`

	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"deleted_at,omitempty"`
}

func (Goal) TableName() string { return "savings_goals" }

// Complete transitions the goal to completed, stamping CompletedAt.
func (g *Goal) Complete(now time.Time) {
	g.Lifecycle = LifecycleCompleted
	g.CompletedAt = &now
}

// IsOverdue reports whether the goal is past its deadline and not
// completed or archived.
func (g *Goal) IsOverdue(today calendar.EpochDay) bool {
	if g.Lifecycle == LifecycleCompleted || g.Lifecycle == LifecycleArchived {
		return false
	}
	return today.After(g.Deadline)
}

// DaysRemaining returns the whole days between today and the deadline,
// zero or negative once the deadline has passed.
func (g *Goal) DaysRemaining(today calendar.EpochDay) int {
	return int(g.Deadline) - int(today)
}

// FundedPortion computes how much of Target the given currentTotal
// satisfies, clamped to [0,1]. currentTotal is already expressed in the
// goal's Currency by the caller (the allocation engine owns conversion).
func (g *Goal) FundedPortion(currentTotal decimal.Decimal) decimal.Decimal {
	if g.Target.IsZero() {
		return decimal.Zero
	}
	portion := currentTotal.Div(g.Target)
	if portion.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return core.ClampNonNegative(portion)
}

// Package domain holds the Allocation aggregate (a goal's claim on a
// fixed amount of an asset's balance) and its append-only AllocationHistory
// trail.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"savingsplanner/internal/module/savings/calendar"
)

// Allocation claims Amount of an Asset's balance on behalf of a Goal. At
// most one Allocation exists per (AssetID, GoalID) pair.
type Allocation struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssetID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_asset_goal;column:asset_id" json:"asset_id"`
	GoalID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_asset_goal;column:goal_id" json:"goal_id"`

	Amount decimal.Decimal `gorm:"type:decimal(24,8);not null;column:amount" json:"amount"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"deleted_at,omitempty"`
}

func (Allocation) TableName() string { return "savings_allocations" }

// History is an append-only row recording a change to an allocation's
// amount, keyed to the month it occurred in so the allocation engine can
// reconstruct "what was allocated when" for the timeline views.
type History struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssetID uuid.UUID `gorm:"type:uuid;not null;index;column:asset_id" json:"asset_id"`
	GoalID  uuid.UUID `gorm:"type:uuid;not null;index;column:goal_id" json:"goal_id"`

	Amount     decimal.Decimal      `gorm:"type:decimal(24,8);not null;column:amount" json:"amount"`
	MonthLabel string               `gorm:"type:varchar(7);not null;column:month_label" json:"month_label"`
	Timestamp  calendar.EpochMillis `gorm:"not null;column:timestamp" json:"timestamp"`
}

func (History) TableName() string { return "savings_allocation_history" }

// Package domain holds the execution tracker's aggregates: the per-month
// ExecutionRecord state machine, the immutable ExecutionSnapshot rows it
// freezes plans into, and the CompletedExecution contribution ledger the
// close/undo accounting reads.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"savingsplanner/internal/module/savings/calendar"
)

// Status is the record's lifecycle position.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusExecuting Status = "executing"
	StatusClosed    Status = "closed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusExecuting, StatusClosed:
		return true
	default:
		return false
	}
}

// ExecutionRecord tracks one month's execution. At most one record exists
// per month label, and at most one non-closed record exists at a time
// across all months.
type ExecutionRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	MonthLabel string    `gorm:"type:varchar(7);not null;uniqueIndex;column:month_label" json:"month_label"`

	Status  Status                        `gorm:"type:varchar(20);not null;default:'draft';column:status" json:"status"`
	GoalIDs datatypes.JSONSlice[uuid.UUID] `gorm:"column:goal_ids" json:"goal_ids"`

	StartedAt *calendar.EpochMillis `gorm:"column:started_at" json:"started_at,omitempty"`
	ClosedAt  *calendar.EpochMillis `gorm:"column:closed_at" json:"closed_at,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"deleted_at,omitempty"`
}

func (ExecutionRecord) TableName() string { return "savings_execution_records" }

// Start transitions a draft record to executing, stamping StartedAt.
func (r *ExecutionRecord) Start(now calendar.EpochMillis) bool {
	if r.Status != StatusDraft {
		return false
	}
	r.Status = StatusExecuting
	r.StartedAt = &now
	return true
}

// Close transitions an executing record to closed, stamping ClosedAt.
func (r *ExecutionRecord) Close(now calendar.EpochMillis) bool {
	if r.Status != StatusExecuting {
		return false
	}
	r.Status = StatusClosed
	r.ClosedAt = &now
	return true
}

// WithinUndoWindow reports whether a closed record may still be reopened
// at `now` under the given grace period. A zero grace period disables
// undo entirely.
func (r *ExecutionRecord) WithinUndoWindow(now calendar.EpochMillis, graceHours int) bool {
	if r.Status != StatusClosed || r.ClosedAt == nil || graceHours <= 0 {
		return false
	}
	window := time.Duration(graceHours) * time.Hour
	elapsed := time.Duration(int64(now)-int64(*r.ClosedAt)) * time.Millisecond
	return elapsed >= 0 && elapsed <= window
}

// Reopen returns a closed record to executing. The caller checks the undo
// window first; Reopen only enforces the state.
func (r *ExecutionRecord) Reopen() bool {
	if r.Status != StatusClosed {
		return false
	}
	r.Status = StatusExecuting
	r.ClosedAt = nil
	return true
}

// ExecutionSnapshot freezes one goal's plan figures at the moment its
// record started executing. Immutable once written: contributions and
// close accounting always read the snapshot, never the live plan row.
type ExecutionSnapshot struct {
	ID                uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExecutionRecordID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_record_goal;column:execution_record_id" json:"execution_record_id"`
	GoalID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_record_goal;column:goal_id" json:"goal_id"`

	GoalName            string          `gorm:"type:varchar(255);not null;column:goal_name" json:"goal_name"`
	Currency            string          `gorm:"type:varchar(10);not null;column:currency" json:"currency"`
	TargetAmount        decimal.Decimal `gorm:"type:decimal(24,8);not null;column:target_amount" json:"target_amount"`
	CurrentTotalAtStart decimal.Decimal `gorm:"type:decimal(24,8);not null;column:current_total_at_start" json:"current_total_at_start"`
	RequiredAmount      decimal.Decimal `gorm:"type:decimal(24,8);not null;column:required_amount" json:"required_amount"`

	IsProtected  bool             `gorm:"not null;default:false;column:is_protected" json:"is_protected"`
	IsSkipped    bool             `gorm:"not null;default:false;column:is_skipped" json:"is_skipped"`
	CustomAmount *decimal.Decimal `gorm:"type:decimal(24,8);column:custom_amount" json:"custom_amount,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (ExecutionSnapshot) TableName() string { return "savings_execution_snapshots" }

// PlannedAmount is the amount the snapshot committed the month to: zero
// when skipped, the custom amount when one was set, otherwise the
// snapshotted requirement.
func (s *ExecutionSnapshot) PlannedAmount() decimal.Decimal {
	if s.IsSkipped {
		return decimal.Zero
	}
	if s.CustomAmount != nil {
		return *s.CustomAmount
	}
	return s.RequiredAmount
}

// CompletedExecution records one contribution made against a goal while
// its record was executing, in the goal's currency. Summed per goal at
// close time and replayed for undo accounting.
type CompletedExecution struct {
	ID                uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExecutionRecordID uuid.UUID `gorm:"type:uuid;not null;index;column:execution_record_id" json:"execution_record_id"`
	GoalID            uuid.UUID `gorm:"type:uuid;not null;index;column:goal_id" json:"goal_id"`

	ContributedAmount decimal.Decimal `gorm:"type:decimal(24,8);not null;column:contributed_amount" json:"contributed_amount"`
	// TransactionID links the contribution to the transaction that funded
	// it, when one exists.
	TransactionID *uuid.UUID           `gorm:"type:uuid;column:transaction_id" json:"transaction_id,omitempty"`
	RecordedAt    calendar.EpochMillis `gorm:"not null;column:recorded_at" json:"recorded_at"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (CompletedExecution) TableName() string { return "savings_completed_executions" }

// GoalSummary is one goal's close accounting: planned vs contributed.
type GoalSummary struct {
	GoalID      uuid.UUID       `json:"goal_id"`
	GoalName    string          `json:"goal_name"`
	Currency    string          `json:"currency"`
	Planned     decimal.Decimal `json:"planned"`
	Contributed decimal.Decimal `json:"contributed"`
}

// CompletedSummary is the result of closing a record.
type CompletedSummary struct {
	RecordID   uuid.UUID            `json:"record_id"`
	MonthLabel string               `json:"month_label"`
	ClosedAt   calendar.EpochMillis `json:"closed_at"`
	Goals      []GoalSummary        `json:"goals"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecalculationPolicy controls how a fixed-budget plan responds to an
// out-of-band contribution against a goal it has already scheduled.
type RecalculationPolicy string

const (
	// RecalcKeepPace re-levels the remaining schedule to still hit every
	// goal's deadline, shrinking future contributions by the surplus.
	RecalcKeepPace RecalculationPolicy = "keep_pace"
	// RecalcBankSurplus leaves the remaining schedule untouched and lets
	// the goal finish early.
	RecalcBankSurplus RecalculationPolicy = "bank_surplus"
)

func (p RecalculationPolicy) IsValid() bool {
	switch p {
	case RecalcKeepPace, RecalcBankSurplus:
		return true
	default:
		return false
	}
}

// UndoGraceHours enumerates the only accepted undo-grace-period values.
var UndoGraceHours = []int{0, 24, 48, 168}

func isValidUndoGrace(hours int) bool {
	for _, h := range UndoGraceHours {
		if h == hours {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Settings is the singleton-per-user planning configuration: the
// payment calendar anchor, the recalculation policy, the scheduler toggles,
// the undo grace window, the persisted budget, and a rate-fallback maximum
// age. RateFallbackMaxAgeDays is carried into the settings snapshot; the rate
// provider does not read it, and its stale fallback serves a cached rate of
// any age.
type Settings struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"user_id"`

	PaymentDay             int                 `gorm:"not null;default:1;column:payment_day" json:"payment_day"`
	RecalculationPolicy    RecalculationPolicy `gorm:"type:varchar(20);not null;default:'keep_pace';column:recalculation_policy" json:"recalculation_policy"`
	AutoStartEnabled       bool                `gorm:"not null;default:false;column:auto_start_enabled" json:"auto_start_enabled"`
	AutoCompleteEnabled    bool                `gorm:"not null;default:false;column:auto_complete_enabled" json:"auto_complete_enabled"`
	RateFallbackMaxAgeDays int                 `gorm:"not null;default:7;column:rate_fallback_max_age_days" json:"rate_fallback_max_age_days"`

	// DisplayCurrency is the currency the planner aggregates goal totals
	// and schedules into when the caller doesn't pin one explicitly.
	DisplayCurrency string `gorm:"type:varchar(10);not null;default:'USD';column:display_currency" json:"display_currency"`
	// ExecutionDisplayCurrency is the currency "remaining to close" prefill
	// values are converted into; defaults to DisplayCurrency when blank.
	ExecutionDisplayCurrency string `gorm:"type:varchar(10);not null;default:'USD';column:execution_display_currency" json:"execution_display_currency"`

	NotificationsEnabled bool `gorm:"not null;default:false;column:notifications_enabled" json:"notifications_enabled"`
	// NotificationDays is clamped to [1,7]: how many days before a payment
	// anchor the (external) reminder worker is told to fire.
	NotificationDays int `gorm:"not null;default:3;column:notification_days" json:"notification_days"`

	// UndoGracePeriodHours must be one of UndoGraceHours; it bounds how long
	// after ExecutionRecord.ClosedAt a reopen is still permitted.
	UndoGracePeriodHours int `gorm:"not null;default:24;column:undo_grace_period_hours" json:"undo_grace_period_hours"`

	// MonthlyBudget is the persisted user-chosen fixed-budget planner input;
	// nil means the user has not chosen one and the caller should fall back
	// to MinimumBudget.
	MonthlyBudget  *decimal.Decimal `gorm:"type:decimal(24,8);column:monthly_budget" json:"monthly_budget,omitempty"`
	BudgetCurrency string           `gorm:"type:varchar(10);not null;default:'USD';column:budget_currency" json:"budget_currency"`

	// Version increments on every write and is the cache key every other
	// module's settings-derived cache is stamped with; a stale Version
	// compared against the store's current Version is the invalidation
	// signal, without anyone needing to subscribe to a settings event.
	Version int64 `gorm:"not null;default:1;column:version" json:"version"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"deleted_at,omitempty"`
}

func (Settings) TableName() string { return "planning_settings" }

// Defaults returns a Settings row with the documented defaults for user.
func Defaults(userID uuid.UUID) Settings {
	return Settings{
		UserID:                   userID,
		PaymentDay:               1,
		RecalculationPolicy:      RecalcKeepPace,
		AutoStartEnabled:         false,
		AutoCompleteEnabled:      false,
		RateFallbackMaxAgeDays:   7,
		DisplayCurrency:          "USD",
		ExecutionDisplayCurrency: "USD",
		NotificationsEnabled:     false,
		NotificationDays:         3,
		UndoGracePeriodHours:     24,
		BudgetCurrency:           "USD",
		Version:                 1,
	}
}

// Normalize clamps/derives fields that have dependent defaults: payment day
// to [1,28], notification days to [1,7], and an empty execution display
// currency to the aggregation display currency.
func (s *Settings) Normalize() {
	s.PaymentDay = clamp(s.PaymentDay, 1, 28)
	s.NotificationDays = clamp(s.NotificationDays, 1, 7)
	if s.ExecutionDisplayCurrency == "" {
		s.ExecutionDisplayCurrency = s.DisplayCurrency
	}
}

// ValidateUndoGrace reports whether UndoGracePeriodHours is one of the
// accepted enumerated values.
func (s *Settings) ValidateUndoGrace() bool {
	return isValidUndoGrace(s.UndoGracePeriodHours)
}

package core

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettingsSnapshot is the subset of planning settings components outside the
// settings module are allowed to read. It is a value, not a pointer to live
// config, so a planner run is never affected by a settings change mid-run.
type SettingsSnapshot struct {
	Version                  int64
	PaymentDay               int
	RecalculationPolicy      string
	AutoStartEnabled         bool
	AutoCompleteEnabled      bool
	RateFallbackMaxAgeDays   int
	DisplayCurrency          string
	ExecutionDisplayCurrency string
	NotificationsEnabled     bool
	NotificationDays         int
	UndoGracePeriodHours     int
	MonthlyBudget            *decimal.Decimal
	BudgetCurrency           string
}

// CoreContext bundles the external ports and current settings snapshot that
// the allocation, requirement, and planner services need but must not reach
// for through a process-wide singleton. One CoreContext is built per
// request/run and threaded explicitly through service calls.
type CoreContext struct {
	Settings             SettingsSnapshot
	RateProvider         RateProvider
	OnChainBalance       OnChainBalanceProvider
	Transactions         TransactionProvider
	Logger               *zap.Logger
}

// NewCoreContext constructs a CoreContext from its parts.
func NewCoreContext(settings SettingsSnapshot, rates RateProvider, onChain OnChainBalanceProvider, txs TransactionProvider, logger *zap.Logger) CoreContext {
	return CoreContext{
		Settings:       settings,
		RateProvider:   rates,
		OnChainBalance: onChain,
		Transactions:   txs,
		Logger:         logger,
	}
}

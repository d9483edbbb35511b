package fx

import (
	"savingsplanner/internal/config"
	"savingsplanner/internal/module/savings/allocation"
	"savingsplanner/internal/module/savings/asset"
	"savingsplanner/internal/module/savings/execution"
	"savingsplanner/internal/module/savings/goal"
	"savingsplanner/internal/module/savings/monthlyplan"
	"savingsplanner/internal/module/savings/planner"
	"savingsplanner/internal/module/savings/rate"
	"savingsplanner/internal/module/savings/requirement"
	"savingsplanner/internal/module/savings/settings"
	"savingsplanner/internal/module/savings/transaction"

	"go.uber.org/fx"
)

// Application creates the main FX application with all modules
func Application() *fx.App {
	options := []fx.Option{
		// Core modules
		CoreModule,

		// Feature modules, leaves first
		settings.Module,
		rate.Module,
		asset.Module,
		transaction.Module,
		goal.Module,
		allocation.Module,
		requirement.Module,
		planner.Module,
		monthlyplan.Module,
		execution.Module,

		// App module (wires everything together)
		AppModule,
	}

	// Suppress FX logs in production for cleaner output
	if config.IsProduction() {
		options = append(options, fx.NopLogger)
	}

	return fx.New(options...)
}

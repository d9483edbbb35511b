package execution

import (
	"go.uber.org/fx"

	"savingsplanner/internal/module/savings/execution/handler"
	"savingsplanner/internal/module/savings/execution/repository"
	"savingsplanner/internal/module/savings/execution/service"
	"savingsplanner/internal/module/savings/execution/worker"
	monthlyplanservice "savingsplanner/internal/module/savings/monthlyplan/service"
	requirementservice "savingsplanner/internal/module/savings/requirement/service"
	settingsrepository "savingsplanner/internal/module/savings/settings/repository"
)

// newPlanStore narrows the monthly plan Service to the transitions the
// tracker drives.
func newPlanStore(plans monthlyplanservice.Service) service.PlanStore {
	return plans
}

// newCurrentTotals narrows the requirement Service to snapshot reads.
func newCurrentTotals(reqs requirementservice.Service) service.CurrentTotals {
	return reqs
}

// newAutoUserSource narrows the settings repository for the scheduler.
func newAutoUserSource(repo settingsrepository.Repository) worker.AutoUserSource {
	return repo
}

// Module provides the execution tracker dependencies.
var Module = fx.Module("savings-execution",
	fx.Provide(
		fx.Annotate(
			repository.New,
			fx.As(new(repository.Repository)),
		),
		newPlanStore,
		newCurrentTotals,
		newAutoUserSource,
		fx.Annotate(
			service.New,
			fx.As(new(service.Service)),
		),
		worker.NewScheduler,
		handler.NewHandler,
	),
)

package planner

import (
	"go.uber.org/fx"

	"savingsplanner/internal/module/savings/planner/handler"
	"savingsplanner/internal/module/savings/planner/service"
	requirementservice "savingsplanner/internal/module/savings/requirement/service"
)

// newCurrentTotals narrows the requirement Service to the single read the
// planner performs.
func newCurrentTotals(reqs requirementservice.Service) service.CurrentTotals {
	return reqs
}

// Module provides the fixed-budget planner dependencies.
var Module = fx.Module("savings-planner",
	fx.Provide(
		newCurrentTotals,
		fx.Annotate(
			service.New,
			fx.As(new(service.Service)),
		),
		handler.NewHandler,
	),
)

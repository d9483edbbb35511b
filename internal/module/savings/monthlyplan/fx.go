package monthlyplan

import (
	"go.uber.org/fx"

	"savingsplanner/internal/module/savings/monthlyplan/handler"
	"savingsplanner/internal/module/savings/monthlyplan/repository"
	"savingsplanner/internal/module/savings/monthlyplan/service"
)

// Module provides the monthly plan store dependencies.
var Module = fx.Module("savings-monthlyplan",
	fx.Provide(
		fx.Annotate(
			repository.New,
			fx.As(new(repository.Repository)),
		),
		fx.Annotate(
			service.New,
			fx.As(new(service.Service)),
		),
		handler.NewHandler,
	),
)

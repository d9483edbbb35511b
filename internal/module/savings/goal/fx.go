package goal

import (
	"go.uber.org/fx"

	"savingsplanner/internal/module/savings/goal/handler"
	"savingsplanner/internal/module/savings/goal/repository"
	"savingsplanner/internal/module/savings/goal/service"
)

// Module provides goal module dependencies.
var Module = fx.Module("savings-goal",
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

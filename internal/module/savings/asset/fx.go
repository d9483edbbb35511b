package asset

import (
	"go.uber.org/fx"

	"savingsplanner/internal/module/savings/asset/repository"
	"savingsplanner/internal/module/savings/asset/service"
)

// Module provides the asset module dependencies.
var Module = fx.Module("savings-asset",
	fx.Provide(
		fx.Annotate(
			repository.New,
			fx.As(new(repository.Repository)),
		),
		fx.Annotate(
			service.New,
			fx.As(new(service.Service)),
		),
	),
)

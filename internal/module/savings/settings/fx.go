package settings

import (
	"go.uber.org/fx"

	"savingsplanner/internal/module/savings/settings/repository"
	"savingsplanner/internal/module/savings/settings/service"
)

// Module provides the planning settings dependencies.
var Module = fx.Module("savings-settings",
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

package transaction

import (
	"go.uber.org/fx"

	"savingsplanner/internal/module/savings/transaction/repository"
	"savingsplanner/internal/module/savings/transaction/service"
)

// Module provides the transaction module dependencies.
var Module = fx.Module("savings-transaction",
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

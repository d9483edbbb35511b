package allocation

import (
	"go.uber.org/fx"

	assetservice "savingsplanner/internal/module/savings/asset/service"
	"savingsplanner/internal/module/savings/allocation/repository"
	"savingsplanner/internal/module/savings/allocation/service"
)

// asBalanceResolver narrows the asset Service down to the single method the
// allocation engine needs, so it depends only on what it uses rather than
// the whole asset CRUD surface.
func asBalanceResolver(a assetservice.Service) service.BalanceResolver {
	return a
}

// Module provides the allocation engine dependencies.
var Module = fx.Module("savings-allocation",
	fx.Provide(
		fx.Annotate(
			repository.New,
			fx.As(new(repository.Repository)),
		),
		asBalanceResolver,
		fx.Annotate(
			service.New,
			fx.As(new(service.Service)),
		),
	),
)

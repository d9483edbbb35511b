package requirement

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/fx"

	allocationservice "savingsplanner/internal/module/savings/allocation/service"
	assetservice "savingsplanner/internal/module/savings/asset/service"
	"savingsplanner/internal/module/savings/requirement/service"
)

// newAllocationReader narrows the allocation Service: it already exposes
// ListByGoal and FundedPortions with the shapes the calculator consumes.
func newAllocationReader(allocs allocationservice.Service) service.AllocationReader {
	return allocs
}

// assetCurrencyResolver narrows the asset Service down to the currency
// lookup the requirement calculator needs.
type assetCurrencyResolver struct {
	assets assetservice.Service
}

func (r assetCurrencyResolver) CurrencyCode(ctx context.Context, assetID uuid.UUID) (string, error) {
	a, err := r.assets.Get(ctx, assetID)
	if err != nil {
		return "", err
	}
	return a.CurrencyCode, nil
}

func newAssetCurrencyResolver(assets assetservice.Service) service.AssetCurrencyResolver {
	return assetCurrencyResolver{assets: assets}
}

// Module provides the requirement calculator dependencies.
var Module = fx.Module("savings-requirement",
	fx.Provide(
		newAllocationReader,
		newAssetCurrencyResolver,
		fx.Annotate(
			service.New,
			fx.As(new(service.Service)),
		),
	),
)

package rate

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"savingsplanner/internal/config"
	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/rate/repository"
	"savingsplanner/internal/module/savings/rate/service"
	"savingsplanner/internal/module/savings/rate/source/okx"
)

// newRepository picks the durable write-through store: redis when a
// connection is configured, the database otherwise. Either way the rate
// provider's in-memory cache stays primary.
func newRepository(cfg *config.Config, db *gorm.DB, client *redis.Client) repository.Repository {
	if cfg.Redis.Enabled && client != nil {
		return repository.NewRedis(client)
	}
	return repository.New(db)
}

// newSource is the default upstream: OKX public market data.
func newSource() service.Source {
	return okx.New()
}

func newProvider(src service.Source, repo repository.Repository, cfg *config.Config, logger *zap.Logger) core.RateProvider {
	return service.New(src, repo, logger, cfg.Rates.RequestsPerSecond, cfg.Rates.Burst)
}

// Module provides the rate provider dependencies.
var Module = fx.Module("savings-rate",
	fx.Provide(
		newRepository,
		newSource,
		newProvider,
	),
)

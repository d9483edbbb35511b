package fx

import (
	"context"
	"net/http"
	"time"

	"savingsplanner/internal/config"
	"savingsplanner/internal/database"
	allocationmigrate "savingsplanner/internal/module/savings/allocation/migrate"
	allocationrepo "savingsplanner/internal/module/savings/allocation/repository"
	assetservice "savingsplanner/internal/module/savings/asset/service"
	"savingsplanner/internal/core"
	executionhandler "savingsplanner/internal/module/savings/execution/handler"
	executionworker "savingsplanner/internal/module/savings/execution/worker"
	goalhandler "savingsplanner/internal/module/savings/goal/handler"
	monthlyplanhandler "savingsplanner/internal/module/savings/monthlyplan/handler"
	plannerhandler "savingsplanner/internal/module/savings/planner/handler"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AppModule provides the main application dependencies
var AppModule = fx.Module("app",
	fx.Invoke(
		// Run migrations and seeding (must run before server starts)
		RunMigrationsAndSeeding,

		// Register routes
		RegisterRoutes,

		// Arm the auto-start/auto-close scheduler
		StartScheduler,

		// Start server
		StartServer,
	),
)

// RegisterRoutes registers all API routes
func RegisterRoutes(
	router *gin.Engine,
	goalH *goalhandler.Handler,
	plannerH *plannerhandler.Handler,
	monthlyplanH *monthlyplanhandler.Handler,
	executionH *executionhandler.Handler,
	logger *zap.Logger,
) {
	logger.Info("=== Route Registration Phase ===")

	logger.Info("Registering goal routes...")
	goalH.RegisterRoutes(router)

	logger.Info("Registering planner routes...")
	plannerH.RegisterRoutes(router)

	logger.Info("Registering monthly plan routes...")
	monthlyplanH.RegisterRoutes(router)

	logger.Info("Registering execution routes...")
	executionH.RegisterRoutes(router)

	logger.Info("✅ All routes registered successfully")
}

// RunMigrationsAndSeeding runs database migrations, the one-shot legacy
// allocation upgrade, and optional demo seeding
func RunMigrationsAndSeeding(
	db *gorm.DB,
	cfg *config.Config,
	allocRepo allocationrepo.Repository,
	assets assetservice.Service,
	txs core.TransactionProvider,
	logger *zap.Logger,
) {
	logger.Info("=== Database Migration & Seeding Phase ===")

	// Run auto migrations
	logger.Info("Starting database migrations...")
	if err := database.AutoMigrate(db, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// One-shot upgrade of legacy percentage allocations to fixed amounts.
	// The load-time context carries only the transaction provider: legacy
	// rows predate on-chain tracking, so manual balances decide the fix.
	migrator := allocationmigrate.New(db, allocRepo, assets, logger)
	cc := core.CoreContext{Transactions: txs, Logger: logger}
	if err := migrator.Run(context.Background(), cc); err != nil {
		logger.Warn("⚠️  Legacy allocation migration failed", zap.Error(err))
	}

	// Run seeding (development mode or when explicitly enabled)
	if config.IsDevelopment() || cfg.Seeding.Enabled {
		logger.Info("Running database seeding...")
		seeder := database.NewSeeder(db, logger)
		if err := seeder.SeedAll(context.Background()); err != nil {
			logger.Warn("⚠️  Seeding failed", zap.Error(err))
			// Don't fatal on seeding errors, just warn
		}
	} else {
		logger.Info("Skipping database seeding (production mode)")
	}

	logger.Info("=== Migration & Seeding Complete ===")
}

// StartScheduler arms the daily auto-start/auto-close pass when enabled.
func StartScheduler(lc fx.Lifecycle, scheduler *executionworker.Scheduler, cfg *config.Config, logger *zap.Logger) {
	if !cfg.Scheduler.Enabled {
		logger.Info("Execution scheduler disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		},
	})
}

// StartServer starts the HTTP server with graceful shutdown
func StartServer(lc fx.Lifecycle, router *gin.Engine, cfg *config.Config, logger *zap.Logger) {
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("🚀 Starting HTTP server",
					zap.String("addr", server.Addr),
					zap.Duration("read_timeout", 15*time.Second),
					zap.Duration("write_timeout", 15*time.Second),
					zap.Duration("idle_timeout", 60*time.Second),
				)
				logger.Info("Server URLs",
					zap.String("base", "http://"+cfg.Server.Host+":"+cfg.Server.Port),
					zap.String("swagger", "http://"+cfg.Server.Host+":"+cfg.Server.Port+"/swagger/index.html"),
					zap.String("health", "http://"+cfg.Server.Host+":"+cfg.Server.Port+"/health"),
				)

				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("Failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", zap.Error(err))
				return err
			}

			logger.Info("✅ Server gracefully stopped")
			return nil
		},
	})
}

package fx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"savingsplanner/internal/config"
	"savingsplanner/internal/core"
	"savingsplanner/internal/logger"
	"savingsplanner/internal/middleware"
	"savingsplanner/internal/module/savings/events"
	executionhandler "savingsplanner/internal/module/savings/execution/handler"
	executionworker "savingsplanner/internal/module/savings/execution/worker"
	plannerhandler "savingsplanner/internal/module/savings/planner/handler"
	settingsservice "savingsplanner/internal/module/savings/settings/service"
	transactionservice "savingsplanner/internal/module/savings/transaction/service"
	"savingsplanner/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// CoreModule provides core application dependencies
var CoreModule = fx.Module("core",
	fx.Provide(
		// Configuration
		config.Load,

		// Logger (must be early)
		NewLogger,

		// Database
		NewDatabase,

		// Redis (optional; nil when disabled)
		NewRedisClient,

		// Gin router
		NewGinRouter,

		// Typed event bus shared across the savings modules
		events.NewBus,

		// Core context factory and its per-consumer narrowings
		NewCoreContextFactory,
		NewTransactionProvider,
		AsPlannerContextFactory,
		AsExecutionContextFactory,
		AsWorkerContextFactory,

		// Middlewares
		middleware.NewCORS,
	),
)

// NewLogger creates a new zap logger based on config
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Info("Logger initialized",
		zap.String("level", cfg.Logging.Level),
		zap.String("format", cfg.Logging.Format),
	)

	return log, nil
}

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	log.Info("Connecting to database...",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Name),
		zap.String("user", cfg.Database.User),
	)
	var dsn string

	// Use DATABASE_URL if available, otherwise construct from components
	if cfg.Database.URL != "" {
		dsn = cfg.Database.URL
	} else {
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Pass,
			cfg.Database.Name,
		)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})

	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Get underlying *sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		log.Error("Failed to get database instance", zap.Error(err))
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("Successfully connected to database",
		zap.Int("max_idle_conns", 10),
		zap.Int("max_open_conns", 100),
		zap.Duration("conn_max_lifetime", time.Hour),
	)
	return db, nil
}

// NewRedisClient builds the optional redis connection. Returns nil when
// redis is disabled; consumers fall back to their database-backed path.
func NewRedisClient(cfg *config.Config, log *zap.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		log.Info("Redis disabled - using database-backed rate write-through")
		return nil
	}
	return config.NewRedisClient(cfg, log)
}

// CoreContextFactory builds the per-request CoreContext: the user's
// settings snapshot plus the provider handles the planning core consumes.
// Request-scoped contexts are assembled here (the load-time migration pass
// in app.go builds its own); the core itself never reaches for process-wide
// state.
type CoreContextFactory struct {
	settings settingsservice.Service
	rates    core.RateProvider
	txs      core.TransactionProvider
	logger   *zap.Logger
}

// NewCoreContextFactory constructs the factory.
func NewCoreContextFactory(settings settingsservice.Service, rates core.RateProvider, txs core.TransactionProvider, logger *zap.Logger) *CoreContextFactory {
	return &CoreContextFactory{settings: settings, rates: rates, txs: txs, logger: logger}
}

// For builds a CoreContext for the user. The on-chain balance provider is
// nil by default: on-chain ingestion is an external collaborator an
// embedding application may wire in.
func (f *CoreContextFactory) For(ctx context.Context, userID uuid.UUID) (core.CoreContext, error) {
	snapshot, err := f.settings.Snapshot(ctx, userID)
	if err != nil {
		return core.CoreContext{}, err
	}
	return core.NewCoreContext(snapshot, f.rates, nil, f.txs, f.logger), nil
}

// NewTransactionProvider exposes the transaction service through the core
// port the allocation engine and context factory consume.
func NewTransactionProvider(txs transactionservice.Service) core.TransactionProvider {
	return txs
}

// AsPlannerContextFactory narrows the factory for the planner handler.
func AsPlannerContextFactory(f *CoreContextFactory) plannerhandler.ContextFactory { return f }

// AsExecutionContextFactory narrows the factory for the execution handler.
func AsExecutionContextFactory(f *CoreContextFactory) executionhandler.ContextFactory { return f }

// AsWorkerContextFactory narrows the factory for the execution scheduler.
func AsWorkerContextFactory(f *CoreContextFactory) executionworker.ContextFactory { return f }

// NewGinRouter creates a new Gin router with basic configuration
func NewGinRouter(cfg *config.Config, log *zap.Logger) *gin.Engine {
	// Set Gin mode based on config
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Apply logger middleware first so it's available in all subsequent middleware
	r.Use(middleware.LoggerMiddleware(log))

	// Apply recovery middleware
	r.Use(middleware.RecoveryMiddleware())

	// Apply error handler middleware
	r.Use(middleware.ErrorHandlerMiddleware())

	// Apply CORS middleware
	corsMiddleware := middleware.NewCORS(cfg.CORS.Origins)
	r.Use(corsMiddleware)

	// Apply rate limiting middleware (global IP-based rate limiting)
	// Allow 100 requests per second with burst of 200
	rateLimiter := middleware.IPRateLimiter(100, 200)
	r.Use(rateLimiter)

	// Request logging middleware (only in debug mode)
	if config.IsDevelopment() {
		r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("[%s] %s %s %d %s \"%s\" %s\n",
				param.TimeStamp.Format("2006/01/02 - 15:04:05"),
				param.ClientIP,
				param.Method,
				param.StatusCode,
				param.Latency,
				param.Path,
				param.ErrorMessage,
			)
		}))
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		shared.RespondWithSuccess(c, http.StatusOK, "Service is healthy", gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Serve Swagger 2.0 spec files at separate path to avoid route conflict
	r.StaticFile("/openapi/swagger.yaml", "./docs/swagger.yaml")
	r.StaticFile("/openapi/swagger.json", "./docs/swagger.json")

	// Swagger UI pointing to Swagger 2.0 YAML file
	url := ginSwagger.URL("/openapi/swagger.yaml")
	swaggerHandler := ginSwagger.WrapHandler(swaggerFiles.Handler, url,
		ginSwagger.DocExpansion("list"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	)

	// Support both /swagger and /swagger-ui paths
	r.GET("/swagger/*any", swaggerHandler)
	r.GET("/swagger-ui/*any", swaggerHandler)

	return r
}

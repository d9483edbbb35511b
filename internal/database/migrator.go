package database

import (
	"fmt"

	allocationdomain "savingsplanner/internal/module/savings/allocation/domain"
	allocationmigrate "savingsplanner/internal/module/savings/allocation/migrate"
	assetdomain "savingsplanner/internal/module/savings/asset/domain"
	executiondomain "savingsplanner/internal/module/savings/execution/domain"
	goaldomain "savingsplanner/internal/module/savings/goal/domain"
	monthlyplandomain "savingsplanner/internal/module/savings/monthlyplan/domain"
	ratedomain "savingsplanner/internal/module/savings/rate/domain"
	settingsdomain "savingsplanner/internal/module/savings/settings/domain"
	transactiondomain "savingsplanner/internal/module/savings/transaction/domain"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoMigrate runs automatic database migrations for all entities
// Migration order is important to respect foreign key constraints
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("🔧 Running database migrations...")

	// 1. Enable PostgreSQL extensions
	if err := enableUUIDExtension(db, log); err != nil {
		log.Error("Failed to enable PostgreSQL extensions", zap.Error(err))
		return fmt.Errorf("failed to enable PostgreSQL extensions: %w", err)
	}

	// 2. Migrate entities in order (respecting foreign key dependencies)
	// Note: Using VARCHAR for all enum-like fields instead of PostgreSQL ENUMs for flexibility
	entities := []interface{}{
		// 1. Base tables (no foreign keys)
		&goaldomain.Goal{},
		&assetdomain.Asset{},
		&settingsdomain.Settings{},
		&ratedomain.RateRecord{},

		// 2. Tables keyed to assets
		&transactiondomain.Transaction{},

		// 3. Tables keyed to assets and goals
		&allocationdomain.Allocation{},
		&allocationdomain.History{},
		&allocationmigrate.LegacyPercentageAllocation{},

		// 4. Planning and execution tables keyed to goals
		&monthlyplandomain.MonthlyGoalPlan{},
		&executiondomain.ExecutionRecord{},
		&executiondomain.ExecutionSnapshot{},
		&executiondomain.CompletedExecution{},
	}

	log.Info("Migrating entities", zap.Int("entity_count", len(entities)))

	if err := db.AutoMigrate(entities...); err != nil {
		log.Error("Auto migration failed", zap.Error(err))
		return fmt.Errorf("auto migration failed: %w", err)
	}

	log.Info("✅ Database migrations completed successfully",
		zap.Strings("tables", []string{
			"savings_goals",
			"savings_assets",
			"planning_settings",
			"savings_rate_cache",
			"savings_transactions",
			"savings_allocations",
			"savings_allocation_history",
			"savings_legacy_percentage_allocations",
			"savings_monthly_goal_plans",
			"savings_execution_records",
			"savings_execution_snapshots",
			"savings_completed_executions",
		}),
	)

	return nil
}

// enableUUIDExtension enables UUID generation extension for PostgreSQL
func enableUUIDExtension(db *gorm.DB, log *zap.Logger) error {
	log.Info("Enabling required PostgreSQL extensions...")

	// Try uuid-ossp first (most common)
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Warn("uuid-ossp extension not available, checking for pgcrypto...", zap.Error(err))

		// Fallback to pgcrypto (alternative UUID generation)
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
			log.Warn("pgcrypto extension not available, using built-in gen_random_uuid()", zap.Error(err))
			// PostgreSQL 13+ has built-in gen_random_uuid(), no extension needed
		} else {
			log.Info("pgcrypto extension enabled successfully")
		}
	} else {
		log.Info("uuid-ossp extension enabled successfully")
	}

	return nil
}

// DropAllTables drops all tables (useful for development reset)
// WARNING: This will delete all data!
func DropAllTables(db *gorm.DB, log *zap.Logger) error {
	log.Warn("⚠️  Dropping all tables...")

	// Drop in reverse dependency order (opposite of migration order)
	entities := []interface{}{
		&executiondomain.CompletedExecution{},
		&executiondomain.ExecutionSnapshot{},
		&executiondomain.ExecutionRecord{},
		&monthlyplandomain.MonthlyGoalPlan{},

		&allocationmigrate.LegacyPercentageAllocation{},
		&allocationdomain.History{},
		&allocationdomain.Allocation{},

		&transactiondomain.Transaction{},

		&ratedomain.RateRecord{},
		&settingsdomain.Settings{},
		&assetdomain.Asset{},
		&goaldomain.Goal{},
	}

	log.Info("Dropping tables", zap.Int("entity_count", len(entities)))

	if err := db.Migrator().DropTable(entities...); err != nil {
		log.Error("Failed to drop tables", zap.Error(err))
		return fmt.Errorf("failed to drop tables: %w", err)
	}

	log.Info("✅ All tables dropped successfully")
	return nil
}

package cmd

import (
	"context"
	"log"

	"savingsplanner/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Manage database operations`,
}

var dbCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean database (drop all tables + fresh migrations, NO seed)",
	Long:  `WARNING: Drops ALL tables and creates fresh empty database. No data will be seeded.`,
	Run: func(cmd *cobra.Command, args []string) {
		runDBClean()
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Complete database reset (drop + migrate + seed)",
	Long:  `WARNING: Drops ALL tables, runs fresh migrations, and seeds demo data.`,
	Run: func(cmd *cobra.Command, args []string) {
		runDBReset()
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbCleanCmd)
	dbCmd.AddCommand(dbResetCmd)
}

func runDBClean() {
	_ = loadEnvFile()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	log.Println("🧹 ========================================")
	log.Println("🧹 CLEANING DATABASE")
	log.Println("🧹 Dropping all tables + fresh migrations")
	log.Println("🧹 NO DATA WILL BE SEEDED")
	log.Println("🧹 ========================================")

	dsn := getDSN()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}

	log.Println("\n📋 Step 1/2: Dropping all tables...")
	if err := database.DropAllTables(db, logger); err != nil {
		log.Fatalf("❌ Failed to drop tables: %v", err)
	}
	log.Println("✅ Tables dropped")

	log.Println("\n📋 Step 2/2: Running fresh migrations...")
	if err := database.AutoMigrate(db, logger); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Migrations completed")

	log.Println("\n✨ ========================================")
	log.Println("✨ DATABASE CLEANED!")
	log.Println("✨ All tables dropped and recreated")
	log.Println("✨ Database is now EMPTY (no data)")
	log.Println("✨ ========================================")
}

func runDBReset() {
	_ = loadEnvFile()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	log.Println("⚠️  ========================================")
	log.Println("⚠️  COMPLETE DATABASE RESET")
	log.Println("⚠️  This will DELETE ALL DATA!")
	log.Println("⚠️  ========================================")

	dsn := getDSN()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}

	log.Println("\n📋 Step 1/3: Dropping all tables...")
	if err := database.DropAllTables(db, logger); err != nil {
		log.Fatalf("❌ Failed to drop tables: %v", err)
	}
	log.Println("✅ Tables dropped")

	log.Println("\n📋 Step 2/3: Running fresh migrations...")
	if err := database.AutoMigrate(db, logger); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Migrations completed")

	log.Println("\n📋 Step 3/3: Seeding demo data...")
	seeder := database.NewSeeder(db, logger)
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Println("✅ Seeding completed")

	log.Println("\n🎉 ========================================")
	log.Println("🎉 DATABASE FULLY RESET AND SEEDED!")
	log.Println("🎉 ========================================")
	log.Println("\n📊 Seeded data:")
	log.Println("   - Planning settings for the demo user")
	log.Println("   - 3 savings goals with spread deadlines")
	log.Println("   - 2 assets (USD cash, BTC on-chain)")
	log.Println("   - Starting transactions and allocations")
	log.Printf("\n🔑 Demo user id: %s (send as X-User-ID)", database.DemoUserID)
}

package cmd

import (
	"context"
	"log"
	"os"
	"strings"

	"savingsplanner/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed database with demo savings data",
	Long:  `Seeds the database with a demo user's planning settings, goals, assets, transactions, and allocations.`,
	Run: func(cmd *cobra.Command, args []string) {
		runSeed()
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed() {
	_ = loadEnvFile()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	log.Println("🌱 Seeding demo savings data...")

	db, err := connectDB()
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}

	seeder := database.NewSeeder(db, logger)
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✅ Seeding completed")
	log.Printf("   Demo user id: %s (send as X-User-ID)", database.DemoUserID)
}

// loadEnvFile loads .env file from common locations
func loadEnvFile() error {
	envPaths := []string{
		"deploy/.env",
		".env",
		"../.env",
	}

	for _, path := range envPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		lines := strings.Split(string(data), "\n")
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])
				os.Setenv(key, value)
			}
		}
		return nil
	}
	return nil
}

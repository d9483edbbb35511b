package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	Rates     RatesConfig
	Seeding   SeedingConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	URL  string
	Host string
	Port int
	User string
	Pass string
	Name string
}

type CORSConfig struct {
	Origins []string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type RateLimitConfig struct {
	Requests int
	Window   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// RatesConfig sizes the token bucket gating upstream rate-provider
// dispatch.
type RatesConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type SeedingConfig struct {
	Enabled bool
}

// SchedulerConfig arms the daily auto-start/auto-close pass.
type SchedulerConfig struct {
	Enabled bool
}

// Load initializes and loads configuration using Viper
func Load() *Config {
	// Initialize Viper
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./server")
	viper.AddConfigPath("../")

	// Enable automatic environment variable reading
	viper.AutomaticEnv()

	// Replace dots and dashes with underscores in env keys
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Set default values
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: .env file not found, using environment variables and defaults")
		} else {
			log.Printf("Error reading config file: %v", err)
		}
	} else {
		log.Printf("Using config file: %s", viper.ConfigFileUsed())
	}

	// Build config from Viper
	config := &Config{
		Server: ServerConfig{
			Port: viper.GetString("PORT"),
			Host: viper.GetString("HOST"),
		},
		Database: DatabaseConfig{
			URL:  viper.GetString("DATABASE_URL"),
			Host: viper.GetString("DB_HOST"),
			Port: viper.GetInt("DB_PORT"),
			User: viper.GetString("DB_USER"),
			Pass: viper.GetString("DB_PASSWORD"),
			Name: viper.GetString("DB_NAME"),
		},
		CORS: CORSConfig{
			Origins: viper.GetStringSlice("CORS_ORIGINS"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   viper.GetString("RATE_LIMIT_WINDOW"),
		},
		Logging: LoggingConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
		Rates: RatesConfig{
			RequestsPerSecond: viper.GetFloat64("RATE_PROVIDER_RPS"),
			Burst:             viper.GetInt("RATE_PROVIDER_BURST"),
		},
		Seeding: SeedingConfig{
			Enabled: viper.GetBool("SEED_DEMO_DATA"),
		},
		Scheduler: SchedulerConfig{
			Enabled: viper.GetBool("EXECUTION_SCHEDULER_ENABLED"),
		},
	}

	return config
}

// setDefaults sets default values for all configuration options
func setDefaults() {
	// Server Configuration
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("GIN_MODE", "debug")

	// Database Configuration
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "savings_user")
	viper.SetDefault("DB_PASSWORD", "savings_password")
	viper.SetDefault("DB_NAME", "savings_planner")

	// CORS Configuration
	viper.SetDefault("CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"})

	// Redis Configuration (optional; planner works without it)
	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	// Rate Limiting (HTTP surface)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")

	// Logging
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")

	// Rate provider token bucket
	viper.SetDefault("RATE_PROVIDER_RPS", 2.0)
	viper.SetDefault("RATE_PROVIDER_BURST", 5)

	// Demo seeding
	viper.SetDefault("SEED_DEMO_DATA", false)

	// Execution scheduler
	viper.SetDefault("EXECUTION_SCHEDULER_ENABLED", true)
}

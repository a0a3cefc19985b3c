// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// CronParser parses six-field schedules (with seconds), matching the scheduler.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Config holds application configuration
type Config struct {
	DataDir             string // Base directory for databases, always absolute
	LogLevel            string
	Port                int
	DevMode             bool
	StrategyConcurrency int     // Max concurrent single-asset backtests per request
	DefaultCommission   float64 // Commission fraction used when a request omits one
	MaintenanceSchedule string  // Cron schedule (with seconds) of the database maintenance job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("BACKTEST_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             dataDir,
		Port:                getEnvAsInt("GO_PORT", 8001),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		StrategyConcurrency: getEnvAsInt("STRATEGY_CONCURRENCY", 4),
		DefaultCommission:   getEnvAsFloat("DEFAULT_COMMISSION", 0.002),
		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "0 0 3 * * *"), // Daily at 03:00
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// HistoryDBPath is the location of the price history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.StrategyConcurrency < 1 {
		return fmt.Errorf("STRATEGY_CONCURRENCY must be at least 1, got %d", c.StrategyConcurrency)
	}
	if c.DefaultCommission < 0 || c.DefaultCommission >= 1 {
		return fmt.Errorf("DEFAULT_COMMISSION must be in [0, 1), got %v", c.DefaultCommission)
	}
	if _, err := CronParser.Parse(c.MaintenanceSchedule); err != nil {
		return fmt.Errorf("invalid MAINTENANCE_SCHEDULE %q: %w", c.MaintenanceSchedule, err)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

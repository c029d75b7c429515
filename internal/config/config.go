package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Background workers
	WorkerCount int

	// Batch accrual processing
	AccrualConcurrency   int
	AccrualChunkSize     int
	AccrualErrorCap      int
	DailyAccrualInterval int // hours between scheduled daily runs

	// Day-count convention used for loans that don't specify one.
	// "ACT/360" or "ACT/365".
	DayCountDefault string

	// CORS
	AllowedOrigins []string

	// Sentry
	SentryDSN string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Environment:          getEnv("ENVIRONMENT", "development"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		WorkerCount:          getEnvAsInt("WORKER_COUNT", 5),
		AccrualConcurrency:   getEnvAsInt("ACCRUAL_CONCURRENCY", 8),
		AccrualChunkSize:     getEnvAsInt("ACCRUAL_CHUNK_SIZE", 500),
		AccrualErrorCap:      getEnvAsInt("ACCRUAL_ERROR_DETAIL_CAP", 20),
		DailyAccrualInterval: getEnvAsInt("DAILY_ACCRUAL_INTERVAL_HOURS", 24),
		DayCountDefault:      getEnv("DAY_COUNT_DEFAULT", "ACT/365"),
		AllowedOrigins:       getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		SentryDSN:            getEnv("SENTRY_DSN", ""),
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.DayCountDefault != "ACT/360" && cfg.DayCountDefault != "ACT/365" {
		return nil, fmt.Errorf("DAY_COUNT_DEFAULT must be ACT/360 or ACT/365, got %q", cfg.DayCountDefault)
	}

	if cfg.AccrualConcurrency < 1 {
		cfg.AccrualConcurrency = 1
	}
	if cfg.AccrualChunkSize < 1 {
		cfg.AccrualChunkSize = 1
	}

	return cfg, nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}

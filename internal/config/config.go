// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration
	JWTSecret   string
	LogLevel    slog.Level

	GoogleMapsAPIKey  string
	StreetViewBaseURL string

	ImportBatchSize          int
	PortfolioRefreshSchedule string
}

// Load reads .env (if present) and then the environment. Variables already
// set in the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:                     getEnv("PORT", "8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		RedisURL:                 getEnv("REDIS_URL", ""),
		JWTSecret:                getEnv("JWT_SECRET", "dev-secret"),
		GoogleMapsAPIKey:         getEnv("GOOGLE_MAPS_API_KEY", ""),
		StreetViewBaseURL:        getEnv("STREETVIEW_BASE_URL", ""),
		PortfolioRefreshSchedule: getEnv("PORTFOLIO_REFRESH_SCHEDULE", "@every 1m"),
	}

	var err error
	if cfg.CacheTTL, err = time.ParseDuration(getEnv("CACHE_TTL", "30s")); err != nil {
		return nil, fmt.Errorf("CACHE_TTL: %w", err)
	}
	if cfg.ImportBatchSize, err = strconv.Atoi(getEnv("IMPORT_BATCH_SIZE", "50")); err != nil {
		return nil, fmt.Errorf("IMPORT_BATCH_SIZE: %w", err)
	}
	if cfg.ImportBatchSize < 1 {
		return nil, fmt.Errorf("IMPORT_BATCH_SIZE must be positive, got %d", cfg.ImportBatchSize)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if strings.TrimSpace(cfg.PortfolioRefreshSchedule) == "" {
		return nil, fmt.Errorf("PORTFOLIO_REFRESH_SCHEDULE is required")
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

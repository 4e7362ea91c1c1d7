package config

import (
	"fmt"
	"os"
	"strconv"

	"bizmetrics/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Data      DataConfig
	Analytics AnalyticsConfig
}

// DatabaseConfig holds database connection settings. An empty URL selects
// the in-memory repositories.
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether a postgres connection was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DataConfig holds data ingestion settings
type DataConfig struct {
	// ExcelFile is the default dataset for CLI commands
	ExcelFile string
	// MaxParallelFiles bounds how many files the CLI processes at once
	MaxParallelFiles int
	// MaxUploadBytes caps multipart uploads on the API
	MaxUploadBytes int64
}

// AnalyticsConfig holds the tunable defaults of the analytics core
type AnalyticsConfig struct {
	OutlierZThreshold   float64
	TrendFlatEpsilon    float64
	MovingAverageWindow int
	SignificanceLevel   float64
	ConfidenceLevel     float64
	LTVLifespanMonths   int
}

// Load reads configuration from environment variables and validates it.
// Mains call godotenv.Load() first so a .env file can supply the values.
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Data: DataConfig{
			ExcelFile:        getEnvOrDefault("EXCEL_FILE", ""),
			MaxParallelFiles: getEnvIntOrDefault("MAX_PARALLEL_FILES", 4),
			MaxUploadBytes:   int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 32)) << 20,
		},
		Analytics: AnalyticsConfig{
			OutlierZThreshold:   getEnvFloatOrDefault("OUTLIER_Z_THRESHOLD", 3.0),
			TrendFlatEpsilon:    getEnvFloatOrDefault("TREND_FLAT_EPSILON", 0.01),
			MovingAverageWindow: getEnvIntOrDefault("MOVING_AVERAGE_WINDOW", 7),
			SignificanceLevel:   getEnvFloatOrDefault("SIGNIFICANCE_LEVEL", 0.05),
			ConfidenceLevel:     getEnvFloatOrDefault("CONFIDENCE_LEVEL", 0.95),
			LTVLifespanMonths:   getEnvIntOrDefault("LTV_LIFESPAN_MONTHS", 24),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if _, err := strconv.Atoi(config.Server.Port); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("PORT %q is not a number", config.Server.Port))
	}
	switch config.Server.GinMode {
	case "debug", "release", "test":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("GIN_MODE %q must be debug, release or test", config.Server.GinMode))
	}
	if config.Data.MaxParallelFiles < 1 {
		return errors.ConfigInvalid("MAX_PARALLEL_FILES must be at least 1")
	}
	if config.Data.MaxUploadBytes <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}

	a := config.Analytics
	if a.OutlierZThreshold <= 0 {
		return errors.ConfigInvalid("OUTLIER_Z_THRESHOLD must be positive")
	}
	if a.TrendFlatEpsilon < 0 {
		return errors.ConfigInvalid("TREND_FLAT_EPSILON must not be negative")
	}
	if a.MovingAverageWindow < 1 {
		return errors.ConfigInvalid("MOVING_AVERAGE_WINDOW must be at least 1")
	}
	if a.SignificanceLevel <= 0 || a.SignificanceLevel >= 1 {
		return errors.ConfigInvalid("SIGNIFICANCE_LEVEL must be in (0, 1)")
	}
	if a.ConfidenceLevel <= 0 || a.ConfidenceLevel >= 1 {
		return errors.ConfigInvalid("CONFIDENCE_LEVEL must be in (0, 1)")
	}
	if a.LTVLifespanMonths < 1 {
		return errors.ConfigInvalid("LTV_LIFESPAN_MONTHS must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

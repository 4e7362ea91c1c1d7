package config

import (
	"testing"

	"bizmetrics/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "PORT", "GIN_MODE", "EXCEL_FILE", "MAX_PARALLEL_FILES", "MAX_UPLOAD_MB",
		"OUTLIER_Z_THRESHOLD", "TREND_FLAT_EPSILON", "MOVING_AVERAGE_WINDOW",
		"SIGNIFICANCE_LEVEL", "CONFIDENCE_LEVEL", "LTV_LIFESPAN_MONTHS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, 4, cfg.Data.MaxParallelFiles)
	assert.Equal(t, int64(32<<20), cfg.Data.MaxUploadBytes)
	assert.Equal(t, 3.0, cfg.Analytics.OutlierZThreshold)
	assert.Equal(t, 0.01, cfg.Analytics.TrendFlatEpsilon)
	assert.Equal(t, 7, cfg.Analytics.MovingAverageWindow)
	assert.Equal(t, 0.05, cfg.Analytics.SignificanceLevel)
	assert.Equal(t, 0.95, cfg.Analytics.ConfidenceLevel)
	assert.Equal(t, 24, cfg.Analytics.LTVLifespanMonths)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/bizmetrics?sslmode=disable")
	t.Setenv("PORT", "9090")
	t.Setenv("SIGNIFICANCE_LEVEL", "0.01")
	t.Setenv("MOVING_AVERAGE_WINDOW", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 0.01, cfg.Analytics.SignificanceLevel)
	assert.Equal(t, 7, cfg.Analytics.MovingAverageWindow, "unparsable values keep the default")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"PORT":                "http",
		"GIN_MODE":            "loud",
		"MAX_PARALLEL_FILES":  "0",
		"OUTLIER_Z_THRESHOLD": "-1",
		"SIGNIFICANCE_LEVEL":  "1.5",
		"CONFIDENCE_LEVEL":    "1",
		"LTV_LIFESPAN_MONTHS": "-3",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

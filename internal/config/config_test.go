package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

const minimalConfig = `
[provider]
positions_url = "https://example.com/positions"
summary_url = "https://example.com/summary"

[collector]
bounds = "49.38,24.52,-124.77,-66.95"

[storage]
sqlite_base_path = "data"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "PROD_FR24_API_KEY", cfg.Provider.APIKeyEnv)
	assert.Equal(t, 30, cfg.Provider.RequestTimeoutSeconds)
	assert.Equal(t, 240, cfg.Collector.IntervalMinutes)
	assert.Equal(t, 24, cfg.Collector.WindowHours)
	assert.Equal(t, 5, cfg.Collector.MaxAttempts)
	assert.Equal(t, 10, cfg.Collector.RateLimitSleepSeconds)
	assert.Equal(t, 15, cfg.Summaries.BatchSize)
	assert.Equal(t, 10, cfg.Summaries.Workers)
	assert.Equal(t, 4, cfg.Summaries.Rounds)
	assert.Equal(t, 3.0, cfg.Phases.VerticalRateThresholdFPM)
	assert.Equal(t, 500.0, cfg.Phases.LowAltitudeFt)
	assert.Equal(t, int64(180), cfg.Phases.TakeoffReassignCapSecs)
	assert.Equal(t, 5, cfg.Pipeline.MinDataPoints)
	assert.Equal(t, 1000, cfg.Storage.MaxPositionsInAPI)

	require.NoError(t, cfg.Validate())
}

func TestLoadExplicitValuesSurviveDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
[summaries]
batch_size = 5
workers = 2

[phases]
vertical_rate_threshold_fpm = 4.5
`))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Summaries.BatchSize)
	assert.Equal(t, 2, cfg.Summaries.Workers)
	assert.Equal(t, 4.5, cfg.Phases.VerticalRateThresholdFPM)
}

func TestLoadReadsAPIKeyFromEnv(t *testing.T) {
	t.Setenv("PROD_FR24_API_KEY", "secret-token")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Provider.APIKey)
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestRequireAPIKeyMissing(t *testing.T) {
	t.Setenv("PROD_FR24_API_KEY", "")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Error(t, cfg.RequireAPIKey())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadBounds(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[provider]
positions_url = "https://example.com/positions"
summary_url = "https://example.com/summary"

[collector]
bounds = "49.38,24.52"

[storage]
sqlite_base_path = "data"
`))
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "bounds")
}

func TestValidateRejectsIntervalBeyondWindow(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	cfg.Collector.IntervalMinutes = 300
	cfg.Collector.WindowHours = 4
	assert.ErrorContains(t, cfg.Validate(), "interval")
}

func TestValidateRequiresProviderURLs(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Collector.Bounds = "1,2,3,4"
	cfg.Storage.SQLiteBasePath = "data"
	assert.ErrorContains(t, cfg.Validate(), "positions_url")
}

func TestLoadWithFallbackPrefersExplicitPath(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, err := LoadWithFallback(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/positions", cfg.Provider.PositionsURL)
}

func TestLoadWithFallbackNoFiles(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(cwd) })
	require.NoError(t, os.Chdir(t.TempDir()))

	_, err = LoadWithFallback("")
	assert.Error(t, err)
}

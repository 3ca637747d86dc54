package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server    ServerConfig    `toml:"server"`    // Results API server settings
	Provider  ProviderConfig  `toml:"provider"`  // Flight tracking provider settings
	Collector CollectorConfig `toml:"collector"` // Position snapshot collection settings
	Summaries SummariesConfig `toml:"summaries"` // Batched flight summary fetching settings
	Phases    PhasesConfig    `toml:"phases"`    // Flight phase segmentation thresholds
	Fuel      FuelConfig      `toml:"fuel"`      // Fuel profile table settings
	Pipeline  PipelineConfig  `toml:"pipeline"`  // Processing run settings
	Storage   StorageConfig   `toml:"storage"`   // Data persistence settings
	Logging   LoggingConfig   `toml:"logging"`   // Application logging settings
}

// ServerConfig contains HTTP server configuration for the results API
type ServerConfig struct {
	Host             string `toml:"host"`                  // Host address to bind to
	Port             int    `toml:"port"`                  // HTTP port for the results API
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Keep-alive idle timeout
}

// ProviderConfig contains settings for the upstream flight tracking API
type ProviderConfig struct {
	PositionsURL          string `toml:"positions_url"`           // Historic flight positions endpoint
	SummaryURL            string `toml:"summary_url"`             // Flight summary endpoint
	APIKeyEnv             string `toml:"api_key_env"`             // Name of the environment variable holding the API key
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"` // HTTP client timeout for provider requests

	// APIKey is resolved from the environment at load time, never from the
	// config file itself.
	APIKey string `toml:"-"`
}

// CollectorConfig contains settings for periodic position snapshot collection
type CollectorConfig struct {
	Bounds                string `toml:"bounds"`                   // Geographic bounds as "north,south,west,east" decimal degrees
	IntervalMinutes       int    `toml:"interval_minutes"`         // Minutes between snapshot requests
	WindowHours           int    `toml:"window_hours"`             // Length of the collection window in hours
	MaxAttempts           int    `toml:"max_attempts"`             // Attempts per snapshot tick before giving up on it
	RateLimitSleepSeconds int    `toml:"rate_limit_sleep_seconds"` // Sleep after a 429 before retrying
	BadRequestSleepSecs   int    `toml:"bad_request_sleep_seconds"` // Sleep after a 400 or network error before retrying
	PacingSeconds         int    `toml:"pacing_seconds"`           // Delay between consecutive ticks
}

// SummariesConfig contains settings for batched flight summary retrieval
type SummariesConfig struct {
	BatchSize          int `toml:"batch_size"`           // Maximum callsigns per summary request (provider ceiling)
	Workers            int `toml:"workers"`              // Concurrent summary request workers
	MaxAttempts        int `toml:"max_attempts"`         // Attempts per batch within one round
	BaseBackoffSeconds int `toml:"base_backoff_seconds"` // Base delay for exponential backoff on rate limiting
	Rounds             int `toml:"rounds"`               // Full passes over the failed-id set
	WindowPaddingHours int `toml:"window_padding_hours"` // Padding added before/after the collection window
}

// PhasesConfig contains flight phase segmentation thresholds
type PhasesConfig struct {
	VerticalRateThresholdFPM float64 `toml:"vertical_rate_threshold_fpm"` // Vertical rate above which an interval counts as climb/descent
	LowAltitudeFt            float64 `toml:"low_altitude_ft"`             // Altitude below which takeoff/landing rules apply
	TakeoffReassignEnabled   bool    `toml:"takeoff_reassign_enabled"`    // Reassign initial climb time to takeoff when none was detected
	TakeoffReassignCapSecs   int64   `toml:"takeoff_reassign_cap_seconds"` // Maximum climb seconds reassigned to takeoff
}

// FuelConfig contains settings for the fuel profile table
type FuelConfig struct {
	ProfilesPath string `toml:"profiles_path"` // Path to the per-model fuel profile JSON table
}

// PipelineConfig contains settings for a processing run
type PipelineConfig struct {
	OutputBaseDir string `toml:"output_base_dir"` // Base directory for run output folders
	MinDataPoints int    `toml:"min_data_points"` // Minimum assembled points for a flight to be processed
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	SQLiteBasePath    string `toml:"sqlite_base_path"`     // Base path for SQLite database files
	MaxPositionsInAPI int    `toml:"max_positions_in_api"` // Maximum positions returned per flight by the results API
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	// Best-effort .env load so the provider key can live outside the config
	// file. A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()
	config.Provider.APIKey = os.Getenv(config.Provider.APIKeyEnv)

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // Default location
		"config.toml",         // Root directory
	}

	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// applyDefaults fills in defaults for fields the config file omitted
func (c *Config) applyDefaults() {
	if c.Provider.APIKeyEnv == "" {
		c.Provider.APIKeyEnv = "PROD_FR24_API_KEY"
	}
	if c.Provider.RequestTimeoutSeconds <= 0 {
		c.Provider.RequestTimeoutSeconds = 30
	}
	if c.Collector.IntervalMinutes <= 0 {
		c.Collector.IntervalMinutes = 240
	}
	if c.Collector.WindowHours <= 0 {
		c.Collector.WindowHours = 24
	}
	if c.Collector.MaxAttempts <= 0 {
		c.Collector.MaxAttempts = 5
	}
	if c.Collector.RateLimitSleepSeconds <= 0 {
		c.Collector.RateLimitSleepSeconds = 10
	}
	if c.Collector.BadRequestSleepSecs <= 0 {
		c.Collector.BadRequestSleepSecs = 5
	}
	if c.Collector.PacingSeconds <= 0 {
		c.Collector.PacingSeconds = 1
	}
	if c.Summaries.BatchSize <= 0 {
		c.Summaries.BatchSize = 15
	}
	if c.Summaries.Workers <= 0 {
		c.Summaries.Workers = 10
	}
	if c.Summaries.MaxAttempts <= 0 {
		c.Summaries.MaxAttempts = 3
	}
	if c.Summaries.BaseBackoffSeconds <= 0 {
		c.Summaries.BaseBackoffSeconds = 5
	}
	if c.Summaries.Rounds <= 0 {
		c.Summaries.Rounds = 4
	}
	if c.Summaries.WindowPaddingHours <= 0 {
		c.Summaries.WindowPaddingHours = 12
	}
	if c.Phases.VerticalRateThresholdFPM == 0 {
		c.Phases.VerticalRateThresholdFPM = 3
	}
	if c.Phases.LowAltitudeFt == 0 {
		c.Phases.LowAltitudeFt = 500
	}
	if c.Phases.TakeoffReassignCapSecs <= 0 {
		c.Phases.TakeoffReassignCapSecs = 180
	}
	if c.Fuel.ProfilesPath == "" {
		c.Fuel.ProfilesPath = "data/fuel_profiles.json"
	}
	if c.Pipeline.OutputBaseDir == "" {
		c.Pipeline.OutputBaseDir = "data/flights"
	}
	if c.Pipeline.MinDataPoints <= 0 {
		c.Pipeline.MinDataPoints = 5
	}
	if c.Storage.MaxPositionsInAPI <= 0 {
		c.Storage.MaxPositionsInAPI = 1000
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port != 0 && (c.Server.Port < 0 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Provider.PositionsURL == "" {
		return fmt.Errorf("provider positions_url is required")
	}
	if c.Provider.SummaryURL == "" {
		return fmt.Errorf("provider summary_url is required")
	}

	if c.Collector.Bounds == "" {
		return fmt.Errorf("collector bounds is required")
	}
	if parts := strings.Split(c.Collector.Bounds, ","); len(parts) != 4 {
		return fmt.Errorf("collector bounds must be \"north,south,west,east\", got %q", c.Collector.Bounds)
	}
	if c.Collector.IntervalMinutes > c.Collector.WindowHours*60 {
		return fmt.Errorf("collector interval (%dm) exceeds the collection window (%dh)", c.Collector.IntervalMinutes, c.Collector.WindowHours)
	}

	if c.Storage.SQLiteBasePath == "" {
		return fmt.Errorf("storage sqlite_base_path is required")
	}

	return nil
}

// RequireAPIKey returns an error when no provider API key was resolved from
// the environment. Only the collection pipeline needs one; the results API
// server never talks to the provider.
func (c *Config) RequireAPIKey() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider API key not set: define %s in the environment or a .env file", c.Provider.APIKeyEnv)
	}
	return nil
}

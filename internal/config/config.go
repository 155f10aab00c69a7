package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main toolgate configuration
type Config struct {
	// Data directory holding journals, permission and limit files
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Strict validation behavior
	Strict StrictConfig `json:"strict" mapstructure:"strict"`

	// Journal backend selection
	Journal JournalConfig `json:"journal" mapstructure:"journal"`

	// Recommendation scoring weights
	Scoring ScoringConfig `json:"scoring" mapstructure:"scoring"`

	// Index maintenance
	Maintenance MaintenanceConfig `json:"maintenance" mapstructure:"maintenance"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// StrictConfig controls how unknown limit dimensions are treated
type StrictConfig struct {
	// Enabled denies samples that reference a dimension the tool's
	// limits entry does not bound.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// RequireLimits additionally denies tools that have no limits
	// entry at all when a bounded dimension is sampled.
	RequireLimits bool `json:"require_limits" mapstructure:"require_limits"`
}

// JournalConfig selects the durable log backend
type JournalConfig struct {
	Backend string `json:"backend" mapstructure:"backend"` // file, sqlite
}

// ScoringConfig holds recommendation weights
type ScoringConfig struct {
	SuccessWeight float64 `json:"success_weight" mapstructure:"success_weight"`
	ContextWeight float64 `json:"context_weight" mapstructure:"context_weight"`
}

// MaintenanceConfig holds the index rebuild schedule
type MaintenanceConfig struct {
	RebuildSchedule string `json:"rebuild_schedule" mapstructure:"rebuild_schedule"`
}

// MetricsConfig holds the prometheus scrape endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Host    string `json:"host" mapstructure:"host"`
	Port    int    `json:"port" mapstructure:"port"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values. Strict mode is
// on by default; validation fails closed for unknown dimensions.
func DefaultConfig() *Config {
	return &Config{
		Strict: StrictConfig{
			Enabled:       true,
			RequireLimits: false,
		},
		Journal: JournalConfig{
			Backend: "file",
		},
		Scoring: ScoringConfig{
			SuccessWeight: 0.7,
			ContextWeight: 0.3,
		},
		Maintenance: MaintenanceConfig{
			RebuildSchedule: "*/15 * * * *",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9090,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Redaction: true,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Journal.Backend != "file" && c.Journal.Backend != "sqlite" {
		return fmt.Errorf("invalid journal backend %q (must be: file, sqlite)", c.Journal.Backend)
	}

	if c.Scoring.SuccessWeight < 0 || c.Scoring.ContextWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if c.Scoring.SuccessWeight+c.Scoring.ContextWeight == 0 {
		return fmt.Errorf("at least one scoring weight must be positive")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port %d", c.Metrics.Port)
		}
	}

	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	return nil
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Strict.Enabled, "strict mode is the safe default")
	assert.False(t, cfg.Strict.RequireLimits)
	assert.Equal(t, "file", cfg.Journal.Backend)
	assert.Equal(t, 0.7, cfg.Scoring.SuccessWeight)
	assert.Equal(t, 0.3, cfg.Scoring.ContextWeight)
	assert.Equal(t, "*/15 * * * *", cfg.Maintenance.RebuildSchedule)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Redaction)

	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "default is valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "sqlite backend",
			mutate: func(c *Config) { c.Journal.Backend = "sqlite" },
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Journal.Backend = "redis" },
			wantErr: true,
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Scoring.SuccessWeight = -0.1 },
			wantErr: true,
		},
		{
			name: "both weights zero",
			mutate: func(c *Config) {
				c.Scoring.SuccessWeight = 0
				c.Scoring.ContextWeight = 0
			},
			wantErr: true,
		},
		{
			name: "bad metrics port",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Port = 70000
			},
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.String()

	assert.Contains(t, s, "strict")
	assert.Contains(t, s, "journal")
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 6*time.Hour, cfg.ScanInterval)
	assert.Equal(t, 72*time.Hour, cfg.ScanLookahead)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("SCAN_INTERVAL", "30m")
	t.Setenv("SCAN_LOOKAHEAD", "24h")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, 30*time.Minute, cfg.ScanInterval)
	assert.Equal(t, 24*time.Hour, cfg.ScanLookahead)
	assert.True(t, cfg.RedisEnabled())
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("SCAN_INTERVAL", "often")

	_, err := Load()
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		StorageDriver: DriverPostgres,
		PostgresDSN:   "postgres://localhost/engagements",
		JWTSecret:     "secret",
		ScanInterval:  6 * time.Hour,
		ScanLookahead: 72 * time.Hour,
		LogLevel:      "info",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"memory without dsn", func(c *Config) { c.StorageDriver = DriverMemory; c.PostgresDSN = "" }, ""},
		{"missing dsn", func(c *Config) { c.PostgresDSN = "" }, "postgres DSN is empty"},
		{"unknown driver", func(c *Config) { c.StorageDriver = "mongo" }, "unknown storage driver"},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "jwt secret is empty"},
		{"interval too small", func(c *Config) { c.ScanInterval = time.Second }, "scan interval too small"},
		{"zero lookahead", func(c *Config) { c.ScanLookahead = 0 }, "scan lookahead"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

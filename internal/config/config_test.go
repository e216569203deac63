package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/netpulse/internal/config"
	"codeberg.org/mutker/netpulse/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()

	configContent := []byte(`
log_level = "debug"
database = "/path/to/internet_status.db"
listen = ":9090"
refresh_minutes = 15

[cache]
backend = "redis"
redis_url = "redis://cache:6379/1"
ttl_seconds = 120

[remediation]
wait_seconds = 10
retry_attempts = 5

[probe]
address = "1.1.1.1:53"
`)
	configPath := filepath.Join(tempDir, "netpulse.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("NETPULSE_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
	assert.Equal(t, "/path/to/internet_status.db", cfg.Database)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 15, cfg.RefreshMinutes)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis://cache:6379/1", cfg.Cache.RedisURL)
	assert.Equal(t, 120, cfg.Cache.TTLSeconds)
	assert.Equal(t, 10, cfg.Remediation.WaitSeconds)
	assert.Equal(t, 5, cfg.Remediation.RetryAttempts)
	assert.Equal(t, "1.1.1.1:53", cfg.Probe.Address)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NETPULSE_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel, "Expected default LogLevel info")
	assert.Equal(t, ":8050", cfg.Listen)
	assert.Equal(t, 30, cfg.RefreshMinutes)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 300, cfg.Cache.TTLSeconds, "Expected default cache TTL of 5 minutes")
	assert.Equal(t, 30, cfg.Remediation.WaitSeconds)
	assert.Equal(t, 3, cfg.Remediation.RetryAttempts)
	assert.Equal(t, "8.8.8.8:53", cfg.Probe.Address)
	assert.Equal(t, 2, cfg.Probe.TimeoutSeconds)
	assert.Equal(t, 10, cfg.Probe.IntervalSeconds)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	tempDir := t.TempDir()

	configContent := []byte(`
This is not a valid TOML file
`)
	configPath := filepath.Join(tempDir, "netpulse.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("NETPULSE_CONFIG", configPath)

	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	tempDir := t.TempDir()

	configContent := []byte(`
log_level = "invalid"
`)
	configPath := filepath.Join(tempDir, "netpulse.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("NETPULSE_CONFIG", configPath)

	_, err = config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestLogLevelFlag(t *testing.T) {
	t.Setenv("NETPULSE_CONFIG", "")

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd", "--log-level", "debug"}

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, "runtracker", cfg.Service.Name)
	require.Equal(t, 8080, cfg.HTTP.Port)
	require.Equal(t, "0.01", cfg.Runs.DefaultTickSize)
	require.False(t, cfg.Redis.Enabled())
	require.False(t, cfg.Kafka.Enabled())
	require.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[service]
name = "gardens"

[http]
port = 8181

[kafka]
brokers = ["k1:9092", "k2:9092"]

[runs]
default_tick_size = "0.5"
cache_ttl = 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "gardens", cfg.Service.Name)
	require.Equal(t, 8181, cfg.HTTP.Port)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	require.True(t, cfg.Kafka.Enabled())
	require.Equal(t, 0, cfg.Runs.CacheTTL)

	tick, err := cfg.Runs.TickSize()
	require.NoError(t, err)
	require.Equal(t, "0.5", tick.String())
}

func TestLoadRequiresFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("APP_HTTP_PORT", "9001")
	t.Setenv("APP_LOGGER_LEVEL", "debug")

	cfg, err := LoadWithDefaults("")
	require.NoError(t, err)
	require.Equal(t, 9001, cfg.HTTP.Port)
	require.Equal(t, "debug", cfg.Logger.Level)
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, `
[runs]
default_tick_size = "-1"
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "default_tick_size")

	path = writeConfig(t, `
[ratelimit]
enabled = true
`)
	_, err = Load(path)
	require.ErrorContains(t, err, "ratelimit requires redis")

	path = writeConfig(t, `
[http]
port = 70000
`)
	_, err = Load(path)
	require.ErrorContains(t, err, "invalid HTTP port")
}

func TestRunsTickSize(t *testing.T) {
	_, err := RunsConfig{DefaultTickSize: "abc"}.TickSize()
	require.Error(t, err)

	path := writeConfig(t, `
[runs]
default_tick_size = "abc"
`)
	_, err = Load(path)
	require.ErrorContains(t, err, "default_tick_size")
}

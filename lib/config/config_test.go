package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/database-playground/sqlgrader/lib/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests here use t.Setenv and therefore cannot run in parallel.

func TestLoadDefaults(t *testing.T) {
	// Empty variables count as unset.
	t.Setenv("PORT", "")
	t.Setenv("SQLGRADER_SERVER_PORT", "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, time.Minute, cfg.Query.Timeout)
	assert.Equal(t, 1000, cfg.Sessions.Max)
	assert.Equal(t, 2*time.Hour, cfg.Sessions.TTL)
	assert.Empty(t, cfg.Exercises.File)
	assert.Equal(t, 100, cfg.Expected.CacheSize)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SQLGRADER_SESSIONS_TTL", "10m")
	t.Setenv("SQLGRADER_SESSIONS_MAX", "5")
	t.Setenv("OTEL_TRACES_EXPORTER", "otlp")
	t.Setenv("OTEL_LOGS_EXPORTER", "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr())
	assert.Equal(t, 10*time.Minute, cfg.Sessions.TTL)
	assert.Equal(t, 5, cfg.Sessions.Max)
	assert.Equal(t, "otlp", cfg.Telemetry.TracesExporter)
	assert.Equal(t, "console", cfg.Telemetry.LogsExporter)
}

func TestLoadPrefixedWinsOverConventional(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SQLGRADER_SERVER_PORT", "7070")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlgrader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
query:
  timeout: 3s
exercises:
  file: /srv/exercises.yaml
expected:
  cache_size: 7
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Query.Timeout)
	assert.Equal(t, "/srv/exercises.yaml", cfg.Exercises.File)
	assert.Equal(t, 7, cfg.Expected.CacheSize)
	assert.Equal(t, 1000, cfg.Sessions.Max)
}

func TestLoadInvalid(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("Non-positive values", func(t *testing.T) {
		t.Setenv("SQLGRADER_SESSIONS_MAX", "0")

		_, err := config.Load("")
		require.ErrorContains(t, err, "sessions.max")
	})
}

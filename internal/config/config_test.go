package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err, "default config is written on first run")
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data", "downloads"), cfg.Storage.DownloadsDirectory)
	assert.Equal(t, filepath.Join(dir, "logs"), cfg.Storage.LogsDirectory)
	assert.Equal(t, "http://127.0.0.1:8090/", cfg.GetBackendURL())
	assert.Empty(t, cfg.GetBackendAddr())

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadConfig_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	yml := `
server:
  port: 9000
backend:
  url: http://orvd.local:8080/
  serve: false
viewer:
  timeZone: UTC
  chartWidth: 640
storage:
  logsDirectory: /var/orvd/logs
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "http://orvd.local:8080/", cfg.GetBackendURL())
	assert.Equal(t, 640, cfg.Viewer.ChartWidth)
	assert.Equal(t, 400, cfg.Viewer.ChartHeight, "unset keys keep their defaults")
	assert.Equal(t, "/var/orvd/logs", cfg.Storage.LogsDirectory)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PORT", "9100")
	t.Setenv("DATA_DIR", "/srv/viewer")
	t.Setenv("ORVD_URL", "http://10.0.0.5:8080/")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadConfig(filepath.Join(dir, FileName))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "/srv/viewer", cfg.Storage.DataDirectory)
	assert.Equal(t, "/srv/viewer/downloads", cfg.Storage.DownloadsDirectory)
	assert.Equal(t, "http://10.0.0.5:8080/", cfg.Backend.URL)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Backend.Port = cfg.Server.Port
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Backend.Serve = false
	assert.Error(t, cfg.Validate(), "an external backend needs a URL")

	cfg = DefaultConfig()
	cfg.Viewer.TimeZone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Backend.Port = 8091
	assert.Equal(t, "0.0.0.0:8091", cfg.GetBackendAddr())
	assert.Equal(t, "http://127.0.0.1:8091/", cfg.GetBackendURL())
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Viewer.CleanupIntervalMinutes = 0
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval())
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, time.Hour, cfg.DownloadRetention())
	assert.Equal(t, 30*time.Second, cfg.BackendTimeout())
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.resolvePaths(dir)

	require.NoError(t, cfg.EnsureDirectories())
	for _, d := range []string{cfg.Storage.DownloadsDirectory, cfg.Storage.LogsDirectory} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

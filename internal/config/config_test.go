package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, CurrentVersion, cfg.Version)
	require.Equal(t, ":8000", cfg.Server.Addr)
	require.Equal(t, int64(500<<20), cfg.Server.MaxUploadBytes())
	require.Equal(t, "npm", cfg.Build.PackageManager)
	require.Equal(t, 15*time.Minute, cfg.Build.Timeout.Std())
	require.Zero(t, cfg.Build.InstallRetries)
	require.Equal(t, RetryBackoffLinear, cfg.Build.RetryBackoff)
	require.Equal(t, 100, cfg.Queue.Capacity)
	require.Equal(t, 20, cfg.Queue.HistorySize)
	require.Equal(t, 3*time.Minute, cfg.Queue.DefaultDuration.Std())
	require.True(t, cfg.Monitoring.Metrics.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Metrics.Path)
	require.Equal(t, LogLevelInfo, cfg.Monitoring.Logging.Level)
	require.False(t, cfg.Events.Enabled)
}

func TestParse_OverridesAndExpansion(t *testing.T) {
	t.Setenv("SITEBUILDER_TEST_ADDR", "127.0.0.1:9000")
	cfg, err := Parse([]byte(`
version: "1.0"
server:
  addr: ${SITEBUILDER_TEST_ADDR}
  max_upload_mb: 10
build:
  timeout: 90s
  max_unpack_mb: 20
  install_retries: 2
queue:
  capacity: 3
  retention: 600
monitoring:
  metrics:
    enabled: false
  logging:
    level: DEBUG
    format: Json
`))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	require.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes())
	require.Equal(t, int64(20<<20), cfg.Build.MaxUnpackBytes())
	require.Equal(t, 90*time.Second, cfg.Build.Timeout.Std())
	require.Equal(t, 2, cfg.Build.InstallRetries)
	require.Equal(t, 3, cfg.Queue.Capacity)
	require.Equal(t, 10*time.Minute, cfg.Queue.Retention.Std())
	require.Equal(t, 5*time.Minute, cfg.Queue.SweepInterval.Std())
	require.False(t, cfg.Monitoring.Metrics.Enabled)
	require.Equal(t, LogLevelDebug, cfg.Monitoring.Logging.Level)
	require.Equal(t, LogFormatJSON, cfg.Monitoring.Logging.Format)
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte("build:\n  timeout: soon\n"))
	require.ErrorContains(t, err, `invalid duration "soon"`)
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Version = "9"
	cfg.Queue.Capacity = 0
	cfg.Build.PackageManager = "npm --force"
	cfg.Build.RetryBackoff = "random"
	cfg.Events.Enabled = true
	cfg.Events.NATSURL = "http://broker"
	cfg.Monitoring.Health.Path = "health"

	err := Validate(cfg)
	require.Error(t, err)
	for _, want := range []string{"unsupported configuration version", "queue.capacity", "package_manager", "retry_backoff", "nats_url", "monitoring.health.path"} {
		require.ErrorContains(t, err, want)
	}
	require.NoError(t, Validate(Default()))
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitebuilder.yaml")
	require.NoError(t, Init(path, false))
	require.ErrorContains(t, Init(path, false), "already exists")
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "./static", cfg.Server.UIDir)
	require.Equal(t, DefaultNATSURL, cfg.Events.NATSURL)
	require.Equal(t, 15*time.Minute, cfg.Build.Timeout.Std())
}

func TestNewLogger_LevelVar(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(LogLevelWarn.Slog())
	logger := NewLogger(&buf, LogFormatJSON, level)

	logger.Info("hidden")
	require.Zero(t, buf.Len())

	level.Set(NormalizeLogLevel("debug").Slog())
	logger.Debug("shown", slog.String("k", "v"))
	require.Contains(t, buf.String(), `"msg":"shown"`)
	require.Contains(t, buf.String(), `"k":"v"`)

	require.Equal(t, LogLevelInfo, NormalizeLogLevel("verbose"))
	require.Equal(t, LogFormatText, NormalizeLogFormat("yaml"))
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitebuilder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitoring:\n  logging:\n    level: info\n"), 0o600))

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func(cfg *Config) { reloaded <- cfg })
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(path, []byte("monitoring:\n  logging:\n    level: debug\n"), 0o600))

	select {
	case cfg := <-reloaded:
		require.Equal(t, LogLevelDebug, cfg.Monitoring.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("configuration was not reloaded")
	}
	require.NoError(t, w.Stop())
}

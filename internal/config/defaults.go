package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultAddr           = ":8000"
	DefaultMaxUploadMB    = 500
	DefaultPackageManager = "npm"
	DefaultBuildTimeout   = 15 * time.Minute
	DefaultMaxUnpackMB    = 500
	DefaultInstallRetries = 0
	DefaultCapacity       = 100
	DefaultHistorySize    = 20
	DefaultJobDuration    = 3 * time.Minute
	DefaultRetention      = time.Hour
	DefaultSweepInterval  = 5 * time.Minute
	DefaultNATSURL        = "nats://127.0.0.1:4222"
	DefaultSubject        = "sitebuilder.jobs"
)

// applyDefaults fills unset fields.
func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}

	s := &cfg.Server
	if s.Addr == "" {
		s.Addr = DefaultAddr
	}
	if s.MaxUploadMB == 0 {
		s.MaxUploadMB = DefaultMaxUploadMB
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = Duration(30 * time.Second)
	}

	b := &cfg.Build
	if b.PackageManager == "" {
		b.PackageManager = DefaultPackageManager
	}
	if b.Timeout == 0 {
		b.Timeout = Duration(DefaultBuildTimeout)
	}
	if b.MaxUnpackMB == 0 {
		b.MaxUnpackMB = DefaultMaxUnpackMB
	}
	if b.RetryBackoff == "" {
		b.RetryBackoff = RetryBackoffLinear
	}
	if b.RetryInitialDelay == 0 {
		b.RetryInitialDelay = Duration(5 * time.Second)
	}
	if b.RetryMaxDelay == 0 {
		b.RetryMaxDelay = Duration(30 * time.Second)
	}

	q := &cfg.Queue
	if q.Capacity == 0 {
		q.Capacity = DefaultCapacity
	}
	if q.HistorySize == 0 {
		q.HistorySize = DefaultHistorySize
	}
	if q.DefaultDuration == 0 {
		q.DefaultDuration = Duration(DefaultJobDuration)
	}
	if q.ResultsDir == "" {
		q.ResultsDir = filepath.Join(os.TempDir(), "sitebuilder-results")
	}
	if q.Retention == 0 {
		q.Retention = Duration(DefaultRetention)
	}
	if q.SweepInterval == 0 {
		q.SweepInterval = Duration(DefaultSweepInterval)
	}

	e := &cfg.Events
	if e.NATSURL == "" {
		e.NATSURL = DefaultNATSURL
	}
	if e.Subject == "" {
		e.Subject = DefaultSubject
	}

	m := &cfg.Monitoring
	if m.Metrics.Path == "" {
		m.Metrics.Path = "/metrics"
	}
	if m.Health.Path == "" {
		m.Health.Path = "/health"
	}
	if m.Logging.Level == "" {
		m.Logging.Level = LogLevelInfo
	}
	if m.Logging.Format == "" {
		m.Logging.Format = LogFormatText
	}
}

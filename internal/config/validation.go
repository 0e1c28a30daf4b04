package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks cfg and reports every problem found.
func Validate(cfg *Config) error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if cfg.Version != CurrentVersion {
		add("unsupported configuration version: %s (expected %s)", cfg.Version, CurrentVersion)
	}
	if cfg.Server.MaxUploadMB < 0 {
		add("server.max_upload_mb must not be negative")
	}
	if cfg.Build.Timeout < 0 {
		add("build.timeout must not be negative")
	}
	if cfg.Build.MaxUnpackMB < 0 {
		add("build.max_unpack_mb must not be negative")
	}
	if strings.ContainsAny(cfg.Build.PackageManager, " \t/") {
		add("build.package_manager must be a bare command name, got %q", cfg.Build.PackageManager)
	}
	if cfg.Build.InstallRetries < 0 {
		add("build.install_retries must not be negative")
	}
	switch cfg.Build.RetryBackoff {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
	default:
		add("build.retry_backoff must be fixed, linear or exponential, got %q", cfg.Build.RetryBackoff)
	}
	if cfg.Queue.Capacity < 1 {
		add("queue.capacity must be at least 1")
	}
	if cfg.Queue.HistorySize < 1 {
		add("queue.history_size must be at least 1")
	}
	if cfg.Queue.Retention < 0 || cfg.Queue.SweepInterval < 0 || cfg.Queue.DefaultDuration < 0 {
		add("queue durations must not be negative")
	}
	if cfg.Events.Enabled && !strings.HasPrefix(cfg.Events.NATSURL, "nats://") && !strings.HasPrefix(cfg.Events.NATSURL, "tls://") {
		add("events.nats_url must be a nats:// or tls:// URL, got %q", cfg.Events.NATSURL)
	}
	for name, path := range map[string]string{
		"monitoring.metrics.path": cfg.Monitoring.Metrics.Path,
		"monitoring.health.path":  cfg.Monitoring.Health.Path,
	} {
		if !strings.HasPrefix(path, "/") {
			add("%s must start with '/', got %q", name, path)
		}
	}
	return errors.Join(errs...)
}

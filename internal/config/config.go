package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the configuration format version written by Init.
const CurrentVersion = "1.0"

// Config is the service configuration.
type Config struct {
	Version    string           `yaml:"version"`
	Server     ServerConfig     `yaml:"server"`
	Build      BuildConfig      `yaml:"build"`
	Queue      QueueConfig      `yaml:"queue"`
	Events     EventsConfig     `yaml:"events"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	UIDir           string   `yaml:"ui_dir,omitempty"` // optional static UI served under /ui/
	MaxUploadMB     int64    `yaml:"max_upload_mb"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// BuildConfig configures the conversion pipeline.
type BuildConfig struct {
	PackageManager string   `yaml:"package_manager"`
	Timeout        Duration `yaml:"timeout"`
	WorkDir        string   `yaml:"work_dir,omitempty"` // empty means the system temp dir
	MaxUnpackMB    int64    `yaml:"max_unpack_mb"`

	// InstallRetries retries a failed dependency install. The default 0 makes
	// any install failure terminal.
	InstallRetries    int              `yaml:"install_retries"`
	RetryBackoff      RetryBackoffMode `yaml:"retry_backoff"`
	RetryInitialDelay Duration         `yaml:"retry_initial_delay"`
	RetryMaxDelay     Duration         `yaml:"retry_max_delay"`
}

// RetryBackoffMode selects how retry delays grow.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// QueueConfig configures the job queue.
type QueueConfig struct {
	Capacity        int      `yaml:"capacity"`
	HistorySize     int      `yaml:"history_size"`
	DefaultDuration Duration `yaml:"default_duration"`
	ResultsDir      string   `yaml:"results_dir,omitempty"`
	Retention       Duration `yaml:"retention"`
	SweepInterval   Duration `yaml:"sweep_interval"`
}

// EventsConfig configures the NATS job event publisher.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// MonitoringConfig represents monitoring and observability configuration
type MonitoringConfig struct {
	Metrics MonitoringMetrics `yaml:"metrics"`
	Health  MonitoringHealth  `yaml:"health"`
	Logging MonitoringLogging `yaml:"logging"`
}

// MonitoringMetrics represents metrics configuration
type MonitoringMetrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MonitoringHealth represents health check configuration
type MonitoringHealth struct {
	Path string `yaml:"path"`
}

// MonitoringLogging represents logging configuration
type MonitoringLogging struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MaxUploadBytes is the upload limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 { return s.MaxUploadMB << 20 }

// MaxUnpackBytes is the extraction limit in bytes.
func (b BuildConfig) MaxUnpackBytes() int64 { return b.MaxUnpackMB << 20 }

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		Build:      BuildConfig{InstallRetries: DefaultInstallRetries},
		Monitoring: MonitoringConfig{Metrics: MonitoringMetrics{Enabled: true}},
	}
	applyDefaults(cfg)
	return cfg
}

// Load reads the configuration at configPath. A missing file yields the
// defaults; environment variables are expanded before parsing.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: %v\n", err)
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration data over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Monitoring.Logging.Level = NormalizeLogLevel(string(cfg.Monitoring.Logging.Level))
	cfg.Monitoring.Logging.Format = NormalizeLogFormat(string(cfg.Monitoring.Logging.Format))
	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.Server.UIDir = "./static"
	example.Events.NATSURL = "${NATS_URL}"

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

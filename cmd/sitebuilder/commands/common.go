// Package commands implements the sitebuilder CLI commands.
package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/blackspinne/lovable-cpannel/internal/config"
	"github.com/blackspinne/lovable-cpannel/internal/metrics"
	"github.com/blackspinne/lovable-cpannel/internal/npm"
	"github.com/blackspinne/lovable-cpannel/internal/pipeline"
	"github.com/blackspinne/lovable-cpannel/internal/retry"
)

// Global holds state shared by every command.
type Global struct {
	// Level is the live log level; config reloads update it.
	Level *slog.LevelVar
}

// NewGlobal creates the shared command state.
func NewGlobal() *Global {
	return &Global{Level: new(slog.LevelVar)}
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitebuilder.yaml" env:"SITEBUILDER_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the HTTP service with the build queue"`
	Convert ConvertCmd `cmd:"" help:"Convert one archive without the queue"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; it installs a text logger until a
// command loads its configuration.
func (c *CLI) AfterApply(g *Global) error {
	g.Level.Set(slog.LevelInfo)
	if c.Verbose {
		g.Level.Set(slog.LevelDebug)
	}
	slog.SetDefault(config.NewLogger(os.Stderr, config.LogFormatText, g.Level))
	return nil
}

// configureLogging applies the configured format and level. --verbose wins
// over the configured level.
func (g *Global) configureLogging(cfg *config.Config, verbose bool) {
	g.setLevel(cfg, verbose)
	slog.SetDefault(config.NewLogger(os.Stderr, cfg.Monitoring.Logging.Format, g.Level))
}

func (g *Global) setLevel(cfg *config.Config, verbose bool) {
	if verbose {
		g.Level.Set(slog.LevelDebug)
		return
	}
	g.Level.Set(cfg.Monitoring.Logging.Level.Slog())
}

// newConverter builds the conversion pipeline from configuration.
func newConverter(cfg *config.Config, recorder metrics.Recorder) *pipeline.Converter {
	return pipeline.NewConverter(pipeline.Options{
		Runner: npm.ExecRunner{
			Command: cfg.Build.PackageManager,
			Timeout: cfg.Build.Timeout.Std(),
		},
		WorkDir:        cfg.Build.WorkDir,
		MaxUnpackBytes: cfg.Build.MaxUnpackBytes(),
		InstallRetry:   retry.FromConfig(cfg.Build),
		Recorder:       recorder,
	})
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/blackspinne/lovable-cpannel/internal/config"
	"github.com/blackspinne/lovable-cpannel/internal/events"
	"github.com/blackspinne/lovable-cpannel/internal/logfields"
	"github.com/blackspinne/lovable-cpannel/internal/metrics"
	"github.com/blackspinne/lovable-cpannel/internal/queue"
	"github.com/blackspinne/lovable-cpannel/internal/server/httpserver"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr  string `help:"Listen address (overrides server.addr)"`
	UIDir string `name:"ui-dir" help:"Static UI directory served under /ui/ (overrides server.ui_dir)"`
	Watch bool   `help:"Apply log level changes when the config file changes" default:"true" negatable:""`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}
	if s.UIDir != "" {
		cfg.Server.UIDir = s.UIDir
	}
	g.configureLogging(cfg, root.Verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prom.NewRegistry()
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Monitoring.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheusRecorder(reg)
	}

	publisher, err := newPublisher(cfg.Events)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Warn("Failed to close event publisher", logfields.Error(err))
		}
	}()

	q, err := queue.NewManager(newConverter(cfg, recorder), queue.Options{
		Capacity:        cfg.Queue.Capacity,
		HistorySize:     cfg.Queue.HistorySize,
		DefaultDuration: cfg.Queue.DefaultDuration.Std(),
		MaxUploadBytes:  cfg.Server.MaxUploadBytes(),
		ResultsDir:      cfg.Queue.ResultsDir,
		Retention:       cfg.Queue.Retention.Std(),
		SweepInterval:   cfg.Queue.SweepInterval.Std(),
		Recorder:        recorder,
		Publisher:       publisher,
	})
	if err != nil {
		return err
	}
	if err := q.Start(ctx); err != nil {
		return err
	}

	srv := httpserver.New(cfg, q, httpserver.Options{PrometheusHandler: metrics.HTTPHandler(reg)})
	if err := srv.Start(ctx); err != nil {
		_ = q.Stop(context.Background())
		return err
	}

	if s.Watch {
		if w := s.startWatcher(ctx, g, root); w != nil {
			defer func() { _ = w.Stop() }()
		}
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping service")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer stopCancel()
	return errors.Join(srv.Stop(stopCtx), q.Stop(stopCtx))
}

// startWatcher follows the config file when it exists; failures only disable reloads.
func (s *ServeCmd) startWatcher(ctx context.Context, g *Global, root *CLI) *config.Watcher {
	if _, err := os.Stat(root.Config); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	w, err := config.NewWatcher(root.Config, 2*time.Second, func(cfg *config.Config) {
		g.setLevel(cfg, root.Verbose)
		slog.Info("Log level updated", slog.String("level", g.Level.Level().String()))
	})
	if err != nil {
		slog.Warn("Config watcher disabled", logfields.Error(err))
		return nil
	}
	if err := w.Start(ctx); err != nil {
		slog.Warn("Config watcher disabled", logfields.Error(err))
		_ = w.Stop()
		return nil
	}
	return w
}

func newPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.NoopPublisher{}, nil
	}
	p, err := events.NewNATSPublisher(cfg.NATSURL, cfg.Subject)
	if err != nil {
		return nil, fmt.Errorf("connect event publisher: %w", err)
	}
	return p, nil
}

// Package httpserver wires the job API, monitoring endpoints and the optional
// static UI onto one HTTP listener.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/blackspinne/lovable-cpannel/internal/config"
	derrors "github.com/blackspinne/lovable-cpannel/internal/foundation/errors"
	"github.com/blackspinne/lovable-cpannel/internal/logfields"
	"github.com/blackspinne/lovable-cpannel/internal/server/handlers"
	smw "github.com/blackspinne/lovable-cpannel/internal/server/middleware"
)

const uiPrefix = "/ui/"

// Options configures optional endpoints.
type Options struct {
	// PrometheusHandler serves the metrics path when metrics are enabled.
	PrometheusHandler http.Handler
	// StartTime is reported as uptime by the health endpoint.
	StartTime time.Time
}

// Server serves the HTTP API.
type Server struct {
	cfg          *config.Config
	opts         Options
	errorAdapter *derrors.HTTPErrorAdapter

	taskHandlers       *handlers.TaskHandlers
	monitoringHandlers *handlers.MonitoringHandlers

	mchain func(http.Handler) http.Handler
	srv    *http.Server
}

// New constructs the server for q.
func New(cfg *config.Config, q handlers.JobQueue, opts Options) *Server {
	if opts.StartTime.IsZero() {
		opts.StartTime = time.Now()
	}
	s := &Server{
		cfg:          cfg,
		opts:         opts,
		errorAdapter: derrors.NewHTTPErrorAdapter(slog.Default()),
	}
	s.taskHandlers = handlers.NewTaskHandlers(q, cfg.Server.MaxUploadBytes())
	s.monitoringHandlers = handlers.NewMonitoringHandlers(q, opts.StartTime)
	s.mchain = smw.Chain(slog.Default(), s.errorAdapter)
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /tasks", s.taskHandlers.HandleEnqueue)
	mux.HandleFunc("GET /tasks/{id}/status", s.taskHandlers.HandleStatus)
	mux.HandleFunc("GET /tasks/{id}/download", s.taskHandlers.HandleDownload)
	mux.HandleFunc("POST /build", s.taskHandlers.HandleBuild)

	mux.HandleFunc("GET "+s.cfg.Monitoring.Health.Path, s.monitoringHandlers.HandleHealthCheck)
	if s.cfg.Monitoring.Health.Path != "/healthz" {
		mux.HandleFunc("GET /healthz", s.monitoringHandlers.HandleHealthCheck)
	}
	if s.cfg.Monitoring.Metrics.Enabled && s.opts.PrometheusHandler != nil {
		mux.Handle("GET "+s.cfg.Monitoring.Metrics.Path, s.opts.PrometheusHandler)
	}

	if dir := s.cfg.Server.UIDir; dir != "" {
		mux.Handle("GET "+uiPrefix, http.StripPrefix(uiPrefix, http.FileServer(http.Dir(dir))))
		mux.Handle("GET /{$}", http.RedirectHandler(uiPrefix, http.StatusTemporaryRedirect))
	}

	return s.mchain(mux)
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("http startup failed: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves on a bound listener in the background.
func (s *Server) Serve(ln net.Listener) error {
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", logfields.Error(err))
		}
	}()
	slog.Info("HTTP server started", slog.String("addr", ln.Addr().String()), slog.String("ui_dir", s.cfg.Server.UIDir))
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}

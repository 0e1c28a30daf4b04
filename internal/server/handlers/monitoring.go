package handlers

import (
	"log/slog"
	"net/http"
	"time"

	derrors "github.com/blackspinne/lovable-cpannel/internal/foundation/errors"
	"github.com/blackspinne/lovable-cpannel/internal/server/responses"
	"github.com/blackspinne/lovable-cpannel/internal/version"
)

// QueueStats is the queue view needed by the health endpoint.
type QueueStats interface {
	Pending() (jobs, payloads int)
}

// MonitoringHandlers contains monitoring-related HTTP handlers.
type MonitoringHandlers struct {
	queue        QueueStats
	startTime    time.Time
	errorAdapter *derrors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance.
func NewMonitoringHandlers(q QueueStats, startTime time.Time) *MonitoringHandlers {
	return &MonitoringHandlers{
		queue:        q,
		startTime:    startTime,
		errorAdapter: derrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHealthCheck handles the health check endpoint.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &responses.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(h.startTime).Seconds(),
	}
	if h.queue != nil {
		health.QueueLength, _ = h.queue.Pending()
	}

	if err := writeJSONPretty(w, r, http.StatusOK, health); err != nil {
		internalErr := derrors.WrapError(err, derrors.CategoryInternal, "failed to write health response").Build()
		h.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}

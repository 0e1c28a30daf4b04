// Package responses defines API response types used by the sitebuilder HTTP handlers.
package responses

import (
	"time"

	"github.com/blackspinne/lovable-cpannel/internal/queue"
)

// EnqueueResponse is returned when a job is accepted.
type EnqueueResponse struct {
	ID         string      `json:"id"`
	Status     queue.State `json:"status"`
	Position   int         `json:"position"`
	ETASeconds float64     `json:"eta_seconds"`
}

// StatusResponse is the polled view of a job.
type StatusResponse struct {
	ID          string      `json:"id"`
	Status      queue.State `json:"status"`
	Position    int         `json:"position"`
	Progress    float64     `json:"progress"`
	Message     string      `json:"message"`
	ETASeconds  float64     `json:"eta_seconds"`
	Error       string      `json:"error,omitempty"`
	DownloadURL string      `json:"download_url,omitempty"`
}

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Version     string    `json:"version"`
	Uptime      float64   `json:"uptime"`
	QueueLength int       `json:"queue_length"`
}

// NewEnqueueResponse converts a queue status.
func NewEnqueueResponse(st queue.Status) *EnqueueResponse {
	return &EnqueueResponse{ID: st.ID, Status: st.State, Position: st.Position, ETASeconds: st.ETASeconds}
}

// NewStatusResponse converts a queue status; downloadURL is only set for
// finished jobs.
func NewStatusResponse(st queue.Status, downloadURL string) *StatusResponse {
	resp := &StatusResponse{
		ID:         st.ID,
		Status:     st.State,
		Position:   st.Position,
		Progress:   st.Progress,
		Message:    st.Message,
		ETASeconds: st.ETASeconds,
		Error:      st.Error,
	}
	if st.State == queue.StateDone {
		resp.DownloadURL = downloadURL
	}
	return resp
}

package queue

import (
	"errors"
	"strings"
	"time"
)

// State is the lifecycle state of a job.
type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateError   State = "error"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool { return s == StateDone || s == StateError }

var (
	ErrInvalidSlug    = errors.New("invalid slug")
	ErrUploadTooLarge = errors.New("upload too large")
	ErrEmptyUpload    = errors.New("empty upload")
	ErrQueueFull      = errors.New("build queue is full")
	ErrJobNotFound    = errors.New("job not found")
	ErrNotReady       = errors.New("job not finished yet")
	ErrJobFailed      = errors.New("job failed")
	ErrStopped        = errors.New("queue stopped")
)

// Job is one conversion request.
type Job struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Filename string `json:"filename,omitempty"`

	State    State   `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`

	ResultPath  string `json:"-"`
	ErrorDetail string `json:"error,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	done chan struct{}
}

func (j *Job) snapshot() Job {
	cp := *j
	cp.done = nil
	return cp
}

// DownloadName is the file name offered for a job's bundle.
func DownloadName(slug string) string {
	if slug == "" {
		return "site.zip"
	}
	return strings.ReplaceAll(slug, "/", "-") + "-site.zip"
}

// Status is the polled view of a job.
type Status struct {
	ID         string  `json:"id"`
	State      State   `json:"status"`
	Position   int     `json:"position"`
	Progress   float64 `json:"progress"`
	Message    string  `json:"message"`
	ETASeconds float64 `json:"eta_seconds"`
	Error      string  `json:"error,omitempty"`
}

// ResultInfo locates a finished bundle.
type ResultInfo struct {
	Path     string
	Filename string
}

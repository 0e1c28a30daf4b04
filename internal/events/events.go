// Package events publishes job lifecycle notifications.
package events

import (
	"context"
	"time"
)

// Type names a job lifecycle transition.
type Type string

const (
	JobQueued  Type = "queued"
	JobStarted Type = "started"
	JobDone    Type = "done"
	JobFailed  Type = "failed"
)

// Event is one lifecycle notification.
type Event struct {
	Type      Type      `json:"type"`
	JobID     string    `json:"job_id"`
	Slug      string    `json:"slug"`
	Filename  string    `json:"filename,omitempty"`
	Position  int       `json:"position,omitempty"`
	Framework string    `json:"framework,omitempty"`
	Error     string    `json:"error,omitempty"`
	Duration  float64   `json:"duration_seconds,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events. Publish must not block for long; failures are
// reported but never affect the job.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

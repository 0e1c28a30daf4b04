package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// JobOutcomeLabel is the terminal state of a job.
type JobOutcomeLabel string

const (
	JobDone   JobOutcomeLabel = "done"
	JobFailed JobOutcomeLabel = "error"
)

// Recorder defines observability hooks for pipeline and queue metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveJobDuration(d time.Duration)
	IncJobOutcome(outcome JobOutcomeLabel)
	IncFramework(framework string)
	IncRejected(reason string)
	SetQueueDepth(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveJobDuration(time.Duration)           {}
func (NoopRecorder) IncJobOutcome(JobOutcomeLabel)              {}
func (NoopRecorder) IncFramework(string)                        {}
func (NoopRecorder) IncRejected(string)                         {}
func (NoopRecorder) SetQueueDepth(int)                          {}

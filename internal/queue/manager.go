package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/blackspinne/lovable-cpannel/internal/events"
	"github.com/blackspinne/lovable-cpannel/internal/logfields"
	"github.com/blackspinne/lovable-cpannel/internal/metrics"
	"github.com/blackspinne/lovable-cpannel/internal/pipeline"
	"github.com/blackspinne/lovable-cpannel/internal/workspace"
)

// Converter runs one conversion. *pipeline.Converter implements it.
type Converter interface {
	Convert(ctx context.Context, req pipeline.Request, progress pipeline.ProgressFunc) (*pipeline.Report, error)
}

// Options configures a Manager.
type Options struct {
	// Capacity bounds the number of queued jobs.
	Capacity int
	// HistorySize bounds the duration history used for ETAs.
	HistorySize int
	// DefaultDuration is the ETA basis before any job has finished.
	DefaultDuration time.Duration
	// MaxUploadBytes rejects larger uploads; <= 0 disables the check.
	MaxUploadBytes int64
	// ResultsDir holds finished bundles. It is emptied by NewManager.
	ResultsDir string
	// Retention is how long terminal jobs are kept; <= 0 keeps them forever.
	Retention time.Duration
	// SweepInterval is how often expired jobs are removed.
	SweepInterval time.Duration

	Recorder  metrics.Recorder
	Publisher events.Publisher
	// Now overrides the clock, for tests.
	Now func() time.Time
}

const (
	defaultCapacity      = 100
	defaultHistorySize   = 20
	defaultDuration      = 180 * time.Second
	defaultSweepInterval = 5 * time.Minute
	messageStarting      = "Starting…"
	messageDone          = "Done"
	messageFailed        = "Processing failed"
)

// Manager owns the job table and the single worker.
type Manager struct {
	conv     Converter
	opts     Options
	validate *validator.Validate
	payloads *PayloadStore
	queue    chan string
	now      func() time.Time

	recorder  metrics.Recorder
	publisher events.Publisher
	sweeper   *sweeper

	mu        sync.Mutex
	jobs      map[string]*Job
	pending   []string
	running   string
	durations durationHistory
	stopped   bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a Manager and prepares an empty results directory.
func NewManager(conv Converter, opts Options) (*Manager, error) {
	if conv == nil {
		return nil, errors.New("queue: converter is required")
	}
	if opts.ResultsDir == "" {
		return nil, errors.New("queue: results directory is required")
	}
	if opts.Capacity <= 0 {
		opts.Capacity = defaultCapacity
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = defaultHistorySize
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = defaultDuration
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NoopPublisher{}
	}
	if err := workspace.ResetDir(opts.ResultsDir); err != nil {
		return nil, fmt.Errorf("prepare results directory: %w", err)
	}

	return &Manager{
		conv:      conv,
		opts:      opts,
		validate:  newValidator(),
		payloads:  NewPayloadStore(),
		queue:     make(chan string, opts.Capacity),
		now:       opts.Now,
		recorder:  opts.Recorder,
		publisher: opts.Publisher,
		jobs:      make(map[string]*Job),
		durations: durationHistory{size: opts.HistorySize, fallback: opts.DefaultDuration},
	}, nil
}

// Start launches the worker and, when retention is enabled, the sweeper.
func (m *Manager) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if m.opts.Retention > 0 {
		sw, err := newSweeper(m, m.opts.SweepInterval)
		if err != nil {
			cancel()
			return err
		}
		m.sweeper = sw
		sw.start()
	}

	slog.Info("Starting build queue", slog.Int("capacity", m.opts.Capacity), slog.String("retention", m.opts.Retention.String()))
	m.wg.Add(1)
	go m.worker(ctx)
	return nil
}

// Stop cancels the running job, waits for the worker and stops the sweeper.
// Jobs still waiting are failed with ErrStopped.
func (m *Manager) Stop(_ context.Context) error {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()

	m.mu.Lock()
	for _, id := range m.pending {
		if job := m.jobs[id]; job != nil {
			m.finishLocked(job, ErrStopped.Error(), "")
		}
		m.payloads.Take(id)
	}
	m.pending = nil
	m.mu.Unlock()

	if m.sweeper != nil {
		return m.sweeper.stop()
	}
	return nil
}

// Submit validates req and enqueues a job.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (Status, error) {
	req.Slug = NormalizeSlug(req.Slug)
	if err := m.validate.StructCtx(ctx, req); err != nil {
		m.recorder.IncRejected("invalid_slug")
		return Status{}, fmt.Errorf("%w: %q must match %s", ErrInvalidSlug, req.Slug, slugPattern.String())
	}
	if len(req.Archive) == 0 {
		m.recorder.IncRejected("empty_upload")
		return Status{}, ErrEmptyUpload
	}
	if limit := m.opts.MaxUploadBytes; limit > 0 && int64(len(req.Archive)) > limit {
		m.recorder.IncRejected("too_large")
		return Status{}, fmt.Errorf("%w: %s exceeds the %s limit", ErrUploadTooLarge,
			humanize.Bytes(uint64(len(req.Archive))), humanize.Bytes(uint64(limit)))
	}

	job := &Job{
		ID:         uuid.NewString(),
		Slug:       req.Slug,
		Filename:   req.Filename,
		State:      StateQueued,
		EnqueuedAt: m.now(),
		done:       make(chan struct{}),
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return Status{}, ErrStopped
	}
	select {
	case m.queue <- job.ID:
	default:
		m.mu.Unlock()
		m.recorder.IncRejected("queue_full")
		return Status{}, ErrQueueFull
	}
	m.payloads.Put(job.ID, req.Archive)
	m.jobs[job.ID] = job
	m.pending = append(m.pending, job.ID)
	st := m.statusLocked(job)
	m.recorder.SetQueueDepth(len(m.pending))
	m.mu.Unlock()

	slog.Info("Job queued", logfields.JobID(job.ID), logfields.Slug(job.Slug),
		logfields.Size(int64(len(req.Archive))), logfields.Position(st.Position))
	m.publish(events.Event{Type: events.JobQueued, JobID: job.ID, Slug: job.Slug, Filename: job.Filename, Position: st.Position})
	return st, nil
}

// Status returns the polled view of a job.
func (m *Manager) Status(id string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Status{}, ErrJobNotFound
	}
	return m.statusLocked(job), nil
}

// Snapshot returns a copy of a job.
func (m *Manager) Snapshot(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.snapshot(), true
}

// Position returns the queue position of a job: 0 while running or
// finished, -1 when unknown.
func (m *Manager) Position(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return -1
	}
	return m.positionLocked(job)
}

// Result returns the bundle location of a finished job.
func (m *Manager) Result(id string) (ResultInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return ResultInfo{}, ErrJobNotFound
	}
	switch job.State {
	case StateDone:
		return ResultInfo{Path: job.ResultPath, Filename: DownloadName(job.Slug)}, nil
	case StateError:
		return ResultInfo{}, fmt.Errorf("%w: %s", ErrJobFailed, job.ErrorDetail)
	default:
		return ResultInfo{}, ErrNotReady
	}
}

// Wait blocks until the job is terminal or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (Job, error) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return Job{}, ErrJobNotFound
	}
	select {
	case <-job.done:
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return job.snapshot(), nil
}

// Pending returns the number of queued jobs and stored payloads.
func (m *Manager) Pending() (jobs, payloads int) {
	m.mu.Lock()
	jobs = len(m.pending)
	m.mu.Unlock()
	return jobs, m.payloads.Len()
}

func (m *Manager) statusLocked(job *Job) Status {
	st := Status{
		ID:       job.ID,
		State:    job.State,
		Position: m.positionLocked(job),
		Message:  job.Message,
		Error:    job.ErrorDetail,
	}
	avg := m.durations.average()
	switch job.State {
	case StateQueued:
		st.ETASeconds = queuedETA(avg, st.Position).Seconds()
	case StateRunning:
		st.Progress = job.Progress
		st.ETASeconds = runningETA(avg, m.now().Sub(job.StartedAt), job.Progress).Seconds()
	case StateDone:
		st.Progress = 100
	}
	return st
}

func (m *Manager) positionLocked(job *Job) int {
	if job.State != StateQueued {
		return 0
	}
	idx := slices.Index(m.pending, job.ID)
	if idx < 0 {
		idx = 0
	}
	if m.running != "" {
		idx++
	}
	return idx
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-m.queue:
			m.process(ctx, id)
		}
	}
}

func (m *Manager) process(ctx context.Context, id string) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok || job.State != StateQueued {
		m.mu.Unlock()
		m.payloads.Take(id)
		return
	}
	m.pending = slices.DeleteFunc(m.pending, func(p string) bool { return p == id })
	m.running = id
	job.State = StateRunning
	job.StartedAt = m.now()
	job.Progress = 0
	job.Message = messageStarting
	slug := job.Slug
	m.recorder.SetQueueDepth(len(m.pending))
	m.mu.Unlock()

	slog.Info("Job started", logfields.JobID(id), logfields.Slug(slug))
	m.publish(events.Event{Type: events.JobStarted, JobID: id, Slug: slug})

	data, _ := m.payloads.Take(id)
	out := filepath.Join(m.opts.ResultsDir, id+".zip")
	report, err := m.execute(ctx, id, slug, data, out)

	m.mu.Lock()
	elapsed := m.now().Sub(job.StartedAt)
	m.durations.add(elapsed)
	m.running = ""
	if err != nil {
		m.finishLocked(job, err.Error(), "")
	} else {
		m.finishLocked(job, "", out)
	}
	m.mu.Unlock()

	m.recorder.ObserveJobDuration(elapsed)
	ev := events.Event{JobID: id, Slug: slug, Duration: elapsed.Seconds()}
	if err != nil {
		_ = os.Remove(out)
		m.recorder.IncJobOutcome(metrics.JobFailed)
		slog.Error("Job failed", logfields.JobID(id), logfields.Slug(slug), logfields.Error(err))
		ev.Type, ev.Error = events.JobFailed, err.Error()
	} else {
		m.recorder.IncJobOutcome(metrics.JobDone)
		slog.Info("Job done", logfields.JobID(id), logfields.Slug(slug),
			logfields.Framework(string(report.Framework)), logfields.DurationMS(float64(elapsed.Milliseconds())))
		ev.Type, ev.Framework = events.JobDone, string(report.Framework)
	}
	m.publish(ev)
}

// execute runs the converter, turning a panic into an error.
func (m *Manager) execute(ctx context.Context, id, slug string, data []byte, out string) (report *pipeline.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Job panicked", logfields.JobID(id), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			report, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()
	if len(data) == 0 {
		return nil, errors.New("upload payload missing")
	}
	report, err = m.conv.Convert(ctx, pipeline.Request{Slug: slug, Archive: data, Output: out}, func(pct float64, msg string) {
		m.setProgress(id, pct, msg)
	})
	if err == nil && report == nil {
		err = errors.New("converter returned no report")
	}
	return report, err
}

// setProgress records a checkpoint; progress never moves backwards.
func (m *Manager) setProgress(id string, pct float64, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.State != StateRunning {
		return
	}
	pct = min(max(pct, 0), 100)
	if pct > job.Progress {
		job.Progress = pct
	}
	if msg != "" {
		job.Message = msg
	}
}

func (m *Manager) finishLocked(job *Job, errDetail, resultPath string) {
	job.FinishedAt = m.now()
	if errDetail != "" {
		job.State = StateError
		job.ErrorDetail = errDetail
		job.Message = messageFailed
		job.ResultPath = ""
	} else {
		job.State = StateDone
		job.Progress = 100
		job.Message = messageDone
		job.ResultPath = resultPath
	}
	close(job.done)
}

func (m *Manager) publish(ev events.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = m.now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("Failed to publish job event", logfields.JobID(ev.JobID), slog.String("type", string(ev.Type)), logfields.Error(err))
	}
}

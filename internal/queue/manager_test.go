package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blackspinne/lovable-cpannel/internal/events"
	"github.com/blackspinne/lovable-cpannel/internal/pipeline"
	"github.com/blackspinne/lovable-cpannel/internal/project"
)

type fakeConverter struct {
	mu        sync.Mutex
	order     []string
	active    int
	maxActive int
	gate      chan struct{}
	behavior  func(req pipeline.Request, progress pipeline.ProgressFunc) error
}

func (f *fakeConverter) Convert(ctx context.Context, req pipeline.Request, progress pipeline.ProgressFunc) (*pipeline.Report, error) {
	f.mu.Lock()
	f.order = append(f.order, req.Slug)
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	progress(pipeline.ProgressExtract, "Extracting archive…")
	if f.behavior != nil {
		if err := f.behavior(req, progress); err != nil {
			return nil, err
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := os.WriteFile(req.Output, []byte("PK"), 0o600); err != nil {
		return nil, err
	}
	return &pipeline.Report{Slug: req.Slug, Framework: project.FrameworkVite, ResultPath: req.Output}, nil
}

func (f *fakeConverter) peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}

func (f *fakeConverter) processed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types(jobID string) []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Type
	for _, ev := range p.events {
		if ev.JobID == jobID {
			out = append(out, ev.Type)
		}
	}
	return out
}

func newTestManager(t *testing.T, conv Converter, opts Options) *Manager {
	t.Helper()
	if opts.ResultsDir == "" {
		opts.ResultsDir = filepath.Join(t.TempDir(), "results")
	}
	m, err := NewManager(conv, opts)
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop(context.Background()) })
	return m
}

func submit(t *testing.T, m *Manager, slug string) string {
	t.Helper()
	st, err := m.Submit(context.Background(), SubmitRequest{Slug: slug, Filename: slug + ".zip", Archive: []byte("zip-bytes")})
	require.NoError(t, err)
	return st.ID
}

func waitState(t *testing.T, m *Manager, id string, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := m.Status(id)
		return err == nil && st.State == want
	}, 5*time.Second, 5*time.Millisecond, "job %s never reached %s", id, want)
}

func TestSubmit_Validation(t *testing.T) {
	conv := &fakeConverter{}
	m := newTestManager(t, conv, Options{MaxUploadBytes: 8})

	for _, slug := range []string{"", "  ", "Demo", "-demo", "demo site", "demo!", "/demo"} {
		_, err := m.Submit(context.Background(), SubmitRequest{Slug: slug, Archive: []byte("x")})
		require.ErrorIs(t, err, ErrInvalidSlug, "slug %q", slug)
	}

	_, err := m.Submit(context.Background(), SubmitRequest{Slug: "demo", Archive: nil})
	require.ErrorIs(t, err, ErrEmptyUpload)

	_, err = m.Submit(context.Background(), SubmitRequest{Slug: "demo", Archive: []byte("123456789")})
	require.ErrorIs(t, err, ErrUploadTooLarge)
	require.Contains(t, err.Error(), "9 B")

	jobs, payloads := m.Pending()
	require.Zero(t, jobs)
	require.Zero(t, payloads)
	require.Empty(t, conv.processed())
}

func TestSubmit_NormalizesSlug(t *testing.T) {
	m := newTestManager(t, &fakeConverter{}, Options{})
	st, err := m.Submit(context.Background(), SubmitRequest{Slug: "  apps/demo_1/ ", Archive: []byte("x")})
	require.NoError(t, err)
	job, ok := m.Snapshot(st.ID)
	require.True(t, ok)
	require.Equal(t, "apps/demo_1", job.Slug)
}

func TestWorker_FIFOAndSingleSlot(t *testing.T) {
	gate := make(chan struct{})
	conv := &fakeConverter{gate: gate}
	pub := &recordingPublisher{}
	m := newTestManager(t, conv, Options{Publisher: pub})

	a, b, c := submit(t, m, "a"), submit(t, m, "b"), submit(t, m, "c")
	waitState(t, m, a, StateRunning)

	stB, err := m.Status(b)
	require.NoError(t, err)
	require.Equal(t, StateQueued, stB.State)
	require.Equal(t, 1, stB.Position)
	require.Zero(t, stB.Progress)
	stC, err := m.Status(c)
	require.NoError(t, err)
	require.Equal(t, 2, stC.Position)
	stA, err := m.Status(a)
	require.NoError(t, err)
	require.Equal(t, 0, stA.Position)

	close(gate)
	for _, id := range []string{a, b, c} {
		job, err := m.Wait(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, StateDone, job.State)
		require.Equal(t, float64(100), job.Progress)
	}
	require.Equal(t, []string{"a", "b", "c"}, conv.processed())
	require.Equal(t, 1, conv.peak())
	require.Eventually(t, func() bool {
		return slices.Equal([]events.Type{events.JobQueued, events.JobStarted, events.JobDone}, pub.types(a))
	}, 5*time.Second, 5*time.Millisecond)

	_, payloads := m.Pending()
	require.Zero(t, payloads)
}

func TestStatus_ProgressIsMonotonic(t *testing.T) {
	gate := make(chan struct{})
	conv := &fakeConverter{gate: gate, behavior: func(_ pipeline.Request, progress pipeline.ProgressFunc) error {
		progress(65, "Building…")
		progress(20, "stale")
		progress(250, "")
		return nil
	}}
	m := newTestManager(t, conv, Options{})
	id := submit(t, m, "p")
	waitState(t, m, id, StateRunning)

	require.Eventually(t, func() bool {
		st, _ := m.Status(id)
		return st.Progress == 100
	}, 5*time.Second, 5*time.Millisecond)
	st, err := m.Status(id)
	require.NoError(t, err)
	require.Equal(t, "stale", st.Message)
	require.GreaterOrEqual(t, st.ETASeconds, 1.0)
	close(gate)
}

func TestWorker_FailureAndRecovery(t *testing.T) {
	conv := &fakeConverter{behavior: func(req pipeline.Request, _ pipeline.ProgressFunc) error {
		switch req.Slug {
		case "fails":
			return errors.New("fatal stage build: npm run build failed (exit 1)")
		case "panics":
			panic("boom")
		}
		return nil
	}}
	pub := &recordingPublisher{}
	m := newTestManager(t, conv, Options{Publisher: pub})

	failed, panicked, ok := submit(t, m, "fails"), submit(t, m, "panics"), submit(t, m, "ok")

	job, err := m.Wait(context.Background(), failed)
	require.NoError(t, err)
	require.Equal(t, StateError, job.State)
	require.Contains(t, job.ErrorDetail, "exit 1")
	require.Empty(t, job.ResultPath)

	_, err = m.Result(failed)
	require.ErrorIs(t, err, ErrJobFailed)
	require.Contains(t, err.Error(), "exit 1")
	_, statErr := os.Stat(filepath.Join(m.opts.ResultsDir, failed+".zip"))
	require.True(t, os.IsNotExist(statErr))
	require.Eventually(t, func() bool {
		return slices.Equal([]events.Type{events.JobQueued, events.JobStarted, events.JobFailed}, pub.types(failed))
	}, 5*time.Second, 5*time.Millisecond)

	job, err = m.Wait(context.Background(), panicked)
	require.NoError(t, err)
	require.Equal(t, StateError, job.State)
	require.Contains(t, job.ErrorDetail, "boom")

	job, err = m.Wait(context.Background(), ok)
	require.NoError(t, err)
	require.Equal(t, StateDone, job.State)

	res, err := m.Result(ok)
	require.NoError(t, err)
	require.Equal(t, "ok-site.zip", res.Filename)
	require.FileExists(t, res.Path)
}

func TestResult_States(t *testing.T) {
	gate := make(chan struct{})
	m := newTestManager(t, &fakeConverter{gate: gate}, Options{})

	_, err := m.Result("missing")
	require.ErrorIs(t, err, ErrJobNotFound)
	_, err = m.Status("missing")
	require.ErrorIs(t, err, ErrJobNotFound)
	require.Equal(t, -1, m.Position("missing"))

	id := submit(t, m, "slow")
	_, err = m.Result(id)
	require.ErrorIs(t, err, ErrNotReady)
	close(gate)
}

func TestSubmit_QueueFull(t *testing.T) {
	gate := make(chan struct{})
	m := newTestManager(t, &fakeConverter{gate: gate}, Options{Capacity: 1})

	first := submit(t, m, "first")
	waitState(t, m, first, StateRunning)
	submit(t, m, "second")

	_, err := m.Submit(context.Background(), SubmitRequest{Slug: "third", Archive: []byte("x")})
	require.ErrorIs(t, err, ErrQueueFull)
	close(gate)
}

func TestWait_ContextCanceled(t *testing.T) {
	gate := make(chan struct{})
	m := newTestManager(t, &fakeConverter{gate: gate}, Options{})
	id := submit(t, m, "w")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.Wait(ctx, id)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	close(gate)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSweep_RemovesExpiredJobs(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, &fakeConverter{}, Options{Retention: time.Hour, SweepInterval: time.Hour, Now: clock.Now})

	id := submit(t, m, "old")
	job, err := m.Wait(context.Background(), id)
	require.NoError(t, err)
	require.FileExists(t, job.ResultPath)

	require.Zero(t, m.Sweep(clock.Now()))
	clock.Advance(2 * time.Hour)
	require.Equal(t, 1, m.Sweep(clock.Now()))

	_, err = m.Status(id)
	require.ErrorIs(t, err, ErrJobNotFound)
	require.NoFileExists(t, job.ResultPath)
}

func TestNewManager_WipesResults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	stale := filepath.Join(dir, "stale.zip")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))

	_, err := NewManager(&fakeConverter{}, Options{ResultsDir: dir})
	require.NoError(t, err)
	require.NoFileExists(t, stale)
	require.DirExists(t, dir)
}

func TestStop_FailsWaitingJobs(t *testing.T) {
	gate := make(chan struct{})
	m, err := NewManager(&fakeConverter{gate: gate}, Options{ResultsDir: filepath.Join(t.TempDir(), "r")})
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))

	running := submit(t, m, "running")
	waitState(t, m, running, StateRunning)
	waiting := submit(t, m, "waiting")

	require.NoError(t, m.Stop(context.Background()))

	job, err := m.Wait(context.Background(), waiting)
	require.NoError(t, err)
	require.Equal(t, StateError, job.State)
	job, err = m.Wait(context.Background(), running)
	require.NoError(t, err)
	require.Equal(t, StateError, job.State)

	_, err = m.Submit(context.Background(), SubmitRequest{Slug: "late", Archive: []byte("x")})
	require.ErrorIs(t, err, ErrStopped)
}

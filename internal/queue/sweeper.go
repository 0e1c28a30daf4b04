package queue

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/blackspinne/lovable-cpannel/internal/logfields"
)

// sweeper periodically drops expired jobs.
type sweeper struct {
	scheduler gocron.Scheduler
}

func newSweeper(m *Manager, interval time.Duration) (*sweeper, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { m.Sweep(m.now()) }),
		gocron.WithName("job-retention-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to schedule retention sweep: %w", err)
	}
	return &sweeper{scheduler: s}, nil
}

func (s *sweeper) start() { s.scheduler.Start() }

func (s *sweeper) stop() error { return s.scheduler.Shutdown() }

// Sweep removes terminal jobs that finished more than the retention window
// before now, deleting their bundles. It returns the number removed.
func (m *Manager) Sweep(now time.Time) int {
	if m.opts.Retention <= 0 {
		return 0
	}
	var expired []*Job
	m.mu.Lock()
	for id, job := range m.jobs {
		if job.State.Terminal() && now.Sub(job.FinishedAt) > m.opts.Retention {
			expired = append(expired, job)
			delete(m.jobs, id)
		}
	}
	m.mu.Unlock()

	for _, job := range expired {
		if job.ResultPath != "" {
			if err := os.Remove(job.ResultPath); err != nil && !os.IsNotExist(err) {
				slog.Warn("Failed to remove expired bundle", logfields.JobID(job.ID), logfields.Path(job.ResultPath), logfields.Error(err))
			}
		}
	}
	if len(expired) > 0 {
		slog.Info("Removed expired jobs", slog.Int("count", len(expired)))
	}
	return len(expired)
}

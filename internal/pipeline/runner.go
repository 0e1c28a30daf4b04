package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/blackspinne/lovable-cpannel/internal/logfields"
	"github.com/blackspinne/lovable-cpannel/internal/metrics"
)

// ProgressFunc receives a percentage in [0,100] and a human-readable step.
type ProgressFunc func(percent float64, message string)

// RunStages executes stages in order, recording timing and stopping on the first error.
func RunStages(ctx context.Context, st *State, defs []StageDef, progress ProgressFunc, recorder metrics.Recorder) error {
	if progress == nil {
		progress = func(float64, string) {}
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	for _, def := range defs {
		select {
		case <-ctx.Done():
			return NewCanceledStageError(def.Name, ctx.Err())
		default:
		}

		progress(def.Progress, def.Message)
		t0 := time.Now()
		err := def.Fn(ctx, st)
		dur := time.Since(t0)
		st.StageDurations[def.Name] = dur
		recorder.ObserveStageDuration(string(def.Name), dur)

		if err != nil {
			recorder.IncStageResult(string(def.Name), metrics.ResultFailed)
			slog.Error("Stage failed", logfields.Stage(string(def.Name)), logfields.Slug(st.Slug), logfields.Error(err))
			var se *StageError
			if errors.As(err, &se) {
				return se
			}
			if ctx.Err() != nil {
				return NewCanceledStageError(def.Name, err)
			}
			return NewFatalStageError(def.Name, err)
		}
		recorder.IncStageResult(string(def.Name), metrics.ResultSuccess)
		slog.Debug("Stage complete", logfields.Stage(string(def.Name)), logfields.DurationMS(float64(dur.Milliseconds())))
	}
	return nil
}

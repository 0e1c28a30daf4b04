package pipeline

import (
	"context"
	"fmt"
)

// Stage is a discrete unit of work in a conversion.
type Stage func(ctx context.Context, st *State) error

// StageName is a strongly-typed identifier for a pipeline stage.
type StageName string

// Canonical stage names.
const (
	StageExtract   StageName = "extract"
	StageLocate    StageName = "locate"
	StageDetect    StageName = "detect"
	StagePatch     StageName = "patch"
	StageBuild     StageName = "build"
	StageNormalize StageName = "normalize"
	StageArchive   StageName = "archive"
)

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Conversion must abort.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying the failing stage and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// NewFatalStageError creates a new fatal stage error.
func NewFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

// NewCanceledStageError creates a stage error for a cancelled context.
func NewCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// StageDef pairs a stage with the progress checkpoint reported when it starts.
type StageDef struct {
	Name     StageName
	Progress float64
	Message  string
	Fn       Stage
}

// Pipeline is a fluent builder for ordered stage definitions.
type Pipeline struct{ Defs []StageDef }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{Defs: make([]StageDef, 0, 8)} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name StageName, progress float64, message string, fn Stage) *Pipeline {
	p.Defs = append(p.Defs, StageDef{Name: name, Progress: progress, Message: message, Fn: fn})
	return p
}

// AddIf appends a stage only if cond is true.
func (p *Pipeline) AddIf(cond bool, name StageName, progress float64, message string, fn Stage) *Pipeline {
	if cond {
		p.Add(name, progress, message, fn)
	}
	return p
}

// Build returns a copy of the stage definitions slice.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.Defs))
	copy(out, p.Defs)
	return out
}

package pipeline

import (
	"time"

	"github.com/blackspinne/lovable-cpannel/internal/normalize"
	"github.com/blackspinne/lovable-cpannel/internal/patch"
	"github.com/blackspinne/lovable-cpannel/internal/project"
)

// State carries data between the stages of one conversion.
type State struct {
	Slug    string
	Archive []byte
	// Output is the path the result zip is written to.
	Output string

	WorkDir   string
	SourceDir string
	Project   project.Result
	Framework project.Framework
	Patches   patch.Report
	OutputDir string
	Rewrites  normalize.Stats

	StageDurations map[StageName]time.Duration
}

// Buildable reports whether the located project goes through the external build.
func (s *State) Buildable() bool {
	return s.Project.Outcome == project.Found && s.Framework != project.FrameworkUnknown
}

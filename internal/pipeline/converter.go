package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/blackspinne/lovable-cpannel/internal/archive"
	"github.com/blackspinne/lovable-cpannel/internal/logfields"
	"github.com/blackspinne/lovable-cpannel/internal/metrics"
	"github.com/blackspinne/lovable-cpannel/internal/normalize"
	"github.com/blackspinne/lovable-cpannel/internal/npm"
	"github.com/blackspinne/lovable-cpannel/internal/patch"
	"github.com/blackspinne/lovable-cpannel/internal/project"
	"github.com/blackspinne/lovable-cpannel/internal/retry"
	"github.com/blackspinne/lovable-cpannel/internal/workspace"
)

// Progress checkpoints reported as each stage starts.
const (
	ProgressExtract   = 5
	ProgressLocate    = 15
	ProgressDetect    = 20
	ProgressPatch     = 35
	ProgressBuild     = 65
	ProgressNormalize = 85
	ProgressArchive   = 95
	ProgressDone      = 100
)

// Options configures a Converter.
type Options struct {
	// Runner executes the package manager; nil uses npm.ExecRunner defaults.
	Runner npm.Runner
	// WorkDir is where per-run workspaces are created; empty uses the system temp dir.
	WorkDir string
	// MaxUnpackBytes limits the extracted size of an upload; <= 0 disables the check.
	MaxUnpackBytes int64
	// InstallRetry governs retries of failed dependency installs; the zero value never retries.
	InstallRetry retry.Policy
	Recorder     metrics.Recorder
}

// Request is the input of one conversion.
type Request struct {
	Slug    string
	Archive []byte
	// Output is the path the result zip is written to.
	Output string
}

// Report summarizes a successful conversion.
type Report struct {
	Slug           string
	ProjectFound   bool
	Framework      project.Framework
	PatchedFiles   []string
	OutputDir      string
	Rewrites       normalize.Stats
	ResultPath     string
	StageDurations map[StageName]time.Duration
}

// Converter runs conversions. It holds no per-run state and may be reused.
type Converter struct {
	builder   *npm.Builder
	workDir   string
	maxUnpack int64
	recorder  metrics.Recorder
}

// NewConverter creates a Converter.
func NewConverter(opts Options) *Converter {
	rec := opts.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Converter{
		builder:   npm.NewBuilder(opts.Runner, npm.WithInstallRetry(opts.InstallRetry)),
		workDir:   opts.WorkDir,
		maxUnpack: opts.MaxUnpackBytes,
		recorder:  rec,
	}
}

// Convert runs the full pipeline for req and writes the bundle to req.Output.
// The workspace is removed before Convert returns, whatever the outcome.
func (c *Converter) Convert(ctx context.Context, req Request, progress ProgressFunc) (*Report, error) {
	if req.Output == "" {
		return nil, fmt.Errorf("convert: output path is required")
	}
	ws := workspace.NewManager(c.workDir, "sitebuilder")
	if err := ws.Create(); err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Workspace cleanup failed", logfields.Path(ws.GetPath()), logfields.Error(err))
		}
	}()

	st := &State{
		Slug:           req.Slug,
		Archive:        req.Archive,
		Output:         req.Output,
		WorkDir:        ws.GetPath(),
		StageDurations: make(map[StageName]time.Duration),
	}
	if err := RunStages(ctx, st, c.stages(), progress, c.recorder); err != nil {
		return nil, err
	}
	if progress != nil {
		progress(ProgressDone, "Done")
	}

	rel, err := filepath.Rel(st.WorkDir, st.OutputDir)
	if err != nil {
		rel = st.OutputDir
	}
	return &Report{
		Slug:           st.Slug,
		ProjectFound:   st.Project.Outcome == project.Found,
		Framework:      st.Framework,
		PatchedFiles:   st.Patches.Files,
		OutputDir:      filepath.ToSlash(rel),
		Rewrites:       st.Rewrites,
		ResultPath:     st.Output,
		StageDurations: st.StageDurations,
	}, nil
}

func (c *Converter) stages() []StageDef {
	return NewPipeline().
		Add(StageExtract, ProgressExtract, "Extracting archive…", c.stageExtract).
		Add(StageLocate, ProgressLocate, "Locating project…", stageLocate).
		Add(StageDetect, ProgressDetect, "Detecting framework…", c.stageDetect).
		Add(StagePatch, ProgressPatch, "Applying adjustments…", stagePatch).
		Add(StageBuild, ProgressBuild, "Installing dependencies and building (this may take a while)…", c.stageBuild).
		Add(StageNormalize, ProgressNormalize, "Final adjustments…", stageNormalize).
		Add(StageArchive, ProgressArchive, "Packaging…", stageArchive).
		Build()
}

func (c *Converter) stageExtract(_ context.Context, st *State) error {
	st.SourceDir = filepath.Join(st.WorkDir, "src")
	if err := archive.ExtractBytes(st.Archive, st.SourceDir, c.maxUnpack); err != nil {
		return err
	}
	// The payload is not needed past this point.
	st.Archive = nil
	return nil
}

func stageLocate(_ context.Context, st *State) error {
	res, err := project.Locate(st.SourceDir)
	if err != nil {
		return err
	}
	st.Project = res
	if res.Outcome == project.NoProject {
		slog.Info("No package.json in upload; shipping pre-built files", logfields.Slug(st.Slug))
	}
	return nil
}

func (c *Converter) stageDetect(_ context.Context, st *State) error {
	if st.Project.Outcome != project.Found {
		st.Framework = project.FrameworkUnknown
		return nil
	}
	st.Framework = st.Project.Framework
	c.recorder.IncFramework(string(st.Framework))
	if st.Framework == project.FrameworkUnknown {
		slog.Warn("Unsupported framework; shipping pre-built files", logfields.Path(st.Project.Root))
		return nil
	}
	slog.Info("Detected framework", logfields.Framework(string(st.Framework)), logfields.Path(st.Project.Root))
	return nil
}

func stagePatch(_ context.Context, st *State) error {
	if !st.Buildable() {
		return nil
	}
	report, err := patch.Apply(st.Project.Root, st.Framework, st.Slug, st.Project.Manifest)
	st.Patches = report
	if err != nil {
		return err
	}
	if len(report.Files) > 0 {
		slog.Info("Patched project sources", slog.Any("files", report.Files))
	}
	return nil
}

func (c *Converter) stageBuild(ctx context.Context, st *State) error {
	if !st.Buildable() {
		dir, err := normalize.FindStaticRoot(st.SourceDir)
		if err != nil {
			return err
		}
		st.OutputDir = dir
		return nil
	}
	out, err := c.builder.Build(ctx, st.Project.Root, st.Framework)
	if err != nil {
		return err
	}
	st.OutputDir = out
	return nil
}

func stageNormalize(_ context.Context, st *State) error {
	stats, err := normalize.RewriteTree(st.OutputDir, st.Slug)
	if err != nil {
		return err
	}
	st.Rewrites = stats
	return normalize.WriteHtaccess(st.OutputDir, st.Slug)
}

func stageArchive(_ context.Context, st *State) error {
	return archive.PackFile(st.OutputDir, st.Output)
}

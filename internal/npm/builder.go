package npm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/blackspinne/lovable-cpannel/internal/logfields"
	"github.com/blackspinne/lovable-cpannel/internal/project"
	"github.com/blackspinne/lovable-cpannel/internal/retry"
)

// OutputDirs are checked in order after a non-next build.
var OutputDirs = []string{"dist", "build", "out"}

// Builder installs dependencies and runs the framework's build script.
type Builder struct {
	runner       Runner
	installRetry retry.Policy
}

// Option configures a Builder.
type Option func(*Builder)

// WithInstallRetry retries failed "install" runs with p.
func WithInstallRetry(p retry.Policy) Option {
	return func(b *Builder) { b.installRetry = p }
}

// NewBuilder returns a Builder using runner, or an ExecRunner with defaults when nil.
// Installs are not retried unless WithInstallRetry is given.
func NewBuilder(runner Runner, opts ...Option) *Builder {
	if runner == nil {
		runner = ExecRunner{}
	}
	b := &Builder{runner: runner, installRetry: retry.Never()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs the build for the project at root and returns the output directory.
func (b *Builder) Build(ctx context.Context, root string, framework project.Framework) (string, error) {
	if framework == project.FrameworkNext {
		if err := b.npmInstall(ctx, root); err != nil {
			return "", err
		}
		if err := b.runner.Run(ctx, root, "run", "export"); err != nil {
			return "", err
		}
		out := filepath.Join(root, "dist")
		if !isDir(out) {
			return "", fmt.Errorf("%w: expected dist", ErrNoBuildOutput)
		}
		return out, nil
	}

	if err := b.install(ctx, root); err != nil {
		return "", err
	}
	if err := b.runner.Run(ctx, root, "run", "build"); err != nil {
		return "", err
	}
	for _, name := range OutputDirs {
		if out := filepath.Join(root, name); isDir(out) {
			return out, nil
		}
	}
	return "", fmt.Errorf("%w: none of %v", ErrNoBuildOutput, OutputDirs)
}

func (b *Builder) install(ctx context.Context, root string) error {
	if _, err := os.Stat(filepath.Join(root, "package-lock.json")); err == nil {
		err := b.runner.Run(ctx, root, "ci")
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		slog.Warn("Clean install failed; falling back to install", logfields.Path(root), logfields.Error(err))
	}
	return b.npmInstall(ctx, root)
}

// npmInstall runs "install", retrying failures of the command itself.
func (b *Builder) npmInstall(ctx context.Context, root string) error {
	transient := func(err error) bool {
		var cerr *CommandError
		return errors.As(err, &cerr) && ctx.Err() == nil && !errors.Is(err, context.DeadlineExceeded)
	}
	return retry.Do(ctx, b.installRetry, transient, func(attempt int) error {
		if attempt > 0 {
			slog.Warn("Retrying dependency install", logfields.Path(root), slog.Int("attempt", attempt+1))
		}
		return b.runner.Run(ctx, root, "install")
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

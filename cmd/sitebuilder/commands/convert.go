package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/blackspinne/lovable-cpannel/internal/config"
	"github.com/blackspinne/lovable-cpannel/internal/logfields"
	"github.com/blackspinne/lovable-cpannel/internal/metrics"
	"github.com/blackspinne/lovable-cpannel/internal/pipeline"
	"github.com/blackspinne/lovable-cpannel/internal/queue"
)

// ConvertCmd implements the 'convert' command.
type ConvertCmd struct {
	Input  string `arg:"" type:"existingfile" help:"Project export archive (.zip)"`
	Slug   string `required:"" help:"Sub-path the site will be served from, e.g. apps/demo"`
	Output string `short:"o" help:"Bundle path (default: <slug>-site.zip)"`
}

func (c *ConvertCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	g.configureLogging(cfg, root.Verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	report, err := c.convert(ctx, cfg, newConverter(cfg, metrics.NoopRecorder{}))
	if err != nil {
		return err
	}

	info, err := os.Stat(report.ResultPath)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%s, framework %s, %d patched files)\n",
		report.ResultPath, humanize.Bytes(uint64(info.Size())), report.Framework, len(report.PatchedFiles))
	return nil
}

func (c *ConvertCmd) convert(ctx context.Context, cfg *config.Config, conv queue.Converter) (*pipeline.Report, error) {
	slug := queue.NormalizeSlug(c.Slug)
	if !queue.ValidSlug(slug) {
		return nil, fmt.Errorf("%w: %q", queue.ErrInvalidSlug, c.Slug)
	}
	out := c.Output
	if out == "" {
		out = queue.DownloadName(slug)
	}
	data, err := os.ReadFile(c.Input)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if limit := cfg.Server.MaxUploadBytes(); limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds the %s limit", queue.ErrUploadTooLarge,
			humanize.Bytes(uint64(len(data))), humanize.Bytes(uint64(limit)))
	}

	slog.Info("Converting archive", logfields.File(c.Input), logfields.Slug(slug), logfields.Size(int64(len(data))))
	report, err := conv.Convert(ctx, pipeline.Request{Slug: slug, Archive: data, Output: out}, func(pct float64, msg string) {
		slog.Info(msg, logfields.Progress(pct))
	})
	if err != nil {
		// A failure while packing leaves a partial bundle behind.
		if rerr := os.Remove(out); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			slog.Warn("Failed to remove partial bundle", logfields.File(out), logfields.Error(rerr))
		}
		return nil, err
	}
	return report, nil
}

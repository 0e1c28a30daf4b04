package patch

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/blackspinne/lovable-cpannel/internal/logfields"
	"github.com/blackspinne/lovable-cpannel/internal/project"
)

// Report lists the files an Apply call created or modified, relative to the
// project root.
type Report struct {
	Files []string

	manifestChanged bool
}

func (r *Report) add(root, path string) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	if !slices.Contains(r.Files, rel) {
		r.Files = append(r.Files, rel)
	}
}

// Apply patches the project at root so it builds for /<slug>/. The manifest
// is updated in place and saved to root/package.json when it changed.
func Apply(root string, framework project.Framework, slug string, m *project.Manifest) (Report, error) {
	var report Report
	if m == nil {
		m = project.EmptyManifest()
	}

	var err error
	switch framework {
	case project.FrameworkVite:
		err = patchVite(root, slug, m, &report)
	case project.FrameworkNext:
		err = patchNext(root, slug, m, &report)
	case project.FrameworkCRA:
		err = patchCRA(slug, m, &report)
	default:
		slog.Warn("Unsupported framework; sources left as exported", logfields.Framework(string(framework)))
	}
	if err != nil {
		return report, err
	}

	if report.manifestChanged && m.Unparsable() {
		slog.Warn("Manifest could not be parsed; leaving it unchanged", logfields.File(project.ManifestName))
	} else if report.manifestChanged {
		path := filepath.Join(root, project.ManifestName)
		if err := m.Save(path); err != nil {
			return report, err
		}
		report.add(root, path)
	}

	if err := patchRouter(root, &report); err != nil {
		return report, err
	}
	return report, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

package patch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/blackspinne/lovable-cpannel/internal/logfields"
	"github.com/blackspinne/lovable-cpannel/internal/project"
)

// NextExportScript is the manifest script that produces a static export in dist.
const NextExportScript = "next build && next export -o dist"

var (
	nextBasePathProp    = stringProp("basePath")
	nextAssetPrefixProp = stringProp("assetPrefix")
	nextConfigStart     = []*regexp.Regexp{
		regexp.MustCompile(`module\.exports\s*=\s*\{`),
		regexp.MustCompile(`export\s+default\s+\{`),
		regexp.MustCompile(`const\s+nextConfig\s*(?::\s*[\w.]+\s*)?=\s*\{`),
	}
)

// NextPaths returns a Func that sets basePath and assetPrefix in a next config.
func NextPaths(slug string) Func {
	basePath := fmt.Sprintf("basePath: %q", "/"+slug)
	assetPrefix := fmt.Sprintf("assetPrefix: %q", "/"+slug+"/")
	return func(src string) string {
		// assetPrefix first so an injected basePath ends up above it.
		out, ok := setOrInjectProp(src, nextAssetPrefixProp, assetPrefix, nextConfigStart)
		if !ok {
			return src
		}
		out, _ = setOrInjectProp(out, nextBasePathProp, basePath, nextConfigStart)
		return out
	}
}

func patchNext(root, slug string, m *project.Manifest, report *Report) error {
	path, ok := project.FindFile(root, project.NextConfigNames)
	if !ok {
		path = filepath.Join(root, "next.config.js")
		if err := os.WriteFile(path, []byte("/** @type {import('next').NextConfig} */\nmodule.exports = {\n}\n"), 0o644); err != nil {
			return fmt.Errorf("write next.config.js: %w", err)
		}
		report.add(root, path)
	}

	changed, err := File(path, NextPaths(slug))
	if err != nil {
		return err
	}
	if changed {
		report.add(root, path)
	} else if src, err := ReadSource(path); err == nil {
		if !nextBasePathProp.MatchString(src) {
			slog.Warn("Next config has no recognizable config object; basePath not set", logfields.File(filepath.Base(path)))
		}
	}

	scriptChanged, err := m.SetScript("export", NextExportScript)
	if err != nil {
		return fmt.Errorf("set export script: %w", err)
	}
	report.manifestChanged = report.manifestChanged || scriptChanged
	return nil
}

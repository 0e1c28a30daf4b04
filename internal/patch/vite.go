package patch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/blackspinne/lovable-cpannel/internal/logfields"
	"github.com/blackspinne/lovable-cpannel/internal/project"
)

var (
	viteBaseProp    = stringProp("base")
	viteConfigStart = []*regexp.Regexp{
		regexp.MustCompile(`defineConfig\(\s*(?:(?:async\s*)?\([^()]*\)\s*=>\s*\(\s*)?\{`),
		regexp.MustCompile(`export\s+default\s+\{`),
	}
)

// ViteBasePath returns the vite base for slug.
func ViteBasePath(slug string) string {
	return "/" + slug + "/"
}

// ViteBase returns a Func that sets the base option of a vite config.
// Configs without a recognizable config object are returned unchanged.
func ViteBase(slug string) Func {
	assignment := fmt.Sprintf("base: '%s'", ViteBasePath(slug))
	return func(src string) string {
		out, ok := setOrInjectProp(src, viteBaseProp, assignment, viteConfigStart)
		if !ok {
			return src
		}
		return out
	}
}

// ViteConfigSource renders a minimal vite config.
func ViteConfigSource(slug string, withReact bool) string {
	var b strings.Builder
	b.WriteString("import { defineConfig } from 'vite'\n")
	if withReact {
		b.WriteString("import react from '@vitejs/plugin-react'\n")
	}
	b.WriteString("\nexport default defineConfig({\n")
	if withReact {
		b.WriteString("  plugins: [react()],\n")
	}
	fmt.Fprintf(&b, "  base: '%s',\n", ViteBasePath(slug))
	b.WriteString("})\n")
	return b.String()
}

func patchVite(root, slug string, m *project.Manifest, report *Report) error {
	path, ok := project.FindFile(root, project.ViteConfigNames)
	if !ok {
		name := "vite.config.js"
		if usesTypeScript(root) {
			name = "vite.config.ts"
		}
		path = filepath.Join(root, name)
		src := ViteConfigSource(slug, m.HasDependency("@vitejs/plugin-react"))
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		report.add(root, path)
		return nil
	}

	src, err := ReadSource(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if _, ok := setOrInjectProp(src, viteBaseProp, "", viteConfigStart); !ok {
		slog.Warn("Vite config has no recognizable config object; base not set", logfields.File(filepath.Base(path)))
		return nil
	}
	changed, err := File(path, ViteBase(slug))
	if err != nil {
		return err
	}
	if changed {
		report.add(root, path)
	}
	return nil
}

func usesTypeScript(root string) bool {
	if _, err := os.Stat(filepath.Join(root, "tsconfig.json")); err == nil {
		return true
	}
	found := false
	_ = filepath.WalkDir(filepath.Join(root, "src"), func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return filepath.SkipAll
		}
		if !d.IsDir() && strings.HasPrefix(filepath.Ext(d.Name()), ".ts") {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

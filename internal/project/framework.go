package project

import (
	"os"
	"path/filepath"
)

// Framework is the build convention a project follows.
type Framework string

const (
	FrameworkVite    Framework = "vite"
	FrameworkNext    Framework = "next"
	FrameworkCRA     Framework = "cra"
	FrameworkUnknown Framework = "unknown"
)

var (
	// ViteConfigNames lists recognized vite config files in lookup order.
	ViteConfigNames = []string{"vite.config.ts", "vite.config.js", "vite.config.mjs", "vite.config.mts", "vite.config.cjs"}
	// NextConfigNames lists recognized next config files in lookup order.
	NextConfigNames = []string{"next.config.js", "next.config.mjs", "next.config.ts", "next.config.cjs"}
)

// FindFile returns the first of names that exists as a regular file in dir.
func FindFile(dir string, names []string) (string, bool) {
	for _, n := range names {
		p := filepath.Join(dir, n)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

// DetectFramework classifies the project in dir. Config files and declared
// dependencies are checked in priority order vite, next, cra.
func DetectFramework(dir string, m *Manifest) Framework {
	if m == nil {
		m = EmptyManifest()
	}
	_, hasVite := FindFile(dir, ViteConfigNames)
	_, hasNext := FindFile(dir, NextConfigNames)
	switch {
	case hasVite || m.HasDependency("vite"):
		return FrameworkVite
	case hasNext || m.HasDependency("next"):
		return FrameworkNext
	case m.HasDependency("react-scripts"):
		return FrameworkCRA
	default:
		return FrameworkUnknown
	}
}

package project

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blackspinne/lovable-cpannel/internal/logfields"
)

// ErrNoProjectFound is returned by MustLocate when the tree has no manifest.
var ErrNoProjectFound = errors.New("no package.json found")

// Outcome tells whether Locate found a project.
type Outcome int

const (
	NoProject Outcome = iota
	Found
)

func (o Outcome) String() string {
	if o == Found {
		return "found"
	}
	return "no_project"
}

// Result is the outcome of Locate. Root, Framework and Manifest are set only
// when Outcome is Found.
type Result struct {
	Outcome   Outcome
	Root      string
	Framework Framework
	Manifest  *Manifest
}

type candidate struct {
	dir   string
	rel   string
	score int
}

const configBonus = 10

// Locate searches root for the project directory. Directories named
// node_modules are never entered.
func Locate(root string) (Result, error) {
	var candidates []candidate
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ManifestName || !d.Type().IsRegular() {
			return nil
		}
		dir := filepath.Dir(path)
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return err
		}
		candidates = append(candidates, candidate{dir: dir, rel: filepath.ToSlash(rel), score: score(dir, rel)})
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("scan %s: %w", root, err)
	}
	if len(candidates) == 0 {
		return Result{Outcome: NoProject}, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].rel < candidates[j].rel
	})
	best := candidates[0]
	if len(candidates) > 1 {
		slog.Debug("Multiple project candidates", slog.Int("count", len(candidates)), logfields.Path(best.rel))
	}

	manifest := LoadManifest(filepath.Join(best.dir, ManifestName))
	return Result{
		Outcome:   Found,
		Root:      best.dir,
		Framework: DetectFramework(best.dir, manifest),
		Manifest:  manifest,
	}, nil
}

// MustLocate is Locate with NoProject reported as ErrNoProjectFound.
func MustLocate(root string) (Result, error) {
	res, err := Locate(root)
	if err != nil {
		return res, err
	}
	if res.Outcome != Found {
		return res, ErrNoProjectFound
	}
	return res, nil
}

func score(dir, rel string) int {
	s := -depth(rel)
	if _, ok := FindFile(dir, ViteConfigNames); ok {
		return s + configBonus
	}
	if _, ok := FindFile(dir, NextConfigNames); ok {
		return s + configBonus
	}
	return s
}

func depth(rel string) int {
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == "" {
		return 0
	}
	return len(strings.Split(rel, "/"))
}

package normalize

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Stats counts the files RewriteTree modified.
type Stats struct {
	HTML int
	CSS  int
}

// RewriteTree normalizes every HTML and CSS file under dir for slug.
func RewriteTree(dir, slug string) (Stats, error) {
	var stats Stats
	r := Rewriter{
		Slug: slug,
		IsDir: func(name string) bool {
			info, err := os.Stat(filepath.Join(dir, name))
			return err == nil && info.IsDir()
		},
	}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		var fn func([]byte) []byte
		var counter *int
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html", ".htm":
			fn, counter = r.RewriteHTML, &stats.HTML
		case ".css":
			fn, counter = r.RewriteCSS, &stats.CSS
		default:
			return nil
		}
		changed, err := rewriteFile(path, fn)
		if err != nil {
			return err
		}
		if changed {
			*counter++
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("normalize %s: %w", dir, err)
	}
	return stats, nil
}

func rewriteFile(path string, fn func([]byte) []byte) (bool, error) {
	before, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	after := fn(before)
	if string(after) == string(before) {
		return false, nil
	}
	if err := os.WriteFile(path, after, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

package normalize

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// OutputDirNames are the directory names preferred when picking a pre-built site.
var OutputDirNames = []string{"dist", "build", "out", "public"}

// FindStaticRoot picks the directory to ship from an extracted archive that
// has nothing to build. In order of preference: the shallowest directory
// named like a build output that holds index.html, the shallowest directory
// holding any index.html, then root itself. node_modules is never searched.
func FindStaticRoot(root string) (string, error) {
	var named, withIndex []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "node_modules" {
			return filepath.SkipDir
		}
		if d.IsDir() || !strings.EqualFold(d.Name(), "index.html") {
			return nil
		}
		dir := filepath.Dir(path)
		withIndex = append(withIndex, dir)
		for _, n := range OutputDirNames {
			if filepath.Base(dir) == n && dir != root {
				named = append(named, dir)
				break
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if best, ok := shallowest(root, named); ok {
		return best, nil
	}
	if best, ok := shallowest(root, withIndex); ok {
		return best, nil
	}
	return root, nil
}

func shallowest(root string, dirs []string) (string, bool) {
	if len(dirs) == 0 {
		return "", false
	}
	depth := func(dir string) int {
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == "." {
			return 0
		}
		return strings.Count(filepath.ToSlash(rel), "/") + 1
	}
	sort.SliceStable(dirs, func(i, j int) bool {
		di, dj := depth(dirs[i]), depth(dirs[j])
		if di != dj {
			return di < dj
		}
		return dirs[i] < dirs[j]
	})
	return dirs[0], true
}

package patch

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/blackspinne/lovable-cpannel/internal/project"
)

var (
	// SourceDirs, EntryNames and AppNames are tried in order; the first hit wins.
	SourceDirs = []string{"src", "app", "frontend/src"}
	EntryNames = []string{"main.tsx", "main.jsx", "index.tsx", "index.jsx", "main.ts", "main.js", "index.ts", "index.js"}
	AppNames   = []string{"App.tsx", "App.jsx", "App.ts", "App.js"}
)

const routerModule = "react-router-dom"

var (
	routerImportAny  = regexp.MustCompile(`from\s*["']react-router-dom["']`)
	routerImportList = regexp.MustCompile(`import\s*\{([^}]*)\}\s*from\s*(["'])react-router-dom["'](\s*;)?`)
	browserRouterRef = regexp.MustCompile(`\bBrowserRouter\b`)
	appElement       = regexp.MustCompile(`<App\s*/>|<App>\s*</App>`)
)

// importName is one entry of an import list, e.g. `BrowserRouter as Router`.
type importName struct {
	name  string
	alias string
}

func (n importName) String() string {
	if n.alias == "" {
		return n.name
	}
	return n.name + " as " + n.alias
}

func (n importName) local() string {
	if n.alias == "" {
		return n.name
	}
	return n.alias
}

func parseImportNames(list string) []importName {
	var names []importName
	for _, part := range strings.Split(list, ",") {
		fields := strings.Fields(part)
		switch {
		case len(fields) == 1:
			names = append(names, importName{name: fields[0]})
		case len(fields) == 3 && fields[1] == "as":
			names = append(names, importName{name: fields[0], alias: fields[2]})
		}
	}
	return names
}

func dedupeImportNames(names []importName) []importName {
	seen := make(map[string]bool, len(names))
	out := names[:0:0]
	for _, n := range names {
		key := n.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

func sameImportNames(a, b []importName) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func renderRouterImport(names []importName, quote, semi string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n.String()
	}
	return "import { " + strings.Join(parts, ", ") + " } from " + quote + routerModule + quote + semi
}

// ImportsRouter reports whether src imports from react-router-dom.
func ImportsRouter(src string) bool {
	return routerImportAny.MatchString(src)
}

// HashRouterEntry switches an application entry module to HashRouter and
// wraps the root <App /> element in it.
func HashRouterEntry(src string) string {
	src = browserRouterRef.ReplaceAllString(src, "HashRouter")

	routerTags := []string{"HashRouter"}
	if m := routerImportList.FindStringSubmatchIndex(src); m != nil {
		orig := parseImportNames(src[m[2]:m[3]])
		names := dedupeImportNames(orig)
		hasHash := false
		for _, n := range names {
			if n.name == "HashRouter" {
				hasHash = true
				if n.alias != "" {
					routerTags = append(routerTags, n.alias)
				}
			}
		}
		if !hasHash {
			names = append(names, importName{name: "HashRouter"})
		}
		if !sameImportNames(orig, names) {
			semi := ""
			if m[6] >= 0 {
				semi = strings.TrimSpace(src[m[6]:m[7]])
			}
			src = src[:m[0]] + renderRouterImport(names, src[m[4]:m[5]], semi) + src[m[1]:]
		}
	} else {
		src = `import { HashRouter } from "react-router-dom";` + "\n" + src
	}

	for _, tag := range routerTags {
		if regexp.MustCompile(`<` + regexp.QuoteMeta(tag) + `\b`).MatchString(src) {
			return src
		}
	}
	loc := appElement.FindStringIndex(src)
	if loc == nil {
		return src
	}
	return src[:loc[0]] + "<HashRouter>" + src[loc[0]:loc[1]] + "</HashRouter>" + src[loc[1]:]
}

// StripBrowserRouter removes BrowserRouter from an App component. The router
// elements become fragments since the entry module provides the router.
func StripBrowserRouter(src string) string {
	tags := []string{"BrowserRouter"}
	if m := routerImportList.FindStringSubmatchIndex(src); m != nil {
		orig := parseImportNames(src[m[2]:m[3]])
		var kept []importName
		for _, n := range orig {
			if n.name == "BrowserRouter" {
				if n.alias != "" {
					tags = append(tags, n.alias)
				}
				continue
			}
			kept = append(kept, n)
		}
		if len(kept) != len(orig) {
			if len(kept) == 0 {
				end := m[1]
				if end < len(src) && src[end] == '\n' {
					end++
				}
				src = src[:m[0]] + src[end:]
			} else {
				semi := ""
				if m[6] >= 0 {
					semi = strings.TrimSpace(src[m[6]:m[7]])
				}
				src = src[:m[0]] + renderRouterImport(kept, src[m[4]:m[5]], semi) + src[m[1]:]
			}
		}
	}

	for _, tag := range tags {
		q := regexp.QuoteMeta(tag)
		src = regexp.MustCompile(`<`+q+`(?:\s[^>]*)?>`).ReplaceAllString(src, "<>")
		src = regexp.MustCompile(`</`+q+`\s*>`).ReplaceAllString(src, "</>")
	}
	return src
}

func patchRouter(root string, report *Report) error {
	srcDir := ""
	for _, d := range SourceDirs {
		if isDir(filepath.Join(root, d)) {
			srcDir = filepath.Join(root, d)
			break
		}
	}
	if srcDir == "" {
		return nil
	}
	entry, hasEntry := project.FindFile(srcDir, EntryNames)
	app, hasApp := project.FindFile(srcDir, AppNames)

	usesRouter := false
	for _, p := range []string{entry, app} {
		if p == "" {
			continue
		}
		src, err := ReadSource(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		if ImportsRouter(src) {
			usesRouter = true
		}
	}
	if !usesRouter {
		return nil
	}

	if hasEntry {
		changed, err := File(entry, HashRouterEntry)
		if err != nil {
			return err
		}
		if changed {
			report.add(root, entry)
		}
	}
	if hasApp {
		changed, err := File(app, StripBrowserRouter)
		if err != nil {
			return err
		}
		if changed {
			report.add(root, app)
		}
	}
	return nil
}

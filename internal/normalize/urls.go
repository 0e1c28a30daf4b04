package normalize

import (
	"strings"
)

// SafePrefixes mark references that are never rewritten (compared case-insensitively).
var SafePrefixes = []string{"http://", "https://", "//", "data:", "mailto:", "tel:"}

var (
	assetDirs = map[string]bool{
		"assets": true, "static": true, "_next": true, "images": true, "img": true,
		"fonts": true, "css": true, "js": true, "media": true,
	}
	wellKnownFiles = map[string]bool{
		"favicon.ico": true, "favicon.svg": true, "robots.txt": true, "manifest.json": true,
		"site.webmanifest": true, "sitemap.xml": true, "apple-touch-icon.png": true,
	}
)

// IsSafe reports whether ref is absolute or otherwise left alone.
func IsSafe(ref string) bool {
	lower := strings.ToLower(strings.TrimSpace(ref))
	for _, p := range SafePrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// Rewriter turns root-relative references into document-relative ones.
type Rewriter struct {
	// Slug is the deployment prefix a build may have baked into its output.
	Slug string
	// IsDir reports whether a top-level name is a real directory of the output.
	IsDir func(name string) bool
}

// Rewrite returns the normalized form of ref.
func (r Rewriter) Rewrite(ref string) string {
	if ref == "" || IsSafe(ref) {
		return ref
	}
	v := strings.TrimSpace(ref)
	if !strings.HasPrefix(v, "/") {
		return ref
	}

	if r.Slug != "" {
		prefix := "/" + r.Slug
		switch {
		case v == prefix || v == prefix+"/":
			return "./"
		case strings.HasPrefix(v, prefix+"/"):
			v = v[len(prefix):]
		default:
			v = r.collapseSegment(v)
		}
	} else {
		v = r.collapseSegment(v)
	}

	v = strings.TrimLeft(v, "/")
	if v == "" {
		return "./"
	}
	return v
}

// collapseSegment drops a single leading segment that sits in front of a
// known asset directory or well-known file, unless it is a real directory.
func (r Rewriter) collapseSegment(v string) string {
	rest := strings.TrimLeft(v, "/")
	first, tail, ok := strings.Cut(rest, "/")
	if !ok || first == "" || assetDirs[first] || wellKnownFiles[first] {
		return v
	}
	next, _, _ := strings.Cut(tail, "/")
	if cut := strings.IndexAny(next, "?#"); cut >= 0 {
		next = next[:cut]
	}
	if !assetDirs[next] && !wellKnownFiles[next] {
		return v
	}
	if r.IsDir != nil && r.IsDir(first) {
		return v
	}
	return "/" + tail
}

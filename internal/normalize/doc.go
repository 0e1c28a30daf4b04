// Package normalize post-processes a static build so it can be served from a
// sub-path of a shared host.
//
// Root-relative references in HTML and CSS are made document-relative, an
// Apache rewrite file routes unknown paths to index.html, and FindStaticRoot
// picks a directory to ship when there is no build to run.
package normalize

// Package patch rewrites project sources so a build runs under a URL prefix.
//
// Every rewrite is a pure string transformation that can be applied any
// number of times with the same result; File only touches disk when the
// content actually changes. Apply selects the rewrites for a framework and
// reports which files it modified.
package patch

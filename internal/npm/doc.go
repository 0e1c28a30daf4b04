// Package npm runs the project's package manager to produce a static build.
//
// Runner abstracts process execution so the pipeline can be tested without a
// Node toolchain; ExecRunner invokes the real binary under a timeout.
package npm

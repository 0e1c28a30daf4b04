// Package workspace manages the scratch directories used by builds.
//
// Every pipeline run gets its own ephemeral directory (e.g. sitebuilder-3f2a...-123456)
// that holds the extracted upload and the build tree and is removed when the
// run finishes, whatever the outcome. ResetDir prepares long-lived directories
// such as the results store, which start empty on every process start.
package workspace

// Package handlers implements the job submission, polling, download and
// monitoring endpoints.
package handlers

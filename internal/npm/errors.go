package npm

import "errors"

var (
	// ErrBuildFailed indicates the package manager exited unsuccessfully.
	ErrBuildFailed = errors.New("external build failed")
	// ErrNoBuildOutput indicates the build succeeded but produced no known output directory.
	ErrNoBuildOutput = errors.New("build produced no output directory")
	// ErrBinaryNotFound indicates the package manager is not on PATH.
	ErrBinaryNotFound = errors.New("package manager binary not found")
)

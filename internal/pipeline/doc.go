// Package pipeline turns an uploaded project archive into a deployable bundle.
//
// A conversion runs a fixed sequence of stages (extract, locate, detect,
// patch, build, normalize, archive) over a per-run workspace. Each stage
// reports a progress checkpoint before it starts; failures are wrapped in a
// StageError naming the stage. Projects that cannot be built are shipped as
// they are, using the most plausible pre-built directory in the archive.
package pipeline

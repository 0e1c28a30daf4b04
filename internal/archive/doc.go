// Package archive reads uploaded project archives and writes result bundles.
//
// Extract unpacks an upload into a directory, refusing entries that would land
// outside it and stopping once the unpacked size passes a limit. Pack writes a
// directory tree as a zip with explicit directory entries and Unix permission
// bits (0755 directories, 0644 files) so hosting file managers extract it with
// usable permissions.
package archive

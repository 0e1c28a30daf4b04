package archive

import "errors"

var (
	// ErrInvalidArchive indicates the upload is not a readable zip archive.
	ErrInvalidArchive = errors.New("invalid zip archive")
	// ErrArchiveTooLarge indicates the unpacked size exceeded the configured limit.
	ErrArchiveTooLarge = errors.New("archive exceeds unpacked size limit")
	// ErrUnsafePath indicates an entry name that would escape the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

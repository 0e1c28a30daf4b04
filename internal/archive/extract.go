package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"

	"github.com/blackspinne/lovable-cpannel/internal/logfields"
)

// ExtractBytes unpacks an in-memory zip archive into dest.
func ExtractBytes(data []byte, dest string, limit int64) error {
	return Extract(bytes.NewReader(data), int64(len(data)), dest, limit)
}

// Extract unpacks the zip read from r into dest. A limit <= 0 disables the
// unpacked size check. Symlink entries are skipped.
func Extract(r io.ReaderAt, size int64, dest string, limit int64) error {
	zr, err := zip.NewReader(r, size)
	if zr == nil {
		return fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}
	// A reader returned with an error only flags insecure names; entryPath
	// rejects those below.

	root, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	var written int64
	for _, f := range zr.File {
		target, err := entryPath(root, f.Name)
		if err != nil {
			return err
		}
		if target == root {
			continue
		}

		mode := f.Mode()
		switch {
		case mode&fs.ModeSymlink != 0:
			slog.Debug("Skipping symlink entry", logfields.File(f.Name))
			continue
		case f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/"):
			if err := os.MkdirAll(target, 0o750); err != nil {
				return fmt.Errorf("create %s: %w", f.Name, err)
			}
			continue
		}

		if limit > 0 && written+int64(f.UncompressedSize64) > limit {
			return fmt.Errorf("%w (%s)", ErrArchiveTooLarge, humanize.Bytes(uint64(limit)))
		}
		n, err := extractFile(f, target, limitRemaining(limit, written))
		written += n
		if err != nil {
			return err
		}
	}
	return nil
}

func limitRemaining(limit, written int64) int64 {
	if limit <= 0 {
		return -1
	}
	return limit - written
}

func extractFile(f *zip.File, target string, remaining int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return 0, fmt.Errorf("create parent of %s: %w", f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", ErrInvalidArchive, f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", f.Name, err)
	}

	var src io.Reader = rc
	if remaining >= 0 {
		// Headers can lie about the uncompressed size.
		src = io.LimitReader(rc, remaining+1)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) || errors.Is(err, io.ErrUnexpectedEOF) {
			return n, fmt.Errorf("%w: %s: %w", ErrInvalidArchive, f.Name, err)
		}
		return n, fmt.Errorf("write %s: %w", f.Name, err)
	}
	if remaining >= 0 && n > remaining {
		return n, ErrArchiveTooLarge
	}
	return n, nil
}

// entryPath maps an archive entry name to a path under root.
func entryPath(root, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, "\\", "/"))
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	target := filepath.Join(root, clean)
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

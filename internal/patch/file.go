package patch

import (
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Func is a content transformation. Applying it to its own output must be a no-op.
type Func func(string) string

// ReadSource reads a text file. Content that is not valid UTF-8 is decoded as
// ISO-8859-1.
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return string(decoded), nil
}

// File applies fn to the file at path and writes the result back as UTF-8
// when it differs. It reports whether the file was written.
func File(path string, fn Func) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	before, err := ReadSource(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	after := fn(before)
	if after == before {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(after), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

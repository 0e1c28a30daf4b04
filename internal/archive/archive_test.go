package archive

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write([]byte(entries[n]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestPack_RoundTripWithPermissions(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"index.html":          "<html></html>",
		".htaccess":           "DirectoryIndex index.html\n",
		"assets/app.js":       "console.log(1)",
		"assets/img/logo.svg": "<svg/>",
	})

	var buf bytes.Buffer
	require.NoError(t, Pack(src, &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if strings.HasSuffix(f.Name, "/") {
			require.True(t, f.Mode().IsDir(), f.Name)
			require.Equal(t, fs.FileMode(0o755), f.Mode().Perm(), f.Name)
			require.Equal(t, zip.Store, f.Method, f.Name)
		} else {
			require.Equal(t, fs.FileMode(0o644), f.Mode().Perm(), f.Name)
			require.Equal(t, zip.Deflate, f.Method, f.Name)
		}
	}
	require.Equal(t, []string{
		".htaccess",
		"assets/",
		"assets/app.js",
		"assets/img/",
		"assets/img/logo.svg",
		"index.html",
	}, names)

	dest := t.TempDir()
	require.NoError(t, ExtractBytes(buf.Bytes(), dest, 0))
	got, err := os.ReadFile(filepath.Join(dest, "assets", "img", "logo.svg"))
	require.NoError(t, err)
	require.Equal(t, "<svg/>", string(got))
}

func TestPackFile(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"index.html": "hi"})
	out := filepath.Join(t.TempDir(), "site.zip")
	require.NoError(t, PackFile(src, out))

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer func() { _ = zr.Close() }()
	require.Len(t, zr.File, 1)
	require.Equal(t, "index.html", zr.File[0].Name)
}

func TestExtract_Nested(t *testing.T) {
	data := zipBytes(t, map[string]string{
		"export/package.json": `{"name":"x"}`,
		"export/src/main.tsx": "import App from './App'",
	})
	dest := t.TempDir()
	require.NoError(t, ExtractBytes(data, dest, 1<<20))

	b, err := os.ReadFile(filepath.Join(dest, "export", "src", "main.tsx"))
	require.NoError(t, err)
	require.Equal(t, "import App from './App'", string(b))
}

func TestExtract_RejectsZipSlip(t *testing.T) {
	for _, name := range []string{"../evil.txt", "a/../../evil.txt", "/etc/evil"} {
		data := zipBytes(t, map[string]string{name: "x"})
		dest := t.TempDir()
		err := ExtractBytes(data, dest, 0)
		require.Error(t, err, name)
		require.True(t, errors.Is(err, ErrUnsafePath), "entry %q: %v", name, err)
	}
}

func TestExtract_SizeLimit(t *testing.T) {
	data := zipBytes(t, map[string]string{"big.txt": strings.Repeat("a", 4096)})
	err := ExtractBytes(data, t.TempDir(), 1024)
	require.ErrorIs(t, err, ErrArchiveTooLarge)
}

func TestExtract_InvalidArchive(t *testing.T) {
	err := ExtractBytes([]byte("definitely not a zip"), t.TempDir(), 0)
	require.ErrorIs(t, err, ErrInvalidArchive)
}

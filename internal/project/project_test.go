package project

import (
	"os"
	"path/filepath"
	"testing"

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

func TestLocate_NoProject(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"dist/index.html": "<html></html>"})

	res, err := Locate(root)
	require.NoError(t, err)
	require.Equal(t, NoProject, res.Outcome)

	_, err = MustLocate(root)
	require.ErrorIs(t, err, ErrNoProjectFound)
}

func TestLocate_PrefersConfigDirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json":                `{"name":"workspace"}`,
		"apps/web/package.json":       `{"devDependencies":{"vite":"^5"}}`,
		"apps/web/vite.config.ts":     "export default {}",
		"node_modules/x/package.json": `{"name":"x"}`,
	})

	res, err := Locate(root)
	require.NoError(t, err)
	require.Equal(t, Found, res.Outcome)
	require.Equal(t, filepath.Join(root, "apps", "web"), res.Root)
	require.Equal(t, FrameworkVite, res.Framework)
}

func TestLocate_ShallowestWinsAndTiesAreLexicographic(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"b/package.json":   `{}`,
		"a/package.json":   `{}`,
		"a/x/package.json": `{}`,
	})

	res, err := Locate(root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "a"), res.Root)
	require.Equal(t, FrameworkUnknown, res.Framework)
}

func TestLocate_IgnoresNodeModulesOnly(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"node_modules/react/package.json": `{}`})
	res, err := Locate(root)
	require.NoError(t, err)
	require.Equal(t, NoProject, res.Outcome)
}

func TestDetectFramework(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  Framework
	}{
		{"vite config", map[string]string{"package.json": `{}`, "vite.config.js": ""}, FrameworkVite},
		{"vite dependency", map[string]string{"package.json": `{"devDependencies":{"vite":"5"}}`}, FrameworkVite},
		{"next dependency", map[string]string{"package.json": `{"dependencies":{"next":"14"}}`}, FrameworkNext},
		{"next config", map[string]string{"package.json": `{}`, "next.config.mjs": ""}, FrameworkNext},
		{"cra", map[string]string{"package.json": `{"dependencies":{"react-scripts":"5"}}`}, FrameworkCRA},
		{"peer dependency", map[string]string{"package.json": `{"peerDependencies":{"react-scripts":"5"}}`}, FrameworkCRA},
		{"vite beats next", map[string]string{"package.json": `{"dependencies":{"next":"14","vite":"5"}}`}, FrameworkVite},
		{"invalid manifest", map[string]string{"package.json": `{not json`}, FrameworkUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeTree(t, dir, tt.files)
			m := LoadManifest(filepath.Join(dir, ManifestName))
			require.Equal(t, tt.want, DetectFramework(dir, m))
		})
	}
}

func TestManifest_PreservesOrderAndEscaping(t *testing.T) {
	src := `{
  "name": "demo",
  "private": true,
  "scripts": {"dev": "vite", "build": "vite build && echo <done>"},
  "dependencies": {"react": "^18"}
}`
	m, err := ParseManifest([]byte(src))
	require.NoError(t, err)
	require.Equal(t, []string{"name", "private", "scripts", "dependencies"}, m.Keys())

	changed, err := m.SetString("homepage", "/demo")
	require.NoError(t, err)
	require.True(t, changed)
	changed, err = m.SetScript("export", "next build && next export -o dist")
	require.NoError(t, err)
	require.True(t, changed)

	out, err := m.Marshal()
	require.NoError(t, err)
	want := `{
  "name": "demo",
  "private": true,
  "scripts": {
    "dev": "vite",
    "build": "vite build && echo <done>",
    "export": "next build && next export -o dist"
  },
  "dependencies": {
    "react": "^18"
  },
  "homepage": "/demo"
}
`
	require.Equal(t, want, string(out))

	changed, err = m.SetString("homepage", "/demo")
	require.NoError(t, err)
	require.False(t, changed)
	changed, err = m.SetScript("export", "next build && next export -o dist")
	require.NoError(t, err)
	require.False(t, changed)
}

func TestLoadManifest_Missing(t *testing.T) {
	m := LoadManifest(filepath.Join(t.TempDir(), ManifestName))
	require.Empty(t, m.Keys())
	require.False(t, m.HasDependency("vite"))
	require.False(t, m.Unparsable())
}

func TestLoadManifest_Unparsable(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestName)
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "x",`), 0o600))

	m := LoadManifest(path)
	require.Empty(t, m.Keys())
	require.True(t, m.Unparsable())
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lumen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(writeManifest(t, "templates:\n  - \"tpl/*.lum\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"tpl/*.lum"}, c.Templates)
	assert.Equal(t, BackendNames, c.Backends)
	assert.Equal(t, "gen", c.OutDir)
	assert.Empty(t, c.Plugins)
}

func TestLoadExplicit(t *testing.T) {
	c, err := Load(writeManifest(t, `
templates:
  - "a/*.lum"
  - "b/main.lum"
backends: [js]
out_dir: build/templates
plugins: plugins.star
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"js"}, c.Backends)
	assert.Equal(t, "build/templates", c.OutDir)
	assert.Equal(t, "plugins.star", c.Plugins)
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no templates", "backends: [js]\n"},
		{"unknown backend", "templates: [\"*.lum\"]\nbackends: [rb]\n"},
		{"duplicate backend", "templates: [\"*.lum\"]\nbackends: [js, js]\n"},
		{"bad glob", "templates: [\"[\"]\n"},
		{"unknown field", "templates: [\"*.lum\"]\noutput: gen\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeManifest(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestSources(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.lum", "a.lum", "skip.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	c := &Config{Templates: []string{
		filepath.Join(dir, "*.lum"),
		filepath.Join(dir, "a.lum"), // overlaps with the glob
	}}
	files, err := c.Sources()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.lum"), filepath.Join(dir, "b.lum")}, files)
}

func TestSourcesEmptyGlob(t *testing.T) {
	c := &Config{Templates: []string{filepath.Join(t.TempDir(), "*.lum")}}
	_, err := c.Sources()
	assert.ErrorContains(t, err, "matches no files")
}

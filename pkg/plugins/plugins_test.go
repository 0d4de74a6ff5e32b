package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	r := NewRegistry()
	sig, ok := r.Lookup("round")
	require.True(t, ok)
	require.True(t, sig.AcceptsArity(1))
	require.True(t, sig.AcceptsArity(2))
	require.False(t, sig.AcceptsArity(3))
	require.True(t, sig.SupportsBackend("js"))
	require.True(t, sig.SupportsBackend("py"))

	for _, name := range []string{"floor", "ceiling", "abs", "min", "max", "strLen"} {
		_, ok := r.Lookup(name)
		require.True(t, ok, "missing builtin %q", name)
		require.True(t, IsBuiltin(name))
	}
	require.False(t, IsBuiltin("formatPhone"))
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Signature{Name: "formatPhone", MinArgs: 1, MaxArgs: 2}))
	sig, ok := r.Lookup("formatPhone")
	require.True(t, ok)
	require.True(t, sig.AcceptsArity(2))

	require.Error(t, r.Register(Signature{Name: "formatPhone", MinArgs: 1, MaxArgs: 1}),
		"duplicate registration must fail")
	require.Error(t, r.Register(Signature{Name: "round", MinArgs: 1, MaxArgs: 1}),
		"builtins must not be shadowed")
	require.Error(t, r.Register(Signature{Name: "", MinArgs: 0, MaxArgs: 0}))
	require.Error(t, r.Register(Signature{Name: "bad", MinArgs: 2, MaxArgs: 1}))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugins.star")
	manifest := `
plugin(name = "formatPhone", min_args = 1, max_args = 2)
plugin(name = "bidiMark", min_args = 0, max_args = 0, backends = ["js"])
`
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	r := NewRegistry()
	require.NoError(t, LoadManifest(path, r))

	sig, ok := r.Lookup("formatPhone")
	require.True(t, ok)
	require.True(t, sig.SupportsBackend("py"))

	sig, ok = r.Lookup("bidiMark")
	require.True(t, ok)
	require.True(t, sig.SupportsBackend("js"))
	require.False(t, sig.SupportsBackend("py"))
}

func TestLoadManifestErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.star")
	require.NoError(t, os.WriteFile(bad, []byte(`plugin(name = "round", min_args = 1, max_args = 1)`), 0o644))
	require.Error(t, LoadManifest(bad, NewRegistry()), "redeclaring a builtin must fail")

	syntax := filepath.Join(dir, "syntax.star")
	require.NoError(t, os.WriteFile(syntax, []byte(`plugin(`), 0o644))
	require.Error(t, LoadManifest(syntax, NewRegistry()))

	require.Error(t, LoadManifest(filepath.Join(dir, "missing.star"), NewRegistry()))
}

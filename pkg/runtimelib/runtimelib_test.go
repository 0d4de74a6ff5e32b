package runtimelib

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInstall(t *testing.T) {
	dir := t.TempDir()
	if err := Install(dir, []string{"js", "py"}); err != nil {
		t.Fatalf("Install: %v", err)
	}

	js, err := os.ReadFile(filepath.Join(dir, "lumen.js"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(js), "lumen.escapeHtml") {
		t.Error("js library missing escapeHtml")
	}

	for _, name := range []string{"__init__.py", "runtime.py", "sanitize.py", "fns.py"} {
		if _, err := os.Stat(filepath.Join(dir, "lumen", name)); err != nil {
			t.Errorf("py library missing %s: %v", name, err)
		}
	}
}

func TestInstallSelectedBackend(t *testing.T) {
	dir := t.TempDir()
	if err := Install(dir, []string{"js"}); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "lumen")); !os.IsNotExist(err) {
		t.Error("py library installed for a js-only run")
	}
}

func TestInstallUnknownBackend(t *testing.T) {
	if err := Install(t.TempDir(), []string{"rb"}); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

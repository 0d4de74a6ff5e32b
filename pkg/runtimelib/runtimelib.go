// Package runtimelib embeds the per-backend support libraries the
// generated render functions call into, and installs them next to the
// compiler's output so the result runs without further setup.
package runtimelib

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed js all:py
var files embed.FS

// Install copies the support library for each requested backend into
// outDir, overwriting stale copies from earlier runs.
func Install(outDir string, backends []string) error {
	for _, b := range backends {
		sub, err := fs.Sub(files, b)
		if err != nil {
			return fmt.Errorf("no runtime library for backend %q: %w", b, err)
		}
		err = fs.WalkDir(sub, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			dst := filepath.Join(outDir, path)
			if d.IsDir() {
				if path == "." {
					return nil
				}
				return os.MkdirAll(dst, 0o755)
			}
			data, err := fs.ReadFile(sub, path)
			if err != nil {
				return err
			}
			return os.WriteFile(dst, data, 0o644)
		})
		if err != nil {
			return fmt.Errorf("installing %s runtime: %w", b, err)
		}
	}
	return nil
}

// Package config loads the YAML compile manifest: which template files
// to compile, for which backends, and where the output goes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/lumen-templates/lumen/pkg/validator"
)

// BackendNames are the target runtimes the compiler can emit for.
var BackendNames = []string{"js", "py"}

type Config struct {
	// Templates is a list of file globs naming .lum sources.
	Templates []string `yaml:"templates"`
	// Backends selects target runtimes; empty means all of them.
	Backends []string `yaml:"backends,omitempty"`
	// OutDir receives one generated file per source file and backend.
	OutDir string `yaml:"out_dir,omitempty"`
	// Plugins optionally names a Starlark plugin-signature manifest.
	Plugins string `yaml:"plugins,omitempty"`
}

// Load reads and validates a manifest, filling in defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var c Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	if len(c.Backends) == 0 {
		c.Backends = append(c.Backends, BackendNames...)
	}
	if c.OutDir == "" {
		c.OutDir = "gen"
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	return validator.All(
		validator.NotEmptySlice(c.Templates, "templates"),
		validator.EachGlob(c.Templates, "templates"),
		validator.NoDuplicates(c.Backends, "backends"),
		validator.SliceHasElements(c.Backends, BackendNames, "backends"),
		validator.NotEmpty(c.OutDir, "out_dir"),
	)
}

// Sources expands the template globs to a sorted, deduplicated file list.
func (c *Config) Sources() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range c.Templates {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad template pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("template pattern %q matches no files", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

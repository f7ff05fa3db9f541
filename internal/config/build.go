package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"clasp/internal/spec"
)

const SupportedSchema = "v1"

// LoadBuildSpec parses a build YAML, validates schema_version, fills defaults
// and resolves every relative path against the directory of the file.
func LoadBuildSpec(path string) (spec.File, error) {
	var cfg spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, fmt.Errorf("build schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}

	base := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	if len(cfg.Inputs) == 0 {
		return cfg, errors.New("build: no inputs")
	}
	if cfg.Output == "" {
		return cfg, errors.New("build: output is required")
	}
	seen := map[string]bool{}
	for i := range cfg.Inputs {
		in := &cfg.Inputs[i]
		if in.Path == "" {
			return cfg, fmt.Errorf("build: input %d has no path", i)
		}
		in.Path = resolve(in.Path)
		if in.Name == "" {
			in.Name = strings.TrimSuffix(filepath.Base(in.Path), filepath.Ext(in.Path))
		}
		if seen[in.Name] {
			return cfg, fmt.Errorf("build: duplicate input name %q", in.Name)
		}
		seen[in.Name] = true
	}
	for i, p := range cfg.Platform {
		cfg.Platform[i] = resolve(p)
	}
	cfg.Output = resolve(cfg.Output)
	if cfg.State == "" {
		cfg.State = filepath.Join(cfg.Output, ".clasp", "state.db")
	}
	cfg.State = resolve(cfg.State)
	// Plugin names key the persisted chain and affected sets.
	plugins := map[string]bool{}
	for i, p := range cfg.Plugins {
		if p.Name == "" {
			return cfg, fmt.Errorf("build: plugin %d has no name", i)
		}
		if plugins[p.Name] {
			return cfg, fmt.Errorf("build: plugin %q listed twice", p.Name)
		}
		plugins[p.Name] = true
	}
	for i, r := range cfg.Reports {
		if r.Driver == "" {
			return cfg, fmt.Errorf("build: report %d has no driver", i)
		}
	}
	return cfg, nil
}

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadBuildSpec_ResolvesRelativePathsAndDefaults(t *testing.T) {
	dir := t.TempDir()
	build := []byte(`schema_version: v1
inputs:
  - path: build/classes
  - name: deps
    path: /abs/lib.jar
platform: [sdk/android.jar]
output: out
exclude: ["**/R$*.class"]
plugins:
  - name: marker
    options:
      classes: [a/X]
  - name: stripdebug
reports:
  - driver: stdout
`)
	if err := os.WriteFile(filepath.Join(dir, "build.yml"), build, 0o644); err != nil {
		t.Fatalf("write build: %v", err)
	}

	cfg, err := LoadBuildSpec(filepath.Join(dir, "build.yml"))
	if err != nil {
		t.Fatalf("LoadBuildSpec: %v", err)
	}
	if cfg.Inputs[0].Name != "classes" || cfg.Inputs[0].Path != filepath.Join(dir, "build/classes") {
		t.Fatalf("unexpected first input: %+v", cfg.Inputs[0])
	}
	if cfg.Inputs[1].Path != "/abs/lib.jar" {
		t.Fatalf("absolute path rewritten: %q", cfg.Inputs[1].Path)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "sdk/android.jar")}, cfg.Platform); diff != "" {
		t.Fatalf("platform mismatch (-want +got):\n%s", diff)
	}
	if cfg.State != filepath.Join(dir, "out", ".clasp", "state.db") {
		t.Fatalf("unexpected state path %q", cfg.State)
	}
	if len(cfg.Plugins) != 2 || cfg.Plugins[0].Options.Kind == 0 || cfg.Plugins[1].Options.Kind != 0 {
		t.Fatalf("unexpected plugins: %+v", cfg.Plugins)
	}
}

func TestLoadBuildSpec_Rejects(t *testing.T) {
	cases := map[string]string{
		"schema":       "schema_version: v999\ninputs: [{path: a}]\noutput: out\n",
		"no inputs":    "output: out\n",
		"no output":    "inputs: [{path: a}]\n",
		"duplicate":    "inputs: [{path: x/a}, {path: y/a}]\noutput: out\n",
		"plugin":       "inputs: [{path: a}]\noutput: out\nplugins: [{options: {}}]\n",
		"plugin twice": "inputs: [{path: a}]\noutput: out\nplugins: [{name: marker, options: {classes: [a/X]}}, {name: marker, options: {classes: [a/Y]}}]\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "build.yml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadBuildSpec(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadBuildSpec_RejectsRepeatedPlugin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.yml")
	body := `inputs: [{path: classes}]
output: out
plugins:
  - name: marker
    options: {annotation: "Lx/One;", classes: [a/X]}
  - name: marker
    options: {annotation: "Lx/Two;", classes: [a/Y]}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadBuildSpec(path)
	if err == nil || !strings.Contains(err.Error(), `plugin "marker" listed twice`) {
		t.Fatalf("want repeated plugin error, got %v", err)
	}
}

func TestLoadSettings_FileEnvAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clasp.yml")
	if err := os.WriteFile(path, []byte("pools:\n  io: 2\nlog:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CLASP__POOLS__IO", "6")
	t.Setenv("CLASP__METRICS__PORT", "9100")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	want := Settings{
		Pools:   PoolSettings{CPU: runtime.GOMAXPROCS(0), IO: 6},
		Log:     LogSettings{Level: "debug"},
		Metrics: MetricsSettings{Port: 9100},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Pools.IO != 4 || s.Log.Level != "info" || s.Metrics.Port != 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}

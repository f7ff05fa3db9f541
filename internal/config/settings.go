package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CLASP__"

type PoolSettings struct {
	CPU int `koanf:"cpu"`
	IO  int `koanf:"io"`
}

type LogSettings struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

type MetricsSettings struct {
	Port int `koanf:"port"` // 0 disables /metrics
}

// Settings tune the engine itself, independently of what is built.
type Settings struct {
	Pools   PoolSettings    `koanf:"pools"`
	Log     LogSettings     `koanf:"log"`
	Metrics MetricsSettings `koanf:"metrics"`
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// LoadSettings merges YAML (if present) with env-vars
// (prefix `CLASP__`, delimiter `__`, e.g. CLASP__POOLS__CPU=8).
func LoadSettings(path string) (Settings, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Settings{}, err
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Settings{}, fmt.Errorf("settings schema_version %q not supported (want %s)", sv, SupportedSchema)
	}

	_ = k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return s, err
	}
	applyDefaults(&s)
	return s, nil
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

func applyDefaults(s *Settings) {
	if s.Pools.CPU <= 0 {
		s.Pools.CPU = runtime.GOMAXPROCS(0)
	}
	if s.Pools.IO <= 0 {
		s.Pools.IO = 4
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
}

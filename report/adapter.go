// Package report publishes the outcome of a build to pluggable sinks.
package report

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Event is one report record: either a class outcome or, when Summary is
// set, the closing summary of a build.
type Event struct {
	BuildID   string   `json:"build_id"`
	Class     string   `json:"class,omitempty"`
	Container string   `json:"container,omitempty"`
	Outcome   string   `json:"outcome,omitempty"`
	Plugins   []string `json:"plugins,omitempty"`
	Error     string   `json:"error,omitempty"`
	Summary   *Summary `json:"summary,omitempty"`
}

type Summary struct {
	Incremental bool           `json:"incremental"`
	Plugins     []string       `json:"plugins"`
	Outcomes    map[string]int `json:"outcomes"`
	DurationMS  int64          `json:"duration_ms"`
}

// Adapter is the common behaviour every report sink exposes.
type Adapter interface {
	Configure(*yaml.Node) error // driver-specific YAML ⇒ struct
	Push(*Event) error
	Close() error // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown report sink %q", name)
}

// Names lists the registered sinks, sorted.
func Names() []string {
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Package plugin is the registry of built-in transform plugins. Drivers
// register themselves from init and are selected by name in build.yml.
package plugin

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"clasp/internal/transform"
)

// Plugin is a transformer configured from its build.yml options node.
type Plugin interface {
	transform.Transformer
	// Configure receives the plugin's options, nil when none are given.
	Configure(*yaml.Node) error
}

/*──────── registry ───────*/

type factory = func() Plugin

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func New(name string) (Plugin, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown plugin %q", name)
}

// Names lists the registered plugins, sorted.
func Names() []string {
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Decode decodes options into v. A nil node leaves v untouched.
func Decode(node *yaml.Node, v any) error {
	if node == nil || node.Kind == 0 {
		return nil
	}
	return node.Decode(v)
}

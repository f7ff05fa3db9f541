package spec

import "gopkg.in/yaml.v3"

// Input is one container of class units: a directory or a jar/zip archive.
type Input struct {
	// Name identifies the container across builds. Defaults to the base
	// name of Path without extension.
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type PluginSpec struct {
	Name    string    `yaml:"name"`
	Options yaml.Node `yaml:"options"` // driver-specific, decoded by the plugin
}

type ReportSpec struct {
	Driver  string    `yaml:"driver"` // "stdout", "kafka"
	Options yaml.Node `yaml:"options"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Inputs []Input `yaml:"inputs"`
	// Platform lists extra directories or archives whose classes are only
	// indexed for type resolution, never transformed.
	Platform []string `yaml:"platform"`
	Output   string   `yaml:"output"`
	// State is the incremental state database. Defaults to
	// <output>/.clasp/state.db.
	State   string   `yaml:"state"`
	Exclude []string `yaml:"exclude"`

	// Ordered list of plugins; the order is the chain order.
	Plugins []PluginSpec `yaml:"plugins"`
	Reports []ReportSpec `yaml:"reports"`
}

// Package stripdebug drops source-file and line-number debug data from the
// classes it targets.
package stripdebug

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"clasp/internal/chain"
	"clasp/internal/classfile"
	"clasp/internal/graph"
	"clasp/internal/transform"
	"clasp/plugin"
)

type Config struct {
	// Extra names unchanged classes to strip as well.
	Extra []string `yaml:"extra"`
}

type driver struct {
	cfg Config
}

func (d *driver) Configure(node *yaml.Node) error {
	if err := plugin.Decode(node, &d.cfg); err != nil {
		return fmt.Errorf("stripdebug: %w", err)
	}
	return nil
}

func (d *driver) BeforeTransform() *transform.Request {
	return transform.NewRequest(transform.ScopeChanged, d.cfg.Extra...)
}

func (d *driver) OnTransform(rec graph.Record, target bool) (chain.Handler, bool) {
	if !target || rec.Status == graph.Removed {
		return nil, false
	}
	return &stripper{}, true
}

func (d *driver) AfterTransform() error { return nil }

type stripper struct{ chain.Base }

func (*stripper) Mode() classfile.Mode { return classfile.Mode{Parse: classfile.ParseSkipDebug} }

func init() {
	plugin.Register("stripdebug", func() plugin.Plugin { return &driver{} })
}

// Package frames recomputes the stack-map frames of the classes it targets.
package frames

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
	Extra []string `yaml:"extra"`
}

type driver struct {
	cfg Config
}

func (d *driver) Configure(node *yaml.Node) error {
	if err := plugin.Decode(node, &d.cfg); err != nil {
		return fmt.Errorf("frames: %w", err)
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
	return &recompute{}, true
}

func (d *driver) AfterTransform() error { return nil }

// recompute drops the visited frames and lets the emitter rebuild them.
type recompute struct{ chain.Base }

func (*recompute) Mode() classfile.Mode {
	return classfile.Mode{Parse: classfile.ParseSkipFrames, Emit: classfile.EmitComputeFrames}
}

func init() {
	plugin.Register("frames", func() plugin.Plugin { return &driver{} })
}

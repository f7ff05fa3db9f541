// Package annotations indexes the annotations found on every class.
package annotations

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"clasp/internal/chain"
	"clasp/internal/graph"
	"clasp/internal/transform"
	"clasp/plugin"
)

/* ────────── public YAML config ────────── */
type Config struct {
	// Output is where the YAML index is written. Empty disables it.
	Output string `yaml:"output"`
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config

	mu    sync.Mutex
	index map[string][]string
}

func (d *driver) Configure(node *yaml.Node) error {
	if err := plugin.Decode(node, &d.cfg); err != nil {
		return fmt.Errorf("annotations: %w", err)
	}
	return nil
}

func (d *driver) BeforeTransform() *transform.Request {
	d.mu.Lock()
	d.index = make(map[string][]string)
	d.mu.Unlock()
	return transform.NewRequest(transform.ScopeAll)
}

func (d *driver) OnTransform(rec graph.Record, target bool) (chain.Handler, bool) {
	if !target || rec.Status == graph.Removed {
		return nil, false
	}
	s := chain.NewSniffer(nil)
	return &collector{Sniffer: s, rec: &recorder{d: d, s: s}}, true
}

func (d *driver) AfterTransform() error {
	if d.cfg.Output == "" {
		return nil
	}
	d.mu.Lock()
	out, err := yaml.Marshal(d.index)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("annotations: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(d.cfg.Output), 0o755); err != nil {
		return fmt.Errorf("annotations: %w", err)
	}
	if err := os.WriteFile(d.cfg.Output, out, 0o644); err != nil {
		return fmt.Errorf("annotations: %w", err)
	}
	return nil
}

// Index returns the annotations recorded per class during the last build.
func (d *driver) Index() map[string][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string][]string, len(d.index))
	for k, v := range d.index {
		out[k] = v
	}
	return out
}

/* ────────── handlers ────────── */

// collector stands for the sniffer followed by the recorder that reads it.
type collector struct {
	*chain.Sniffer
	rec *recorder
}

func (c *collector) Group() []chain.Handler { return []chain.Handler{c.Sniffer, c.rec} }

type recorder struct {
	chain.Base
	d *driver
	s *chain.Sniffer
}

func (r *recorder) VisitEnd() {
	if names := r.s.InternalNames(); len(names) > 0 {
		r.d.mu.Lock()
		r.d.index[r.Context().ClassName()] = names
		r.d.mu.Unlock()
	}
	r.Base.VisitEnd()
}

/* ────────── auto-register ────────── */
func init() {
	plugin.Register("annotations", func() plugin.Plugin { return &driver{} })
}

package orchestrator

import (
	"fmt"
	"sync"

	"clasp/internal/chain"
	"clasp/internal/graph"
	"clasp/internal/telemetry"
	"clasp/internal/transform"
)

// binding ties one provider to the request it declared for this build.
type binding struct {
	provider Provider

	once sync.Once
	req  *transform.Request
	err  error
}

func newBinding(p Provider) *binding { return &binding{provider: p} }

func (b *binding) name() string { return b.provider.Name() }

// resolve asks the plugin for its request. Only the first call reaches the
// plugin.
func (b *binding) resolve() error {
	b.once.Do(func() {
		req := b.provider.Transformer().BeforeTransform()
		if err := req.Validate(); err != nil {
			b.err = fmt.Errorf("plugin %s: %w", b.name(), err)
			return
		}
		b.req = req
	})
	return b.err
}

func (b *binding) isTarget(rec graph.Record) bool {
	switch b.req.Scope() {
	case transform.ScopeAll:
		return true
	case transform.ScopeChanged:
		if rec.Status != graph.NotChanged {
			return true
		}
	}
	return b.req.Wants(rec.Name)
}

// createVisitor returns the plugin's handler for rec. A NONE-scope plugin is
// not consulted for classes outside its extra set.
func (b *binding) createVisitor(rec graph.Record) (chain.Handler, bool) {
	target := b.isTarget(rec)
	if !target && b.req.Scope() == transform.ScopeNone {
		return nil, false
	}
	h, ok := b.provider.Transformer().OnTransform(rec, target)
	if !ok || h == nil {
		return nil, false
	}
	telemetry.PluginVisitors.WithLabelValues(b.name()).Inc()
	return h, true
}

// notifyRemoved lets the plugin observe a removed class. Every plugin is
// called regardless of scope; the handler it returns is discarded.
func (b *binding) notifyRemoved(rec graph.Record) {
	if h, ok := b.provider.Transformer().OnTransform(rec, b.isTarget(rec)); ok && h != nil {
		telemetry.PluginVisitors.WithLabelValues(b.name()).Inc()
	}
}

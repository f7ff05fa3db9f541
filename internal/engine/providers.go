package engine

import (
	"sort"
	"sync"

	"clasp/internal/graph"
	"clasp/internal/orchestrator"
	"clasp/internal/transform"
	"clasp/plugin"
)

// provider adapts a configured plugin and records the classes it affects.
type provider struct {
	name string
	p    plugin.Plugin

	mu       sync.Mutex
	affected map[string]struct{}
}

func newProvider(name string, p plugin.Plugin) *provider {
	return &provider{name: name, p: p, affected: make(map[string]struct{})}
}

func (p *provider) Name() string                       { return p.name }
func (p *provider) Transformer() transform.Transformer { return p.p }

func (p *provider) OnClassAffected(name string) {
	p.mu.Lock()
	p.affected[name] = struct{}{}
	p.mu.Unlock()
}

func (p *provider) Affected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.affected))
	for n := range p.affected {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// factory hands the orchestrator this build's providers and the classes left
// behind by plugins that were dropped since the previous build.
type factory struct {
	providers []*provider
	// dropped maps each plugin absent from this build to the classes it
	// affected before.
	dropped map[string][]string
}

func (f *factory) Create() []orchestrator.Provider {
	out := make([]orchestrator.Provider, len(f.providers))
	for i, p := range f.providers {
		out[i] = p
	}
	return out
}

func (f *factory) RemovedAffected(g graph.Graph) []graph.Record {
	var out []graph.Record
	for _, classes := range f.dropped {
		for _, c := range classes {
			if rec, ok := g.Get(c); ok && rec.Status != graph.Removed {
				out = append(out, rec)
			}
		}
	}
	return out
}

package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"clasp/internal/chain"
	"clasp/internal/classfile"
	"clasp/internal/graph"
	"clasp/internal/transform"
	"clasp/internal/walker"
)

// memWalker visits in-memory units, one goroutine per unit.
type memWalker struct {
	g      graph.Graph
	bodies map[string][]byte

	mu      sync.Mutex
	out     map[string][]byte
	visited []string
	targets map[string][]string
}

func newMemWalker(g graph.Graph, bodies map[string][]byte) *memWalker {
	return &memWalker{g: g, bodies: bodies, out: make(map[string][]byte)}
}

func (m *memWalker) Visit(_ context.Context, fullScan, incremental, emitAll bool, f walker.VisitorFactory) error {
	var wg sync.WaitGroup
	for _, rec := range m.g.All() {
		if incremental && !fullScan && rec.Status == graph.NotChanged {
			continue
		}
		if rec.Status == graph.Removed && !incremental {
			continue
		}
		u := walker.Unit{Name: rec.Name, Container: rec.Container, Status: rec.Status, Body: m.bodies[rec.Name]}
		v := f(incremental, rec.Container)
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.visit(v, u, emitAll)
		}()
	}
	wg.Wait()
	return nil
}

func (m *memWalker) VisitTargets(_ context.Context, f walker.VisitorFactory, targets map[string][]string) error {
	m.mu.Lock()
	m.targets = targets
	m.mu.Unlock()
	var wg sync.WaitGroup
	for container, names := range targets {
		v := f(true, container)
		for _, n := range names {
			rec, _ := m.g.Get(n)
			u := walker.Unit{Name: n, Container: container, Status: rec.Status, Body: m.bodies[n]}
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.visit(v, u, true)
			}()
		}
	}
	wg.Wait()
	return nil
}

func (m *memWalker) visit(v walker.UnitVisitor, u walker.Unit, emitAll bool) {
	e, ok := v.OnVisit(u)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visited = append(m.visited, u.Name)
	switch {
	case ok:
		m.out[u.Name] = e.Body
	case emitAll && u.Status != graph.Removed:
		m.out[u.Name] = u.Body
	}
}

func (m *memWalker) visitedSorted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.visited...)
	sort.Strings(out)
	return out
}

// fakePlugin records every OnTransform call.
type fakePlugin struct {
	name string
	req  *transform.Request
	// handler builds the handler for a targeted class; nil declines.
	handler  func(rec graph.Record) chain.Handler
	afterErr error

	mu       sync.Mutex
	calls    []string
	affected []string
	after    int
}

func (p *fakePlugin) Name() string                       { return p.name }
func (p *fakePlugin) Transformer() transform.Transformer { return p }
func (p *fakePlugin) BeforeTransform() *transform.Request { return p.req }

func (p *fakePlugin) OnClassAffected(name string) {
	p.mu.Lock()
	p.affected = append(p.affected, name)
	p.mu.Unlock()
}

func (p *fakePlugin) OnTransform(rec graph.Record, target bool) (chain.Handler, bool) {
	p.mu.Lock()
	p.calls = append(p.calls, fmt.Sprintf("%s:%t", rec.Name, target))
	p.mu.Unlock()
	if !target || p.handler == nil {
		return nil, false
	}
	h := p.handler(rec)
	return h, h != nil
}

func (p *fakePlugin) AfterTransform() error {
	p.mu.Lock()
	p.after++
	p.mu.Unlock()
	return p.afterErr
}

func (p *fakePlugin) sortedCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]string(nil), p.calls...)
	sort.Strings(out)
	return out
}

type fakeFactory struct {
	providers []Provider
	removed   []graph.Record
}

func (f *fakeFactory) Create() []Provider { return f.providers }

func (f *fakeFactory) RemovedAffected(graph.Graph) []graph.Record { return f.removed }

func factoryOf(removed []graph.Record, ps ...*fakePlugin) *fakeFactory {
	f := &fakeFactory{removed: removed}
	for _, p := range ps {
		f.providers = append(f.providers, p)
	}
	return f
}

// tagger adds a class annotation named after its tag at the end of the class.
type tagger struct {
	chain.Base
	tag  string
	mode classfile.Mode
}

func tag(name string) func(graph.Record) chain.Handler {
	return func(graph.Record) chain.Handler { return &tagger{tag: name} }
}

func (t *tagger) Mode() classfile.Mode { return t.mode }

func (t *tagger) VisitEnd() {
	if av := t.Base.VisitAnnotation("L"+t.tag+";", true); av != nil {
		av.VisitEnd()
	}
	t.Base.VisitEnd()
}

// watcher passes everything through unchanged.
type watcher struct{ chain.Base }

func watch(graph.Record) chain.Handler { return &watcher{} }

// breaker panics while the class header is visited.
type breaker struct{ chain.Base }

func (b *breaker) Visit(uint16, classfile.Access, string, string, []string) { panic("broken plugin") }

func unitBody(t *testing.T, name string) []byte {
	t.Helper()
	b, err := (&classfile.Class{
		Version:    classfile.FormatVersion,
		Access:     classfile.AccPublic,
		Name:       name,
		Super:      classfile.RootType,
		SourceFile: "Source.java",
		Methods: []classfile.Method{{
			Name:  "run",
			Desc:  "()V",
			Code:  []byte{0xb1},
			Lines: []classfile.LineNumber{{Offset: 0, Line: 3}},
		}},
	}).MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return b
}

func bodiesFor(t *testing.T, g graph.Graph) map[string][]byte {
	t.Helper()
	out := make(map[string][]byte)
	for _, rec := range g.All() {
		if rec.Status != graph.Removed {
			out[rec.Name] = unitBody(t, rec.Name)
		}
	}
	return out
}

func classTags(t *testing.T, body []byte) []string {
	t.Helper()
	c, err := classfile.Decode(body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var out []string
	for _, a := range c.Annotations {
		out = append(out, chain.DescToInternalName(a.Desc))
	}
	return out
}

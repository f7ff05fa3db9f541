package orchestrator

import (
	"fmt"

	"clasp/internal/chain"
	"clasp/internal/classfile"
	"clasp/internal/graph"
	"clasp/internal/telemetry"
	"clasp/internal/walker"
)

// outcome is the result of running one class through its chain.
type outcome struct {
	body    []byte
	plugins []string
	err     error
}

// dispatcher routes every visited unit through the merged chain of the
// bindings. It holds no per-class state and is shared by all containers.
type dispatcher struct {
	o        *Orchestrator
	bindings []*binding
}

func (d *dispatcher) OnVisit(u walker.Unit) (walker.Entry, bool) {
	if u.Status == graph.Removed {
		d.o.emit(Event{Class: u.Name, Container: u.Container, Kind: Removed})
		return walker.Entry{}, false
	}
	rec, ok := d.o.graph.Get(u.Name)
	if !ok {
		rec = graph.Record{Name: u.Name, Status: u.Status, Container: u.Container}
	}

	res := d.transform(rec, u.Body)
	ev := Event{Class: u.Name, Container: u.Container, Plugins: res.plugins}
	switch {
	case res.err != nil:
		d.o.log.Warn("transform class failed, skip it", "class", u.Name, "err", res.err)
		ev.Kind, ev.Err = Fallback, res.err
		res.body = u.Body
	case len(res.plugins) == 0:
		ev.Kind = Passthrough
	default:
		ev.Kind = Transformed
	}
	d.o.emit(ev)
	return walker.Entry{Name: u.Name, Body: res.body}, true
}

// transform runs one class through the chain of every plugin that produced a
// handler for it. It never panics; failures are returned in the outcome.
func (d *dispatcher) transform(rec graph.Record, body []byte) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{plugins: out.plugins, err: fmt.Errorf("transform %s: panic: %v", rec.Name, r)}
		}
	}()

	visitors := make([]chain.Handler, len(d.bindings))
	for i, b := range d.bindings {
		if h, ok := b.createVisitor(rec); ok {
			visitors[i] = h
		}
	}
	c := chain.New(visitors)
	defer c.Detach()
	for _, i := range c.Plugins() {
		out.plugins = append(out.plugins, d.bindings[i].name())
	}
	if c.Empty() {
		out.body = body
		return out
	}

	r, err := classfile.NewReader(body)
	if err != nil {
		out.err = err
		return out
	}
	mode := c.Mode()
	w := d.o.newEmitter(mode.Emit)
	head := c.Link(w, func(plugin int) chain.Context {
		return &classContext{class: rec.Name, b: d.bindings[plugin], writer: w}
	})
	if err := r.Accept(head, mode.Parse); err != nil {
		out.err = err
		return out
	}
	if out.body, out.err = w.Bytes(); out.err != nil {
		out.body = nil
	}
	return out
}

func (o *Orchestrator) emit(ev Event) {
	telemetry.ClassOutcomes.WithLabelValues(ev.Kind.String()).Inc()
	if o.observe != nil {
		o.observe(ev)
	}
}

// Package orchestrator drives one transform build: it collects what every
// plugin wants to see, routes each class through the merged handler chain of
// the plugins that target it, re-dispatches the classes an incremental build
// must revisit, and finally lets every plugin complete.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"clasp/internal/graph"
	"clasp/internal/hierarchy"
	"clasp/internal/logging"
	"clasp/internal/pool"
	"clasp/internal/telemetry"
	"clasp/internal/transform"
	"clasp/internal/walker"
)

// Provider is one active plugin.
type Provider interface {
	Name() string
	// OnClassAffected records that the plugin affected a class, so that a
	// later build without the plugin revisits it.
	OnClassAffected(name string)
	Transformer() transform.Transformer
}

// ProviderFactory yields the plugins of this build, in registration order.
type ProviderFactory interface {
	Create() []Provider
	// RemovedAffected returns the classes affected by plugins that took part
	// in the previous build but not in this one.
	RemovedAffected(g graph.Graph) []graph.Record
}

// Kind classifies what happened to a class.
type Kind int

const (
	// Passthrough: no plugin contributed a handler; the input bytes are kept.
	Passthrough Kind = iota
	// Transformed: the class went through a non-empty chain.
	Transformed
	// Fallback: the chain failed and the input bytes were kept.
	Fallback
	// Removed: the class is gone and produced no output.
	Removed
)

func (k Kind) String() string {
	switch k {
	case Passthrough:
		return "passthrough"
	case Transformed:
		return "transformed"
	case Fallback:
		return "fallback"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Event reports the outcome of dispatching one class.
type Event struct {
	Class     string
	Container string
	Kind      Kind
	// Plugins lists the plugins whose handlers were in the chain.
	Plugins []string
	Err     error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithObserver registers fn for every dispatch event. fn is called
// concurrently from the CPU pool.
func WithObserver(fn func(Event)) Option {
	return func(o *Orchestrator) { o.observe = fn }
}

// Orchestrator runs the plugin chain of one build over a class graph.
type Orchestrator struct {
	graph   graph.Graph
	types   hierarchy.Hierarchy
	res     *pool.Resources
	log     *slog.Logger
	observe func(Event)
}

// New returns an orchestrator over g. types backs frame computation and may
// be nil when no plugin requests it.
func New(g graph.Graph, types hierarchy.Hierarchy, res *pool.Resources, opts ...Option) *Orchestrator {
	o := &Orchestrator{graph: g, types: types, res: res, log: logging.New("orchestrator")}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run performs one build. Contract violations, walker I/O failures and
// completion hook failures abort it; per-class failures do not.
func (o *Orchestrator) Run(ctx context.Context, incremental bool, w walker.Walker, f ProviderFactory) error {
	providers := f.Create()
	bindings := make([]*binding, len(providers))
	for i, p := range providers {
		bindings[i] = newBinding(p)
	}

	start := time.Now()
	hasAll, err := o.before(ctx, bindings)
	observePhase("before", start)
	if err != nil {
		return err
	}
	o.log.Debug("requests resolved", "plugins", len(bindings), "has_all", hasAll, "incremental", incremental)

	d := &dispatcher{o: o, bindings: bindings}
	factory := func(bool, string) walker.UnitVisitor { return d }

	start = time.Now()
	if err := w.Visit(ctx, hasAll, incremental, true, factory); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if incremental {
		o.notifyRemoved(bindings)
	}
	o.res.CPU.Quiesce()
	observePhase("dispatch", start)

	if incremental && !hasAll {
		start = time.Now()
		targets, err := o.targets(ctx, f, bindings)
		if err != nil {
			return err
		}
		if len(targets) > 0 {
			o.log.Debug("revisiting affected classes", "containers", len(targets))
			if err := w.VisitTargets(ctx, factory, targets); err != nil {
				return fmt.Errorf("dispatch targets: %w", err)
			}
		}
		observePhase("targets", start)
	}

	start = time.Now()
	err = o.after(ctx, bindings)
	observePhase("after", start)
	return err
}

// before resolves every request on the CPU pool and reports whether any
// plugin wants every class.
func (o *Orchestrator) before(ctx context.Context, bindings []*binding) (bool, error) {
	tasks := o.res.CPU.Tasks(ctx)
	for _, b := range bindings {
		tasks.Go(b.resolve)
	}
	if err := tasks.Wait(); err != nil {
		return false, fmt.Errorf("before transform: %w", err)
	}
	hasAll := false
	for _, b := range bindings {
		if b.req.Scope() == transform.ScopeAll {
			hasAll = true
		}
	}
	return hasAll, nil
}

// notifyRemoved fans each removed class out to every plugin as detached
// work on the CPU pool.
func (o *Orchestrator) notifyRemoved(bindings []*binding) {
	for _, rec := range o.graph.All() {
		if rec.Status != graph.Removed {
			continue
		}
		o.res.CPU.Go(func() {
			for _, b := range bindings {
				o.res.CPU.Go(func() { b.notifyRemoved(rec) })
			}
		})
	}
}

// targets computes, as one unit of CPU work, the classes an incremental
// build must revisit, grouped by container with names sorted.
func (o *Orchestrator) targets(ctx context.Context, f ProviderFactory, bindings []*binding) (map[string][]string, error) {
	var out map[string][]string
	tasks := o.res.CPU.Tasks(ctx)
	tasks.Go(func() error {
		set := make(map[string]graph.Record)
		for _, rec := range f.RemovedAffected(o.graph) {
			set[rec.Name] = rec
		}
		for _, b := range bindings {
			for _, name := range b.req.Extra() {
				if rec, ok := o.graph.Get(name); ok && rec.Status == graph.NotChanged {
					set[name] = rec
				}
			}
		}
		out = make(map[string][]string)
		for _, rec := range set {
			out[rec.Container] = append(out[rec.Container], rec.Name)
		}
		for _, names := range out {
			sort.Strings(names)
		}
		return nil
	})
	if err := tasks.Wait(); err != nil {
		return nil, fmt.Errorf("collect targets: %w", err)
	}
	return out, nil
}

// after runs every completion hook on the IO pool.
func (o *Orchestrator) after(ctx context.Context, bindings []*binding) error {
	tasks := o.res.IO.Tasks(ctx)
	for _, b := range bindings {
		tasks.Go(func() error {
			if err := b.provider.Transformer().AfterTransform(); err != nil {
				return fmt.Errorf("plugin %s: %w", b.name(), err)
			}
			return nil
		})
	}
	if err := tasks.Wait(); err != nil {
		return fmt.Errorf("after transform: %w", err)
	}
	return nil
}

func observePhase(phase string, start time.Time) {
	telemetry.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

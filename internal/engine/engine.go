package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"clasp/internal/classfile"
	"clasp/internal/graph"
	"clasp/internal/hierarchy"
	"clasp/internal/orchestrator"
	"clasp/internal/pool"
	"clasp/internal/spec"
	"clasp/internal/state"
	"clasp/internal/walker"
	"clasp/report"
)

type Engine struct {
	build     spec.File
	full      bool
	res       *pool.Resources
	state     *state.Store
	providers []*provider
	reports   []report.Adapter
	log       *slog.Logger
}

// Run performs one build and saves the state the next incremental build
// starts from.
func (e *Engine) Run(ctx context.Context) error {
	start := time.Now()
	buildID := uuid.NewString()
	log := e.log.With("build", buildID)

	prev, err := e.state.Previous()
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}
	prevPlugins, err := e.state.Plugins()
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}
	names := e.pluginNames()
	incremental := !e.full && len(prev) > 0 && chainCompatible(prevPlugins, names)

	// 1. scan inputs and derive the class graph
	w := walker.NewFS(walker.Config{Inputs: e.inputs(), OutputDir: e.build.Output, Exclude: e.build.Exclude}, e.res)
	digests, err := w.Scan()
	if err != nil {
		return err
	}
	if !incremental {
		if err := w.Clean(); err != nil {
			return err
		}
	}
	g := graph.Build(digests, prev, incremental)
	w.Bind(g)

	// 2. type hierarchy for frame computation
	types, err := e.hierarchy(w)
	if err != nil {
		return err
	}

	// 3. affected sets carried over from the previous build
	f, carried, err := e.factory(prevPlugins, names)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	var events []orchestrator.Event
	o := orchestrator.New(g, types, e.res, orchestrator.WithObserver(func(ev orchestrator.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))
	log.Info("build started", "classes", len(digests), "plugins", len(names), "incremental", incremental)
	if err := o.Run(ctx, incremental, w, f); err != nil {
		return err
	}

	// 4. persist state, then report
	affected := make(map[string][]string, len(e.providers))
	for _, p := range e.providers {
		affected[p.name] = mergeAffected(carried[p.name], p.Affected(), g)
	}
	if err := e.state.Save(state.Snapshot{Digests: digests, Plugins: names, Affected: affected}); err != nil {
		return fmt.Errorf("state: %w", err)
	}

	summary := &report.Summary{
		Incremental: incremental,
		Plugins:     names,
		Outcomes:    map[string]int{},
		DurationMS:  time.Since(start).Milliseconds(),
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Class < events[j].Class })
	var errs []error
	for _, ev := range events {
		summary.Outcomes[ev.Kind.String()]++
		re := &report.Event{BuildID: buildID, Class: ev.Class, Container: ev.Container, Outcome: ev.Kind.String(), Plugins: ev.Plugins}
		if ev.Err != nil {
			re.Error = ev.Err.Error()
		}
		errs = append(errs, e.push(re))
	}
	errs = append(errs, e.push(&report.Event{BuildID: buildID, Summary: summary}))
	log.Info("build finished", "outcomes", summary.Outcomes, "took", time.Since(start))
	return errors.Join(errs...)
}

func (e *Engine) Close() error {
	var errs []error
	for _, r := range e.reports {
		errs = append(errs, r.Close())
	}
	errs = append(errs, e.state.Close())
	return errors.Join(errs...)
}

func (e *Engine) push(ev *report.Event) error {
	var errs []error
	for _, r := range e.reports {
		errs = append(errs, r.Push(ev))
	}
	return errors.Join(errs...)
}

func (e *Engine) pluginNames() []string {
	out := make([]string, len(e.providers))
	for i, p := range e.providers {
		out[i] = p.name
	}
	return out
}

func (e *Engine) inputs() []walker.Input {
	out := make([]walker.Input, len(e.build.Inputs))
	for i, in := range e.build.Inputs {
		out[i] = walker.Input{Name: in.Name, Path: in.Path}
	}
	return out
}

// hierarchy indexes the build's own classes and the platform classes.
// Units whose header cannot be read are left out; frame computation over
// them fails and falls back per class.
func (e *Engine) hierarchy(w *walker.FS) (*hierarchy.Index, error) {
	idx := hierarchy.NewIndex()
	add := func(name string, body []byte) error {
		if err := idx.AddUnit(body); err != nil {
			if errors.Is(err, classfile.ErrMalformed) {
				e.log.Debug("unreadable class header, not indexed", "class", name, "err", err)
				return nil
			}
			return err
		}
		return nil
	}
	if len(e.build.Platform) > 0 {
		platform := make([]walker.Input, len(e.build.Platform))
		for i, p := range e.build.Platform {
			platform[i] = walker.Input{Name: fmt.Sprintf("platform-%d", i), Path: p}
		}
		pw := walker.NewFS(walker.Config{Inputs: platform}, e.res)
		if _, err := pw.Scan(); err != nil {
			return nil, fmt.Errorf("platform: %w", err)
		}
		if err := pw.Bodies(add); err != nil {
			return nil, err
		}
	}
	if err := w.Bodies(add); err != nil {
		return nil, err
	}
	return idx, nil
}

// factory builds the provider factory and returns the previously affected
// classes of every plugin that is still active.
func (e *Engine) factory(prevPlugins, names []string) (*factory, map[string][]string, error) {
	active := make(map[string]bool, len(names))
	for _, n := range names {
		active[n] = true
	}
	f := &factory{providers: e.providers, dropped: map[string][]string{}}
	carried := map[string][]string{}
	for _, n := range prevPlugins {
		classes, err := e.state.Affected(n)
		if err != nil {
			return nil, nil, fmt.Errorf("state: %w", err)
		}
		if active[n] {
			carried[n] = classes
		} else {
			f.dropped[n] = classes
		}
	}
	return f, carried, nil
}

// chainCompatible reports whether the current chain can be built
// incrementally on top of the previous one: no plugin was added and the
// surviving plugins kept their relative order. Dropped plugins are handled
// by revisiting the classes they affected.
func chainCompatible(prev, cur []string) bool {
	pos := make(map[string]int, len(prev))
	for i, n := range prev {
		pos[n] = i
	}
	last := -1
	for _, n := range cur {
		i, ok := pos[n]
		if !ok || i < last {
			return false
		}
		last = i
	}
	return true
}

// mergeAffected unions two affected sets and drops classes that no longer
// exist.
func mergeAffected(prev, cur []string, g graph.Graph) []string {
	set := make(map[string]struct{}, len(prev)+len(cur))
	for _, list := range [][]string{prev, cur} {
		for _, c := range list {
			if rec, ok := g.Get(c); ok && rec.Status != graph.Removed {
				set[c] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Package walker discovers class units in the build inputs and writes the
// transformed outputs back, one container at a time.
package walker

import (
	"context"

	"clasp/internal/graph"
)

// Unit is one class handed to a UnitVisitor. Body is nil for removed units.
type Unit struct {
	Name      string
	Container string
	Body      []byte
	Status    graph.Status
}

// Entry is the output produced for a unit.
type Entry struct {
	Name string
	Body []byte
}

// UnitVisitor is called concurrently for the units of one container.
// Returning ok=false produces no output for the unit.
type UnitVisitor interface {
	OnVisit(u Unit) (e Entry, ok bool)
}

// VisitorFactory returns the visitor for one container.
type VisitorFactory func(incremental bool, container string) UnitVisitor

// UnitVisitorFunc adapts a function to UnitVisitor.
type UnitVisitorFunc func(u Unit) (Entry, bool)

func (f UnitVisitorFunc) OnVisit(u Unit) (Entry, bool) { return f(u) }

// Walker drives visitors over the class units of a build.
type Walker interface {
	// Visit walks the units of every container. Unless fullScan is set, an
	// incremental walk skips units whose status is graph.NotChanged. With
	// emitAll, units the visitor declines keep their input bytes.
	Visit(ctx context.Context, fullScan, incremental, emitAll bool, f VisitorFactory) error
	// VisitTargets walks only the named units, grouped by container.
	VisitTargets(ctx context.Context, f VisitorFactory, targets map[string][]string) error
}

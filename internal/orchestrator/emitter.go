package orchestrator

import (
	"errors"
	"fmt"

	"clasp/internal/classfile"
	"clasp/internal/hierarchy"
)

var errNoHierarchy = errors.New("no type hierarchy configured")

// superResolver unifies two types for frame computation.
type superResolver struct {
	h hierarchy.Hierarchy
}

func (r superResolver) CommonSuperClass(a, b string) (string, error) {
	s, err := r.common(a, b)
	if err != nil {
		return "", fmt.Errorf("unable to find common super type for %s and %s: %w", a, b, err)
	}
	return s, nil
}

func (r superResolver) common(a, b string) (string, error) {
	if r.h == nil {
		return "", errNoHierarchy
	}
	if ok, err := r.h.IsSubtype(b, a); err != nil {
		return "", err
	} else if ok {
		return a, nil
	}
	if ok, err := r.h.IsSubtype(a, b); err != nil {
		return "", err
	} else if ok {
		return b, nil
	}
	ai, err := r.h.IsInterface(a)
	if err != nil {
		return "", err
	}
	bi, err := r.h.IsInterface(b)
	if err != nil {
		return "", err
	}
	if ai || bi {
		return classfile.RootType, nil
	}
	c := a
	seen := map[string]struct{}{a: {}}
	for {
		c, err = r.h.Superclass(c)
		if err != nil {
			return "", err
		}
		if c == "" {
			return classfile.RootType, nil
		}
		if _, ok := seen[c]; ok {
			return "", fmt.Errorf("%w at %s", hierarchy.ErrCyclicHierarchy, c)
		}
		seen[c] = struct{}{}
		ok, err := r.h.IsSubtype(b, c)
		if err != nil {
			return "", err
		}
		if ok {
			return c, nil
		}
	}
}

func (o *Orchestrator) newEmitter(flags classfile.EmitFlags) *classfile.Writer {
	if flags&classfile.EmitComputeFrames != 0 {
		return classfile.NewWriter(flags, classfile.WithResolver(superResolver{h: o.types}))
	}
	return classfile.NewWriter(flags)
}

// Package hierarchy answers type-relationship queries over class headers
// without loading or initializing any class.
package hierarchy

import (
	"errors"
	"fmt"
	"sync"

	"clasp/internal/classfile"
)

// ErrUnknownType is returned for names the index has never seen.
var ErrUnknownType = errors.New("hierarchy: unknown type")

// ErrCyclicHierarchy is returned when a superclass chain loops back on itself.
var ErrCyclicHierarchy = errors.New("hierarchy: cyclic superclass chain")

// Hierarchy is the type-loading capability used by frame computation.
type Hierarchy interface {
	// IsSubtype reports whether a value of type a is assignable to type b.
	IsSubtype(a, b string) (bool, error)
	IsInterface(name string) (bool, error)
	// Superclass returns the direct superclass, "" for the root type.
	Superclass(name string) (string, error)
}

// Type is the indexed part of a class header.
type Type struct {
	Name       string
	Super      string
	Interfaces []string
	Interface  bool
}

// Index is an in-memory Hierarchy. It is safe for concurrent use; it is
// filled before dispatch and only read afterwards.
type Index struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewIndex returns an index that already knows the root type.
func NewIndex() *Index {
	return &Index{types: map[string]Type{
		classfile.RootType: {Name: classfile.RootType},
	}}
}

// Add indexes t. A later Add of the same name wins.
func (x *Index) Add(t Type) {
	if t.Name != classfile.RootType && t.Super == "" {
		t.Super = classfile.RootType
	}
	x.mu.Lock()
	x.types[t.Name] = t
	x.mu.Unlock()
}

// AddUnit indexes the header of a serialized unit.
func (x *Index) AddUnit(body []byte) error {
	h, err := classfile.ReadHeader(body)
	if err != nil {
		return err
	}
	x.Add(Type{Name: h.Name, Super: h.Super, Interfaces: h.Interfaces, Interface: h.Access&classfile.AccInterface != 0})
	return nil
}

// Len is the number of indexed types, the root type included.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.types)
}

func (x *Index) lookup(name string) (Type, error) {
	x.mu.RLock()
	t, ok := x.types[name]
	x.mu.RUnlock()
	if !ok {
		return Type{}, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return t, nil
}

func (x *Index) IsInterface(name string) (bool, error) {
	t, err := x.lookup(name)
	if err != nil {
		return false, err
	}
	return t.Interface, nil
}

func (x *Index) Superclass(name string) (string, error) {
	t, err := x.lookup(name)
	if err != nil {
		return "", err
	}
	return t.Super, nil
}

func (x *Index) IsSubtype(a, b string) (bool, error) {
	if _, err := x.lookup(b); err != nil {
		return false, err
	}
	if _, err := x.lookup(a); err != nil {
		return false, err
	}
	if a == b || b == classfile.RootType {
		return true, nil
	}
	seen := map[string]struct{}{a: {}}
	queue := []string{a}
	for len(queue) > 0 {
		t, err := x.lookup(queue[0])
		queue = queue[1:]
		if err != nil {
			return false, err
		}
		next := t.Interfaces
		if t.Super != "" {
			next = append([]string{t.Super}, next...)
		}
		for _, n := range next {
			if n == b {
				return true, nil
			}
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				queue = append(queue, n)
			}
		}
	}
	return false, nil
}

// Package graph holds the class records of one build and their change status.
package graph

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Status is the change status of a class relative to the previous build.
type Status int

const (
	NotChanged Status = iota
	Added
	Changed
	Removed
)

func (s Status) String() string {
	switch s {
	case NotChanged:
		return "NOT_CHANGED"
	case Added:
		return "ADDED"
	case Changed:
		return "CHANGED"
	case Removed:
		return "REMOVED"
	}
	return "UNKNOWN"
}

// Record identifies one class unit.
type Record struct {
	Name      string
	Status    Status
	Container string
}

// Graph is read-only during dispatch.
type Graph interface {
	Get(name string) (Record, bool)
	All() []Record
}

// Mem is an in-memory Graph, safe for concurrent use.
type Mem struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMem(records ...Record) *Mem {
	m := &Mem{records: make(map[string]Record, len(records))}
	for _, r := range records {
		m.records[r.Name] = r
	}
	return m
}

// Put adds or replaces a record.
func (m *Mem) Put(r Record) {
	m.mu.Lock()
	m.records[r.Name] = r
	m.mu.Unlock()
}

func (m *Mem) Get(name string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[name]
	return r, ok
}

// All returns every record ordered by name.
func (m *Mem) All() []Record {
	m.mu.RLock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Digest is the content fingerprint of one unit.
type Digest struct {
	Name      string
	Container string
	Sum       uint64
}

// Sum fingerprints a unit body.
func Sum(b []byte) uint64 { return xxhash.Sum64(b) }

// Build derives the graph of the current build. Without an incremental
// baseline every current class is Added. Classes present only in prev are
// Removed.
func Build(current []Digest, prev map[string]Digest, incremental bool) *Mem {
	m := NewMem()
	seen := make(map[string]struct{}, len(current))
	for _, d := range current {
		seen[d.Name] = struct{}{}
		st := Added
		if incremental {
			if p, ok := prev[d.Name]; ok {
				st = Changed
				if p.Sum == d.Sum && p.Container == d.Container {
					st = NotChanged
				}
			}
		}
		m.records[d.Name] = Record{Name: d.Name, Status: st, Container: d.Container}
	}
	if incremental {
		for name, p := range prev {
			if _, ok := seen[name]; !ok {
				m.records[name] = Record{Name: name, Status: Removed, Container: p.Container}
			}
		}
	}
	return m
}

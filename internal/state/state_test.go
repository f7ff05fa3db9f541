package state

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"clasp/internal/graph"
)

func TestStore_SaveAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	prev, err := s.Previous()
	if err != nil || len(prev) != 0 {
		t.Fatalf("fresh store Previous = %v, %v", prev, err)
	}

	snap := Snapshot{
		Digests: []graph.Digest{
			{Name: "a/X", Container: "main", Sum: 1<<63 + 5},
			{Name: "b/Z", Container: "lib", Sum: 42},
		},
		Plugins:  []string{"stripdebug", "marker"},
		Affected: map[string][]string{"marker": {"b/Z", "a/X", "a/X"}},
	}
	if err := s.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	prev, err = s.Previous()
	if err != nil {
		t.Fatalf("Previous: %v", err)
	}
	want := map[string]graph.Digest{
		"a/X": {Name: "a/X", Container: "main", Sum: 1<<63 + 5},
		"b/Z": {Name: "b/Z", Container: "lib", Sum: 42},
	}
	if diff := cmp.Diff(want, prev); diff != "" {
		t.Fatalf("digests mismatch (-want +got):\n%s", diff)
	}
	plugins, err := s.Plugins()
	if err != nil {
		t.Fatalf("Plugins: %v", err)
	}
	if diff := cmp.Diff([]string{"stripdebug", "marker"}, plugins); diff != "" {
		t.Fatalf("plugins mismatch (-want +got):\n%s", diff)
	}
	affected, err := s.Affected("marker")
	if err != nil {
		t.Fatalf("Affected: %v", err)
	}
	if diff := cmp.Diff([]string{"a/X", "b/Z"}, affected); diff != "" {
		t.Fatalf("affected mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_SaveReplacesPreviousState(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Save(Snapshot{Plugins: []string{"old"}, Affected: map[string][]string{"old": {"a/X"}}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(Snapshot{Plugins: []string{"new"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	plugins, _ := s.Plugins()
	if diff := cmp.Diff([]string{"new"}, plugins); diff != "" {
		t.Fatalf("plugins mismatch (-want +got):\n%s", diff)
	}
	if affected, _ := s.Affected("old"); len(affected) != 0 {
		t.Fatalf("stale affected rows: %v", affected)
	}
}

package annotations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"clasp/internal/chain"
	"clasp/internal/classfile"
	"clasp/internal/graph"
)

type nameContext string

func (c nameContext) ClassName() string                  { return string(c) }
func (nameContext) NotifyChanged()                       {}
func (nameContext) MarkAffected(string)                  {}
func (nameContext) LastWriter() classfile.ClassVisitor { return nil }

func TestAnnotations_IndexWrittenAfterTransform(t *testing.T) {
	out := filepath.Join(t.TempDir(), "index", "annotations.yml")
	d := &driver{cfg: Config{Output: out}}
	d.BeforeTransform()

	c := &classfile.Class{
		Version:     classfile.FormatVersion,
		Name:        "a/X",
		Super:       classfile.RootType,
		Annotations: []classfile.Annotation{{Desc: "Lx/Keep;"}},
		Methods:     []classfile.Method{{Name: "m", Desc: "()V", Annotations: []classfile.Annotation{{Desc: "Lx/Hot;"}}}},
	}
	body, err := c.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	h, ok := d.OnTransform(graph.Record{Name: "a/X", Status: graph.Added}, true)
	if !ok {
		t.Fatal("class declined")
	}
	if got := len(chain.Expand(h)); got != 2 {
		t.Fatalf("group size = %d, want 2", got)
	}

	ch := chain.New([]chain.Handler{h})
	w := classfile.NewWriter(0)
	r, err := classfile.NewReader(body)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if err := r.Accept(ch.Link(w, func(int) chain.Context { return nameContext("a/X") }), 0); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	ch.Detach()

	if err := d.AfterTransform(); err != nil {
		t.Fatalf("AfterTransform: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	var got map[string][]string
	if err := yaml.Unmarshal(raw, &got); err != nil {
		t.Fatalf("parse index: %v", err)
	}
	want := map[string][]string{"a/X": {"x/Hot", "x/Keep"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("index mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, d.Index()); diff != "" {
		t.Fatalf("Index mismatch (-want +got):\n%s", diff)
	}
}

package marker

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"clasp/internal/chain"
	"clasp/internal/classfile"
	"clasp/internal/graph"
	"clasp/internal/transform"
)

type recordingContext struct {
	class   string
	w       classfile.ClassVisitor
	changed int
}

func (c *recordingContext) ClassName() string                  { return c.class }
func (c *recordingContext) NotifyChanged()                     { c.changed++ }
func (c *recordingContext) MarkAffected(string)                {}
func (c *recordingContext) LastWriter() classfile.ClassVisitor { return c.w }

func run(t *testing.T, h chain.Handler, c *classfile.Class) (*classfile.Class, *recordingContext) {
	t.Helper()
	b, err := c.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	r, err := classfile.NewReader(b)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	ch := chain.New([]chain.Handler{h})
	defer ch.Detach()
	w := classfile.NewWriter(ch.Mode().Emit)
	ctx := &recordingContext{class: c.Name, w: w}
	if err := r.Accept(ch.Link(w, func(int) chain.Context { return ctx }), ch.Mode().Parse); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	out, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	decoded, err := classfile.Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return decoded, ctx
}

func descs(c *classfile.Class) []string {
	var out []string
	for _, a := range c.Annotations {
		out = append(out, a.Desc)
	}
	return out
}

func TestMarker_StampsOnlyListedClassesOnce(t *testing.T) {
	d := &driver{cfg: Config{Annotation: "Lx/Seen;", Classes: []string{"a/X"}}}
	req := d.BeforeTransform()
	if req.Scope() != transform.ScopeNone {
		t.Fatalf("scope = %v, want NONE", req.Scope())
	}

	if _, ok := d.OnTransform(graph.Record{Name: "a/Y"}, false); ok {
		t.Fatal("untargeted class must be declined")
	}
	h, ok := d.OnTransform(graph.Record{Name: "a/X"}, true)
	if !ok {
		t.Fatal("targeted class declined")
	}
	out, ctx := run(t, h, &classfile.Class{Version: classfile.FormatVersion, Name: "a/X", Super: classfile.RootType})
	if diff := cmp.Diff([]string{"Lx/Seen;"}, descs(out)); diff != "" {
		t.Fatalf("annotations mismatch (-want +got):\n%s", diff)
	}
	if ctx.changed != 1 {
		t.Fatalf("NotifyChanged called %d times, want 1", ctx.changed)
	}

	h, _ = d.OnTransform(graph.Record{Name: "a/X"}, true)
	out, _ = run(t, h, out)
	if diff := cmp.Diff([]string{"Lx/Seen;"}, descs(out)); diff != "" {
		t.Fatalf("stamp is not idempotent (-want +got):\n%s", diff)
	}
}

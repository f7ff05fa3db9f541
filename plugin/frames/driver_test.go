package frames

import (
	"testing"

	"clasp/internal/classfile"
	"clasp/internal/graph"
	"clasp/internal/transform"
)

func TestDriver_RequestsFrameRecomputation(t *testing.T) {
	d := &driver{}
	if err := d.Configure(nil); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	req := d.BeforeTransform()
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if req.Scope() != transform.ScopeChanged {
		t.Fatalf("scope = %v, want changed", req.Scope())
	}

	h, ok := d.OnTransform(graph.Record{Name: "a/X", Status: graph.Added}, true)
	if !ok {
		t.Fatal("targeted class declined")
	}
	want := classfile.Mode{Parse: classfile.ParseSkipFrames, Emit: classfile.EmitComputeFrames}
	if h.Mode() != want {
		t.Fatalf("mode = %+v, want %+v", h.Mode(), want)
	}
}

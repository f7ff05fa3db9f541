package plugin_test

import (
	"testing"

	"gopkg.in/yaml.v3"

	"clasp/plugin"
	_ "clasp/plugin/annotations"
	_ "clasp/plugin/frames"
	_ "clasp/plugin/marker"
	_ "clasp/plugin/stripdebug"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry_BuiltinsRegistered(t *testing.T) {
	want := []string{"annotations", "frames", "marker", "stripdebug"}
	if diff := cmp.Diff(want, plugin.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if _, err := plugin.New("nope"); err == nil {
		t.Fatal("expected error for unknown plugin")
	}
}

func TestRegistry_ConfigureFromYAML(t *testing.T) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte("classes: [a/X]\n"), &doc); err != nil {
		t.Fatal(err)
	}
	p, err := plugin.New("marker")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Configure(doc.Content[0]); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	req := p.BeforeTransform()
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if diff := cmp.Diff([]string{"a/X"}, req.Extra()); diff != "" {
		t.Fatalf("extra mismatch (-want +got):\n%s", diff)
	}

	m, _ := plugin.New("marker")
	if err := m.Configure(nil); err == nil {
		t.Fatal("marker without classes must be rejected")
	}
}

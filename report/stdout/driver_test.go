package stdout

import (
	"bytes"
	"strings"
	"testing"

	"clasp/report"
)

func TestDriver_PushFormatsEventsAndSummary(t *testing.T) {
	var buf bytes.Buffer
	d := &driver{out: &buf}

	events := []*report.Event{
		{BuildID: "b1", Class: "a/X", Container: "main", Outcome: "transformed", Plugins: []string{"marker"}},
		{BuildID: "b1", Class: "a/Y", Container: "main", Outcome: "passthrough"},
		{BuildID: "b1", Class: "a/Z", Container: "main", Outcome: "fallback", Error: "bad frame"},
		{BuildID: "b1", Summary: &report.Summary{Plugins: []string{"marker"}, Outcomes: map[string]int{"transformed": 1, "passthrough": 1, "fallback": 1}}},
	}
	for _, e := range events {
		if err := d.Push(e); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("want 3 lines (passthrough hidden), got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "a/X") || !strings.Contains(lines[0], "by marker") {
		t.Fatalf("unexpected class line: %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], ": bad frame") {
		t.Fatalf("unexpected fallback line: %q", lines[1])
	}
	if !strings.Contains(lines[2], "build b1") || !strings.Contains(lines[2], "fallback=1") {
		t.Fatalf("unexpected summary line: %q", lines[2])
	}
}

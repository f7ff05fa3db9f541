// clasp/report/stdout/driver.go
package stdout

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"clasp/report"
)

/* ────────── public YAML config ────────── */
type Config struct {
	PrintCounter bool `yaml:"print_counter"` // prepend seq#
	SummaryOnly  bool `yaml:"summary_only"`  // skip per-class lines
	// Passthrough prints classes no plugin touched too.
	Passthrough bool `yaml:"passthrough"`
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config
	out io.Writer

	mu  sync.Mutex // serializes writes
	seq atomic.Uint64
}

/* ────────── report.Adapter ────────── */
func (d *driver) Configure(node *yaml.Node) error {
	if node != nil && node.Kind != 0 {
		if err := node.Decode(&d.cfg); err != nil {
			return fmt.Errorf("stdout-report: %w", err)
		}
	}
	return nil
}

func (d *driver) Push(e *report.Event) error {
	if e.Summary == nil && (d.cfg.SummaryOnly || (e.Outcome == "passthrough" && !d.cfg.Passthrough)) {
		return nil
	}
	var b strings.Builder
	if d.cfg.PrintCounter {
		fmt.Fprintf(&b, "[report %06d] ", d.seq.Add(1))
	}
	if s := e.Summary; s != nil {
		fmt.Fprintf(&b, "build %s incremental=%t plugins=%s", e.BuildID, s.Incremental, strings.Join(s.Plugins, ","))
		for _, k := range []string{"transformed", "passthrough", "fallback", "removed"} {
			fmt.Fprintf(&b, " %s=%d", k, s.Outcomes[k])
		}
		fmt.Fprintf(&b, " took=%dms", s.DurationMS)
	} else {
		fmt.Fprintf(&b, "%-11s %s (%s)", e.Outcome, e.Class, e.Container)
		if len(e.Plugins) > 0 {
			fmt.Fprintf(&b, " by %s", strings.Join(e.Plugins, ","))
		}
		if e.Error != "" {
			fmt.Fprintf(&b, ": %s", e.Error)
		}
	}
	b.WriteByte('\n')

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := io.WriteString(d.writer(), b.String())
	return err
}

func (d *driver) Close() error { return nil }

func (d *driver) writer() io.Writer {
	if d.out == nil {
		return os.Stdout
	}
	return d.out
}

/* ────────── auto-register ────────── */
func init() {
	report.Register("stdout", func() report.Adapter { return &driver{} })
}

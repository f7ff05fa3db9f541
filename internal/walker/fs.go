package walker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zip"

	"clasp/internal/graph"
	"clasp/internal/logging"
	"clasp/internal/pool"
)

const classSuffix = ".class"

// Input is one build input: a directory or a .jar/.zip archive.
type Input struct {
	Name string
	Path string
}

type Config struct {
	Inputs    []Input
	OutputDir string
	// Exclude holds doublestar patterns matched against entry paths. Excluded
	// class files are copied like resources and never visited.
	Exclude []string
}

type entry struct {
	path  string
	body  []byte
	class string
}

type container struct {
	name    string
	src     string
	out     string
	archive bool
	entries []*entry
}

// FS is a Walker over the local filesystem.
type FS struct {
	cfg Config
	res *pool.Resources
	log *slog.Logger

	mu         sync.RWMutex
	containers map[string]*container
	units      map[string]*entry
	owner      map[string]*container
	graph      graph.Graph
}

func NewFS(cfg Config, res *pool.Resources) *FS {
	return &FS{
		cfg:        cfg,
		res:        res,
		log:        logging.New("walker"),
		containers: make(map[string]*container),
		units:      make(map[string]*entry),
		owner:      make(map[string]*container),
	}
}

// Scan reads every input and returns the digests of its class units.
func (w *FS) Scan() ([]graph.Digest, error) {
	for _, p := range w.cfg.Exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("walker: invalid exclude pattern %q", p)
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []graph.Digest
	for _, in := range w.cfg.Inputs {
		if _, dup := w.containers[in.Name]; dup {
			return nil, fmt.Errorf("walker: duplicate input name %q", in.Name)
		}
		c, err := w.read(in)
		if err != nil {
			return nil, err
		}
		w.containers[c.name] = c
		for _, e := range c.entries {
			if e.class == "" {
				continue
			}
			if prev, dup := w.owner[e.class]; dup {
				w.log.Warn("class defined twice, keeping the first", "class", e.class, "first", prev.name, "second", c.name)
				continue
			}
			w.units[e.class] = e
			w.owner[e.class] = c
			out = append(out, graph.Digest{Name: e.class, Container: c.name, Sum: graph.Sum(e.body)})
		}
	}
	return out, nil
}

// Bind sets the graph that supplies unit statuses. It must be called after
// Scan and before Visit.
func (w *FS) Bind(g graph.Graph) {
	w.mu.Lock()
	w.graph = g
	w.mu.Unlock()
}

// Bodies calls fn for every scanned class unit.
func (w *FS) Bodies(fn func(name string, body []byte) error) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.units))
	for n := range w.units {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := fn(n, w.units[n].body); err != nil {
			return err
		}
	}
	return nil
}

// Clean removes the output of every scanned container.
func (w *FS) Clean() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, c := range w.containers {
		if err := os.RemoveAll(c.out); err != nil {
			return fmt.Errorf("walker: clean %s: %w", c.out, err)
		}
	}
	return nil
}

func (w *FS) excluded(path string) bool {
	for _, p := range w.cfg.Exclude {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

func (w *FS) read(in Input) (*container, error) {
	st, err := os.Stat(in.Path)
	if err != nil {
		return nil, fmt.Errorf("walker: input %s: %w", in.Name, err)
	}
	c := &container{name: in.Name, src: in.Path}
	if st.IsDir() {
		c.out = filepath.Join(w.cfg.OutputDir, in.Name)
		err = w.readDir(c)
	} else {
		c.archive = true
		c.out = filepath.Join(w.cfg.OutputDir, in.Name+filepath.Ext(in.Path))
		err = w.readArchive(c)
	}
	if err != nil {
		return nil, fmt.Errorf("walker: input %s: %w", in.Name, err)
	}
	return c, nil
}

func (w *FS) classify(path string, body []byte) *entry {
	e := &entry{path: path, body: body}
	if strings.HasSuffix(path, classSuffix) && !w.excluded(path) {
		e.class = strings.TrimSuffix(path, classSuffix)
	}
	return e
}

func (w *FS) readDir(c *container) error {
	return filepath.WalkDir(c.src, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(c.src, p)
		if err != nil {
			return err
		}
		body, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		c.entries = append(c.entries, w.classify(filepath.ToSlash(rel), body))
		return nil
	})
}

func (w *FS) readArchive(c *container) error {
	zr, err := zip.OpenReader(c.src)
	if err != nil {
		return err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		body, err := readZipFile(f)
		if err != nil {
			return err
		}
		c.entries = append(c.entries, w.classify(f.Name, body))
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// result is the outcome of visiting one unit.
type result struct {
	unit    Unit
	path    string
	out     []byte
	emitted bool
}

func (w *FS) Visit(ctx context.Context, fullScan, incremental, emitAll bool, f VisitorFactory) error {
	w.mu.RLock()
	g := w.graph
	w.mu.RUnlock()
	if g == nil {
		return fmt.Errorf("walker: Visit before Bind")
	}

	byContainer := make(map[string][]Unit)
	for _, rec := range g.All() {
		if incremental && !fullScan && rec.Status == graph.NotChanged {
			continue
		}
		if rec.Status == graph.Removed && !incremental {
			continue
		}
		u := Unit{Name: rec.Name, Container: rec.Container, Status: rec.Status}
		if rec.Status != graph.Removed {
			e, ok := w.unit(rec.Name)
			if !ok {
				continue
			}
			u.Body = e.body
		}
		byContainer[rec.Container] = append(byContainer[rec.Container], u)
	}
	// Untouched containers still get their resources and, on a full build,
	// their archive rewritten.
	for _, name := range w.containerNames() {
		if _, ok := byContainer[name]; !ok {
			byContainer[name] = nil
		}
	}
	return w.run(ctx, incremental, emitAll, true, f, byContainer)
}

func (w *FS) VisitTargets(ctx context.Context, f VisitorFactory, targets map[string][]string) error {
	w.mu.RLock()
	g := w.graph
	w.mu.RUnlock()
	byContainer := make(map[string][]Unit, len(targets))
	for cname, names := range targets {
		for _, n := range names {
			e, ok := w.unit(n)
			if !ok {
				w.log.Debug("target is not an input unit, skipped", "class", n, "container", cname)
				continue
			}
			st := graph.NotChanged
			if g != nil {
				if rec, ok := g.Get(n); ok {
					st = rec.Status
				}
			}
			byContainer[cname] = append(byContainer[cname], Unit{Name: n, Container: cname, Body: e.body, Status: st})
		}
	}
	return w.run(ctx, true, true, false, f, byContainer)
}

func (w *FS) unit(name string) (*entry, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.units[name]
	return e, ok
}

func (w *FS) containerNames() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.containers))
	for n := range w.containers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (w *FS) run(ctx context.Context, incremental, emitAll, resources bool, f VisitorFactory, byContainer map[string][]Unit) error {
	results := make(map[string][]result, len(byContainer))
	visit := w.res.CPU.Tasks(ctx)
	for cname, units := range byContainer {
		rs := make([]result, len(units))
		results[cname] = rs
		if len(units) == 0 {
			continue
		}
		v := f(incremental, cname)
		for i, u := range units {
			visit.Go(func() error {
				rs[i] = w.visitOne(v, u, emitAll)
				return nil
			})
		}
	}
	if err := visit.Wait(); err != nil {
		return err
	}

	write := w.res.IO.Tasks(ctx)
	for cname, rs := range results {
		w.mu.RLock()
		c, ok := w.containers[cname]
		w.mu.RUnlock()
		if !ok {
			if len(rs) > 0 {
				w.log.Debug("container is no longer an input, outputs left as is", "container", cname)
			}
			continue
		}
		write.Go(func() error {
			if c.archive {
				return w.writeArchive(c, rs, incremental)
			}
			return w.writeDir(c, rs, resources)
		})
	}
	return write.Wait()
}

func (w *FS) visitOne(v UnitVisitor, u Unit, emitAll bool) result {
	r := result{unit: u, path: u.Name + classSuffix}
	if e, ok := w.unit(u.Name); ok {
		r.path = e.path
	}
	if ent, ok := v.OnVisit(u); ok {
		r.out, r.emitted = ent.Body, true
		return r
	}
	if emitAll && u.Status != graph.Removed {
		r.out, r.emitted = u.Body, true
	}
	return r
}

func (w *FS) writeDir(c *container, rs []result, resources bool) error {
	for _, r := range rs {
		dst := filepath.Join(c.out, filepath.FromSlash(r.path))
		if r.unit.Status == graph.Removed {
			if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("walker: remove %s: %w", dst, err)
			}
			continue
		}
		if !r.emitted {
			continue
		}
		if err := writeFile(dst, r.out); err != nil {
			return err
		}
	}
	if !resources {
		return nil
	}
	for _, e := range c.entries {
		if e.class != "" {
			continue
		}
		if err := writeFile(filepath.Join(c.out, filepath.FromSlash(e.path)), e.body); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(dst string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("walker: %w", err)
	}
	if err := os.WriteFile(dst, body, 0o644); err != nil {
		return fmt.Errorf("walker: write %s: %w", dst, err)
	}
	return nil
}

// writeArchive rewrites the whole output archive of c. Visited units take
// their new bytes; every other entry keeps its previous output when one
// exists, else its input bytes.
func (w *FS) writeArchive(c *container, rs []result, incremental bool) error {
	previous := map[string][]byte{}
	if incremental {
		prev, err := readArchiveEntries(c.out)
		switch {
		case err == nil:
			if len(rs) == 0 {
				return nil
			}
			previous = prev
		case !os.IsNotExist(err):
			return fmt.Errorf("walker: previous output %s: %w", c.out, err)
		}
	}
	visited := make(map[string]result, len(rs))
	for _, r := range rs {
		visited[r.path] = r
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range c.entries {
		body := e.body
		if r, ok := visited[e.path]; ok && r.emitted {
			body = r.out
		} else if p, ok := previous[e.path]; ok {
			body = p
		}
		fw, err := zw.Create(e.path)
		if err != nil {
			return fmt.Errorf("walker: archive %s: %w", c.out, err)
		}
		if _, err := fw.Write(body); err != nil {
			return fmt.Errorf("walker: archive %s: %w", c.out, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("walker: archive %s: %w", c.out, err)
	}
	tmp := c.out + ".tmp"
	if err := writeFile(tmp, buf.Bytes()); err != nil {
		return err
	}
	return os.Rename(tmp, c.out)
}

func readArchiveEntries(path string) (map[string][]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		body, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		out[f.Name] = body
	}
	return out, nil
}

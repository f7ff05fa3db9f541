// Package marker stamps an annotation on an explicit list of classes.
package marker

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"clasp/internal/chain"
	"clasp/internal/classfile"
	"clasp/internal/graph"
	"clasp/internal/transform"
	"clasp/plugin"
)

const defaultAnnotation = "Lclasp/Marked;"

type Config struct {
	// Annotation is the descriptor to add.
	Annotation string   `yaml:"annotation"`
	Classes    []string `yaml:"classes"`
}

type driver struct {
	cfg Config
}

func (d *driver) Configure(node *yaml.Node) error {
	if err := plugin.Decode(node, &d.cfg); err != nil {
		return fmt.Errorf("marker: %w", err)
	}
	if d.cfg.Annotation == "" {
		d.cfg.Annotation = defaultAnnotation
	}
	if len(d.cfg.Classes) == 0 {
		return errors.New("marker: no classes configured")
	}
	return nil
}

func (d *driver) BeforeTransform() *transform.Request {
	return transform.NewRequest(transform.ScopeNone, d.cfg.Classes...)
}

func (d *driver) OnTransform(rec graph.Record, target bool) (chain.Handler, bool) {
	if !target || rec.Status == graph.Removed {
		return nil, false
	}
	return &stamp{desc: d.cfg.Annotation}, true
}

func (d *driver) AfterTransform() error { return nil }

// stamp writes the annotation straight to the emitter unless the class
// already carries it.
type stamp struct {
	chain.Base
	desc    string
	present bool
}

func (s *stamp) VisitAnnotation(desc string, visible bool) classfile.AnnotationVisitor {
	if desc == s.desc {
		s.present = true
	}
	return s.Base.VisitAnnotation(desc, visible)
}

func (s *stamp) VisitEnd() {
	ctx := s.Context()
	if !s.present {
		if av := ctx.LastWriter().VisitAnnotation(s.desc, false); av != nil {
			av.VisitEnd()
		}
	}
	ctx.NotifyChanged()
	s.Base.VisitEnd()
}

func init() {
	plugin.Register("marker", func() plugin.Plugin { return &driver{} })
}

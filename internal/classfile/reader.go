package classfile

import (
	"fmt"
	"slices"
)

// Reader drives a ClassVisitor over one decoded unit.
type Reader struct {
	class *Class
}

// NewReader decodes b. The returned Reader may be accepted any number of times.
func NewReader(b []byte) (*Reader, error) {
	c, err := Decode(b)
	if err != nil {
		return nil, err
	}
	return &Reader{class: c}, nil
}

// ClassName returns the internal name of the unit.
func (r *Reader) ClassName() string { return r.class.Name }

// Accept replays the unit into v. A panic raised by any visitor is recovered
// and returned as a *VisitError.
func (r *Reader) Accept(v ClassVisitor, flags ParseFlags) (err error) {
	defer func() {
		if p := recover(); p != nil {
			cause, ok := p.(error)
			if !ok {
				cause = fmt.Errorf("%v", p)
			}
			err = &VisitError{Class: r.class.Name, Cause: cause}
		}
	}()

	c := r.class
	v.Visit(c.Version, c.Access, c.Name, c.Super, slices.Clone(c.Interfaces))
	if flags&ParseSkipDebug == 0 && c.SourceFile != "" {
		v.VisitSource(c.SourceFile)
	}
	for _, a := range c.Annotations {
		acceptAnnotation(v.VisitAnnotation(a.Desc, a.Visible), a)
	}
	for _, f := range c.Fields {
		fv := v.VisitField(f.Access, f.Name, f.Desc)
		if fv == nil {
			continue
		}
		for _, a := range f.Annotations {
			acceptAnnotation(fv.VisitAnnotation(a.Desc, a.Visible), a)
		}
		fv.VisitEnd()
	}
	for i := range c.Methods {
		acceptMethod(v, &c.Methods[i], flags)
	}
	v.VisitEnd()
	return nil
}

func acceptMethod(v ClassVisitor, m *Method, flags ParseFlags) {
	mv := v.VisitMethod(m.Access, m.Name, m.Desc, slices.Clone(m.Exceptions))
	if mv == nil {
		return
	}
	for _, a := range m.Annotations {
		acceptAnnotation(mv.VisitAnnotation(a.Desc, a.Visible), a)
	}
	for _, p := range m.ParamAnnotations {
		acceptAnnotation(mv.VisitParameterAnnotation(int(p.Param), p.Desc, p.Visible), p.Annotation)
	}
	if flags&ParseSkipCode == 0 {
		if len(m.Code) > 0 {
			mv.VisitCode(slices.Clone(m.Code))
		}
		if flags&ParseSkipDebug == 0 {
			for _, l := range m.Lines {
				mv.VisitLineNumber(l.Offset, l.Line)
			}
		}
		for _, j := range m.Joins {
			mv.VisitJoin(j.Offset, slices.Clone(j.Incoming))
		}
		if flags&ParseSkipFrames == 0 {
			for _, f := range m.Frames {
				mv.VisitFrame(f.Offset, f.Type)
			}
		}
	}
	mv.VisitEnd()
}

func acceptAnnotation(av AnnotationVisitor, a Annotation) {
	if av == nil {
		return
	}
	for _, el := range a.Elements {
		av.Visit(el.Name, el.Value)
	}
	av.VisitEnd()
}

package classfile

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Resolver finds the most specific common supertype of two internal names.
type Resolver interface {
	CommonSuperClass(a, b string) (string, error)
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithResolver sets the resolver used when frames are computed.
func WithResolver(r Resolver) WriterOption {
	return func(w *Writer) { w.resolver = r }
}

// Writer is the terminal ClassVisitor of a chain: it rebuilds the unit from the
// events it receives and serializes it with Bytes.
//
// The first failure is sticky; later events are still accepted but Bytes
// reports that failure.
type Writer struct {
	flags    EmitFlags
	resolver Resolver
	class    Class
	err      error
}

// NewWriter creates a Writer.
func NewWriter(flags EmitFlags, opts ...WriterOption) *Writer {
	w := &Writer{flags: flags}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Flags returns the emit flags the writer was created with.
func (w *Writer) Flags() EmitFlags { return w.flags }

// Bytes serializes everything visited so far.
func (w *Writer) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.class.MarshalBinary()
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) Visit(version uint16, access Access, name, super string, interfaces []string) {
	w.class.Version = version
	w.class.Access = access
	w.class.Name = name
	w.class.Super = super
	w.class.Interfaces = slices.Clone(interfaces)
}

func (w *Writer) VisitSource(file string) { w.class.SourceFile = file }

func (w *Writer) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	return &annotationWriter{
		a:    Annotation{Desc: desc, Visible: visible},
		done: func(a Annotation) { w.class.Annotations = append(w.class.Annotations, a) },
	}
}

func (w *Writer) VisitField(access Access, name, desc string) FieldVisitor {
	return &fieldWriter{w: w, f: Field{Access: access, Name: name, Desc: desc}}
}

func (w *Writer) VisitMethod(access Access, name, desc string, exceptions []string) MethodVisitor {
	return &methodWriter{w: w, m: Method{Access: access, Name: name, Desc: desc, Exceptions: slices.Clone(exceptions)}}
}

func (w *Writer) VisitEnd() {}

type annotationWriter struct {
	a    Annotation
	done func(Annotation)
}

func (aw *annotationWriter) Visit(name, value string) {
	aw.a.Elements = append(aw.a.Elements, Element{Name: name, Value: value})
}

func (aw *annotationWriter) VisitEnd() { aw.done(aw.a) }

type fieldWriter struct {
	w *Writer
	f Field
}

func (fw *fieldWriter) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	return &annotationWriter{
		a:    Annotation{Desc: desc, Visible: visible},
		done: func(a Annotation) { fw.f.Annotations = append(fw.f.Annotations, a) },
	}
}

func (fw *fieldWriter) VisitEnd() { fw.w.class.Fields = append(fw.w.class.Fields, fw.f) }

type methodWriter struct {
	w *Writer
	m Method
}

func (mw *methodWriter) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	return &annotationWriter{
		a:    Annotation{Desc: desc, Visible: visible},
		done: func(a Annotation) { mw.m.Annotations = append(mw.m.Annotations, a) },
	}
}

func (mw *methodWriter) VisitParameterAnnotation(param int, desc string, visible bool) AnnotationVisitor {
	if param < 0 || param > math.MaxUint8 {
		mw.w.fail(fmt.Errorf("classfile: %s%s: parameter index %d out of range", mw.m.Name, mw.m.Desc, param))
		return nil
	}
	return &annotationWriter{
		a: Annotation{Desc: desc, Visible: visible},
		done: func(a Annotation) {
			mw.m.ParamAnnotations = append(mw.m.ParamAnnotations, ParamAnnotation{Param: uint8(param), Annotation: a})
		},
	}
}

func (mw *methodWriter) VisitCode(code []byte) { mw.m.Code = slices.Clone(code) }

func (mw *methodWriter) VisitLineNumber(offset, line uint32) {
	mw.m.Lines = append(mw.m.Lines, LineNumber{Offset: offset, Line: line})
}

func (mw *methodWriter) VisitJoin(offset uint32, incoming []string) {
	mw.m.Joins = append(mw.m.Joins, Join{Offset: offset, Incoming: slices.Clone(incoming)})
}

func (mw *methodWriter) VisitFrame(offset uint32, typ string) {
	if mw.w.flags&EmitComputeFrames != 0 {
		return
	}
	mw.m.Frames = append(mw.m.Frames, Frame{Offset: offset, Type: typ})
}

func (mw *methodWriter) VisitEnd() {
	if mw.w.flags&EmitComputeFrames != 0 {
		frames, err := mw.w.computeFrames(&mw.m)
		if err != nil {
			mw.w.fail(fmt.Errorf("classfile: compute frames of %s.%s%s: %w", mw.w.class.Name, mw.m.Name, mw.m.Desc, err))
		}
		mw.m.Frames = frames
	}
	mw.w.class.Methods = append(mw.w.class.Methods, mw.m)
}

var errNoResolver = errors.New("frame computation requested without a resolver")

func (w *Writer) computeFrames(m *Method) ([]Frame, error) {
	if len(m.Joins) == 0 {
		return nil, nil
	}
	if w.resolver == nil {
		return nil, errNoResolver
	}
	frames := make([]Frame, 0, len(m.Joins))
	for _, j := range m.Joins {
		if len(j.Incoming) == 0 {
			continue
		}
		t := j.Incoming[0]
		for _, next := range j.Incoming[1:] {
			if next == t {
				continue
			}
			merged, err := w.resolver.CommonSuperClass(t, next)
			if err != nil {
				return nil, err
			}
			t = merged
		}
		frames = append(frames, Frame{Offset: j.Offset, Type: t})
	}
	return frames, nil
}

package chain

import (
	"sort"
	"strings"

	"clasp/internal/classfile"
)

// Sniffer is a pass-through handler that records the descriptor of every
// annotation it sees on the class, its fields, its methods and their
// parameters.
type Sniffer struct {
	Base
	found map[string]struct{}
}

// NewSniffer returns a Sniffer forwarding to next, which may be nil when the
// sniffer is linked later as part of a chain.
func NewSniffer(next classfile.ClassVisitor) *Sniffer {
	s := &Sniffer{found: make(map[string]struct{})}
	s.Next = next
	return s
}

func (s *Sniffer) record(desc string) {
	if s.found == nil {
		s.found = make(map[string]struct{})
	}
	s.found[desc] = struct{}{}
}

func (s *Sniffer) VisitAnnotation(desc string, visible bool) classfile.AnnotationVisitor {
	s.record(desc)
	return s.ClassAdapter.VisitAnnotation(desc, visible)
}

func (s *Sniffer) VisitField(access classfile.Access, name, desc string) classfile.FieldVisitor {
	return &fieldSniffer{
		FieldAdapter: classfile.FieldAdapter{Next: s.ClassAdapter.VisitField(access, name, desc)},
		s:            s,
	}
}

func (s *Sniffer) VisitMethod(access classfile.Access, name, desc string, exceptions []string) classfile.MethodVisitor {
	return &methodSniffer{
		MethodAdapter: classfile.MethodAdapter{Next: s.ClassAdapter.VisitMethod(access, name, desc, exceptions)},
		s:             s,
	}
}

// Annotations returns the recorded descriptors, sorted.
func (s *Sniffer) Annotations() []string {
	out := make([]string, 0, len(s.found))
	for d := range s.found {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// InternalNames returns the recorded descriptors as internal names
// ("Lcom/acme/Keep;" becomes "com/acme/Keep"), sorted.
func (s *Sniffer) InternalNames() []string {
	out := s.Annotations()
	for i, d := range out {
		out[i] = DescToInternalName(d)
	}
	sort.Strings(out)
	return out
}

// DescToInternalName converts an object type descriptor to an internal name.
// Anything that is not an object descriptor is returned unchanged.
func DescToInternalName(desc string) string {
	if strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
		return desc[1 : len(desc)-1]
	}
	return desc
}

type fieldSniffer struct {
	classfile.FieldAdapter
	s *Sniffer
}

func (f *fieldSniffer) VisitAnnotation(desc string, visible bool) classfile.AnnotationVisitor {
	f.s.record(desc)
	return f.FieldAdapter.VisitAnnotation(desc, visible)
}

type methodSniffer struct {
	classfile.MethodAdapter
	s *Sniffer
}

func (m *methodSniffer) VisitAnnotation(desc string, visible bool) classfile.AnnotationVisitor {
	m.s.record(desc)
	return m.MethodAdapter.VisitAnnotation(desc, visible)
}

func (m *methodSniffer) VisitParameterAnnotation(param int, desc string, visible bool) classfile.AnnotationVisitor {
	m.s.record(desc)
	return m.MethodAdapter.VisitParameterAnnotation(param, desc, visible)
}

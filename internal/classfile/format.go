package classfile

import (
	"errors"
	"fmt"
)

// FormatVersion is the current unit format version.
const FormatVersion uint16 = 1

// RootType is the universal supertype every class and interface is assignable to.
const RootType = "java/lang/Object"

// Magic bytes for class units: "CLSP".
var Magic = []byte{'C', 'L', 'S', 'P'}

// ErrMalformed is returned when a unit cannot be decoded.
var ErrMalformed = errors.New("classfile: malformed unit")

// Access holds class, field and method access flags.
type Access uint16

const (
	AccPublic     Access = 0x0001
	AccPrivate    Access = 0x0002
	AccProtected  Access = 0x0004
	AccStatic     Access = 0x0008
	AccFinal      Access = 0x0010
	AccInterface  Access = 0x0200
	AccAbstract   Access = 0x0400
	AccAnnotation Access = 0x2000
)

// ParseFlags control what a Reader reports while driving a visitor.
type ParseFlags uint8

const (
	// ParseSkipCode skips method bodies: code, line numbers, joins and frames.
	ParseSkipCode ParseFlags = 1 << iota
	// ParseSkipDebug skips the source file attribute and line numbers.
	ParseSkipDebug
	// ParseSkipFrames skips stack-map frames.
	ParseSkipFrames
)

// EmitFlags control how a Writer serializes what it is fed.
type EmitFlags uint8

const (
	// EmitComputeFrames discards visited frames and recomputes one frame per
	// join point. Requires a Resolver.
	EmitComputeFrames EmitFlags = 1 << iota
)

// Mode is the pair of parse and emit flags a visitor needs.
type Mode struct {
	Parse ParseFlags
	Emit  EmitFlags
}

// Or merges two modes.
func (m Mode) Or(o Mode) Mode {
	return Mode{Parse: m.Parse | o.Parse, Emit: m.Emit | o.Emit}
}

// Class is the decoded form of one unit.
type Class struct {
	Version    uint16
	Access     Access
	Name       string
	Super      string
	Interfaces []string

	// Debug
	SourceFile string

	Annotations []Annotation
	Fields      []Field
	Methods     []Method
}

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool { return c.Access&AccInterface != 0 }

// Annotation is a single annotation occurrence.
type Annotation struct {
	Desc     string
	Visible  bool
	Elements []Element
}

// Element is one name=value pair of an annotation.
type Element struct {
	Name  string
	Value string
}

// Field describes a field declaration.
type Field struct {
	Access      Access
	Name        string
	Desc        string
	Annotations []Annotation
}

// Method describes a method declaration and its body.
type Method struct {
	Access           Access
	Name             string
	Desc             string
	Exceptions       []string
	Annotations      []Annotation
	ParamAnnotations []ParamAnnotation

	Code   []byte
	Lines  []LineNumber
	Joins  []Join
	Frames []Frame
}

// ParamAnnotation is an annotation attached to a method parameter.
type ParamAnnotation struct {
	Param uint8
	Annotation
}

// LineNumber maps a code offset to a source line.
type LineNumber struct {
	Offset uint32
	Line   uint32
}

// Join is a control-flow merge point: every type that may be on top of the
// stack when execution reaches Offset.
type Join struct {
	Offset   uint32
	Incoming []string
}

// Frame is the merged stack-top type recorded for a join point.
type Frame struct {
	Offset uint32
	Type   string
}

// Header is the part of a unit needed to place it in a type hierarchy.
type Header struct {
	Access     Access
	Name       string
	Super      string
	Interfaces []string
}

// VisitError wraps a failure raised by a visitor while a unit was being traversed.
type VisitError struct {
	Class string
	Cause error
}

func (e *VisitError) Error() string {
	return fmt.Sprintf("classfile: visiting %s: %v", e.Class, e.Cause)
}

func (e *VisitError) Unwrap() error { return e.Cause }

package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// MarshalBinary serializes the class into the CLSP unit format.
//
// Layout (big endian, strings and lists are u16-prefixed):
//
//	magic "CLSP" | version u16 | access u16 | name | super | interfaces
//	source file | annotations | fields | methods
func (c *Class) MarshalBinary() ([]byte, error) {
	e := encoder{buf: make([]byte, 0, 256)}
	e.buf = append(e.buf, Magic...)
	e.u16(c.Version)
	e.u16(uint16(c.Access))
	e.str(c.Name)
	e.str(c.Super)
	e.strs(c.Interfaces)
	e.str(c.SourceFile)
	e.annotations(c.Annotations)

	e.count(len(c.Fields))
	for _, f := range c.Fields {
		e.u16(uint16(f.Access))
		e.str(f.Name)
		e.str(f.Desc)
		e.annotations(f.Annotations)
	}

	e.count(len(c.Methods))
	for _, m := range c.Methods {
		e.u16(uint16(m.Access))
		e.str(m.Name)
		e.str(m.Desc)
		e.strs(m.Exceptions)
		e.annotations(m.Annotations)
		e.count(len(m.ParamAnnotations))
		for _, p := range m.ParamAnnotations {
			e.buf = append(e.buf, p.Param)
			e.annotation(p.Annotation)
		}
		if uint64(len(m.Code)) > math.MaxUint32 {
			e.fail("code of %s%s too large", m.Name, m.Desc)
		}
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(m.Code)))
		e.buf = append(e.buf, m.Code...)
		e.count(len(m.Lines))
		for _, l := range m.Lines {
			e.buf = binary.BigEndian.AppendUint32(e.buf, l.Offset)
			e.buf = binary.BigEndian.AppendUint32(e.buf, l.Line)
		}
		e.count(len(m.Joins))
		for _, j := range m.Joins {
			e.buf = binary.BigEndian.AppendUint32(e.buf, j.Offset)
			e.strs(j.Incoming)
		}
		e.count(len(m.Frames))
		for _, f := range m.Frames {
			e.buf = binary.BigEndian.AppendUint32(e.buf, f.Offset)
			e.str(f.Type)
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.buf, nil
}

// Decode parses a CLSP unit. Trailing bytes are rejected so that a decoded
// unit always re-encodes to the same bytes.
func Decode(data []byte) (*Class, error) {
	if len(data) < len(Magic)+2 || !bytes.Equal(data[:len(Magic)], Magic) {
		return nil, fmt.Errorf("%w: bad magic", ErrMalformed)
	}
	d := decoder{b: data, pos: len(Magic)}
	c := &Class{}
	c.Version = d.u16()
	if d.err == nil && c.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, c.Version)
	}
	c.Access = Access(d.u16())
	c.Name = d.str()
	c.Super = d.str()
	c.Interfaces = d.strs()
	c.SourceFile = d.str()
	c.Annotations = d.annotations()

	if n := d.u16(); n > 0 {
		c.Fields = make([]Field, 0, n)
		for i := 0; i < int(n) && d.err == nil; i++ {
			c.Fields = append(c.Fields, Field{
				Access:      Access(d.u16()),
				Name:        d.str(),
				Desc:        d.str(),
				Annotations: d.annotations(),
			})
		}
	}

	if n := d.u16(); n > 0 {
		c.Methods = make([]Method, 0, n)
		for i := 0; i < int(n) && d.err == nil; i++ {
			c.Methods = append(c.Methods, d.method())
		}
	}

	if d.err != nil {
		return nil, d.err
	}
	if d.pos != len(d.b) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(d.b)-d.pos)
	}
	return c, nil
}

// ReadHeader decodes just enough of a unit to place it in a type hierarchy.
func ReadHeader(data []byte) (Header, error) {
	c, err := Decode(data)
	if err != nil {
		return Header{}, err
	}
	return Header{Access: c.Access, Name: c.Name, Super: c.Super, Interfaces: c.Interfaces}, nil
}

type encoder struct {
	buf []byte
	err error
}

func (e *encoder) fail(format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf("classfile: "+format, args...)
	}
}

func (e *encoder) u16(v uint16) { e.buf = binary.BigEndian.AppendUint16(e.buf, v) }

func (e *encoder) count(n int) {
	if n > math.MaxUint16 {
		e.fail("list of %d entries exceeds format limit", n)
	}
	e.u16(uint16(n))
}

func (e *encoder) str(s string) {
	e.count(len(s))
	e.buf = append(e.buf, s...)
}

func (e *encoder) strs(ss []string) {
	e.count(len(ss))
	for _, s := range ss {
		e.str(s)
	}
}

func (e *encoder) annotations(as []Annotation) {
	e.count(len(as))
	for _, a := range as {
		e.annotation(a)
	}
}

func (e *encoder) annotation(a Annotation) {
	e.str(a.Desc)
	if a.Visible {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
	e.count(len(a.Elements))
	for _, el := range a.Elements {
		e.str(el.Name)
		e.str(el.Value)
	}
}

type decoder struct {
	b   []byte
	pos int
	err error
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if d.pos+n > len(d.b) {
		d.err = fmt.Errorf("%w: truncated at offset %d", ErrMalformed, d.pos)
		return false
	}
	return true
}

func (d *decoder) u8() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.b[d.pos]
	d.pos++
	return v
}

func (d *decoder) u16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(d.b[d.pos:])
	d.pos += 2
	return v
}

func (d *decoder) u32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(d.b[d.pos:])
	d.pos += 4
	return v
}

func (d *decoder) bytes(n int) []byte {
	if !d.need(n) {
		return nil
	}
	v := make([]byte, n)
	copy(v, d.b[d.pos:d.pos+n])
	d.pos += n
	return v
}

func (d *decoder) str() string {
	n := int(d.u16())
	if !d.need(n) {
		return ""
	}
	s := string(d.b[d.pos : d.pos+n])
	d.pos += n
	return s
}

func (d *decoder) strs() []string {
	n := int(d.u16())
	if n == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.str())
	}
	return out
}

func (d *decoder) flag() bool {
	switch d.u8() {
	case 0:
		return false
	case 1:
		return true
	default:
		if d.err == nil {
			d.err = fmt.Errorf("%w: bad boolean at offset %d", ErrMalformed, d.pos-1)
		}
		return false
	}
}

func (d *decoder) annotations() []Annotation {
	n := int(d.u16())
	if n == 0 {
		return nil
	}
	out := make([]Annotation, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.annotation())
	}
	return out
}

func (d *decoder) annotation() Annotation {
	a := Annotation{Desc: d.str(), Visible: d.flag()}
	if n := int(d.u16()); n > 0 {
		a.Elements = make([]Element, 0, n)
		for i := 0; i < n && d.err == nil; i++ {
			a.Elements = append(a.Elements, Element{Name: d.str(), Value: d.str()})
		}
	}
	return a
}

func (d *decoder) method() Method {
	m := Method{
		Access:      Access(d.u16()),
		Name:        d.str(),
		Desc:        d.str(),
		Exceptions:  d.strs(),
		Annotations: d.annotations(),
	}
	if n := int(d.u16()); n > 0 {
		m.ParamAnnotations = make([]ParamAnnotation, 0, n)
		for i := 0; i < n && d.err == nil; i++ {
			p := d.u8()
			m.ParamAnnotations = append(m.ParamAnnotations, ParamAnnotation{Param: p, Annotation: d.annotation()})
		}
	}
	if n := int(d.u32()); n > 0 {
		m.Code = d.bytes(n)
	}
	if n := int(d.u16()); n > 0 {
		m.Lines = make([]LineNumber, 0, n)
		for i := 0; i < n && d.err == nil; i++ {
			m.Lines = append(m.Lines, LineNumber{Offset: d.u32(), Line: d.u32()})
		}
	}
	if n := int(d.u16()); n > 0 {
		m.Joins = make([]Join, 0, n)
		for i := 0; i < n && d.err == nil; i++ {
			m.Joins = append(m.Joins, Join{Offset: d.u32(), Incoming: d.strs()})
		}
	}
	if n := int(d.u16()); n > 0 {
		m.Frames = make([]Frame, 0, n)
		for i := 0; i < n && d.err == nil; i++ {
			m.Frames = append(m.Frames, Frame{Offset: d.u32(), Type: d.str()})
		}
	}
	return m
}

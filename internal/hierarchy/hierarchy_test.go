package hierarchy

import (
	"errors"
	"testing"

	"clasp/internal/classfile"
)

func shapes() *Index {
	x := NewIndex()
	x.Add(Type{Name: "s/Shape", Interface: true})
	x.Add(Type{Name: "s/Base", Interfaces: []string{"s/Shape"}})
	x.Add(Type{Name: "s/Circle", Super: "s/Base"})
	x.Add(Type{Name: "s/Square", Super: "s/Base"})
	return x
}

func TestIndex_IsSubtype(t *testing.T) {
	x := shapes()
	cases := []struct {
		a, b string
		want bool
	}{
		{"s/Circle", "s/Base", true},
		{"s/Circle", "s/Shape", true},
		{"s/Circle", classfile.RootType, true},
		{"s/Circle", "s/Circle", true},
		{"s/Base", "s/Circle", false},
		{"s/Circle", "s/Square", false},
	}
	for _, c := range cases {
		got, err := x.IsSubtype(c.a, c.b)
		if err != nil {
			t.Fatalf("IsSubtype(%s, %s): %v", c.a, c.b, err)
		}
		if got != c.want {
			t.Fatalf("IsSubtype(%s, %s) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestIndex_UnknownType(t *testing.T) {
	x := shapes()
	if _, err := x.IsSubtype("s/Circle", "s/Missing"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("want ErrUnknownType, got %v", err)
	}
	if _, err := x.Superclass("s/Missing"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("want ErrUnknownType, got %v", err)
	}
}

func TestIndex_AddUnitDefaultsSuper(t *testing.T) {
	b, err := (&classfile.Class{Version: classfile.FormatVersion, Name: "s/Free", Access: classfile.AccInterface}).MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	x := NewIndex()
	if err := x.AddUnit(b); err != nil {
		t.Fatalf("AddUnit: %v", err)
	}
	if s, _ := x.Superclass("s/Free"); s != classfile.RootType {
		t.Fatalf("super = %q, want root", s)
	}
	if ok, _ := x.IsInterface("s/Free"); !ok {
		t.Fatal("interface flag lost")
	}
}

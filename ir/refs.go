package ir

import (
	"fmt"
	"strings"
)

// Ref is a symbolic reference operand. Implementations are comparable values, so two
// references are equal iff they name the same entity.
type Ref interface {
	RefKind() RefKind
	String() string
}

// TypeRef names a type by its descriptor, e.g. "LFoo;" or "I".
type TypeRef string

func (t TypeRef) RefKind() RefKind { return RefType }
func (t TypeRef) String() string   { return string(t) }

// FieldRef identifies a field by declaring type, name and value type descriptor.
type FieldRef struct {
	Class TypeRef
	Name  string
	Type  TypeRef
}

func (f FieldRef) RefKind() RefKind { return RefField }

func (f FieldRef) String() string {
	return fmt.Sprintf("%s.%s:%s", f.Class, f.Name, f.Type)
}

// Kind derives the value kind from the field's type descriptor.
func (f FieldRef) Kind() Kind { return KindOfDescriptor(f.Type) }

// ParseFieldRef parses the "LFoo;.name:I" rendering produced by FieldRef.String.
func ParseFieldRef(s string) (FieldRef, error) {
	semi := strings.Index(s, ";.")
	colon := strings.LastIndex(s, ":")
	if semi < 0 || colon < semi+2 {
		return FieldRef{}, fmt.Errorf("malformed field reference %q", s)
	}
	f := FieldRef{
		Class: TypeRef(s[:semi+1]),
		Name:  s[semi+2 : colon],
		Type:  TypeRef(s[colon+1:]),
	}
	if f.Name == "" || f.Type == "" {
		return FieldRef{}, fmt.Errorf("malformed field reference %q", s)
	}
	return f, nil
}

// MethodRef identifies a method by declaring type, name and prototype descriptor.
type MethodRef struct {
	Class TypeRef
	Name  string
	Proto string
}

func (m MethodRef) RefKind() RefKind { return RefMethod }

func (m MethodRef) String() string {
	return fmt.Sprintf("%s.%s:%s", m.Class, m.Name, m.Proto)
}

// KindOfDescriptor maps a type descriptor onto the value kind used to move it.
func KindOfDescriptor(t TypeRef) Kind {
	if t == "" {
		return KindNone
	}
	switch t[0] {
	case 'I', 'F':
		return KindInt
	case 'B':
		return KindByte
	case 'C':
		return KindChar
	case 'Z':
		return KindBoolean
	case 'S':
		return KindShort
	case 'J', 'D':
		return KindWide
	case 'L', '[':
		return KindObject
	}
	return KindNone
}

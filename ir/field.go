package ir

import "strings"

// AccessFlags are the access flags of a field or method definition.
type AccessFlags uint32

const (
	AccPublic    AccessFlags = 0x0001
	AccPrivate   AccessFlags = 0x0002
	AccProtected AccessFlags = 0x0004
	AccStatic    AccessFlags = 0x0008
	AccFinal     AccessFlags = 0x0010
	AccVolatile  AccessFlags = 0x0040
	AccTransient AccessFlags = 0x0080
	AccNative    AccessFlags = 0x0100
	AccAbstract  AccessFlags = 0x0400
)

var accessNames = []struct {
	flag AccessFlags
	name string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccVolatile, "volatile"},
	{AccTransient, "transient"},
	{AccNative, "native"},
	{AccAbstract, "abstract"},
}

// ParseAccess maps a flag keyword such as "volatile" to its bit.
func ParseAccess(name string) (AccessFlags, bool) {
	for _, a := range accessNames {
		if a.name == name {
			return a.flag, true
		}
	}
	return 0, false
}

func (a AccessFlags) String() string {
	var names []string
	for _, n := range accessNames {
		if a&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, " ")
}

// Field is the definition metadata of a field.
type Field struct {
	Ref    FieldRef
	Access AccessFlags
}

func (f Field) Volatile() bool { return f.Access&AccVolatile != 0 }
func (f Field) Static() bool   { return f.Access&AccStatic != 0 }

// FieldResolver looks up the definition metadata of a field reference.
type FieldResolver interface {
	ResolveField(ref FieldRef) (Field, bool)
}

// FieldTable is a read-only FieldResolver built once before optimization.
type FieldTable map[FieldRef]Field

// NewFieldTable indexes every field defined by the classes in scope.
func NewFieldTable(scope Scope) FieldTable {
	t := make(FieldTable)
	for _, cls := range scope {
		for _, f := range cls.Fields {
			t[f.Ref] = f
		}
	}
	return t
}

func (t FieldTable) ResolveField(ref FieldRef) (Field, bool) {
	f, ok := t[ref]
	return f, ok
}

package ir

import (
	"fmt"

	"github.com/colorfulnotion/dexopt/dexerrors"
)

// Code is the instruction list of one method body.
type Code struct {
	insns []Instruction
}

// NewCode copies insns into a new method body.
func NewCode(insns ...Instruction) *Code {
	c := &Code{insns: make([]Instruction, 0, len(insns))}
	for _, in := range insns {
		c.insns = append(c.insns, in.Clone())
	}
	return c
}

func (c *Code) Len() int { return len(c.insns) }

// At returns the instruction at position i.
func (c *Code) At(i int) Instruction { return c.insns[i] }

// Push appends an instruction.
func (c *Code) Push(in Instruction) { c.insns = append(c.insns, in.Clone()) }

// Instructions returns a copy of the instruction list.
func (c *Code) Instructions() []Instruction {
	out := make([]Instruction, len(c.insns))
	for i, in := range c.insns {
		out[i] = in.Clone()
	}
	return out
}

// Window returns the instructions in [start, start+n) without copying. Callers must not
// mutate the result.
func (c *Code) Window(start, n int) []Instruction {
	if start < 0 || n < 0 || start+n > len(c.insns) {
		return nil
	}
	return c.insns[start : start+n]
}

// Splice replaces the n instructions starting at start with repl. Either the whole span is
// replaced or, on a range error, nothing changes.
func (c *Code) Splice(start, n int, repl []Instruction) error {
	if start < 0 || n < 0 || start+n > len(c.insns) {
		return fmt.Errorf("%w: [%d,%d) of %d", dexerrors.ErrSpliceRange, start, start+n, len(c.insns))
	}
	out := make([]Instruction, 0, len(c.insns)-n+len(repl))
	out = append(out, c.insns[:start]...)
	for _, in := range repl {
		out = append(out, in.Clone())
	}
	out = append(out, c.insns[start+n:]...)
	c.insns = out
	return nil
}

// CheckPairs returns the positions of opcodes that need a move-result-pseudo successor but
// are not immediately followed by the matching one, and of pseudos with no producer.
func (c *Code) CheckPairs() []int {
	var bad []int
	for i := 0; i < len(c.insns); i++ {
		op := c.insns[i].Op
		if want, ok := PseudoFor(op); ok {
			if i+1 >= len(c.insns) || c.insns[i+1].Op != want {
				bad = append(bad, i)
				continue
			}
			i++
			continue
		}
		if op.IsMoveResultPseudo() {
			bad = append(bad, i)
		}
	}
	return bad
}

// VerifyPairs wraps ErrMalformedPair with the offending positions, or returns nil.
func (c *Code) VerifyPairs() error {
	if bad := c.CheckPairs(); len(bad) > 0 {
		return fmt.Errorf("%w at %v", dexerrors.ErrMalformedPair, bad)
	}
	return nil
}

// Method is a method definition. Code is nil for methods without a concrete body.
type Method struct {
	Class  TypeRef
	Name   string
	Access AccessFlags
	Code   *Code
}

func (m *Method) String() string { return fmt.Sprintf("%s.%s", m.Class, m.Name) }

// Class is a class definition with its fields and methods.
type Class struct {
	Type    TypeRef
	Fields  []Field
	Methods []*Method
}

// AddField defines a field on c and returns its reference.
func (c *Class) AddField(name string, typ TypeRef, access AccessFlags) FieldRef {
	ref := FieldRef{Class: c.Type, Name: name, Type: typ}
	c.Fields = append(c.Fields, Field{Ref: ref, Access: access})
	return ref
}

// AddMethod defines a method on c with the given body.
func (c *Class) AddMethod(name string, access AccessFlags, code *Code) *Method {
	m := &Method{Class: c.Type, Name: name, Access: access, Code: code}
	c.Methods = append(c.Methods, m)
	return m
}

// Scope is the set of classes an optimization pass runs over.
type Scope []*Class

// Methods returns every method in declaration order.
func (s Scope) Methods() []*Method {
	var out []*Method
	for _, cls := range s {
		out = append(out, cls.Methods...)
	}
	return out
}

// Concrete returns the methods that have a body.
func (s Scope) Concrete() []*Method {
	var out []*Method
	for _, m := range s.Methods() {
		if m.Code != nil {
			out = append(out, m)
		}
	}
	return out
}

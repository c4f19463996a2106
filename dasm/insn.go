// Package dasm reads and writes a line-oriented text form of classes, fields and method
// bodies.
package dasm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/colorfulnotion/dexopt/dexerrors"
	"github.com/colorfulnotion/dexopt/ir"
)

// ParseInsn parses one instruction in the form produced by ir.Instruction.String, e.g.
// "add-int/lit8 v1, v0, 0" or "iput v0, v5, LFoo;.field_name:I".
func ParseInsn(s string) (ir.Instruction, error) {
	s = strings.TrimSpace(s)
	mnemonic, rest, _ := strings.Cut(s, " ")
	op, ok := ir.LookupOpcode(mnemonic)
	if !ok {
		return ir.Instruction{}, fmt.Errorf("%w: unknown opcode %q", dexerrors.ErrBadAssembly, mnemonic)
	}
	in := ir.Instruction{Op: op}
	info := op.Info()
	rest = strings.TrimSpace(rest)
	if rest != "" {
		for _, tok := range strings.Split(rest, ",") {
			tok = strings.TrimSpace(tok)
			if err := addOperand(&in, info, tok); err != nil {
				return ir.Instruction{}, fmt.Errorf("%w: %s: %v", dexerrors.ErrBadAssembly, s, err)
			}
		}
	}
	if err := in.Validate(); err != nil {
		return ir.Instruction{}, fmt.Errorf("%w: %s: %v", dexerrors.ErrBadAssembly, s, err)
	}
	return in, nil
}

func addOperand(in *ir.Instruction, info ir.Info, tok string) error {
	if tok == "" {
		return fmt.Errorf("empty operand")
	}
	if r, ok := parseReg(tok); ok {
		if in.HasLit || in.Ref != nil {
			return fmt.Errorf("register %s after literal or reference", tok)
		}
		in.Regs = append(in.Regs, r)
		return nil
	}
	if info.Width != ir.WidthNone && !in.HasLit {
		v, err := strconv.ParseInt(tok, 0, 64)
		if err == nil {
			in.Lit, in.HasLit = v, true
			return nil
		}
	}
	if in.Ref != nil {
		return fmt.Errorf("second reference %s", tok)
	}
	ref, err := parseRef(info.Ref, tok)
	if err != nil {
		return err
	}
	in.Ref = ref
	return nil
}

func parseReg(tok string) (ir.Reg, bool) {
	if len(tok) < 2 || tok[0] != 'v' {
		return 0, false
	}
	n, err := strconv.ParseUint(tok[1:], 10, 32)
	if err != nil {
		return 0, false
	}
	return ir.Reg(n), true
}

func parseRef(kind ir.RefKind, tok string) (ir.Ref, error) {
	switch kind {
	case ir.RefField:
		return ir.ParseFieldRef(tok)
	case ir.RefType:
		return ir.TypeRef(tok), nil
	case ir.RefMethod:
		semi := strings.Index(tok, ";.")
		if semi < 0 {
			return nil, fmt.Errorf("malformed method reference %q", tok)
		}
		name, proto, ok := strings.Cut(tok[semi+2:], ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed method reference %q", tok)
		}
		return ir.MethodRef{Class: ir.TypeRef(tok[:semi+1]), Name: name, Proto: proto}, nil
	}
	return nil, fmt.Errorf("unexpected operand %q", tok)
}

// Insn is ParseInsn for instruction text known to be well formed. It panics otherwise.
func Insn(s string) ir.Instruction {
	in, err := ParseInsn(s)
	if err != nil {
		panic(err)
	}
	return in
}

// Insns parses each line with Insn.
func Insns(lines ...string) []ir.Instruction {
	out := make([]ir.Instruction, len(lines))
	for i, l := range lines {
		out[i] = Insn(l)
	}
	return out
}

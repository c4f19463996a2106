package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/colorfulnotion/dexopt/dexerrors"
)

// Reg is a virtual register index.
type Reg uint32

func (r Reg) String() string { return "v" + strconv.FormatUint(uint64(r), 10) }

// Instruction is one IR instruction: an opcode, its register operands in encoding order
// (destination first when the opcode has one), an optional literal and an optional
// reference.
type Instruction struct {
	Op     Opcode
	Regs   []Reg
	Lit    int64
	HasLit bool
	Ref    Ref
}

// New builds an instruction with register operands only.
func New(op Opcode, regs ...Reg) Instruction {
	return Instruction{Op: op, Regs: regs}
}

// NewLit builds an instruction carrying a literal.
func NewLit(op Opcode, lit int64, regs ...Reg) Instruction {
	return Instruction{Op: op, Regs: regs, Lit: lit, HasLit: true}
}

// NewRef builds an instruction carrying a reference.
func NewRef(op Opcode, ref Ref, regs ...Reg) Instruction {
	return Instruction{Op: op, Regs: regs, Ref: ref}
}

// Literal returns the literal operand, if any.
func (in Instruction) Literal() (int64, bool) { return in.Lit, in.HasLit }

// Dest returns the explicit destination register, if the opcode has one.
func (in Instruction) Dest() (Reg, bool) {
	if !in.Op.Info().Dest || len(in.Regs) == 0 {
		return 0, false
	}
	return in.Regs[0], true
}

// Srcs returns the source registers.
func (in Instruction) Srcs() []Reg {
	if in.Op.Info().Dest && len(in.Regs) > 0 {
		return in.Regs[1:]
	}
	return in.Regs
}

// Field returns the field reference operand, if any.
func (in Instruction) Field() (FieldRef, bool) {
	f, ok := in.Ref.(FieldRef)
	return f, ok
}

// Equal reports whether in and other have the same opcode and operands.
func (in Instruction) Equal(other Instruction) bool {
	if in.Op != other.Op || in.HasLit != other.HasLit || len(in.Regs) != len(other.Regs) {
		return false
	}
	if in.HasLit && in.Lit != other.Lit {
		return false
	}
	for i := range in.Regs {
		if in.Regs[i] != other.Regs[i] {
			return false
		}
	}
	return in.Ref == other.Ref
}

// Clone returns a copy that shares no register storage with in.
func (in Instruction) Clone() Instruction {
	out := in
	if in.Regs != nil {
		out.Regs = append([]Reg(nil), in.Regs...)
	}
	return out
}

// Validate checks the operand shape of in against its opcode.
func (in Instruction) Validate() error {
	info, ok := opcodeInfo[in.Op]
	if !ok {
		return fmt.Errorf("%w: opcode %d", dexerrors.ErrBadOperand, in.Op)
	}
	if info.Srcs >= 0 {
		want := info.Srcs
		if info.Dest {
			want++
		}
		if len(in.Regs) != want {
			return fmt.Errorf("%w: %s takes %d registers, got %d", dexerrors.ErrBadOperand, info.Name, want, len(in.Regs))
		}
	}
	if in.HasLit != (info.Width != WidthNone) {
		return fmt.Errorf("%w: %s literal presence mismatch", dexerrors.ErrBadOperand, info.Name)
	}
	switch {
	case info.Ref == RefNone && in.Ref != nil:
		return fmt.Errorf("%w: %s takes no reference", dexerrors.ErrBadOperand, info.Name)
	case info.Ref != RefNone && (in.Ref == nil || in.Ref.RefKind() != info.Ref):
		return fmt.Errorf("%w: %s needs a reference operand", dexerrors.ErrBadOperand, info.Name)
	}
	return nil
}

// String renders in as "mnemonic v1, v0, 0" (registers, then literal, then reference).
func (in Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	sep := " "
	for _, r := range in.Regs {
		sb.WriteString(sep)
		sb.WriteString(r.String())
		sep = ", "
	}
	if in.HasLit {
		sb.WriteString(sep)
		sb.WriteString(strconv.FormatInt(in.Lit, 10))
		sep = ", "
	}
	if in.Ref != nil {
		sb.WriteString(sep)
		sb.WriteString(in.Ref.String())
	}
	return sb.String()
}

// Show renders a list of instructions one per line, or "(empty)".
func Show(insns []Instruction) string {
	if len(insns) == 0 {
		return "(empty)"
	}
	lines := make([]string, len(insns))
	for i, in := range insns {
		lines[i] = in.String()
	}
	return strings.Join(lines, "\n")
}

// EqualList reports whether a and b hold pairwise equal instructions.
func EqualList(a, b []Instruction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

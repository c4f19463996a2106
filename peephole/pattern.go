package peephole

import (
	"fmt"
	"strings"

	"github.com/colorfulnotion/dexopt/dexerrors"
	"github.com/colorfulnotion/dexopt/ir"
)

// Var names a pattern placeholder. The first occurrence of a Var in a pattern binds it;
// every later occurrence must resolve to an equal operand.
type Var string

// LitPred constrains the literal operand of a pattern element.
type LitPred struct {
	exact bool
	value int64
}

// AnyLit accepts any literal.
var AnyLit = LitPred{}

// Lit accepts only the literal v.
func Lit(v int64) LitPred { return LitPred{exact: true, value: v} }

func (p LitPred) test(v int64) bool { return !p.exact || v == p.value }

func (p LitPred) String() string {
	if !p.exact {
		return "*"
	}
	return fmt.Sprint(p.value)
}

// Element matches one logical operation. When the matched opcode delivers its result via
// move-result-pseudo, the element spans that opcode and the pseudo that must immediately
// follow it; Result binds the pseudo's destination register.
type Element struct {
	Ops    []ir.Op
	Opcode Var // binds the concrete opcode
	Kind   Var // binds the value kind
	Regs   []Var
	Lit    LitPred
	Ref    Var
	Result Var
}

func (e Element) accepts(op ir.Op) bool {
	for _, o := range e.Ops {
		if o == op {
			return true
		}
	}
	return false
}

// match tests e against insns[i:]. It returns the number of instructions consumed.
func (e Element) match(insns []ir.Instruction, i int, b *Bindings) (int, bool) {
	if i >= len(insns) {
		return 0, false
	}
	in := insns[i]
	if !e.accepts(in.Op.Logical()) {
		return 0, false
	}
	if e.Opcode != "" && !b.bindOpcode(e.Opcode, in.Op) {
		return 0, false
	}
	if e.Kind != "" && !b.bindKind(e.Kind, in.Op.Kind()) {
		return 0, false
	}
	if len(in.Regs) != len(e.Regs) {
		return 0, false
	}
	for j, v := range e.Regs {
		if !b.bindReg(v, in.Regs[j]) {
			return 0, false
		}
	}
	if in.Op.HasLiteral() {
		if !in.HasLit || !e.Lit.test(in.Lit) {
			return 0, false
		}
	} else if e.Lit.exact {
		return 0, false
	}
	if e.Ref != "" {
		if in.Ref == nil || !b.bindRef(e.Ref, in.Ref) {
			return 0, false
		}
	}

	pseudo, coupled := ir.PseudoFor(in.Op)
	if !coupled {
		if e.Result != "" {
			return 0, false
		}
		return 1, true
	}
	if i+1 >= len(insns) {
		return 0, false
	}
	next := insns[i+1]
	if next.Op != pseudo || len(next.Regs) != 1 {
		return 0, false
	}
	if e.Result != "" && !b.bindReg(e.Result, next.Regs[0]) {
		return 0, false
	}
	return 2, true
}

func (e Element) String() string {
	var sb strings.Builder
	for i, op := range e.Ops {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(opName(op))
	}
	sb.WriteByte('(')
	var args []string
	for _, v := range e.Regs {
		args = append(args, string(v))
	}
	if e.Lit.exact {
		args = append(args, e.Lit.String())
	}
	if e.Ref != "" {
		args = append(args, string(e.Ref))
	}
	sb.WriteString(strings.Join(args, ", "))
	sb.WriteByte(')')
	if e.Result != "" {
		sb.WriteString(" -> ")
		sb.WriteString(string(e.Result))
	}
	return sb.String()
}

var opNames = map[ir.Op]string{
	ir.OpMove:      "move",
	ir.OpAddIntLit: "add-int/lit",
	ir.OpMulIntLit: "mul-int/lit",
	ir.OpDivIntLit: "div-int/lit",
	ir.OpRemIntLit: "rem-int/lit",
	ir.OpIput:      "iput",
	ir.OpIget:      "iget",
	ir.OpSput:      "sput",
	ir.OpSget:      "sget",
}

func opName(op ir.Op) string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return fmt.Sprintf("op%d", op)
}

// Bindings holds the operands bound while matching one rule at one position.
type Bindings struct {
	regs    map[Var]ir.Reg
	refs    map[Var]ir.Ref
	kinds   map[Var]ir.Kind
	opcodes map[Var]ir.Opcode
	missing []Var
}

func newBindings() *Bindings {
	return &Bindings{
		regs:    make(map[Var]ir.Reg, 4),
		refs:    make(map[Var]ir.Ref, 1),
		kinds:   make(map[Var]ir.Kind, 1),
		opcodes: make(map[Var]ir.Opcode, 1),
	}
}

func (b *Bindings) bindReg(v Var, r ir.Reg) bool {
	if old, ok := b.regs[v]; ok {
		return old == r
	}
	b.regs[v] = r
	return true
}

func (b *Bindings) bindRef(v Var, r ir.Ref) bool {
	if old, ok := b.refs[v]; ok {
		return old == r
	}
	b.refs[v] = r
	return true
}

func (b *Bindings) bindKind(v Var, k ir.Kind) bool {
	if old, ok := b.kinds[v]; ok {
		return old == k
	}
	b.kinds[v] = k
	return true
}

func (b *Bindings) bindOpcode(v Var, op ir.Opcode) bool {
	if old, ok := b.opcodes[v]; ok {
		return old == op
	}
	b.opcodes[v] = op
	return true
}

// Reg returns the register bound to v. Unbound placeholders are recorded and reported by
// Err.
func (b *Bindings) Reg(v Var) ir.Reg {
	r, ok := b.regs[v]
	if !ok {
		b.missing = append(b.missing, v)
	}
	return r
}

// Ref returns the reference bound to v.
func (b *Bindings) Ref(v Var) ir.Ref {
	r, ok := b.refs[v]
	if !ok {
		b.missing = append(b.missing, v)
	}
	return r
}

// Field returns the field reference bound to v.
func (b *Bindings) Field(v Var) (ir.FieldRef, bool) {
	f, ok := b.refs[v].(ir.FieldRef)
	return f, ok
}

// Kind returns the value kind bound to v.
func (b *Bindings) Kind(v Var) ir.Kind {
	k, ok := b.kinds[v]
	if !ok {
		b.missing = append(b.missing, v)
	}
	return k
}

// Opcode returns the concrete opcode bound to v.
func (b *Bindings) Opcode(v Var) ir.Opcode {
	op, ok := b.opcodes[v]
	if !ok {
		b.missing = append(b.missing, v)
	}
	return op
}

// Err reports placeholders that a generator asked for but the pattern never bound.
func (b *Bindings) Err() error {
	if len(b.missing) == 0 {
		return nil
	}
	names := make([]string, len(b.missing))
	for i, v := range b.missing {
		names[i] = string(v)
	}
	return fmt.Errorf("%w: %s", dexerrors.ErrUnbound, strings.Join(names, ", "))
}

package peephole

import (
	"fmt"
	"strings"

	"github.com/colorfulnotion/dexopt/dexerrors"
	"github.com/colorfulnotion/dexopt/ir"
)

// Rule names; also the statistics keys.
const (
	RuleAddLit0    = "arith-add-lit-0"
	RuleMulLit1    = "arith-mul-lit-1"
	RuleMulLitNeg1 = "arith-mul-lit-neg1"
	RuleDivLitNeg1 = "arith-div-lit-neg1"
	RuleDivLit1    = "arith-div-lit-1"
	RuleIputIget   = "remove-iput-iget"
	RuleSputSget   = "remove-sput-sget"
	RuleSelfMove   = "remove-self-move"
)

// Generator builds the replacement for a match from its bindings. It must not look at
// anything but b.
type Generator func(b *Bindings) []ir.Instruction

// Env is what conditions may consult besides the bindings.
type Env struct {
	Resolver ir.FieldResolver
}

// Condition is a predicate over the bound references. An error means the metadata needed to
// decide was unavailable.
type Condition struct {
	Name string
	Test func(env Env, b *Bindings) (bool, error)
}

// Rule is one peephole transformation.
type Rule struct {
	Name    string
	Pattern []Element
	Where   []Condition
	Replace Generator
}

// Validate checks that r is usable by the matcher.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule without name")
	}
	if len(r.Pattern) == 0 {
		return fmt.Errorf("rule %s: empty pattern", r.Name)
	}
	if r.Replace == nil {
		return fmt.Errorf("rule %s: no replacement", r.Name)
	}
	for i, e := range r.Pattern {
		if len(e.Ops) == 0 {
			return fmt.Errorf("rule %s: element %d accepts no op", r.Name, i)
		}
		for _, op := range e.Ops {
			if op == ir.OpMoveResultPseudo || op == ir.OpInvalid {
				return fmt.Errorf("rule %s: element %d names op %d directly", r.Name, i, op)
			}
		}
	}
	return nil
}

func (r Rule) String() string {
	parts := make([]string, len(r.Pattern))
	for i, e := range r.Pattern {
		parts[i] = e.String()
	}
	s := r.Name + ": " + strings.Join(parts, " ; ")
	for _, c := range r.Where {
		s += " where " + c.Name
	}
	return s
}

// NotVolatile holds when the field bound to v is known and not volatile.
func NotVolatile(v Var) Condition {
	return Condition{
		Name: "!volatile(" + string(v) + ")",
		Test: func(env Env, b *Bindings) (bool, error) {
			ref, ok := b.Field(v)
			if !ok {
				return false, fmt.Errorf("%w: %s", dexerrors.ErrUnbound, v)
			}
			if env.Resolver == nil {
				return false, fmt.Errorf("%w: no resolver for %s", dexerrors.ErrMetadataLookup, ref)
			}
			f, ok := env.Resolver.ResolveField(ref)
			if !ok {
				return false, fmt.Errorf("%w: %s", dexerrors.ErrMetadataLookup, ref)
			}
			return !f.Volatile(), nil
		},
	}
}

func moveRule(name string, op ir.Op, lit int64) Rule {
	return Rule{
		Name:    name,
		Pattern: []Element{{Ops: []ir.Op{op}, Regs: []Var{"dst", "src"}, Lit: Lit(lit)}},
		Replace: func(b *Bindings) []ir.Instruction {
			return []ir.Instruction{ir.New(ir.MOVE, b.Reg("dst"), b.Reg("src"))}
		},
	}
}

func negRule(name string, op ir.Op) Rule {
	return Rule{
		Name:    name,
		Pattern: []Element{{Ops: []ir.Op{op}, Regs: []Var{"dst", "src"}, Lit: Lit(-1)}},
		Replace: func(b *Bindings) []ir.Instruction {
			return []ir.Instruction{ir.New(ir.NEG_INT, b.Reg("dst"), b.Reg("src"))}
		},
	}
}

// divRule covers div-int/lit, whose quotient arrives through move-result-pseudo.
func divRule(name string, lit int64, to ir.Opcode) Rule {
	return Rule{
		Name:    name,
		Pattern: []Element{{Ops: []ir.Op{ir.OpDivIntLit}, Regs: []Var{"src"}, Lit: Lit(lit), Result: "dst"}},
		Replace: func(b *Bindings) []ir.Instruction {
			return []ir.Instruction{ir.New(to, b.Reg("dst"), b.Reg("src"))}
		},
	}
}

// A read of a non-volatile field right after a write of the same kind through the same
// object, into the register that was written, only reloads the value already there.
var iputIget = Rule{
	Name: RuleIputIget,
	Pattern: []Element{
		{Ops: []ir.Op{ir.OpIput}, Opcode: "put", Kind: "k", Regs: []Var{"src", "obj"}, Ref: "field"},
		{Ops: []ir.Op{ir.OpIget}, Kind: "k", Regs: []Var{"obj"}, Ref: "field", Result: "src"},
	},
	Where: []Condition{NotVolatile("field")},
	Replace: func(b *Bindings) []ir.Instruction {
		return []ir.Instruction{ir.NewRef(b.Opcode("put"), b.Ref("field"), b.Reg("src"), b.Reg("obj"))}
	},
}

var sputSget = Rule{
	Name: RuleSputSget,
	Pattern: []Element{
		{Ops: []ir.Op{ir.OpSput}, Opcode: "put", Kind: "k", Regs: []Var{"src"}, Ref: "field"},
		{Ops: []ir.Op{ir.OpSget}, Kind: "k", Regs: []Var{}, Ref: "field", Result: "src"},
	},
	Where: []Condition{NotVolatile("field")},
	Replace: func(b *Bindings) []ir.Instruction {
		return []ir.Instruction{ir.NewRef(b.Opcode("put"), b.Ref("field"), b.Reg("src"))}
	},
}

var selfMove = Rule{
	Name:    RuleSelfMove,
	Pattern: []Element{{Ops: []ir.Op{ir.OpMove}, Regs: []Var{"r", "r"}}},
	Replace: func(b *Bindings) []ir.Instruction { return nil },
}

// DefaultRules returns the built-in rules in tie-breaking order.
func DefaultRules() []Rule {
	return []Rule{
		moveRule(RuleAddLit0, ir.OpAddIntLit, 0),
		moveRule(RuleMulLit1, ir.OpMulIntLit, 1),
		negRule(RuleMulLitNeg1, ir.OpMulIntLit),
		divRule(RuleDivLitNeg1, -1, ir.NEG_INT),
		divRule(RuleDivLit1, 1, ir.MOVE),
		iputIget,
		sputSget,
		selfMove,
	}
}

// Select drops the rules named in disabled, keeping order. Naming a rule that is not in
// rules is an error.
func Select(rules []Rule, disabled []string) ([]Rule, error) {
	known := make(map[string]bool, len(rules))
	for _, r := range rules {
		known[r.Name] = true
	}
	off := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !known[name] {
			return nil, fmt.Errorf("%w: %q", dexerrors.ErrUnknownRule, name)
		}
		off[name] = true
	}
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if !off[r.Name] {
			out = append(out, r)
		}
	}
	return out, nil
}

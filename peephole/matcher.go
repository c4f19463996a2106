package peephole

import (
	"github.com/colorfulnotion/dexopt/ir"
	"github.com/colorfulnotion/dexopt/log"
)

// Match is a rule whose pattern matched the instructions [Start, Start+Len).
type Match struct {
	Rule     *Rule
	Start    int
	Len      int
	Bindings *Bindings
}

// Matcher finds the first rule matching at a position. It keeps no state between calls.
type Matcher struct {
	rules []Rule
	env   Env
}

func NewMatcher(rules []Rule, env Env) *Matcher {
	return &Matcher{rules: rules, env: env}
}

// MatchAt tries every rule, in order, at position i of insns. A rule whose structure
// matches but whose condition could not be evaluated yields its Match together with the
// error, so the caller can step over the span.
func (m *Matcher) MatchAt(insns []ir.Instruction, i int) (Match, bool, error) {
	for ri := range m.rules {
		r := &m.rules[ri]
		b := newBindings()
		n, ok := matchPattern(r.Pattern, insns, i, b)
		if !ok {
			continue
		}
		match := Match{Rule: r, Start: i, Len: n, Bindings: b}
		pass, err := m.where(r, b)
		if err != nil {
			return match, false, err
		}
		if !pass {
			log.Trace(log.PeepholeModule, "condition rejected", "rule", r.Name, "pos", i)
			continue
		}
		return match, true, nil
	}
	return Match{}, false, nil
}

func (m *Matcher) where(r *Rule, b *Bindings) (bool, error) {
	for _, c := range r.Where {
		ok, err := c.Test(m.env, b)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchPattern(pattern []Element, insns []ir.Instruction, i int, b *Bindings) (int, bool) {
	pos := i
	for _, e := range pattern {
		n, ok := e.match(insns, pos, b)
		if !ok {
			return 0, false
		}
		pos += n
	}
	return pos - i, true
}

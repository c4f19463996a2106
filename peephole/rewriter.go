package peephole

import (
	"context"
	"fmt"

	"github.com/colorfulnotion/dexopt/ir"
	"github.com/colorfulnotion/dexopt/log"
)

// Rewrite replaces the matched span of code with the rule's replacement and returns the
// replacement length. On error code is unchanged.
func Rewrite(code *ir.Code, m Match) (int, error) {
	repl := m.Rule.Replace(m.Bindings)
	if err := m.Bindings.Err(); err != nil {
		return 0, fmt.Errorf("rule %s: %w", m.Rule.Name, err)
	}
	for _, in := range repl {
		if err := in.Validate(); err != nil {
			return 0, fmt.Errorf("rule %s: %w", m.Rule.Name, err)
		}
	}
	if log.Root().Enabled(context.Background(), log.LevelTrace) {
		log.Trace(log.PeepholeModule, "rewrite", "rule", m.Rule.Name, "pos", m.Start,
			"old", ir.Show(code.Window(m.Start, m.Len)), "new", ir.Show(repl))
	}
	if err := code.Splice(m.Start, m.Len, repl); err != nil {
		return 0, fmt.Errorf("rule %s: %w", m.Rule.Name, err)
	}
	return len(repl), nil
}

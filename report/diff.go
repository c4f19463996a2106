package report

import (
	"encoding/json"
	"fmt"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/colorfulnotion/dexopt/ir"
)

// Snapshot records the rendered body of every concrete method, keyed by method name.
func Snapshot(scope ir.Scope) map[string][]string {
	snap := make(map[string][]string)
	for _, m := range scope.Concrete() {
		insns := m.Code.Instructions()
		lines := make([]string, len(insns))
		for i, in := range insns {
			lines[i] = in.String()
		}
		snap[m.String()] = lines
	}
	return snap
}

// Diff renders the changes between two snapshots as an ASCII JSON diff. It reports false
// when nothing changed.
func Diff(before, after map[string][]string, coloring bool) (string, bool, error) {
	left, err := json.Marshal(before)
	if err != nil {
		return "", false, err
	}
	right, err := json.Marshal(after)
	if err != nil {
		return "", false, err
	}
	delta, err := gojsondiff.New().Compare(left, right)
	if err != nil {
		return "", false, fmt.Errorf("diffing snapshots: %w", err)
	}
	if !delta.Modified() {
		return "", false, nil
	}

	// the formatter walks the left side as decoded JSON
	var leftObj map[string]interface{}
	if err := json.Unmarshal(left, &leftObj); err != nil {
		return "", false, err
	}
	cfg := formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       coloring,
	}
	out, err := formatter.NewAsciiFormatter(leftObj, cfg).Format(delta)
	if err != nil {
		return "", false, fmt.Errorf("formatting diff: %w", err)
	}
	return out, true, nil
}

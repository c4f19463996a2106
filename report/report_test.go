package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/colorfulnotion/dexopt/dasm"
	"github.com/colorfulnotion/dexopt/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const src = `
.class LFoo;
.field field_name:I public
.method run
  const v0, 42
  add-int/lit8 v1, v0, 0
  return v1
.end method
.method peek native
`

func parse(t *testing.T) ir.Scope {
	t.Helper()
	scope, err := dasm.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return scope
}

func TestScopeTree(t *testing.T) {
	out := ScopeTree(parse(t), true).String()
	assert.Contains(t, out, "LFoo;")
	assert.Contains(t, out, "add-int/lit8 v1, v0, 0")
	assert.Contains(t, out, "no body")
	assert.Contains(t, out, "peek")

	out = ScopeTree(parse(t), false).String()
	assert.NotContains(t, out, "add-int/lit8")
	assert.Contains(t, out, "[3]")
}

func TestDiff(t *testing.T) {
	scope := parse(t)
	before := Snapshot(scope)

	_, changed, err := Diff(before, Snapshot(scope), false)
	require.NoError(t, err)
	assert.False(t, changed)

	m := scope.Concrete()[0]
	require.NoError(t, m.Code.Splice(1, 1, dasm.Insns("move v1, v0")))
	out, changed, err := Diff(before, Snapshot(scope), false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, out, "add-int/lit8 v1, v0, 0")
	assert.Contains(t, out, "move v1, v0")
}

func TestRuleChart(t *testing.T) {
	bar := RuleChart("foo.dasm", map[string]int{"remove-iput-iget": 2, "arith-add-lit-0": 5})
	var buf bytes.Buffer
	require.NoError(t, RenderCharts(&buf, bar))
	html := buf.String()
	assert.Contains(t, html, "foo.dasm")
	assert.Contains(t, html, "arith-add-lit-0")
	assert.True(t, strings.Index(html, "arith-add-lit-0") < strings.Index(html, "remove-iput-iget"))
}

func TestCompareJSON(t *testing.T) {
	a := map[string]int{"arith-add-lit-0": 2, "remove-self-move": 1}
	same, _, err := CompareJSON(a, map[string]int{"remove-self-move": 1, "arith-add-lit-0": 2}, false)
	require.NoError(t, err)
	assert.True(t, same)

	same, text, err := CompareJSON(a, map[string]int{"arith-add-lit-0": 3}, false)
	require.NoError(t, err)
	assert.False(t, same)
	assert.Contains(t, text, "arith-add-lit-0")
	assert.Contains(t, text, "remove-self-move")
}

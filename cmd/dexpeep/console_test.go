package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const consoleSrc = `.class LFoo;
.field field_name:I public
.method run public
  iput v0, v5, LFoo;.field_name:I
  iget v5, LFoo;.field_name:I
  move-result-pseudo v0
  mul-int/lit8 v1, v0, 1
  return v1
.end method
.method peek native
`

func TestConsolePeep(t *testing.T) {
	c := newConsole(&bytes.Buffer{})
	v, err := c.eval(`peep("add-int/lit8 v1, v0, 0", "return v1")`)
	require.NoError(t, err)
	res := v.Export().(map[string]interface{})
	assert.Equal(t, []string{"move v1, v0", "return v1"}, res["code"])
	assert.Equal(t, map[string]int{"arith-add-lit-0": 1}, res["applied"])

	_, err = c.eval(`peep("frob v1")`)
	assert.Error(t, err)
}

func TestConsoleLoadRunShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foo.dasm")
	require.NoError(t, os.WriteFile(path, []byte(consoleSrc), 0o644))

	var out bytes.Buffer
	c := newConsole(&out)
	_, err := c.eval(`run()`)
	assert.Error(t, err, "run before load")

	v, err := c.eval(`load(` + quoteJS(path) + `)`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.ToInteger())

	v, err = c.eval(`run()`)
	require.NoError(t, err)
	st := v.Export().(map[string]interface{})
	assert.Equal(t, 1, st["methods"])
	assert.Equal(t, 2, st["removed"])

	v, err = c.eval(`show("LFoo;.run")`)
	require.NoError(t, err)
	assert.Equal(t, []string{"iput v0, v5, LFoo;.field_name:I", "move v1, v0", "return v1"}, v.Export())

	v, err = c.eval(`show("LFoo;.peek")`)
	require.NoError(t, err)
	assert.Nil(t, v.Export())

	_, err = c.eval(`show("LFoo;.missing")`)
	assert.Error(t, err)

	_, err = c.eval(`print(rules().length)`)
	require.NoError(t, err)
	assert.Equal(t, "8\n", out.String())
}

func quoteJS(s string) string {
	var b bytes.Buffer
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

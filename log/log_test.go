package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("trace")
	require.NoError(t, err)
	assert.Equal(t, LevelTrace, lvl)

	lvl, err = ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestModuleGating(t *testing.T) {
	var buf bytes.Buffer
	prev := Root()
	SetDefault(NewLogger(NewHandler(&buf, LevelTrace, false)))
	defer SetDefault(prev)

	DisableModule(PeepholeModule)
	Trace(PeepholeModule, "hidden")
	assert.Empty(t, buf.String())

	EnableModule(PeepholeModule)
	defer DisableModule(PeepholeModule)
	Trace(PeepholeModule, "shown", "rule", "arith-add-lit-0")
	out := buf.String()
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "level=trace")
	assert.Contains(t, out, "module="+PeepholeModule)

	buf.Reset()
	Warn(DriverModule, "always")
	assert.Contains(t, buf.String(), "always")
}

func TestEnableModules(t *testing.T) {
	EnableModules("driver_mod, storage_mod")
	defer DisableModule(DriverModule)
	defer DisableModule(StorageModule)
	assert.True(t, isModuleEnabled(DriverModule))
	assert.True(t, isModuleEnabled(StorageModule))
	assert.False(t, isModuleEnabled(CLIModule))
}

func TestStructuredLogFieldOrder(t *testing.T) {
	rec, err := NewStructuredLog("dexpeep", "peephole.stats", map[string]int{"arith-add-lit-0": 2}, 1500*time.Millisecond)
	require.NoError(t, err)
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	s := string(b)
	assert.True(t, strings.Index(s, `"time"`) < strings.Index(s, `"sender_id"`))
	assert.True(t, strings.Index(s, `"msg_type"`) < strings.Index(s, `"json_encoded"`))
	assert.Contains(t, s, `"elapsed":1500`)
	assert.NotContains(t, s, `"metadata"`)
}

func TestWithAndLevelNames(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(NewHandler(&buf, LevelInfo, true)).With("file", "foo.dasm")
	assert.False(t, l.Enabled(context.Background(), LevelDebug))
	l.Write(LevelWarn, CLIModule, "slow")
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "foo.dasm", rec["file"])
	assert.Equal(t, CLIModule, rec["module"])
	assert.Equal(t, "unknown", LevelString(3))
}

package ir

import (
	"errors"
	"testing"

	"github.com/colorfulnotion/dexopt/dexerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testField = FieldRef{Class: "LFoo;", Name: "field_name", Type: "I"}

func TestInstructionString(t *testing.T) {
	cases := []struct {
		in   Instruction
		want string
	}{
		{NewLit(CONST, 42, 0), "const v0, 42"},
		{NewLit(ADD_INT_LIT8, 0, 1, 0), "add-int/lit8 v1, v0, 0"},
		{NewLit(DIV_INT_LIT16, -1, 0), "div-int/lit16 v0, -1"},
		{New(IOPCODE_MOVE_RESULT_PSEUDO, 1), "move-result-pseudo v1"},
		{NewRef(IPUT, testField, 0, 5), "iput v0, v5, LFoo;.field_name:I"},
		{NewRef(NEW_INSTANCE, TypeRef("LFoo;")), "new-instance LFoo;"},
		{New(RETURN_VOID), "return-void"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.in.String())
	}
}

func TestInstructionEqual(t *testing.T) {
	a := NewRef(IPUT_BYTE, testField, 0, 5)
	assert.True(t, a.Equal(a.Clone()))
	assert.False(t, a.Equal(NewRef(IPUT_CHAR, testField, 0, 5)))
	assert.False(t, a.Equal(NewRef(IPUT_BYTE, testField, 1, 5)))

	other := testField
	other.Name = "other"
	assert.False(t, a.Equal(NewRef(IPUT_BYTE, other, 0, 5)))

	assert.False(t, NewLit(ADD_INT_LIT8, 0, 1, 0).Equal(NewLit(ADD_INT_LIT8, 1, 1, 0)))
	assert.False(t, NewLit(ADD_INT_LIT8, 0, 1, 0).Equal(NewLit(ADD_INT_LIT16, 0, 1, 0)))
	assert.False(t, New(MOVE, 1, 0).Equal(NewLit(MOVE, 0, 1, 0)))
}

func TestCloneDoesNotAlias(t *testing.T) {
	a := New(MOVE, 1, 0)
	b := a.Clone()
	b.Regs[0] = 7
	assert.Equal(t, Reg(1), a.Regs[0])
}

func TestValidate(t *testing.T) {
	require.NoError(t, NewLit(ADD_INT_LIT8, 3, 1, 0).Validate())
	require.NoError(t, NewRef(IGET_WIDE, testField, 5).Validate())
	require.NoError(t, NewRef(INVOKE_STATIC, MethodRef{Class: "LFoo;", Name: "bar", Proto: "()V"}, 1, 2, 3).Validate())

	bad := []Instruction{
		New(ADD_INT_LIT8, 1, 0),
		NewLit(MOVE, 1, 1, 0),
		New(MOVE, 1),
		New(IGET, 5),
		NewRef(IGET, TypeRef("LFoo;"), 5),
		NewRef(MOVE, testField, 1, 0),
		{Op: Opcode(200)},
	}
	for _, in := range bad {
		err := in.Validate()
		assert.True(t, errors.Is(err, dexerrors.ErrBadOperand), "%v", in)
	}
}

func TestOpcodeTable(t *testing.T) {
	for op, info := range opcodeInfo {
		got, ok := LookupOpcode(info.Name)
		require.True(t, ok, info.Name)
		assert.Equal(t, op, got)
		if info.Pseudo {
			p, ok := PseudoFor(op)
			require.True(t, ok)
			assert.True(t, p.IsMoveResultPseudo(), info.Name)
			want := KindInt
			if info.Kind == KindWide || info.Kind == KindObject {
				want = info.Kind
			}
			assert.Equal(t, want, p.Kind(), info.Name)
		}
	}
	assert.Equal(t, "UNKNOWN", Opcode(199).String())
	assert.False(t, Opcode(199).Valid())
}

func TestWidthVariantsShareLogicalOp(t *testing.T) {
	pairs := [][2]Opcode{
		{ADD_INT_LIT8, ADD_INT_LIT16},
		{MUL_INT_LIT8, MUL_INT_LIT16},
		{DIV_INT_LIT8, DIV_INT_LIT16},
		{REM_INT_LIT8, REM_INT_LIT16},
	}
	for _, p := range pairs {
		assert.Equal(t, p[0].Logical(), p[1].Logical())
		assert.NotEqual(t, p[0].Info().Width, p[1].Info().Width)
	}
}

func TestPseudoFor(t *testing.T) {
	cases := map[Opcode]Opcode{
		DIV_INT_LIT8: IOPCODE_MOVE_RESULT_PSEUDO,
		IGET:         IOPCODE_MOVE_RESULT_PSEUDO,
		IGET_CHAR:    IOPCODE_MOVE_RESULT_PSEUDO,
		IGET_WIDE:    IOPCODE_MOVE_RESULT_PSEUDO_WIDE,
		SGET_OBJECT:  IOPCODE_MOVE_RESULT_PSEUDO_OBJECT,
		NEW_INSTANCE: IOPCODE_MOVE_RESULT_PSEUDO_OBJECT,
	}
	for op, want := range cases {
		got, ok := PseudoFor(op)
		require.True(t, ok, op.String())
		assert.Equal(t, want, got, op.String())
	}
	_, ok := PseudoFor(ADD_INT_LIT8)
	assert.False(t, ok)
}

func TestSplice(t *testing.T) {
	c := NewCode(
		NewLit(CONST, 42, 0),
		NewLit(DIV_INT_LIT8, -1, 0),
		New(IOPCODE_MOVE_RESULT_PSEUDO, 1),
		New(RETURN_VOID),
	)
	require.NoError(t, c.Splice(1, 2, []Instruction{New(NEG_INT, 1, 0)}))
	assert.True(t, EqualList([]Instruction{
		NewLit(CONST, 42, 0),
		New(NEG_INT, 1, 0),
		New(RETURN_VOID),
	}, c.Instructions()))

	before := c.Instructions()
	err := c.Splice(2, 5, nil)
	assert.True(t, errors.Is(err, dexerrors.ErrSpliceRange))
	assert.True(t, EqualList(before, c.Instructions()))

	require.NoError(t, c.Splice(0, 3, nil))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, "(empty)", Show(c.Instructions()))
}

func TestCheckPairs(t *testing.T) {
	good := NewCode(
		NewRef(NEW_INSTANCE, TypeRef("LFoo;")),
		New(IOPCODE_MOVE_RESULT_PSEUDO_OBJECT, 5),
		NewRef(IGET_WIDE, testField, 5),
		New(IOPCODE_MOVE_RESULT_PSEUDO_WIDE, 0),
	)
	assert.Empty(t, good.CheckPairs())

	bad := NewCode(
		NewLit(DIV_INT_LIT8, -1, 0),
		NewLit(CONST, 1, 2),
		New(IOPCODE_MOVE_RESULT_PSEUDO, 1),
		NewRef(IGET_WIDE, testField, 5),
		New(IOPCODE_MOVE_RESULT_PSEUDO, 0),
	)
	assert.Equal(t, []int{0, 2, 3, 4}, bad.CheckPairs())
	assert.NoError(t, good.VerifyPairs())
	assert.ErrorIs(t, bad.VerifyPairs(), dexerrors.ErrMalformedPair)
}

func TestFieldRef(t *testing.T) {
	f, err := ParseFieldRef("LFoo;.field_name:I")
	require.NoError(t, err)
	assert.Equal(t, testField, f)
	assert.Equal(t, KindInt, f.Kind())

	_, err = ParseFieldRef("LFoo;field_name")
	assert.Error(t, err)

	assert.Equal(t, KindWide, KindOfDescriptor("J"))
	assert.Equal(t, KindObject, KindOfDescriptor("[I"))
	assert.Equal(t, KindChar, KindOfDescriptor("C"))
}

func TestFieldTable(t *testing.T) {
	cls := &Class{Type: "LFoo;"}
	plain := cls.AddField("a", "I", AccPublic)
	vol := cls.AddField("b", "I", AccPublic|AccVolatile)
	table := NewFieldTable(Scope{cls})

	f, ok := table.ResolveField(plain)
	require.True(t, ok)
	assert.False(t, f.Volatile())

	f, ok = table.ResolveField(vol)
	require.True(t, ok)
	assert.True(t, f.Volatile())
	assert.Equal(t, "public volatile", f.Access.String())

	_, ok = table.ResolveField(FieldRef{Class: "LFoo;", Name: "missing", Type: "I"})
	assert.False(t, ok)
}

func TestScopeConcrete(t *testing.T) {
	cls := &Class{Type: "LFoo;"}
	cls.AddMethod("abstractOne", AccPublic, nil)
	body := cls.AddMethod("run", AccPublic|AccStatic, NewCode(New(RETURN_VOID)))
	assert.Len(t, Scope{cls}.Methods(), 2)
	assert.Equal(t, []*Method{body}, Scope{cls}.Concrete())
	assert.Equal(t, "LFoo;.run", body.String())
}

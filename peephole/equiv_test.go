package peephole

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/colorfulnotion/dexopt/dasm"
	"github.com/colorfulnotion/dexopt/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// machine executes straight-line method bodies. Int arithmetic wraps at 32 bits.
type machine struct {
	regs    map[ir.Reg]int64
	objs    map[int64]map[ir.FieldRef]int64
	statics map[ir.FieldRef]int64
	sunk    []int64
	nextObj int64
	result  int64
}

func newMachine() *machine {
	return &machine{
		regs:    make(map[ir.Reg]int64),
		objs:    make(map[int64]map[ir.FieldRef]int64),
		statics: make(map[ir.FieldRef]int64),
	}
}

func (mc *machine) run(t *testing.T, insns []ir.Instruction) {
	for _, in := range insns {
		r := in.Regs
		switch in.Op.Logical() {
		case ir.OpNop, ir.OpReturnVoid, ir.OpReturn:
		case ir.OpConst:
			if in.Op == ir.CONST_WIDE {
				mc.regs[r[0]] = in.Lit
			} else {
				mc.regs[r[0]] = int64(int32(in.Lit))
			}
		case ir.OpMove:
			mc.regs[r[0]] = mc.regs[r[1]]
		case ir.OpNegInt:
			mc.regs[r[0]] = int64(-int32(mc.regs[r[1]]))
		case ir.OpAddIntLit:
			mc.regs[r[0]] = int64(int32(mc.regs[r[1]]) + int32(in.Lit))
		case ir.OpMulIntLit:
			mc.regs[r[0]] = int64(int32(mc.regs[r[1]]) * int32(in.Lit))
		case ir.OpDivIntLit:
			mc.result = int64(int32(mc.regs[r[0]]) / int32(in.Lit))
		case ir.OpNewInstance:
			mc.nextObj++
			mc.objs[mc.nextObj] = make(map[ir.FieldRef]int64)
			mc.result = mc.nextObj
		case ir.OpIput:
			f, _ := in.Field()
			mc.objs[mc.regs[r[1]]][f] = mc.regs[r[0]]
		case ir.OpIget:
			f, _ := in.Field()
			mc.result = mc.objs[mc.regs[r[0]]][f]
		case ir.OpSput:
			f, _ := in.Field()
			mc.statics[f] = mc.regs[r[0]]
		case ir.OpSget:
			f, _ := in.Field()
			mc.result = mc.statics[f]
		case ir.OpMoveResultPseudo:
			mc.regs[r[0]] = mc.result
		case ir.OpInvoke:
			for _, reg := range r {
				mc.sunk = append(mc.sunk, mc.regs[reg])
			}
		default:
			t.Fatalf("machine cannot execute %s", in)
		}
	}
}

// randomBody builds a body whose windows often hit the rules and their near misses.
func randomBody(rng *rand.Rand, n int) []string {
	reg := func() string { return fmt.Sprintf("v%d", rng.Intn(4)) }
	pick := func(vals ...int) int { return vals[rng.Intn(len(vals))] }
	width := func() string { return []string{"lit8", "lit16"}[rng.Intn(2)] }
	field := func() string { return []string{fieldInt, fieldVol}[rng.Intn(2)] }

	lines := []string{"new-instance LFoo;", "move-result-pseudo-object v5"}
	for i := 0; i < 4; i++ {
		lines = append(lines, fmt.Sprintf("const v%d, %d", i, rng.Intn(2000)-1000))
	}
	for i := 0; i < n; i++ {
		switch rng.Intn(8) {
		case 0:
			lines = append(lines, fmt.Sprintf("const %s, %d", reg(), pick(0, 1, -1, 0x7fffffff, -0x80000000)))
		case 1:
			lines = append(lines, fmt.Sprintf("add-int/%s %s, %s, %d", width(), reg(), reg(), pick(0, 0, 1, -1, 5)))
		case 2:
			lines = append(lines, fmt.Sprintf("mul-int/%s %s, %s, %d", width(), reg(), reg(), pick(1, -1, 0, 2)))
		case 3:
			lines = append(lines, fmt.Sprintf("div-int/%s %s, %d", width(), reg(), pick(1, -1, 2, -3)),
				"move-result-pseudo "+reg())
		case 4:
			lines = append(lines, fmt.Sprintf("move %s, %s", reg(), reg()))
		case 5:
			src, f := reg(), field()
			dst := src
			if rng.Intn(3) == 0 {
				dst = reg()
			}
			lines = append(lines, "iput "+src+", v5, "+f, "iget v5, "+f, "move-result-pseudo "+dst)
		case 6:
			src := reg()
			dst := src
			if rng.Intn(3) == 0 {
				dst = reg()
			}
			lines = append(lines, "sput "+src+", "+fieldStat, "sget "+fieldStat, "move-result-pseudo "+dst)
		case 7:
			lines = append(lines, "invoke-static "+reg()+", LFoo;.sink:(I)V")
		}
	}
	return append(lines, "return-void")
}

func TestSemanticEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	fields := testFields()
	for iter := 0; iter < 200; iter++ {
		body := dasm.Insns(randomBody(rng, 30)...)
		m := &ir.Method{Class: "LFoo;", Name: fmt.Sprintf("m%d", iter), Code: ir.NewCode(body...)}
		pass := &Pass{Rules: DefaultRules(), Resolver: fields, Workers: 1}
		_, _, err := pass.RunUntilFixed(context.Background(), ir.Scope{{Type: "LFoo;", Methods: []*ir.Method{m}}}, 4)
		require.NoError(t, err)

		before, after := newMachine(), newMachine()
		before.run(t, body)
		after.run(t, m.Code.Instructions())
		for r := ir.Reg(0); r < 4; r++ {
			require.Equal(t, before.regs[r], after.regs[r], "iter %d %s\nbefore:\n%s\nafter:\n%s", iter, r, ir.Show(body), ir.Show(m.Code.Instructions()))
		}
		require.Equal(t, before.objs, after.objs, "iter %d", iter)
		require.Equal(t, before.statics, after.statics, "iter %d", iter)
		require.Equal(t, before.sunk, after.sunk, "iter %d", iter)
		assert.Empty(t, m.Code.CheckPairs(), "iter %d", iter)
	}
}

func randomScope(seed uint64, methods int) ir.Scope {
	rng := rand.New(rand.NewSource(seed))
	cls := &ir.Class{Type: "LFoo;"}
	for i := 0; i < methods; i++ {
		cls.AddMethod(fmt.Sprintf("m%d", i), ir.AccPublic, ir.NewCode(dasm.Insns(randomBody(rng, 20)...)...))
	}
	cls.AddMethod("abstract", ir.AccAbstract, nil)
	return ir.Scope{cls}
}

func TestParallelDeterminism(t *testing.T) {
	serial, parallel := randomScope(42, 64), randomScope(42, 64)

	st1, err := (&Pass{Rules: DefaultRules(), Resolver: testFields(), Workers: 1}).Run(context.Background(), serial)
	require.NoError(t, err)
	st8, err := (&Pass{Rules: DefaultRules(), Resolver: testFields(), Workers: 8}).Run(context.Background(), parallel)
	require.NoError(t, err)

	assert.Equal(t, *st1, *st8)
	assert.Equal(t, 64, st1.Methods)
	assert.Positive(t, st1.Total())
	ms, mp := serial.Concrete(), parallel.Concrete()
	require.Len(t, mp, len(ms))
	for i := range ms {
		assert.True(t, ir.EqualList(ms[i].Code.Instructions(), mp[i].Code.Instructions()), ms[i].String())
	}
}

func TestCancelledRun(t *testing.T) {
	scope := randomScope(3, 8)
	before := scope.Concrete()[0].Code.Instructions()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st, err := (&Pass{Rules: DefaultRules(), Resolver: testFields()}).Run(ctx, scope)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, st.Methods)
	assert.True(t, ir.EqualList(before, scope.Concrete()[0].Code.Instructions()))
}

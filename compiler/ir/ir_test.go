package ir

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	label := func(b Block) string { return fmt.Sprintf("f_%d", b) }

	for _, tc := range []struct {
		in  Inst
		exp string
	}{
		{LoadImm(5, 0), "loadi 5, r0"},
		{Arith(Add, 0, 0, 1), "add r0, r0, r1"},
		{ArithImm(Loadai, 3, 8, 4), "loadai r3, 8, r4"},
		{Move(1, 2), "mov r1, r2"},
		{CondMove(GE, 1, 2), "movge ccr, r1, r2"},
		{Compare(1, 2), "comp r1, r2"},
		{CompareImm(1, 10), "compi r1, 10"},
		{Branch(LT, 1, 2), "cbrlt ccr, f_1, f_2"},
		{Jump(3), "jumpi f_3"},
		{Store(1, 2, 16), "storeai r1, r2, 16"},
		{Use(Println, 7), "println r7"},
		{Def(Read, 7), "read r7"},
		{CallFunc("fib"), "call fib"},
		{LoadArgument("n", 0, 1, true), "loadinargument n, 0, r1"},
		{StoreArgument(1, "n", 2), "storeinargument r1, n, 2"},
		{Inst{Op: New, Num: 24, Dst: 3}, "new 24, r3"},
	} {
		assert.Equal(t, tc.exp, string(tc.in.Format(nil, label)))
	}

	assert.Equal(t, "jumpi L3", Jump(3).String())
}

func TestLookup(t *testing.T) {
	op, _, ok := Lookup("mov")
	require.True(t, ok)
	assert.Equal(t, Mov, op)

	op, c, ok := Lookup("movne")
	require.True(t, ok)
	assert.Equal(t, CMov, op)
	assert.Equal(t, NE, c)

	op, c, ok = Lookup("cbrle")
	require.True(t, ok)
	assert.Equal(t, Cbr, op)
	assert.Equal(t, LE, c)

	op, _, ok = Lookup("multi")
	require.True(t, ok)
	assert.Equal(t, Multi, op)

	_, _, ok = Lookup("cbrxx")
	assert.False(t, ok)

	_, _, ok = Lookup("frobnicate")
	assert.False(t, ok)
}

func TestReplace(t *testing.T) {
	in := Arith(Add, 1, 11, 1)
	in.Replace(1, 5)

	assert.Equal(t, []Reg{5, 11}, in.Src)
	assert.Equal(t, Reg(5), in.Dst)
	assert.Equal(t, "add r5, r11, r5", in.String())

	in = Arith(Sub, 11, 1, 111)
	in.Replace(1, 2)
	assert.Equal(t, "sub r11, r2, r111", in.String())
}

func TestKind(t *testing.T) {
	assert.Equal(t, Normal, Arith(Add, 0, 1, 2).Kind())
	assert.Equal(t, CallLike, CallFunc("f").Kind())
	assert.Equal(t, CallLike, Def(Read, 1).Kind())
	assert.Equal(t, Immovable, LoadArgument("a", 0, 1, true).Kind())
	assert.Equal(t, Normal, LoadArgument("a", 0, 1, false).Kind())

	assert.True(t, Store(0, 1, 0).Stores())
	assert.True(t, Use(StoreRet, 1).Stores())
	assert.False(t, Move(0, 1).Stores())

	assert.True(t, CondMove(EQ, 1, 2).ReadsOwnTarget())
	assert.False(t, Move(1, 2).ReadsOwnTarget())

	assert.True(t, Branch(EQ, 1, 2).JumpsTo(2))
	assert.False(t, Branch(EQ, 1, 2).IsUncondJump())
	assert.True(t, Jump(4).IsUncondJump())
}

func TestOverlaps(t *testing.T) {
	a := NewVirtual(0)
	b := NewVirtual(1)

	a.SetRange(0, 0, 3)
	b.SetRange(0, 2, 5)
	assert.True(t, a.Overlaps(&b))
	assert.True(t, b.Overlaps(&a))

	a.SetRange(0, 0, 1)
	assert.False(t, a.Overlaps(&b))
	assert.False(t, b.Overlaps(&a))

	// containment and shared endpoints
	a.SetRange(0, 0, 10)
	assert.True(t, a.Overlaps(&b))

	a.SetRange(0, 5, 7)
	assert.True(t, a.Overlaps(&b))

	// different blocks never interfere
	c := NewVirtual(2)
	c.SetRange(1, 0, 10)
	assert.False(t, c.Overlaps(&b))

	assert.False(t, a.Overlaps(&a))
}

func TestAssignOnce(t *testing.T) {
	v := NewVirtual(3)

	_, err := v.Phys()
	assert.Error(t, err)

	require.NoError(t, v.Assign(2))
	assert.Error(t, v.Assign(1))
	assert.Error(t, v.Spill(0))

	c, err := v.Phys()
	require.NoError(t, err)
	assert.Equal(t, 2, c)

	w := NewVirtual(4)
	require.NoError(t, w.Spill(0))
	assert.True(t, w.Spilled())
	assert.Error(t, w.Assign(0))

	w.SetRange(0, -1, 2)
	w.SetRange(3, 0, 0)
	assert.Equal(t, 5, w.TotalRange())
}

package color

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/ilocc/compiler/ir"
)

func regs(rs ...[]ir.Range) []*ir.Virtual {
	var r []*ir.Virtual

	for i, live := range rs {
		v := ir.NewVirtual(ir.Reg(i))

		for b, x := range live {
			v.SetRange(ir.Block(b), x[0], x[1])
		}

		r = append(r, &v)
	}

	return r
}

func slots() func() int {
	n := 0

	return func() int {
		n++
		return n - 1
	}
}

func TestInterference(t *testing.T) {
	g := Build(regs(
		[]ir.Range{{0, 3}},
		[]ir.Range{{2, 5}},
		[]ir.Range{{0, 1}},
	))

	assert.True(t, g.Interfere(0, 1))
	assert.True(t, g.Interfere(1, 0))
	assert.True(t, g.Interfere(0, 2))
	assert.False(t, g.Interfere(1, 2))
	assert.False(t, g.Interfere(2, 1))
}

func TestColorSpill(t *testing.T) {
	rs := regs(
		[]ir.Range{{0, 4}},
		[]ir.Range{{1, 4}},
		[]ir.Range{{2, 4}},
	)

	g := Build(rs)

	err := g.Color(context.Background(), 2, false, slots())
	require.NoError(t, err)

	var colors []int
	spilled := 0

	for _, v := range rs {
		if v.Spilled() {
			spilled++
			assert.Equal(t, 0, v.Slot)
			continue
		}

		colors = append(colors, v.Color)
	}

	assert.Equal(t, 1, spilled)
	require.Len(t, colors, 2)
	assert.NotEqual(t, colors[0], colors[1])

	// the longest-lived register is colored last and gets spilled
	assert.True(t, rs[0].Spilled())
}

func TestColorSpillAll(t *testing.T) {
	rs := regs(
		[]ir.Range{{0, 1}},
		[]ir.Range{{2, 3}},
		[]ir.Range{{3, 5}},
	)

	err := Build(rs).Color(context.Background(), 6, true, slots())
	require.NoError(t, err)

	seen := map[int]bool{}

	for _, v := range rs {
		assert.True(t, v.Spilled())
		assert.Equal(t, -1, v.Color)
		assert.False(t, seen[v.Slot])

		seen[v.Slot] = true
	}
}

func TestColorSkipsAssigned(t *testing.T) {
	rs := regs(
		[]ir.Range{{0, 3}},
		[]ir.Range{{0, 3}},
	)

	require.NoError(t, rs[1].Assign(0))

	err := Build(rs).Color(context.Background(), 2, false, slots())
	require.NoError(t, err)

	assert.Equal(t, 0, rs[1].Color)
	assert.Equal(t, 1, rs[0].Color)
}

func TestColorRandomGraphs(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	for iter := 0; iter < 200; iter++ {
		var live [][]ir.Range

		n := 2 + rnd.Intn(20)

		for i := 0; i < n; i++ {
			var rs []ir.Range

			for b := 0; b < 3; b++ {
				s := rnd.Intn(10) - 1
				rs = append(rs, ir.Range{s, s + rnd.Intn(6)})
			}

			live = append(live, rs)
		}

		rs := regs(live...)
		g := Build(rs)

		k := 1 + rnd.Intn(6)

		err := g.Color(context.Background(), k, false, slots())
		require.NoError(t, err)

		slot := map[int]ir.Reg{}

		for i, a := range rs {
			require.True(t, a.Assigned(), "r%d", i)

			if a.Spilled() {
				_, dup := slot[a.Slot]
				require.False(t, dup, "slot %d reused", a.Slot)

				slot[a.Slot] = a.ID

				continue
			}

			require.Less(t, a.Color, k)

			for j, b := range rs {
				if i == j || b.Spilled() || !a.Overlaps(b) {
					continue
				}

				require.NotEqual(t, a.Color, b.Color, "r%d r%d overlap", i, j)
			}
		}
	}
}

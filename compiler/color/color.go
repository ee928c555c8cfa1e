package color

import (
	"context"

	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/ilocc/compiler/ir"
	"github.com/slowlang/ilocc/compiler/set"
)

type (
	// Graph is the interference graph of one function's registers.
	Graph struct {
		Nodes []*ir.Virtual
		Links []set.Bits[int] // node -> neighbour nodes
	}

	node struct {
		n    int
		size int
		id   ir.Reg
	}
)

func Build(regs []*ir.Virtual) *Graph {
	g := &Graph{
		Nodes: regs,
		Links: make([]set.Bits[int], len(regs)),
	}

	for i, a := range regs {
		for j := i + 1; j < len(regs); j++ {
			if !a.Overlaps(regs[j]) {
				continue
			}

			g.Links[i].Set(j)
			g.Links[j].Set(i)
		}
	}

	return g
}

func (g *Graph) Interfere(i, j int) bool {
	return g.Links[i].IsSet(j)
}

// Color assigns each node one of k colors or the next spill slot.
// Shortest-lived registers are colored first.
// If spillAll is set every unassigned node is spilled.
func (g *Graph) Color(ctx context.Context, k int, spillAll bool, nextSlot func() int) (err error) {
	tr := tlog.SpanFromContext(ctx)

	order := heap.Heap[node]{Less: nodeLess}

	for n, v := range g.Nodes {
		order.Push(node{n: n, size: v.TotalRange(), id: v.ID})
	}

	for order.Len() != 0 {
		x := order.Pop()
		v := g.Nodes[x.n]

		if v.Assigned() {
			continue
		}

		c := k

		if !spillAll {
			taken := set.MakeBits[int]()

			g.Links[x.n].Range(func(l int) bool {
				if w := g.Nodes[l]; w.Color >= 0 && !w.Spilled() {
					taken.Set(w.Color)
				}

				return true
			})

			c = taken.FirstUnset()
		}

		if c < k {
			err = v.Assign(c)
		} else {
			err = v.Spill(nextSlot())
		}
		if err != nil {
			return errors.Wrap(err, "color")
		}

		if tr.If("dump_color") {
			tr.Printw("color", "reg", v.ID, "size", x.size, "degree", g.Links[x.n].Size(), "color", v.Color, "slot", v.Slot)
		}
	}

	return nil
}

func nodeLess(d []node, i, j int) bool {
	if d[i].size != d[j].size {
		return d[i].size < d[j].size
	}

	return d[i].id < d[j].id
}

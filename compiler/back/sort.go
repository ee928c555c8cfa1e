package back

import (
	"github.com/slowlang/ilocc/compiler/ir"
	"github.com/slowlang/ilocc/compiler/set"
)

// SortBlocks linearizes the blocks reachable from the entry.
// It is a depth-first walk taking successors in declared order.
// An end-branch target is queued below the siblings already waiting on the stack,
// so that they are laid out before it. The lifted siblings are pushed back reversed.
// The exit block always comes last.
func (f *Function) SortBlocks() []ir.Block {
	visited := set.MakeBits[ir.Block]()
	queued := set.MakeBits[ir.Block]()

	order := make([]ir.Block, 0, len(f.Blocks))
	stack := []ir.Block{f.Entry}
	queued.Set(f.Entry)

	var keep []ir.Block

	for len(stack) != 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		queued.Clear(b)

		visited.Set(b)
		order = append(order, b)

		bp := &f.Blocks[b]

		for i := len(bp.Succ) - 1; i >= 0; i-- {
			s := bp.Succ[i]

			if s == f.Exit || visited.IsSet(s) || queued.IsSet(s) {
				continue
			}

			keep = keep[:0]

			if len(stack) != 0 && bp.EndBranch(s) {
				n := min(len(bp.Succ)-i, len(stack))

				keep = append(keep, stack[len(stack)-n:]...)
				stack = stack[:len(stack)-n]
			}

			stack = append(stack, s)

			for j := len(keep) - 1; j >= 0; j-- {
				stack = append(stack, keep[j])
			}
			queued.Set(s)
		}
	}

	if f.Exit != f.Entry {
		order = append(order, f.Exit)
	}

	if f.tr.If("dump_order") {
		labels := make([]string, len(order))
		for i, b := range order {
			labels[i] = f.Label(b)
		}

		f.tr.Printw("block order", "func", f.Name, "order", labels)
	}

	return order
}

// Clean removes edges no jump or fallthrough can take until nothing changes.
func (f *Function) Clean() {
	for {
		order := f.SortBlocks()
		changed := false

		for i, b := range order {
			next := ir.NoBlock
			if i+1 < len(order) {
				next = order[i+1]
			}

			if f.verifyLinks(b, next) {
				changed = true
				break
			}
		}

		if !changed {
			return
		}
	}
}

package back

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/ilocc/compiler/color"
	"github.com/slowlang/ilocc/compiler/ir"
	"github.com/slowlang/ilocc/compiler/set"
)

// Allocate binds every register referenced by scheduled code to one of k colors or a spill slot.
// If they all fit they are colored in id order without computing liveness.
func (f *Function) Allocate(ctx context.Context, k int, spillAll bool) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "allocate", "func", f.Name, "k", k, "spill_all", spillAll)
	defer tr.Finish("err", &err)

	order := f.SortBlocks()
	used := f.referenced(order)

	var regs []*ir.Virtual

	used.Range(func(r ir.Reg) bool {
		if !f.Regs[r].Assigned() {
			regs = append(regs, &f.Regs[r])
		}

		return true
	})

	if !spillAll && used.Size() <= k {
		for i, v := range regs {
			if err = v.Assign(i); err != nil {
				return errors.Wrap(err, "assign")
			}
		}

		tr.Printw("direct assignment", "regs", len(regs))

		return nil
	}

	f.ComputeLiveRanges(order, spillAll)

	g := color.Build(regs)

	err = g.Color(ctx, k, spillAll, f.nextSpill)
	if err != nil {
		return errors.Wrap(err, "func %v", f.Name)
	}

	tr.Printw("colored", "regs", len(regs), "spills", f.spills)

	return nil
}

func (f *Function) referenced(order []ir.Block) set.Bits[ir.Reg] {
	used := set.MakeBits[ir.Reg]()

	for _, b := range order {
		for _, in := range f.Blocks[b].Code {
			for _, r := range in.Src {
				used.Set(r)
			}

			if in.Dst != ir.NoReg {
				used.Set(in.Dst)
			}
		}
	}

	return used
}

package back

import (
	"math"

	"github.com/slowlang/ilocc/compiler/ir"
	"github.com/slowlang/ilocc/compiler/set"
)

const unset = math.MinInt

// ComputeLiveRanges fills per-block live ranges of every register referenced in order.
// Liveness is propagated backwards to a fixpoint unless spillAll is set,
// in which case ranges are local and only used for bookkeeping.
func (f *Function) ComputeLiveRanges(order []ir.Block, spillAll bool) {
	for i := range f.Regs {
		f.Regs[i].ResetLive()
	}

	for i := range f.Blocks {
		f.Blocks[i].in.Reset()
		f.Blocks[i].out.Reset()
	}

	if !spillAll {
		iters := 0

		for changed := true; changed; iters++ {
			changed = false

			for i := len(order) - 1; i >= 0; i-- {
				if f.findPriorRegisters(order[i]) {
					changed = true
				}
			}
		}

		if f.tr.If("dump_live") {
			f.tr.Printw("liveness converged", "func", f.Name, "iters", iters)
		}
	}

	for _, b := range order {
		f.computeLiveRanges(b, !spillAll)
	}
}

// findPriorRegisters computes the live-in set of b and merges it into
// the live-out sets of its predecessors. It reports whether any of them grew.
func (f *Function) findPriorRegisters(b ir.Block) (changed bool) {
	bp := &f.Blocks[b]

	in := set.MakeBits[ir.Reg]()
	def := set.MakeBits[ir.Reg]()

	for _, x := range bp.Code {
		for _, r := range x.Src {
			if !def.IsSet(r) {
				in.Set(r)
			}
		}

		if x.Dst != ir.NoReg {
			def.Set(x.Dst)
		}
	}

	bp.out.Range(func(r ir.Reg) bool {
		if !def.IsSet(r) {
			in.Set(r)
		}

		return true
	})

	bp.in = in

	for _, p := range bp.Pred {
		if f.Blocks[p].out.Merge(in) {
			changed = true
		}
	}

	return changed
}

// computeLiveRanges records a [start, end] range in b for every register live in it.
// Live-in registers start at -1, live-out registers end at len(Code).
// Unresolved endpoints fall back to the block bounds and are reported if report is set.
// A register live into the entry block is read before any definition.
func (f *Function) computeLiveRanges(b ir.Block, report bool) {
	bp := &f.Blocks[b]

	ranges := map[ir.Reg]*ir.Range{}
	regs := set.MakeBits[ir.Reg]()

	get := func(r ir.Reg) *ir.Range {
		x, ok := ranges[r]
		if !ok {
			x = &ir.Range{unset, unset}
			ranges[r] = x
			regs.Set(r)
		}

		return x
	}

	bp.in.Range(func(r ir.Reg) bool {
		if report && b == f.Entry {
			f.Warn(b, "live range start unresolved", "reg", r)
		}

		get(r)[0] = -1

		return true
	})

	for i, x := range bp.Code {
		for _, r := range x.Src {
			rg := get(r)

			if rg[0] == unset {
				if report {
					f.Warn(b, "live range start unresolved", "reg", r, "pos", i)
				}

				rg[0] = -1
			}

			rg[1] = i
		}

		if x.Dst != ir.NoReg {
			rg := get(x.Dst)

			if rg[0] == unset {
				rg[0] = i
			}

			rg[1] = i
		}
	}

	end := len(bp.Code)

	bp.out.Range(func(r ir.Reg) bool {
		rg := get(r)

		if rg[0] == unset {
			rg[0] = -1
		}

		rg[1] = end

		return true
	})

	regs.Range(func(r ir.Reg) bool {
		rg := ranges[r]

		if rg[1] == unset {
			if report {
				f.Warn(b, "live range end unresolved", "reg", r)
			}

			rg[1] = end
		}

		f.Regs[r].SetRange(b, rg[0], rg[1])

		return true
	})

	if f.tr.If("dump_live") {
		f.tr.Printw("live", "func", f.Name, "block", bp.Label, "in", bp.in, "out", bp.out)
	}
}

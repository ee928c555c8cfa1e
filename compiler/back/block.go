package back

import (
	"github.com/slowlang/ilocc/compiler/ir"
	"github.com/slowlang/ilocc/compiler/set"
)

type (
	Block struct {
		ID    ir.Block
		Label string

		// Depth is loop plus conditional nesting at creation.
		Depth int

		Code []ir.Inst

		Succ []ir.Block
		Pred []ir.Block

		end set.Bits[ir.Block] // end-branch successors

		sealed bool

		in  set.Bits[ir.Reg]
		out set.Bits[ir.Reg]
	}
)

// AddInstruction appends in to block b.
// A block is sealed by a jump, later instructions are dropped with a warning.
func (f *Function) AddInstruction(b ir.Block, in ir.Inst) {
	bp := &f.Blocks[b]

	in = in.Clone()
	if !in.Op.HasDst() {
		in.Dst = ir.NoReg
	}

	if bp.sealed {
		f.Warn(b, "ignoring instruction after jump", "inst", string(in.Format(nil, f.Label)))
		return
	}

	bp.Code = append(bp.Code, in)
	bp.sealed = in.IsJump()
}

// AddEdge links from -> to. It's idempotent.
func (f *Function) AddEdge(from, to ir.Block, endBranch bool) {
	fp := &f.Blocks[from]
	tp := &f.Blocks[to]

	fp.Succ = appendUnique(fp.Succ, to)
	tp.Pred = appendUnique(tp.Pred, from)

	if endBranch {
		fp.end.Set(to)
	}
}

func (b *Block) EndBranch(to ir.Block) bool {
	return b.end.IsSet(to)
}

func (b *Block) Sealed() bool { return b.sealed }

// RemoveLValue drops the trailing load emitted for an expression used as an l-value.
func (f *Function) RemoveLValue(b ir.Block) {
	bp := &f.Blocks[b]

	if len(bp.Code) == 0 {
		return
	}

	last := bp.Code[len(bp.Code)-1]
	if last.Op != ir.Loadai {
		f.Warn(b, "last instruction is a necessary l-value instruction", "inst", string(last.Format(nil, f.Label)))
		return
	}

	bp.Code = bp.Code[:len(bp.Code)-1]
}

func (f *Function) removeInst(b ir.Block, i int) {
	bp := &f.Blocks[b]

	bp.Code = append(bp.Code[:i], bp.Code[i+1:]...)
}

// verifyLinks drops successors not reached by an explicit jump or by falling through to next.
// A trailing jump to next is elided. It reports whether any edge was removed.
func (f *Function) verifyLinks(b, next ir.Block) (changed bool) {
	bp := &f.Blocks[b]

	keep := set.MakeBits[ir.Block]()
	jumps := false

	for _, in := range bp.Code {
		if !in.IsJump() {
			continue
		}

		jumps = true

		for _, s := range bp.Succ {
			if in.JumpsTo(s) {
				keep.Set(s)
			}
		}
	}

	if next != ir.NoBlock && !jumps {
		keep.Set(next)
	}

	if l := len(bp.Code); l != 0 && next != ir.NoBlock {
		if last := bp.Code[l-1]; last.IsUncondJump() && last.JumpsTo(next) {
			bp.Code = bp.Code[:l-1]
			bp.sealed = false
		}
	}

	succ := bp.Succ[:0]

	for _, s := range bp.Succ {
		if keep.IsSet(s) {
			succ = append(succ, s)
			continue
		}

		bp.end.Clear(s)

		sp := &f.Blocks[s]
		sp.Pred = removeAll(sp.Pred, b)

		changed = true

		if f.tr.If("dump_clean") {
			f.tr.Printw("remove edge", "from", bp.Label, "to", sp.Label)
		}
	}

	bp.Succ = succ

	return changed
}

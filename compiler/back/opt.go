package back

import (
	"github.com/slowlang/ilocc/compiler/ir"
	"github.com/slowlang/ilocc/compiler/set"
)

type (
	pos struct {
		b ir.Block
		i int
	}

	useState int
)

const (
	useThrough useState = iota
	useRead
	useKilled
)

// CopyPropagation renames the target of each move to its source
// where both names never need to be told apart afterwards.
// Only moves outside of loops and conditionals are considered.
func (f *Function) CopyPropagation() {
	order := f.SortBlocks()

	for _, b := range order {
		if f.Blocks[b].Depth != 0 {
			continue
		}

		for i := range f.Blocks[b].Code {
			if f.Blocks[b].Code[i].IsMove() {
				f.propagate(order, b, i)
			}
		}
	}
}

func (f *Function) propagate(order []ir.Block, b ir.Block, i int) bool {
	mv := f.Blocks[b].Code[i]
	src, dst := mv.Src[0], mv.Dst

	if src == dst || f.Regs[dst].NoProp {
		return false
	}

	replace := []pos{{b, i}}
	tracked, other := ir.NoReg, ir.NoReg
	seen := false

	for _, x := range order {
		bp := &f.Blocks[x]

		for j, in := range bp.Code {
			if !seen {
				seen = x == b && j == i
				continue
			}

			if in.IsMove() && in.Writes(dst) {
				f.Regs[dst].NoProp = true
				return false
			}

			if bp.Depth != 0 && (in.Writes(src) || in.Writes(dst)) {
				return false
			}

			if tracked != ir.NoReg {
				if in.References(other) {
					return false
				}

				if in.References(tracked) {
					replace = append(replace, pos{x, j})
				}

				continue
			}

			if in.References(dst) {
				replace = append(replace, pos{x, j})
			}

			switch {
			case in.Writes(src):
				tracked, other = src, dst
			case in.Writes(dst):
				tracked, other = dst, src
			}
		}
	}

	// every renamed use must be reached through the move
	skip := f.reachableAvoiding(b)

	for _, p := range replace {
		if p.b != b && skip.IsSet(p.b) {
			return false
		}
	}

	if f.tr.If("dump_copy_prop") {
		f.tr.Printw("copy propagation", "func", f.Name, "replace", dst, "with", src, "insts", len(replace))
	}

	for _, p := range replace {
		f.Blocks[p.b].Code[p.i].Replace(dst, src)
	}

	return true
}

// reachableAvoiding returns the blocks reachable from the entry without passing through b.
func (f *Function) reachableAvoiding(b ir.Block) set.Bits[ir.Block] {
	r := set.MakeBits[ir.Block]()
	if f.Entry == b {
		return r
	}

	r.Set(f.Entry)
	stack := []ir.Block{f.Entry}

	for len(stack) != 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, s := range f.Blocks[x].Succ {
			if s == b || r.IsSet(s) {
				continue
			}

			r.Set(s)
			stack = append(stack, s)
		}
	}

	return r
}

// TargetPropagation folds a move into the instruction defining its source
// when the source is not needed afterwards.
func (f *Function) TargetPropagation() {
	for _, b := range f.SortBlocks() {
		bp := &f.Blocks[b]

		for i := 1; i < len(bp.Code); {
			prev, mv := &bp.Code[i-1], bp.Code[i]

			if mv.IsMove() && mv.Src[0] != mv.Dst &&
				prev.Dst != ir.NoReg && prev.Dst == mv.Src[0] &&
				prev.Kind() != ir.Immovable && !prev.ReadsOwnTarget() &&
				!f.usedAfter(prev.Dst, b, i) {
				prev.Dst = mv.Dst
				f.removeInst(b, i)

				continue
			}

			i++
		}
	}
}

// RemoveDead removes instructions whose result is never read
// and then self-moves.
func (f *Function) RemoveDead() {
	order := f.SortBlocks()

	for changed := true; changed; {
		changed = false

		for _, b := range order {
			for i := 0; i < len(f.Blocks[b].Code); {
				if !f.dead(b, i) {
					i++
					continue
				}

				if f.tr.If("dump_dead") {
					f.tr.Printw("remove dead", "func", f.Name, "block", f.Label(b), "inst", string(f.Blocks[b].Code[i].Format(nil, f.Label)))
				}

				f.removeInst(b, i)
				changed = true
			}
		}
	}

	for _, b := range order {
		bp := &f.Blocks[b]
		code := bp.Code[:0]

		for _, in := range bp.Code {
			if in.IsMove() && in.Src[0] == in.Dst {
				continue
			}

			code = append(code, in)
		}

		bp.Code = code
	}
}

func (f *Function) dead(b ir.Block, i int) bool {
	in := f.Blocks[b].Code[i]

	if in.Dst == ir.NoReg || in.Stores() || in.IsJump() || in.Kind() != ir.Normal {
		return false
	}

	return !f.usedAfter(in.Dst, b, i)
}

// usedAfter reports whether the value r holds after instruction i of block b
// may be read on some path before being overwritten.
func (f *Function) usedAfter(r ir.Reg, b ir.Block, i int) bool {
	if r == ir.NoReg {
		return true
	}

	switch scanUse(r, f.Blocks[b].Code[i+1:]) {
	case useRead:
		return true
	case useKilled:
		return false
	}

	visited := set.MakeBits[ir.Block]()
	queue := append([]ir.Block(nil), f.Blocks[b].Succ...)

	for len(queue) != 0 {
		s := queue[0]
		queue = queue[1:]

		if visited.IsSet(s) {
			continue
		}

		visited.Set(s)

		switch scanUse(r, f.Blocks[s].Code) {
		case useRead:
			return true
		case useKilled:
			continue
		}

		queue = append(queue, f.Blocks[s].Succ...)
	}

	return false
}

func scanUse(r ir.Reg, code []ir.Inst) useState {
	for _, in := range code {
		if in.Reads(r) {
			return useRead
		}

		if in.Writes(r) {
			return useKilled
		}
	}

	return useThrough
}

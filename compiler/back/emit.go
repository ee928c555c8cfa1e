package back

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/ilocc/compiler/asm"
	"github.com/slowlang/ilocc/compiler/ir"
)

type (
	operands struct {
		f       *Function
		palette []string
		scratch string
	}
)

func (o operands) Reg(r ir.Reg) string {
	v := &o.f.Regs[r]

	if v.Spilled() {
		return o.scratch
	}

	return o.palette[v.Color]
}

func (o operands) Label(b ir.Block) string { return o.f.Label(b) }

// Frame describes the stack frame of f.
func (f *Function) Frame() *asm.Frame {
	return &asm.Frame{
		Name:    f.Name,
		Main:    f.Name == "main",
		Returns: f.returns(),
		Locals:  f.Params + f.Locals,
		Spills:  f.spills,
	}
}

func (f *Function) returns() bool {
	for _, b := range f.Blocks {
		for _, in := range b.Code {
			if in.Op == ir.StoreRet {
				return true
			}
		}
	}

	return false
}

// Emit appends the assembly of f in scheduled order.
// The prologue follows the entry label and the epilogue ends the exit block.
func (f *Function) Emit(ctx context.Context, a asm.Arch, b []byte) (_ []byte, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "emit func", "name", f.Name)
	defer tr.Finish("err", &err)

	fr := f.Frame()
	order := f.SortBlocks()

	if f.Label(f.Entry) != f.Name {
		b = fmt.Appendf(b, "%s:\n", f.Name)
	}

	var lines []string

	for _, id := range order {
		bp := &f.Blocks[id]

		b = fmt.Appendf(b, "%s:\n", bp.Label)

		lines = lines[:0]

		if id == f.Entry {
			lines = a.Prologue(lines, fr)
		}

		for i, in := range bp.Code {
			lines, err = f.emitInst(lines, a, fr, in)
			if err != nil {
				return nil, errors.Wrap(err, "block %v: inst %d: %v", bp.Label, i, string(in.Format(nil, f.Label)))
			}
		}

		if id == f.Exit {
			lines = a.Epilogue(lines, fr)
		}

		for _, l := range lines {
			b = fmt.Appendf(b, "\t%s\n", l)
		}
	}

	tr.Printw("emitted", "blocks", len(order), "spills", fr.Spills)

	return b, nil
}

// emitInst lowers one instruction wrapped in spill loads and stores.
// All spilled operands share the scratch register, so at most one distinct spilled source is supported.
func (f *Function) emitInst(b []string, a asm.Arch, fr *asm.Frame, in ir.Inst) (_ []string, err error) {
	pal := a.Palette()
	scratch := a.Scratch()

	check := func(r ir.Reg) error {
		v := &f.Regs[r]
		if v.Spilled() {
			return nil
		}

		c, err := v.Phys()
		if err != nil {
			return err
		}

		if c >= len(pal) {
			return errors.New("r%d: color %d out of palette", r, c)
		}

		return nil
	}

	loaded := ir.NoReg

	for _, r := range in.Src {
		if err = check(r); err != nil {
			return nil, err
		}

		v := &f.Regs[r]

		if !v.Spilled() || r == loaded {
			continue
		}

		if loaded != ir.NoReg {
			return nil, errors.New("r%d, r%d: two spilled sources with one scratch register", loaded, r)
		}

		b = a.Load(b, fr, v.Slot, scratch)
		loaded = r
	}

	if in.Dst != ir.NoReg {
		if err = check(in.Dst); err != nil {
			return nil, err
		}
	}

	b, err = a.Lower(b, in, operands{f: f, palette: pal, scratch: scratch}, fr)
	if err != nil {
		return nil, err
	}

	if in.Dst != ir.NoReg {
		if v := &f.Regs[in.Dst]; v.Spilled() {
			b = a.Store(b, fr, v.Slot, scratch)
		}
	}

	return b, nil
}

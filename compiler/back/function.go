package back

import (
	"context"
	"fmt"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/ilocc/compiler/ir"
)

type (
	// Context is shared by all functions of one compilation.
	Context struct {
		counts map[string]int
	}

	Diag struct {
		Block ir.Block
		Msg   string
		From  loc.PC
	}

	Function struct {
		Name string

		Params int
		Locals int

		Entry ir.Block
		Exit  ir.Block

		Blocks []Block
		Regs   []ir.Virtual

		Diags []Diag

		c  *Context
		tr tlog.Span

		preLoop   ir.Block
		loopDepth int
		condDepth int

		spills int
	}
)

func NewContext() *Context {
	return &Context{
		counts: make(map[string]int),
	}
}

func (c *Context) next(fn string) int {
	n, ok := c.counts[fn]
	if ok {
		n++
	}

	c.counts[fn] = n

	return n
}

// NewFunction creates a function with its entry and exit blocks.
// Params and locals reserve frame slots.
func NewFunction(ctx context.Context, c *Context, name string, params, locals int) *Function {
	if c == nil {
		c = NewContext()
	}

	f := &Function{
		Name:   name,
		Params: params,
		Locals: locals,
		c:      c,
		tr:     tlog.SpanFromContext(ctx),
	}

	entry := name + "_entry"
	if name == "main" {
		entry = "main"
	}

	f.Entry = f.addBlock(entry, 0)
	f.Exit = f.addBlock(name+"_exit", 0)
	f.preLoop = f.Entry

	return f
}

func (f *Function) addBlock(label string, depth int) ir.Block {
	id := ir.Block(len(f.Blocks))

	f.Blocks = append(f.Blocks, Block{
		ID:    id,
		Label: label,
		Depth: depth,
	})

	return id
}

// NewBlock opens a new flow point at the current nesting depth.
func (f *Function) NewBlock() ir.Block {
	n := f.c.next(f.Name)

	id := f.addBlock(fmt.Sprintf("%s_%d", f.Name, n), f.loopDepth+f.condDepth)

	if f.loopDepth == 0 {
		f.preLoop = id
	}

	return id
}

func (f *Function) NewReg() ir.Reg {
	id := ir.Reg(len(f.Regs))

	f.Regs = append(f.Regs, ir.NewVirtual(id))

	return id
}

func (f *Function) Block(b ir.Block) *Block {
	return &f.Blocks[b]
}

func (f *Function) Reg(r ir.Reg) *ir.Virtual {
	return &f.Regs[r]
}

func (f *Function) Label(b ir.Block) string {
	if b < 0 || int(b) >= len(f.Blocks) {
		return fmt.Sprintf("L%d", b)
	}

	return f.Blocks[b].Label
}

func (f *Function) EnterLoop() { f.loopDepth++ }

func (f *Function) ExitLoop() { f.loopDepth-- }

func (f *Function) EnterConditional() { f.condDepth++ }

func (f *Function) ExitConditional() { f.condDepth-- }

func (f *Function) LoopDepth() int { return f.loopDepth }

func (f *Function) ConditionalDepth() int { return f.condDepth }

// PreLoop is the latest block created outside of any loop.
func (f *Function) PreLoop() ir.Block { return f.preLoop }

// AddBeforeLoop hoists loop-invariant setup into the pre-loop block.
func (f *Function) AddBeforeLoop(in ir.Inst) {
	f.AddInstruction(f.preLoop, in)
}

func (f *Function) nextSpill() int {
	f.spills++

	return f.spills - 1
}

// Spills is the number of spill slots handed out.
func (f *Function) Spills() int { return f.spills }

// Warn records a non-fatal diagnostic for block b and logs it.
func (f *Function) Warn(b ir.Block, msg string, kvs ...any) {
	pc := loc.Caller(1)

	f.Diags = append(f.Diags, Diag{
		Block: b,
		Msg:   msg,
		From:  pc,
	})

	args := append([]any{"func", f.Name, "block", f.Label(b), "from", pc}, kvs...)

	f.tr.Printw("warning: "+msg, args...)
}

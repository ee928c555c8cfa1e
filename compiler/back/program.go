package back

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/ilocc/compiler/asm"
)

type (
	// Program is one compilation unit.
	Program struct {
		Globals []string
		Funcs   []*Function

		c *Context
	}
)

func NewProgram() *Program {
	return &Program{
		c: NewContext(),
	}
}

func (p *Program) AddGlobal(name string) {
	p.Globals = appendUnique(p.Globals, name)
}

// NewFunction adds a function sharing the program's label counters.
func (p *Program) NewFunction(ctx context.Context, name string, params, locals int) *Function {
	f := NewFunction(ctx, p.c, name, params, locals)

	p.Funcs = append(p.Funcs, f)

	return f
}

func (p *Program) Function(name string) *Function {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}

	return nil
}

// Diags returns diagnostics of all functions.
func (p *Program) Diags() (r []Diag) {
	for _, f := range p.Funcs {
		r = append(r, f.Diags...)
	}

	return r
}

// ILOC appends the program text in the form the front reads.
func (p *Program) ILOC(b []byte) []byte {
	for _, g := range p.Globals {
		b = fmt.Appendf(b, ".global %s\n", g)
	}

	for _, f := range p.Funcs {
		b = fmt.Appendf(b, ".func %s %d %d\n", f.Name, f.Params, f.Locals)
		b = f.ILOC(b)
		b = append(b, ".end\n"...)
	}

	return b
}

// Emit appends the program header and every function's assembly.
// Functions must be allocated.
func (p *Program) Emit(ctx context.Context, a asm.Arch, b []byte) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "emit program", "funcs", len(p.Funcs), "globals", len(p.Globals))
	defer tr.Finish("err", &err)

	b = a.Header(b, p.Globals)

	for _, f := range p.Funcs {
		b, err = f.Emit(ctx, a, b)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

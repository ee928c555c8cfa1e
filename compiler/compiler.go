package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/ilocc/compiler/asm"
	"github.com/slowlang/ilocc/compiler/asm/amd64"
	"github.com/slowlang/ilocc/compiler/back"
	"github.com/slowlang/ilocc/compiler/front"
)

func CompileFile(ctx context.Context, name string, opts Options) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, opts)
}

// Compile translates ILOC text into x86-64 assembly.
func Compile(ctx context.Context, name string, text []byte, opts Options) (obj []byte, err error) {
	p, err := Parse(ctx, name, text, opts)
	if err != nil {
		return nil, err
	}

	a := amd64.New()

	err = Allocate(ctx, p, a, opts)
	if err != nil {
		return nil, errors.Wrap(err, "allocate")
	}

	obj, err = p.Emit(ctx, a, nil)
	if err != nil {
		return nil, errors.Wrap(err, "emit")
	}

	return obj, nil
}

// ILOC returns the optimized program text.
func ILOC(ctx context.Context, name string, text []byte, opts Options) ([]byte, error) {
	p, err := Parse(ctx, name, text, opts)
	if err != nil {
		return nil, err
	}

	return p.ILOC(nil), nil
}

// Dot returns the cleaned CFG of every function in Graphviz format.
func Dot(ctx context.Context, name string, text []byte) (b []byte, err error) {
	p, err := front.Read(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse text")
	}

	for _, f := range p.Funcs {
		f.Clean()

		b = f.Dot(b)
	}

	return b, nil
}

// Parse reads text and runs the optimization passes.
func Parse(ctx context.Context, name string, text []byte, opts Options) (*back.Program, error) {
	p, err := front.Read(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse text")
	}

	Optimize(ctx, p, opts)

	return p, nil
}

func Optimize(ctx context.Context, p *back.Program, opts Options) {
	tr := tlog.SpanFromContext(ctx)

	for _, f := range p.Funcs {
		f.Clean()

		if !opts.NoCopyProp {
			f.CopyPropagation()
			f.TargetPropagation()
		}

		if !opts.KeepDead {
			f.RemoveDead()
		}

		if tr.If("dump_iloc") {
			tr.Printw("optimized", "func", f.Name, "iloc", string(f.ILOC(nil)))
		}
	}
}

func Allocate(ctx context.Context, p *back.Program, a asm.Arch, opts Options) error {
	k := opts.palette(len(a.Palette()))

	for _, f := range p.Funcs {
		err := f.Allocate(ctx, k, opts.SpillAll)
		if err != nil {
			return errors.Wrap(err, "func %v", f.Name)
		}
	}

	if d := p.Diags(); len(d) != 0 {
		tlog.SpanFromContext(ctx).Printw("diagnostics", "count", len(d))
	}

	return nil
}

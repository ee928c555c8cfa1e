package main

import (
	"context"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/ilocc/compiler"
)

func main() {
	def := compiler.OptionsFromEnv()

	optFlags := []*cli.Flag{
		cli.NewFlag("spill-all", def.SpillAll, "spill every register"),
		cli.NewFlag("keep-dead", def.KeepDead, "keep dead instructions"),
		cli.NewFlag("no-copy-prop", def.NoCopyProp, "disable copy and target propagation"),
		cli.NewFlag("regs", def.Regs, "limit the register palette (0 is all of it)"),
	}

	outFlags := []*cli.Flag{
		cli.NewFlag("out,o", "", "output file (stdout by default)"),
		cli.NewFlag("v", "", "verbosity topics (dump_color, dump_live, ...)"),
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile ILOC into x86-64 assembly",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags:       append(append([]*cli.Flag{}, optFlags...), outFlags...),
	}

	ilocCmd := &cli.Command{
		Name:        "iloc",
		Description: "print optimized ILOC",
		Action:      ilocAct,
		Args:        cli.Args{},
		Flags:       append(append([]*cli.Flag{}, optFlags...), outFlags...),
	}

	dotCmd := &cli.Command{
		Name:        "dot",
		Description: "print control flow graphs in Graphviz format",
		Action:      dotAct,
		Args:        cli.Args{},
		Flags:       outFlags,
	}

	app := &cli.Command{
		Name:        "ilocc",
		Description: "ilocc is an ILOC code generation backend",
		Commands: []*cli.Command{
			compileCmd,
			ilocCmd,
			dotCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func compileAct(c *cli.Command) error {
	opts := options(c)

	return run(c, func(ctx context.Context, name string, text []byte) ([]byte, error) {
		return compiler.Compile(ctx, name, text, opts)
	})
}

func ilocAct(c *cli.Command) error {
	opts := options(c)

	return run(c, func(ctx context.Context, name string, text []byte) ([]byte, error) {
		return compiler.ILOC(ctx, name, text, opts)
	})
}

func dotAct(c *cli.Command) error {
	return run(c, compiler.Dot)
}

func options(c *cli.Command) compiler.Options {
	return compiler.Options{
		SpillAll:   c.Bool("spill-all"),
		KeepDead:   c.Bool("keep-dead"),
		NoCopyProp: c.Bool("no-copy-prop"),
		Regs:       c.Int("regs"),
	}
}

func run(c *cli.Command, f func(ctx context.Context, name string, text []byte) ([]byte, error)) (err error) {
	if v := c.String("v"); v != "" {
		tlog.SetVerbosity(v)
	}

	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	var out []byte

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		obj, err := f(ctx, a, text)
		if err != nil {
			return errors.Wrap(err, "%v", a)
		}

		out = append(out, obj...)
	}

	if name := c.String("out"); name != "" {
		err = os.WriteFile(name, out, 0o644)
		if err != nil {
			return errors.Wrap(err, "write %v", name)
		}

		return nil
	}

	_, err = os.Stdout.Write(out)

	return err
}

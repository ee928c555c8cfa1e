package back

import (
	"fmt"

	"github.com/slowlang/ilocc/compiler/ir"
)

// Dot appends the CFG of f in Graphviz format.
// End-branch edges are dashed.
func (f *Function) Dot(b []byte) []byte {
	blocks := []ir.Block{f.Entry, f.Exit}

	for i := 0; i < len(blocks); i++ {
		for _, s := range f.Blocks[blocks[i]].Succ {
			blocks = appendUnique(blocks, s)
		}
	}

	b = fmt.Appendf(b, "digraph %q {\n", f.Name)

	for _, id := range blocks {
		bp := &f.Blocks[id]

		for _, s := range bp.Succ {
			b = fmt.Appendf(b, "\t%q -> %q", bp.Label, f.Blocks[s].Label)

			if bp.EndBranch(s) {
				b = append(b, " [style=dashed]"...)
			}

			b = append(b, ";\n"...)
		}
	}

	return append(b, "}\n"...)
}

// ILOC appends the scheduled instruction stream of f.
// Block attributes are printed the way the front reads them.
func (f *Function) ILOC(b []byte) []byte {
	for _, id := range f.SortBlocks() {
		bp := &f.Blocks[id]

		b = fmt.Appendf(b, "%s:", bp.Label)

		if bp.Depth != 0 {
			b = fmt.Appendf(b, " depth=%d", bp.Depth)
		}

		sep := " end="

		for _, s := range bp.Succ {
			if bp.EndBranch(s) {
				b = append(b, sep...)
				b = append(b, f.Label(s)...)
				sep = ","
			}
		}

		b = append(b, '\n')

		for _, in := range bp.Code {
			b = append(b, '\t')
			b = in.Format(b, f.Label)
			b = append(b, '\n')
		}
	}

	return b
}

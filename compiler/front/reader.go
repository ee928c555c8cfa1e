package front

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/ilocc/compiler/back"
	"github.com/slowlang/ilocc/compiler/ir"
)

type (
	// Reader reads ILOC text into a back.Program.
	//
	//	.global x
	//	.func name params locals
	//	label: [depth=N] [end=label,...]
	//		instruction
	//	.end
	//
	// The first block of a function is its entry and the last one is its exit.
	// A block not ending with a jump falls through to the next one.
	// Loop blocks must carry depth=N with N > 0, or copy propagation treats them as straight-line code.
	// A backward jump to a depth=0 block is reported as a diagnostic.
	Reader struct {
		name string
		b    []byte

		prog *back.Program
	}

	span struct {
		st, end int
	}

	blockDef struct {
		pos   int
		label string
		depth int
		ends  []span

		id   ir.Block
		end  map[ir.Block]bool
		code []span
	}

	funcDef struct {
		f      *back.Function
		blocks []*blockDef
		labels map[string]ir.Block
	}
)

const maxReg = 1 << 20

func ReadFile(ctx context.Context, name string) (*back.Program, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}

	return Read(ctx, name, data)
}

func Read(ctx context.Context, name string, text []byte) (p *back.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: read", "name", name, "size", len(text))
	defer tr.Finish("err", &err)

	r := &Reader{
		name: name,
		b:    text,
		prog: back.NewProgram(),
	}

	err = r.read(ctx)
	if err != nil {
		return nil, err
	}

	tr.Printw("program", "funcs", len(r.prog.Funcs), "globals", r.prog.Globals)

	return r.prog, nil
}

func (r *Reader) read(ctx context.Context) (err error) {
	lines := r.lines()

	for n := 0; n < len(lines); n++ {
		l := lines[n]

		if r.b[l.st] != '.' {
			return r.errorf(l.st, "directive expected")
		}

		dir, i, err := r.ident(l.st+1, l.end)
		if err != nil {
			return err
		}

		switch dir {
		case "global":
			var name string

			name, i, err = r.ident(i, l.end)
			if err != nil {
				return err
			}

			r.prog.AddGlobal(name)

			err = r.eol(i, l.end)
		case "func":
			n, err = r.readFunc(ctx, lines, n)
		default:
			err = r.errorf(l.st, "unexpected directive: %v", dir)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (r *Reader) readFunc(ctx context.Context, lines []span, n int) (_ int, err error) {
	hdr := lines[n]

	name, i, err := r.ident(hdr.st+len(".func"), hdr.end)
	if err != nil {
		return n, err
	}

	params, i, err := r.number(i, hdr.end)
	if err != nil {
		return n, err
	}

	locals, i, err := r.number(i, hdr.end)
	if err != nil {
		return n, err
	}

	if err = r.eol(i, hdr.end); err != nil {
		return n, err
	}

	if params < 0 || locals < 0 {
		return n, r.errorf(hdr.st, "negative frame size")
	}

	if r.prog.Function(name) != nil {
		return n, r.errorf(hdr.st, "function redefined: %v", name)
	}

	fd := &funcDef{
		f:      r.prog.NewFunction(ctx, name, int(params), int(locals)),
		labels: map[string]ir.Block{},
	}

	var cur *blockDef

	for n++; ; n++ {
		if n == len(lines) {
			return n, r.errorf(hdr.st, "func %v: .end expected", name)
		}

		l := lines[n]

		if r.b[l.st] == '.' {
			if dir, i, _ := r.ident(l.st+1, l.end); dir == "end" {
				if err = r.eol(i, l.end); err != nil {
					return n, err
				}

				break
			}

			return n, r.errorf(l.st, "func %v: .end expected", name)
		}

		label, i, err := r.ident(l.st, l.end)
		if err != nil {
			return n, err
		}

		if i < l.end && r.b[i] == ':' {
			cur, err = r.readLabel(label, l.st, i+1, l.end)
			if err != nil {
				return n, err
			}

			fd.blocks = append(fd.blocks, cur)

			continue
		}

		if cur == nil {
			return n, r.errorf(l.st, "instruction outside of block")
		}

		cur.code = append(cur.code, l)
	}

	err = r.makeBlocks(fd)
	if err != nil {
		return n, errors.Wrap(err, "func %v", name)
	}

	for k, bd := range fd.blocks {
		err = r.readBlock(fd, k)
		if err != nil {
			return n, errors.Wrap(err, "func %v: block %v", name, bd.label)
		}
	}

	return n, nil
}

func (r *Reader) readLabel(label string, pos, i, end int) (bd *blockDef, err error) {
	bd = &blockDef{
		pos:   pos,
		label: label,
	}

	for i = skipSpaces(r.b, i, end); i < end; i = skipSpaces(r.b, i, end) {
		var key string

		key, i, err = r.ident(i, end)
		if err != nil {
			return nil, err
		}

		i, err = r.expect(i, end, '=')
		if err != nil {
			return nil, err
		}

		switch key {
		case "depth":
			var d int64

			d, i, err = r.number(i, end)
			if err != nil {
				return nil, err
			}

			bd.depth = int(d)
		case "end":
			for {
				st := skipSpaces(r.b, i, end)

				_, i, err = r.ident(st, end)
				if err != nil {
					return nil, err
				}

				bd.ends = append(bd.ends, span{st: st, end: i})

				if i == end || r.b[i] != ',' {
					break
				}

				i++
			}
		default:
			return nil, r.errorf(i-len(key)-1, "unknown block attribute: %v", key)
		}
	}

	return bd, nil
}

func (r *Reader) makeBlocks(fd *funcDef) error {
	f := fd.f

	if len(fd.blocks) < 2 {
		return errors.New("entry and exit blocks expected")
	}

	last := len(fd.blocks) - 1

	for k, bd := range fd.blocks {
		if _, ok := fd.labels[bd.label]; ok {
			return r.errorf(bd.pos, "label redefined: %v", bd.label)
		}

		switch k {
		case 0:
			bd.id = f.Entry
		case last:
			bd.id = f.Exit
		default:
			bd.id = f.NewBlock()
		}

		bp := f.Block(bd.id)
		bp.Label = bd.label
		bp.Depth = bd.depth

		fd.labels[bd.label] = bd.id
	}

	for _, bd := range fd.blocks {
		bd.end = map[ir.Block]bool{}

		for _, s := range bd.ends {
			l := string(r.b[s.st:s.end])

			id, ok := fd.labels[l]
			if !ok {
				return r.errorf(s.st, "undefined label: %v", l)
			}

			bd.end[id] = true
		}
	}

	return nil
}

func (r *Reader) readBlock(fd *funcDef, k int) error {
	f := fd.f
	bd := fd.blocks[k]

	for _, l := range bd.code {
		in, err := r.readInst(fd, l)
		if err != nil {
			return err
		}

		if in.Op == ir.LoadArg && bd.id == f.Entry {
			in.Pin = true
		}

		f.AddInstruction(bd.id, in)
	}

	if !f.Block(bd.id).Sealed() && k+1 < len(fd.blocks) {
		f.AddInstruction(bd.id, ir.Jump(fd.blocks[k+1].id))
	}

	for _, in := range f.Block(bd.id).Code {
		for _, t := range in.To {
			f.AddEdge(bd.id, t, bd.end[t])

			if tk := fd.index(t); tk <= k && fd.blocks[tk].depth == 0 {
				f.Warn(bd.id, "backward jump to depth=0 block", "target", fd.blocks[tk].label)
			}
		}
	}

	return nil
}

func (fd *funcDef) index(b ir.Block) int {
	for k, bd := range fd.blocks {
		if bd.id == b {
			return k
		}
	}

	return len(fd.blocks)
}

func (r *Reader) readInst(fd *funcDef, l span) (in ir.Inst, err error) {
	name, i, err := r.ident(l.st, l.end)
	if err != nil {
		return in, err
	}

	op, cond, ok := ir.Lookup(name)
	if !ok {
		return in, r.errorf(l.st, "unknown instruction: %v", name)
	}

	in = ir.Inst{Op: op, Cond: cond, Dst: ir.NoReg}

	for k, c := range op.Operands() {
		if k != 0 {
			i, err = r.expect(i, l.end, ',')
			if err != nil {
				return in, err
			}
		}

		switch c {
		case 'S', 'D':
			var reg ir.Reg

			reg, i, err = r.reg(fd.f, i, l.end)
			if c == 'S' {
				in.Src = append(in.Src, reg)
			} else {
				in.Dst = reg
			}
		case 'I':
			in.Imm, i, err = r.number(i, l.end)
		case 'N':
			var n int64

			n, i, err = r.number(i, l.end)
			in.Num = int(n)
		case 'Y':
			in.Sym, i, err = r.ident(i, l.end)
		case 'C':
			st := skipSpaces(r.b, i, l.end)

			var s string

			s, i, err = r.ident(st, l.end)
			if err == nil && s != "ccr" {
				err = r.errorf(st, "condition register expected")
			}
		case 'L':
			st := skipSpaces(r.b, i, l.end)

			var s string

			s, i, err = r.ident(st, l.end)
			if err != nil {
				break
			}

			b, ok := fd.labels[s]
			if !ok {
				err = r.errorf(st, "undefined label: %v", s)
				break
			}

			in.To = append(in.To, b)
		}

		if err != nil {
			return in, err
		}
	}

	if op == ir.CMov {
		in.Src = append(in.Src, in.Dst)
	}

	return in, r.eol(i, l.end)
}

func (r *Reader) reg(f *back.Function, i, end int) (ir.Reg, int, error) {
	i = skipSpaces(r.b, i, end)

	if i == end || r.b[i] != 'r' {
		return ir.NoReg, i, r.errorf(i, "register expected")
	}

	j := skipDigits(r.b, i+1)
	if j == i+1 || j > end {
		return ir.NoReg, i, r.errorf(i, "register expected")
	}

	n, err := strconv.Atoi(string(r.b[i+1 : j]))
	if err != nil || n >= maxReg {
		return ir.NoReg, i, r.errorf(i, "bad register: %s", r.b[i:j])
	}

	for len(f.Regs) <= n {
		f.NewReg()
	}

	return ir.Reg(n), j, nil
}

func (r *Reader) ident(i, end int) (string, int, error) {
	i = skipSpaces(r.b, i, end)

	if i == end || !identStart(r.b[i]) {
		return "", i, r.errorf(i, "identifier expected")
	}

	j := skipIdent(r.b, i)

	return string(r.b[i:j]), j, nil
}

func (r *Reader) number(i, end int) (int64, int, error) {
	i = skipSpaces(r.b, i, end)
	st := i

	if i < end && r.b[i] == '-' {
		i++
	}

	j := skipDigits(r.b, i)
	if j == i || j > end {
		return 0, st, r.errorf(st, "number expected")
	}

	x, err := strconv.ParseInt(string(r.b[st:j]), 10, 64)
	if err != nil {
		return 0, st, r.errorf(st, "bad number: %s", r.b[st:j])
	}

	return x, j, nil
}

func (r *Reader) expect(i, end int, c byte) (int, error) {
	i = skipSpaces(r.b, i, end)

	if i == end || r.b[i] != c {
		return i, r.errorf(i, "%q expected", c)
	}

	return i + 1, nil
}

func (r *Reader) eol(i, end int) error {
	i = skipSpaces(r.b, i, end)

	if i != end {
		return r.errorf(i, "unexpected text: %q", r.b[i:end])
	}

	return nil
}

// lines returns non-empty lines without leading spaces, trailing spaces and comments.
func (r *Reader) lines() (ls []span) {
	b := r.b

	for i := 0; i < len(b); {
		st := skipSpaces(b, i, len(b))
		i = skipLine(b, st)

		end := st
		for end < i && b[end] != '#' && !bytes.HasPrefix(b[end:i], []byte("//")) {
			end++
		}

		for end > st && (b[end-1] == ' ' || b[end-1] == '\t' || b[end-1] == '\r') {
			end--
		}

		if end > st {
			ls = append(ls, span{st: st, end: end})
		}

		if i < len(b) {
			i++
		}
	}

	return ls
}

func (r *Reader) errorf(pos int, format string, args ...any) error {
	line := 1 + bytes.Count(r.b[:pos], []byte{'\n'})
	col := pos - bytes.LastIndexByte(r.b[:pos], '\n')

	return errors.New("%v:%d:%d: %v", r.name, line, col, fmt.Sprintf(format, args...))
}

func identStart(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_'
}

func skipSpaces(b []byte, i, end int) int {
	for i < end && (b[i] == ' ' || b[i] == '\t') {
		i++
	}

	return i
}

func skipIdent(b []byte, i int) int {
	for i < len(b) && (identStart(b[i]) || b[i] >= '0' && b[i] <= '9') {
		i++
	}

	return i
}

func skipDigits(b []byte, i int) int {
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}

	return i
}

func skipLine(b []byte, i int) int {
	for i < len(b) && b[i] != '\n' {
		i++
	}

	return i
}

package amd64

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/slowlang/ilocc/compiler/asm"
	"github.com/slowlang/ilocc/compiler/ir"
)

type (
	lowering struct {
		b   []string
		in  ir.Inst
		ops asm.Operands
		fr  *asm.Frame
	}
)

var condSuffix = [...]string{ir.EQ: "e", ir.GE: "ge", ir.GT: "g", ir.LE: "le", ir.LT: "l", ir.NE: "ne"}

var arith = map[ir.Op]string{
	ir.Add:  "addq",
	ir.Sub:  "subq",
	ir.Mult: "imulq",
	ir.And:  "andq",
	ir.Or:   "orq",
}

// Lower appends the x86-64 text of one instruction.
// Operands must be resolved, aliasing between target and sources is handled here.
func (Arch) Lower(b []string, in ir.Inst, ops asm.Operands, fr *asm.Frame) (_ []string, err error) {
	l := &lowering{b: b, in: in, ops: ops, fr: fr}

	switch in.Op {
	case ir.Nop:
	case ir.Loadi:
		l.emit("movq $%d, %s", in.Imm, l.dst())
	case ir.Loadai:
		l.emit("movq %d(%s), %s", in.Imm, l.src(0), l.dst())
	case ir.LoadGlobal:
		l.emit("movq %s%s(%%rip), %s", globPrefix, in.Sym, l.dst())
	case ir.LoadArg:
		if in.Num < len(params) {
			l.emit("movq %%%s, %s", params[in.Num], l.dst())
		} else {
			l.emit("movq %d(%%rbp), %s", 16+8*(in.Num-len(params)), l.dst())
		}
	case ir.LoadRet:
		l.emit("movq %%rax, %s", l.dst())
	case ir.FormalAddr:
		if in.Num < 0 || in.Num >= fr.Locals {
			return nil, errors.New("formal %v: slot %d out of frame (%d locals)", in.Sym, in.Num, fr.Locals)
		}

		l.emit("leaq %s, %s", LocalAddr(fr, in.Num), l.dst())
	case ir.GlobalAddr:
		l.emit("movq $%s%s, %s", globPrefix, in.Sym, l.dst())

	case ir.Storeai:
		l.emit("movq %s, %d(%s)", l.src(0), in.Imm, l.src(1))
	case ir.StoreGlobal:
		l.emit("movq %s, %s%s(%%rip)", l.src(0), globPrefix, in.Sym)
	case ir.StoreArg:
		if in.Num >= len(params) {
			return nil, errors.New("argument %d: only %d register arguments supported", in.Num, len(params))
		}

		l.emit("movq %s, %%%s", l.src(0), params[in.Num])
	case ir.StoreRet:
		l.emit("movq %s, %%rax", l.src(0))

	case ir.Add, ir.Mult, ir.And, ir.Or:
		l.commutative(arith[in.Op])
	case ir.Sub:
		s0, s1, d := l.src(0), l.src(1), l.dst()

		switch {
		case d == s0:
			l.emit("subq %s, %s", s1, d)
		case d == s1:
			l.emit("negq %s", d)
			l.emit("addq %s, %s", s0, d)
		default:
			l.emit("movq %s, %s", s0, d)
			l.emit("subq %s, %s", s1, d)
		}
	case ir.Div:
		l.emit("pushq %%rdx")
		l.emit("pushq %%rax")
		l.emit("movq %s, %%rax", l.src(0))
		l.emit("cqto")
		l.emit("idivq %s", l.src(1))
		l.emit("movq %%rax, %s", l.dst())
		l.emit("popq %%rax")
		l.emit("popq %%rdx")
	case ir.Addi, ir.Subi, ir.Xori:
		op := map[ir.Op]string{ir.Addi: "addq", ir.Subi: "subq", ir.Xori: "xorq"}[in.Op]

		s, d := l.src(0), l.dst()
		if s != d {
			l.emit("movq %s, %s", s, d)
		}

		l.emit("%s $%d, %s", op, in.Imm, d)
	case ir.Multi:
		l.emit("imulq $%d, %s, %s", in.Imm, l.src(0), l.dst())

	case ir.Mov:
		if s, d := l.src(0), l.dst(); s != d {
			l.emit("movq %s, %s", s, d)
		}
	case ir.CMov:
		l.emit("cmov%sq %s, %s", condSuffix[in.Cond], l.src(0), l.dst())

	case ir.Comp:
		l.emit("cmpq %s, %s", l.src(1), l.src(0))
	case ir.Compi:
		l.emit("cmpq $%d, %s", in.Imm, l.src(0))
	case ir.Cbr:
		l.emit("j%s %s", condSuffix[in.Cond], ops.Label(in.To[0]))
		l.emit("jmp %s", ops.Label(in.To[1]))
	case ir.Jumpi:
		l.emit("jmp %s", ops.Label(in.To[0]))

	case ir.Call:
		l.call(in.Sym)
	case ir.New:
		l.emit("movq $%d, %%rdi", in.Num)
		l.call("malloc")
		l.emit("movq %%rax, %s", l.dst())
	case ir.Del:
		l.emit("movq %s, %%rdi", l.src(0))
		l.call("free")
	case ir.Print, ir.Println:
		f := printFmt
		if in.Op == ir.Println {
			f = printlnFmt
		}

		l.emit("pushq %%rsi")
		l.emit("pushq %%rdi")
		l.emit("movq %s, %%rsi", l.src(0))
		l.emit("movq $%s, %%rdi", f)
		l.emit("movq $0, %%rax")
		l.call("printf")
		l.emit("popq %%rdi")
		l.emit("popq %%rsi")
	case ir.Read:
		l.emit("pushq %%rsi")
		l.emit("pushq %%rdi")
		l.emit("leaq %s, %%rsi", ReadAddr(fr))
		l.emit("movq $%s, %%rdi", readFmt)
		l.emit("movq $0, %%rax")
		l.call("scanf")
		l.emit("popq %%rdi")
		l.emit("popq %%rsi")
		l.emit("movq %s, %s", ReadAddr(fr), l.dst())
	default:
		return nil, errors.New("unsupported op: %v", in.Op)
	}

	return l.b, nil
}

func (l *lowering) commutative(op string) {
	s0, s1, d := l.src(0), l.src(1), l.dst()

	switch {
	case d == s0:
		l.emit("%s %s, %s", op, s1, d)
	case d == s1:
		l.emit("%s %s, %s", op, s0, d)
	default:
		l.emit("movq %s, %s", s0, d)
		l.emit("%s %s, %s", op, s1, d)
	}
}

func (l *lowering) call(name string) {
	l.emit("pushq %%r10")
	l.emit("pushq %%r11")
	l.emit("call %s", name)
	l.emit("popq %%r11")
	l.emit("popq %%r10")
}

func (l *lowering) src(i int) string {
	return "%" + l.ops.Reg(l.in.Src[i])
}

func (l *lowering) dst() string {
	return "%" + l.ops.Reg(l.in.Dst)
}

func (l *lowering) emit(format string, args ...any) {
	l.b = append(l.b, fmt.Sprintf(format, args...))
}

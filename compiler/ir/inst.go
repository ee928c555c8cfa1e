package ir

import (
	"fmt"
	"strconv"
)

type (
	// shape lists operands in text order:
	// S source, D target, I immediate, Y symbol, N number, L label, C condition register.
	shape string

	opInfo struct {
		name  string
		shape shape
	}
)

var ops = [numOps]opInfo{
	Nop: {"nop", ""},

	Loadi:      {"loadi", "ID"},
	Loadai:     {"loadai", "SID"},
	LoadGlobal: {"loadglobal", "YD"},
	LoadArg:    {"loadinargument", "YND"},
	LoadRet:    {"loadret", "D"},
	FormalAddr: {"computeformaladdress", "YND"},
	GlobalAddr: {"computeglobaladdress", "YD"},

	Storeai:     {"storeai", "SSI"},
	StoreGlobal: {"storeglobal", "SY"},
	StoreArg:    {"storeinargument", "SYN"},
	StoreRet:    {"storeret", "S"},

	Add:   {"add", "SSD"},
	Sub:   {"sub", "SSD"},
	Mult:  {"mult", "SSD"},
	Div:   {"div", "SSD"},
	Addi:  {"addi", "SID"},
	Subi:  {"subi", "SID"},
	Multi: {"multi", "SID"},
	And:   {"and", "SSD"},
	Or:    {"or", "SSD"},
	Xori:  {"xori", "SID"},

	Mov:  {"mov", "SD"},
	CMov: {"mov", "CSD"},

	Comp:  {"comp", "SS"},
	Compi: {"compi", "SI"},
	Cbr:   {"cbr", "CLL"},
	Jumpi: {"jumpi", "L"},

	Call:    {"call", "Y"},
	New:     {"new", "ND"},
	Del:     {"del", "S"},
	Print:   {"print", "S"},
	Println: {"println", "S"},
	Read:    {"read", "D"},
}

func (op Op) String() string {
	if op < 0 || op >= numOps {
		return fmt.Sprintf("op(%d)", int(op))
	}

	return ops[op].name
}

func (op Op) shape() shape {
	if op < 0 || op >= numOps {
		return ""
	}

	return ops[op].shape
}

// Operands lists operand kinds in text order, see shape.
func (op Op) Operands() string { return string(op.shape()) }

// Conditional reports whether the mnemonic carries a condition suffix.
func (op Op) Conditional() bool { return op == CMov || op == Cbr }

func (op Op) HasDst() bool {
	for _, c := range op.shape() {
		if c == 'D' {
			return true
		}
	}

	return false
}

// Sources is the number of explicit source operands in the text form.
func (op Op) Sources() (n int) {
	for _, c := range op.shape() {
		if c == 'S' {
			n++
		}
	}

	return n
}

func (op Op) Labels() (n int) {
	for _, c := range op.shape() {
		if c == 'L' {
			n++
		}
	}

	return n
}

// Lookup finds the op for a mnemonic. Conditional mnemonics carry
// the condition suffix.
func Lookup(name string) (Op, Cond, bool) {
	for op := Op(1); op < numOps; op++ {
		info := ops[op]

		if !op.Conditional() {
			if info.name == name {
				return op, 0, true
			}

			continue
		}

		if len(name) <= len(info.name) || name[:len(info.name)] != info.name {
			continue
		}

		if c, ok := ParseCond(name[len(info.name):]); ok {
			return op, c, true
		}
	}

	return Nop, 0, false
}

func (in Inst) Kind() Kind {
	switch {
	case in.Pin:
		return Immovable
	case in.Op == Call, in.Op == New, in.Op == Del, in.Op == Print, in.Op == Println, in.Op == Read:
		return CallLike
	}

	return Normal
}

func (in Inst) IsJump() bool { return in.Op == Jumpi || in.Op == Cbr }

func (in Inst) IsUncondJump() bool { return in.Op == Jumpi }

func (in Inst) IsMove() bool { return in.Op == Mov }

// Stores reports whether the instruction writes memory or outgoing state.
func (in Inst) Stores() bool {
	switch in.Op {
	case Storeai, StoreGlobal, StoreArg, StoreRet:
		return true
	}

	return false
}

func (in Inst) JumpsTo(b Block) bool {
	if !in.IsJump() {
		return false
	}

	for _, t := range in.To {
		if t == b {
			return true
		}
	}

	return false
}

func (in Inst) Reads(r Reg) bool {
	for _, s := range in.Src {
		if s == r {
			return true
		}
	}

	return false
}

func (in Inst) Writes(r Reg) bool {
	return r != NoReg && in.Dst == r
}

func (in Inst) References(r Reg) bool {
	return in.Reads(r) || in.Writes(r)
}

// ReadsOwnTarget is true for instructions keeping the old target value on some path.
func (in Inst) ReadsOwnTarget() bool {
	return in.Dst != NoReg && in.Reads(in.Dst)
}

// Replace renames every reference to from.
func (in *Inst) Replace(from, to Reg) {
	for i, s := range in.Src {
		if s == from {
			in.Src[i] = to
		}
	}

	if in.Dst == from {
		in.Dst = to
	}
}

func (in Inst) Clone() Inst {
	in.Src = append([]Reg(nil), in.Src...)
	in.To = append([]Block(nil), in.To...)

	return in
}

func (in Inst) String() string {
	return string(in.Format(nil, nil))
}

// Format appends ILOC text. Labels are resolved with label, L<id> is used if it's nil.
func (in Inst) Format(b []byte, label func(Block) string) []byte {
	b = append(b, in.Op.String()...)
	if in.Op.Conditional() {
		b = append(b, in.Cond.String()...)
	}

	src, to := 0, 0

	for i, c := range in.Op.shape() {
		if i == 0 {
			b = append(b, ' ')
		} else {
			b = append(b, ", "...)
		}

		switch c {
		case 'S':
			var r Reg = NoReg
			if src < len(in.Src) {
				r = in.Src[src]
			}

			src++

			b = appendReg(b, r)
		case 'D':
			b = appendReg(b, in.Dst)
		case 'I':
			b = strconv.AppendInt(b, in.Imm, 10)
		case 'Y':
			b = append(b, in.Sym...)
		case 'N':
			b = strconv.AppendInt(b, int64(in.Num), 10)
		case 'C':
			b = append(b, "ccr"...)
		case 'L':
			var t Block = NoBlock
			if to < len(in.To) {
				t = in.To[to]
			}

			to++

			switch {
			case label != nil:
				b = append(b, label(t)...)
			default:
				b = append(b, 'L')
				b = strconv.AppendInt(b, int64(t), 10)
			}
		}
	}

	return b
}

func appendReg(b []byte, r Reg) []byte {
	if r == NoReg {
		return append(b, "r?"...)
	}

	b = append(b, 'r')

	return strconv.AppendInt(b, int64(r), 10)
}

package ir

import "tlog.app/go/tlog/tlwire"

type (
	Reg   int
	Block int

	Op   int
	Kind int
	Cond int

	Inst struct {
		Op Op

		Src []Reg
		Dst Reg

		Imm  int64
		Cond Cond
		Sym  string
		Num  int

		To []Block

		// Pin binds the instruction to its position, see Immovable.
		Pin bool
	}
)

const (
	NoReg   Reg   = -1
	NoBlock Block = -1
)

const (
	Normal Kind = iota
	Immovable
	CallLike
)

const (
	EQ Cond = iota
	GE
	GT
	LE
	LT
	NE
)

const (
	Nop Op = iota

	Loadi
	Loadai
	LoadGlobal
	LoadArg
	LoadRet
	FormalAddr
	GlobalAddr

	Storeai
	StoreGlobal
	StoreArg
	StoreRet

	Add
	Sub
	Mult
	Div
	Addi
	Subi
	Multi
	And
	Or
	Xori

	Mov
	CMov

	Comp
	Compi
	Cbr
	Jumpi

	Call
	New
	Del
	Print
	Println
	Read

	numOps
)

var conds = [...]string{EQ: "eq", GE: "ge", GT: "gt", LE: "le", LT: "lt", NE: "ne"}

func (c Cond) String() string {
	if c < 0 || int(c) >= len(conds) {
		return "??"
	}

	return conds[c]
}

// Reverse returns the condition that holds when the operands are swapped.
func (c Cond) Reverse() Cond {
	switch c {
	case GE:
		return LE
	case GT:
		return LT
	case LE:
		return GE
	case LT:
		return GT
	}

	return c
}

func ParseCond(s string) (Cond, bool) {
	for c, n := range conds {
		if n == s {
			return Cond(c), true
		}
	}

	return 0, false
}

func (k Kind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Immovable:
		return "immovable"
	case CallLike:
		return "call"
	}

	return "??"
}

func (r Reg) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if r == NoReg {
		return e.AppendNil(b)
	}

	return e.AppendInt(b, int(r))
}

func (x Block) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if x == NoBlock {
		return e.AppendNil(b)
	}

	return e.AppendInt(b, int(x))
}

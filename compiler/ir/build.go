package ir

func LoadImm(imm int64, d Reg) Inst {
	return Inst{Op: Loadi, Imm: imm, Dst: d}
}

func Arith(op Op, l, r, d Reg) Inst {
	return Inst{Op: op, Src: []Reg{l, r}, Dst: d}
}

// ArithImm builds loadai and the immediate arithmetic forms.
func ArithImm(op Op, s Reg, imm int64, d Reg) Inst {
	return Inst{Op: op, Src: []Reg{s}, Imm: imm, Dst: d}
}

func Move(s, d Reg) Inst {
	return Inst{Op: Mov, Src: []Reg{s}, Dst: d}
}

func CondMove(c Cond, s, d Reg) Inst {
	return Inst{Op: CMov, Cond: c, Src: []Reg{s, d}, Dst: d}
}

func Compare(l, r Reg) Inst {
	return Inst{Op: Comp, Src: []Reg{l, r}, Dst: NoReg}
}

func CompareImm(s Reg, imm int64) Inst {
	return Inst{Op: Compi, Src: []Reg{s}, Imm: imm, Dst: NoReg}
}

func Jump(to Block) Inst {
	return Inst{Op: Jumpi, To: []Block{to}, Dst: NoReg}
}

func Branch(c Cond, taken, other Block) Inst {
	return Inst{Op: Cbr, Cond: c, To: []Block{taken, other}, Dst: NoReg}
}

func Store(s, base Reg, off int64) Inst {
	return Inst{Op: Storeai, Src: []Reg{s, base}, Imm: off, Dst: NoReg}
}

// Use builds single-source instructions without a target: del, print, println, storeret.
func Use(op Op, s Reg) Inst {
	return Inst{Op: op, Src: []Reg{s}, Dst: NoReg}
}

// Def builds instructions defining d from nothing: loadret, read.
func Def(op Op, d Reg) Inst {
	return Inst{Op: op, Dst: d}
}

func CallFunc(name string) Inst {
	return Inst{Op: Call, Sym: name, Dst: NoReg}
}

func LoadArgument(name string, n int, d Reg, pin bool) Inst {
	return Inst{Op: LoadArg, Sym: name, Num: n, Dst: d, Pin: pin}
}

func StoreArgument(s Reg, name string, n int) Inst {
	return Inst{Op: StoreArg, Src: []Reg{s}, Sym: name, Num: n, Dst: NoReg}
}

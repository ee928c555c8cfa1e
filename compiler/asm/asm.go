package asm

import "github.com/slowlang/ilocc/compiler/ir"

type (
	// Frame describes one function's stack frame.
	// Slots are 8 bytes: Locals covers parameters and locals,
	// one extra slot is kept for reads, then Spills spill slots.
	// Returns is set if the function stores a return value.
	Frame struct {
		Name    string
		Main    bool
		Returns bool
		Locals  int
		Spills  int
	}

	// Operands resolves instruction operands to physical names.
	// Spilled registers are already mapped to the scratch register.
	Operands interface {
		Reg(r ir.Reg) string
		Label(b ir.Block) string
	}

	Arch interface {
		Palette() []string
		Scratch() string

		Header(b []byte, globals []string) []byte

		Prologue(b []string, fr *Frame) []string
		Epilogue(b []string, fr *Frame) []string

		Load(b []string, fr *Frame, slot int, reg string) []string
		Store(b []string, fr *Frame, slot int, reg string) []string

		Lower(b []string, in ir.Inst, ops Operands, fr *Frame) ([]string, error)
	}
)

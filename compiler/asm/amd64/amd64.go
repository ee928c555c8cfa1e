package amd64

import (
	"fmt"

	"github.com/slowlang/ilocc/compiler/asm"
)

type (
	Arch struct{}
)

const (
	printFmt   = ".LC0"
	printlnFmt = ".LC1"
	readFmt    = ".LC2"

	globPrefix = "glob_"
)

var (
	palette = []string{"r10", "r11", "r12", "r13", "r14", "r15"}
	scratch = "rbx"

	params = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

	calleeSaved = []string{"rbx", "r12", "r13", "r14", "r15"}

	_ asm.Arch = Arch{}
)

func New() Arch { return Arch{} }

func (Arch) Palette() []string { return palette }

func (Arch) Scratch() string { return scratch }

func (Arch) Header(b []byte, globals []string) []byte {
	b = fmt.Appendf(b, "\t.section .rodata\n")
	b = fmt.Appendf(b, "%s:\n\t.string \"%%ld \"\n", printFmt)
	b = fmt.Appendf(b, "%s:\n\t.string \"%%ld\\n\"\n", printlnFmt)
	b = fmt.Appendf(b, "%s:\n\t.string \"%%ld\"\n", readFmt)
	b = fmt.Appendf(b, "\t.text\n")

	for _, g := range globals {
		b = fmt.Appendf(b, "\t.comm %s%s, 8, 8\n", globPrefix, g)
	}

	b = fmt.Appendf(b, ".globl main\n\t.type main, @function\n")

	return b
}

func saved(fr *asm.Frame) []string {
	if fr.Main {
		return nil
	}

	return calleeSaved
}

func base(fr *asm.Frame) int {
	return 8 * len(saved(fr))
}

// FrameSize is the size subtracted from the stack pointer after callee saves.
// It keeps the stack 16-byte aligned at call sites.
func FrameSize(fr *asm.Frame) int {
	size := 8 * (fr.Locals + 1 + fr.Spills)

	if (base(fr)+size)%16 != 0 {
		size += 8
	}

	return size
}

func LocalAddr(fr *asm.Frame, n int) string {
	return fmt.Sprintf("-%d(%%rbp)", base(fr)+8*(n+1))
}

func ReadAddr(fr *asm.Frame) string {
	return LocalAddr(fr, fr.Locals)
}

func SpillAddr(fr *asm.Frame, slot int) string {
	return LocalAddr(fr, fr.Locals+1+slot)
}

func (Arch) Prologue(b []string, fr *asm.Frame) []string {
	b = append(b, "pushq %rbp", "movq %rsp, %rbp")

	for _, r := range saved(fr) {
		b = append(b, "pushq %"+r)
	}

	return append(b, fmt.Sprintf("subq $%d, %%rsp", FrameSize(fr)))
}

func (Arch) Epilogue(b []string, fr *asm.Frame) []string {
	b = append(b, fmt.Sprintf("addq $%d, %%rsp", FrameSize(fr)))

	// exit status
	if fr.Main && !fr.Returns {
		b = append(b, "xorl %eax, %eax")
	}

	s := saved(fr)
	for i := len(s) - 1; i >= 0; i-- {
		b = append(b, "popq %"+s[i])
	}

	return append(b, "leave", "ret", fmt.Sprintf(".size %s, .-%[1]s", fr.Name))
}

func (Arch) Load(b []string, fr *asm.Frame, slot int, reg string) []string {
	return append(b, fmt.Sprintf("movq %s, %%%s", SpillAddr(fr, slot), reg))
}

func (Arch) Store(b []string, fr *asm.Frame, slot int, reg string) []string {
	return append(b, fmt.Sprintf("movq %%%s, %s", reg, SpillAddr(fr, slot)))
}

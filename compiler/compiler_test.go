package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFib(t *testing.T) {
	obj, err := CompileFile(context.Background(), "testdata/fib.il", Options{})
	require.NoError(t, err)

	s := string(obj)

	assert.Contains(t, s, ".globl main\n")
	assert.Contains(t, s, "fib:\nfib_entry:\n\tpushq %rbp\n")
	assert.Contains(t, s, "\tcall fib\n")
	assert.Contains(t, s, "\tmovq %r12, %r15\n\taddq %r14, %r15\n")
	assert.Contains(t, s, ".size fib, .-fib\n")
	assert.Contains(t, s, ".size main, .-main\n")
	assert.NotContains(t, s, "jmp fib_exit\nfib_exit:")
}

func TestCompileRegs(t *testing.T) {
	obj, err := CompileFile(context.Background(), "testdata/loop.il", Options{Regs: 1})
	require.NoError(t, err)

	assert.Contains(t, string(obj), "%rbx")
	assert.Contains(t, string(obj), "-24(%rbp)")
}

func TestCompileSpillAll(t *testing.T) {
	_, err := CompileFile(context.Background(), "testdata/loop.il", Options{SpillAll: true})
	assert.ErrorContains(t, err, "two spilled sources")
}

func TestCompileMissingFile(t *testing.T) {
	_, err := CompileFile(context.Background(), "testdata/nope.il", Options{})
	assert.Error(t, err)
}

func TestILOC(t *testing.T) {
	ctx := context.Background()

	text, err := ILOC(ctx, "loop.il", []byte(loop(t)), Options{})
	require.NoError(t, err)

	assert.Equal(t, `.global total
.func main 0 1
main:
	read r0
	loadi 0, r1
main_0: depth=1 end=main_2
	compi r0, 0
	cbrle ccr, main_2, main_1
main_1: depth=1
	add r1, r0, r1
	subi r0, 1, r0
	jumpi main_0
main_2:
	println r1
main_exit:
.end
`, string(text))

	again, err := ILOC(ctx, "loop2.il", text, Options{})
	require.NoError(t, err)

	assert.Equal(t, string(text), string(again))
}

func TestILOCOptions(t *testing.T) {
	ctx := context.Background()
	src := []byte(`.func main 0 0
main:
	loadi 1, r0
	mov r0, r1
	loadi 2, r2
	println r1
main_exit:
.end
`)

	text, err := ILOC(ctx, "t.il", src, Options{})
	require.NoError(t, err)
	assert.Equal(t, ".func main 0 0\nmain:\n\tloadi 1, r0\n\tprintln r0\nmain_exit:\n.end\n", string(text))

	text, err = ILOC(ctx, "t.il", src, Options{NoCopyProp: true})
	require.NoError(t, err)
	assert.Equal(t, ".func main 0 0\nmain:\n\tloadi 1, r0\n\tmov r0, r1\n\tprintln r1\nmain_exit:\n.end\n", string(text))

	text, err = ILOC(ctx, "t.il", src, Options{NoCopyProp: true, KeepDead: true})
	require.NoError(t, err)
	assert.Contains(t, string(text), "\tloadi 2, r2\n")
}

func TestDot(t *testing.T) {
	b, err := Dot(context.Background(), "loop.il", []byte(loop(t)))
	require.NoError(t, err)

	assert.Contains(t, string(b), "digraph \"main\" {\n")
	assert.Contains(t, string(b), "\t\"main_0\" -> \"main_2\" [style=dashed];\n")
}

func loop(t *testing.T) string {
	t.Helper()

	return `.global total
.func main 0 1
main:
	read r0
	loadi 0, r1
	jumpi main_0
main_0: depth=1 end=main_2
	compi r0, 0
	cbrle ccr, main_2, main_1
main_1: depth=1
	add r1, r0, r1
	subi r0, 1, r0
	jumpi main_0
main_2:
	println r1
main_exit:
.end
`
}

package back

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/ilocc/compiler/ir"
)

type randomProg struct {
	rnd   *rand.Rand
	nregs int
	f     *Function
}

// run interprets f along its control flow graph and returns printed values.
// A block without a trailing jump falls through to the next scheduled block.
func run(t *testing.T, f *Function, input []int64) (out []int64) {
	t.Helper()

	regs := map[ir.Reg]int64{}
	for i, v := range input {
		regs[ir.Reg(i)] = v
	}

	order := f.SortBlocks()
	next := map[ir.Block]ir.Block{}

	for i := 0; i+1 < len(order); i++ {
		next[order[i]] = order[i+1]
	}

	var ccr int64

	b := f.Entry

	for steps := 0; ; steps++ {
		require.Less(t, steps, 1000, "too many steps")

		to := ir.NoBlock

		for _, in := range f.Blocks[b].Code {
			switch in.Op {
			case ir.Loadi:
				regs[in.Dst] = in.Imm
			case ir.Add:
				regs[in.Dst] = regs[in.Src[0]] + regs[in.Src[1]]
			case ir.Sub:
				regs[in.Dst] = regs[in.Src[0]] - regs[in.Src[1]]
			case ir.Addi:
				regs[in.Dst] = regs[in.Src[0]] + in.Imm
			case ir.Mov:
				regs[in.Dst] = regs[in.Src[0]]
			case ir.Print:
				out = append(out, regs[in.Src[0]])
			case ir.Compi:
				ccr = regs[in.Src[0]] - in.Imm
			case ir.Jumpi:
				to = in.To[0]
			case ir.Cbr:
				to = in.To[1]
				if holds(in.Cond, ccr) {
					to = in.To[0]
				}
			default:
				t.Fatalf("unexpected op: %v", in.Op)
			}
		}

		if b == f.Exit {
			return out
		}

		if to == ir.NoBlock {
			var ok bool

			to, ok = next[b]
			require.True(t, ok, "no fallthrough from %v", f.Label(b))
		}

		b = to
	}
}

func holds(c ir.Cond, x int64) bool {
	switch c {
	case ir.EQ:
		return x == 0
	case ir.NE:
		return x != 0
	case ir.LT:
		return x < 0
	case ir.LE:
		return x <= 0
	case ir.GT:
		return x > 0
	default:
		return x >= 0
	}
}

func (p *randomProg) reg() ir.Reg { return ir.Reg(p.rnd.Intn(p.nregs)) }

func (p *randomProg) code(b ir.Block, n int) {
	for i := 0; i < n; i++ {
		var in ir.Inst

		switch p.rnd.Intn(6) {
		case 0:
			in = ir.LoadImm(p.rnd.Int63n(100), p.reg())
		case 1:
			in = ir.Arith(ir.Add, p.reg(), p.reg(), p.reg())
		case 2:
			in = ir.Arith(ir.Sub, p.reg(), p.reg(), p.reg())
		case 3:
			in = ir.ArithImm(ir.Addi, p.reg(), p.rnd.Int63n(10), p.reg())
		case 4:
			in = ir.Move(p.reg(), p.reg())
		case 5:
			in = ir.Use(ir.Print, p.reg())
		}

		p.f.AddInstruction(b, in)
	}
}

func (p *randomProg) jump(from, to ir.Block) {
	p.f.AddInstruction(from, ir.Jump(to))
	p.f.AddEdge(from, to, false)
}

// randomFunc builds straight-line code only.
func randomFunc(rnd *rand.Rand, nregs, n int) *Function {
	p := &randomProg{rnd: rnd, nregs: nregs, f: newFunc("f")}

	for i := 0; i < nregs; i++ {
		p.f.NewReg()
	}

	p.code(p.f.Entry, n)
	p.jump(p.f.Entry, p.f.Exit)

	return p.f
}

// randomCFG builds entry, a diamond, a counted loop and the exit, each filled with random code.
// The then arm returns early on some seeds.
func randomCFG(rnd *rand.Rand, nregs, n int) *Function {
	p := &randomProg{rnd: rnd, nregs: nregs, f: newFunc("f")}
	f := p.f

	for i := 0; i < nregs; i++ {
		f.NewReg()
	}

	cnt := f.NewReg()

	f.EnterConditional()
	then, els := f.NewBlock(), f.NewBlock()
	f.ExitConditional()

	join := f.NewBlock()

	f.EnterLoop()
	head, body := f.NewBlock(), f.NewBlock()
	f.ExitLoop()

	after := f.NewBlock()

	p.code(f.Entry, n)
	f.AddInstruction(f.Entry, ir.CompareImm(p.reg(), 2000))
	f.AddInstruction(f.Entry, ir.Branch(ir.LT, then, els))
	f.AddEdge(f.Entry, then, false)
	f.AddEdge(f.Entry, els, false)

	p.code(then, n/2)

	if rnd.Intn(2) == 0 {
		p.jump(then, f.Exit)
	} else {
		p.jump(then, join)
	}

	p.code(els, n/2)
	p.jump(els, join)

	p.code(join, n/2)
	f.AddInstruction(join, ir.LoadImm(int64(rnd.Intn(4)), cnt))
	p.jump(join, head)

	f.AddInstruction(head, ir.CompareImm(cnt, 0))
	f.AddInstruction(head, ir.Branch(ir.LE, after, body))
	f.AddEdge(head, after, true)
	f.AddEdge(head, body, false)

	p.code(body, n/2)
	f.AddInstruction(body, ir.ArithImm(ir.Addi, cnt, -1, cnt))
	f.AddInstruction(body, ir.Jump(head))
	f.AddEdge(body, head, true)

	p.code(after, n/2)
	p.jump(after, f.Exit)

	p.code(f.Exit, n/4)

	return f
}

func optimize(f *Function) {
	f.Clean()
	f.CopyPropagation()
	f.TargetPropagation()
	f.RemoveDead()
}

func TestOptimizationsPreserveBehavior(t *testing.T) {
	const nregs = 5

	rnd := rand.New(rand.NewSource(1))

	input := make([]int64, nregs)
	for i := range input {
		input[i] = int64(1000 * (i + 1))
	}

	for k := 0; k < 500; k++ {
		seed := rnd.Int63()

		orig := randomFunc(rand.New(rand.NewSource(seed)), nregs, 20)
		opt := randomFunc(rand.New(rand.NewSource(seed)), nregs, 20)

		optimize(opt)

		require.Equal(t, run(t, orig, input), run(t, opt, input), "seed %d\n%s\n%s", seed, orig.ILOC(nil), opt.ILOC(nil))
	}
}

func TestOptimizationsPreserveBehaviorCFG(t *testing.T) {
	const nregs = 5

	rnd := rand.New(rand.NewSource(2))

	inputs := [][]int64{
		{1000, 2000, 3000, 4000, 5000},
		{3000, 1000, 500, 4000, 2500},
	}

	for k := 0; k < 1000; k++ {
		seed := rnd.Int63()

		for _, input := range inputs {
			orig := randomCFG(rand.New(rand.NewSource(seed)), nregs, 12)
			opt := randomCFG(rand.New(rand.NewSource(seed)), nregs, 12)

			optimize(opt)

			require.Equal(t, run(t, orig, input), run(t, opt, input), "seed %d\n%s\n%s", seed, orig.ILOC(nil), opt.ILOC(nil))
		}
	}
}

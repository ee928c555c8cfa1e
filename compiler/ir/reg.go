package ir

import (
	"sort"

	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"
)

type (
	// Range is an inclusive [start, end] span of instruction positions local to a block.
	// Start -1 is the block entry, end len(code) is past the last instruction.
	Range [2]int

	Virtual struct {
		ID Reg

		Color int
		Slot  int

		NoProp bool

		Live map[Block]Range
	}
)

func NewVirtual(id Reg) Virtual {
	return Virtual{
		ID:    id,
		Color: -1,
		Slot:  -1,
	}
}

func (r Range) Len() int { return r[1] - r[0] + 1 }

func (r Range) Overlaps(x Range) bool {
	return r[0] <= x[1] && x[0] <= r[1]
}

func (v *Virtual) Spilled() bool { return v.Slot >= 0 }

func (v *Virtual) Assigned() bool { return v.Color >= 0 || v.Slot >= 0 }

func (v *Virtual) Assign(color int) error {
	if v.Assigned() {
		return errors.New("r%d: already assigned (color %d, slot %d)", v.ID, v.Color, v.Slot)
	}

	v.Color = color

	return nil
}

func (v *Virtual) Spill(slot int) error {
	if v.Assigned() {
		return errors.New("r%d: already assigned (color %d, slot %d)", v.ID, v.Color, v.Slot)
	}

	v.Slot = slot

	return nil
}

// Phys returns the physical register color.
func (v *Virtual) Phys() (int, error) {
	if v.Color < 0 {
		return -1, errors.New("r%d: physical register not yet assigned", v.ID)
	}

	return v.Color, nil
}

func (v *Virtual) SetRange(b Block, start, end int) {
	if v.Live == nil {
		v.Live = make(map[Block]Range)
	}

	v.Live[b] = Range{start, end}
}

func (v *Virtual) ResetLive() {
	v.Live = nil
}

func (v *Virtual) TotalRange() (n int) {
	for _, r := range v.Live {
		n += r.Len()
	}

	return n
}

func (v *Virtual) Overlaps(x *Virtual) bool {
	if v == x || v.ID == x.ID {
		return false
	}

	for b, r := range v.Live {
		o, ok := x.Live[b]
		if ok && r.Overlaps(o) {
			return true
		}
	}

	return false
}

func (r Range) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	b = e.AppendTag(b, tlwire.Array, 2)
	b = e.AppendInt(b, r[0])
	b = e.AppendInt(b, r[1])

	return b
}

func (v Virtual) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	blocks := make([]Block, 0, len(v.Live))
	for x := range v.Live {
		blocks = append(blocks, x)
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	b = e.AppendMap(b, 4)
	b = e.AppendKeyInt(b, "id", int(v.ID))
	b = e.AppendKeyInt(b, "color", v.Color)
	b = e.AppendKeyInt(b, "slot", v.Slot)

	b = e.AppendKey(b, "live")
	b = e.AppendMap(b, len(blocks))

	for _, x := range blocks {
		b = e.AppendInt(b, int(x))
		b = v.Live[x].TlogAppend(b)
	}

	return b
}

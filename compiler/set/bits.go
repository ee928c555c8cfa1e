package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	Key interface {
		~int | ~int64
	}

	// Bits is a dense bit set. Copies share storage, use Copy to detach.
	Bits[K Key] struct {
		b []uint64
	}
)

func MakeBits[K Key](k ...K) Bits[K] {
	var s Bits[K]

	for _, k := range k {
		s.Set(k)
	}

	return s
}

func (s Bits[K]) Copy() Bits[K] {
	return Bits[K]{b: append([]uint64(nil), s.b...)}
}

func (s *Bits[K]) Set(k K) {
	i, j := s.ij(k)

	s.grow(i)

	s.b[i] |= 1 << j
}

func (s Bits[K]) IsSet(k K) bool {
	if k < 0 {
		return false
	}

	i, j := s.ij(k)

	if i >= len(s.b) {
		return false
	}

	return s.b[i]&(1<<j) != 0
}

func (s *Bits[K]) Clear(k K) {
	i, j := s.ij(k)

	if i >= len(s.b) {
		return
	}

	s.b[i] &^= 1 << j
}

// Merge adds all of x and reports whether s grew.
func (s *Bits[K]) Merge(x Bits[K]) (changed bool) {
	s.grow(len(x.b) - 1)

	for i, x := range x.b {
		if x&^s.b[i] != 0 {
			changed = true
		}

		s.b[i] |= x
	}

	return changed
}

func (s *Bits[K]) Substract(x Bits[K]) {
	n := min(len(s.b), len(x.b))

	for i, x := range x.b[:n] {
		s.b[i] &^= x
	}
}

func (s Bits[K]) Size() (r int) {
	for _, c := range s.b {
		r += bits.OnesCount64(c)
	}

	return r
}

func (s Bits[K]) Range(f func(k K) bool) {
	for i, x := range s.b {
		for x != 0 {
			j := bits.TrailingZeros64(x)
			x &^= 1 << j

			if !f(K(i*64 + j)) {
				return
			}
		}
	}
}

// Slice returns set members in ascending order.
func (s Bits[K]) Slice() (r []K) {
	s.Range(func(k K) bool {
		r = append(r, k)
		return true
	})

	return r
}

// FirstUnset returns the smallest key not in the set.
func (s Bits[K]) FirstUnset() K {
	for i, x := range s.b {
		if x != ^uint64(0) {
			return K(i*64 + bits.TrailingZeros64(^x))
		}
	}

	return K(len(s.b) * 64)
}

func (s *Bits[K]) Reset() {
	for i := range s.b {
		s.b[i] = 0
	}

	s.b = s.b[:0]
}

func (s Bits[K]) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s.b == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(k K) bool {
		b = e.AppendInt(b, int(k))

		return true
	})

	b = e.AppendBreak(b)

	return b
}

func (s *Bits[K]) ij(k K) (i int, j int) {
	p := int(k)

	return p / 64, p % 64
}

func (s *Bits[K]) grow(i int) {
	for i >= len(s.b) {
		s.b = append(s.b, 0)
	}
}

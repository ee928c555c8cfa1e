package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBits(t *testing.T) {
	s := MakeBits(1, 3, 70)

	assert.True(t, s.IsSet(1))
	assert.True(t, s.IsSet(70))
	assert.False(t, s.IsSet(2))
	assert.False(t, s.IsSet(1000))
	assert.False(t, s.IsSet(-1))
	assert.Equal(t, 3, s.Size())
	assert.Equal(t, []int{1, 3, 70}, s.Slice())

	s.Clear(3)
	s.Clear(500)
	assert.Equal(t, []int{1, 70}, s.Slice())
}

func TestBitsMerge(t *testing.T) {
	s := MakeBits(1, 2)
	x := MakeBits(2, 130)

	assert.True(t, s.Merge(x))
	assert.False(t, s.Merge(x))
	assert.False(t, s.Merge(MakeBits[int]()))
	assert.Equal(t, []int{1, 2, 130}, s.Slice())

	s.Substract(MakeBits(1, 130))
	assert.Equal(t, []int{2}, s.Slice())
}

func TestBitsCopy(t *testing.T) {
	s := MakeBits(5)
	c := s.Copy()
	c.Set(6)

	assert.False(t, s.IsSet(6))
	assert.True(t, c.IsSet(5))
}

func TestBitsFirstUnset(t *testing.T) {
	s := MakeBits[int]()
	assert.Equal(t, 0, s.FirstUnset())

	s = MakeBits(0, 1, 3)
	assert.Equal(t, 2, s.FirstUnset())

	for i := 0; i < 64; i++ {
		s.Set(i)
	}

	assert.Equal(t, 64, s.FirstUnset())

	s.Reset()
	assert.Equal(t, 0, s.Size())
}

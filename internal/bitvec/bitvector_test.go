package bitvec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetTestClear(t *testing.T) {
	b := New(true)
	b.Set(3)
	b.Set(40)
	require.True(t, b.Test(3))
	require.True(t, b.Test(40))
	require.False(t, b.Test(4))

	b.Clear(3)
	require.False(t, b.Test(3))
	require.True(t, b.Test(40))
}

func TestNonExpandableSetPanics(t *testing.T) {
	b := NewSized(8, false)
	require.Panics(t, func() { b.Set(100) })
}

func TestClearPastStorageIsNoop(t *testing.T) {
	b := NewSized(8, false)
	require.NotPanics(t, func() { b.Clear(500) })
}

func TestUnionIntersectSubtract(t *testing.T) {
	a := New(true)
	a.Set(1)
	a.Set(2)
	c := New(true)
	c.Set(2)
	c.Set(3)

	union := a.Clone()
	union.Union(c)
	require.Equal(t, []int{1, 2, 3}, union.Indices())

	inter := a.Clone()
	inter.Intersect(c)
	require.Equal(t, []int{2}, inter.Indices())

	sub := a.Clone()
	sub.Subtract(c)
	require.Equal(t, []int{1}, sub.Indices())
}

func TestEqualAndCopy(t *testing.T) {
	a := New(true)
	a.Set(5)
	a.Set(70)
	b := New(true)
	require.False(t, a.Equal(b))

	b.Copy(a)
	require.True(t, a.Equal(b))
}

func TestPopCountAndIsEmpty(t *testing.T) {
	b := New(true)
	require.True(t, b.IsEmpty())

	b.Set(0)
	b.Set(31)
	b.Set(32)
	require.False(t, b.IsEmpty())
	require.Equal(t, 3, b.PopCount())
}

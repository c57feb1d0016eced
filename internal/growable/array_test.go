package growable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertGetSet(t *testing.T) {
	a := New[int](0)
	a.Insert(1)
	a.Insert(2)
	a.Insert(3)
	require.Equal(t, 3, a.Len())
	require.Equal(t, 2, a.Get(1))

	a.Set(1, 20)
	require.Equal(t, 20, a.Get(1))
	require.Equal(t, []int{1, 20, 3}, a.Slice())
}

func TestGrowsPastInitialCapacity(t *testing.T) {
	a := New[int](0)
	for i := 0; i < 200; i++ {
		a.Insert(i)
	}
	require.Equal(t, 200, a.Len())
	for i := 0; i < 200; i++ {
		require.Equal(t, i, a.Get(i))
	}
}

func TestResetKeepsBackingArray(t *testing.T) {
	a := New[int](8)
	a.Insert(1)
	a.Insert(2)
	before := cap(a.Slice())
	a.Reset()
	require.Equal(t, 0, a.Len())
	require.Equal(t, before, cap(a.Slice()))
}

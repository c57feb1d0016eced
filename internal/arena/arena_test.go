package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocReturnsZeroedAlignedMemory(t *testing.T) {
	pool := NewPool(nil)
	a := NewAllocator(pool)
	defer a.Release()

	buf := a.Alloc(10, KindMIR)
	require.Len(t, buf, 10)
	for _, b := range buf {
		require.Zero(t, b)
	}
	require.Equal(t, 12, a.BytesAllocatedByKind(KindMIR)) // rounded up to 4-byte alignment
}

func TestAllocGrowsChainOnOverflow(t *testing.T) {
	pool := NewPool(nil)
	a := NewAllocator(pool)
	defer a.Release()

	a.Alloc(DefaultSize, KindMisc)
	a.Alloc(16, KindMisc) // must chain a new arena rather than panic/overflow
	require.GreaterOrEqual(t, a.BytesAllocated(), DefaultSize+16)
}

func TestReleaseReturnsArenaToPoolForReuse(t *testing.T) {
	pool := NewPool(nil)
	a1 := NewAllocator(pool)
	a1.Alloc(64, KindMisc)
	a1.Release()

	a2 := NewAllocator(pool)
	defer a2.Release()
	buf := a2.Alloc(8, KindMisc)
	for _, b := range buf {
		require.Zero(t, b, "reused arena memory must be zeroed")
	}
}

func TestAcquireGrowsPoolWhenFreeArenaTooSmall(t *testing.T) {
	pool := NewPool(nil)
	small := pool.Acquire(DefaultSize)
	pool.Release(small)

	big := pool.Acquire(DefaultSize * 2)
	require.GreaterOrEqual(t, big.Size(), DefaultSize*2)
}

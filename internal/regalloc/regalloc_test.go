package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyq8709/dexhunter/internal/mir"
)

func TestPromoteAssignsHottestFirst(t *testing.T) {
	candidates := []Candidate{
		{SSA: 0, Weight: 5, Class: ClassCore},
		{SSA: 1, Weight: 20, Class: ClassCore},
		{SSA: 2, Weight: 1, Class: ClassCore},
	}
	pool := Pool{Core: []int32{4, 5}}
	a := Promote(candidates, pool)
	require.Len(t, a, 2)
	_, ok := a[mir.SSAName(2)]
	require.False(t, ok)
}

func TestPromoteRespectsClass(t *testing.T) {
	candidates := []Candidate{
		{SSA: 0, Weight: 10, Class: ClassFP},
		{SSA: 1, Weight: 10, Class: ClassCore},
	}
	pool := Pool{Core: []int32{4}, FP: []int32{16}}
	a := Promote(candidates, pool)
	require.Equal(t, int32(16), a[mir.SSAName(0)])
	require.Equal(t, int32(4), a[mir.SSAName(1)])
}

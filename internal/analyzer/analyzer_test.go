package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyq8709/dexhunter/internal/compconfig"
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
)

func TestSkipCompilationSmallMethodAlwaysCompiles(t *testing.T) {
	h := Histogram{Total: 5}
	require.False(t, SkipCompilation(h, compconfig.FilterBalanced, false, false, false))
}

func TestSkipCompilationClinitAlwaysSkips(t *testing.T) {
	h := Histogram{Total: 5}
	require.True(t, SkipCompilation(h, compconfig.FilterBalanced, true, false, false))
}

func TestSkipCompilationHugeUnreclaimedSkips(t *testing.T) {
	h := Histogram{Total: 10000}
	require.True(t, SkipCompilation(h, compconfig.FilterBalanced, false, false, false))
	require.False(t, SkipCompilation(h, compconfig.FilterBalanced, false, false, true))
}

func TestAnalyzeCountsLoopWeighted(t *testing.T) {
	// add-int v0, v1, v0 ; goto +0 (the goto targets itself: a one-block
	// infinite loop after the add-int's own block)
	insns := []uint16{
		uint16(insndecode.OpAddInt) | 0<<8, uint16(0)<<8 | 1<<0,
		uint16(insndecode.OpGoto) | (0 << 8),
	}
	method := &mir.DecodedMethod{Insns: insns, RegistersSize: 4, InsSize: 1}
	g, err := mir.Build(method)
	require.NoError(t, err)
	h := Analyze(g)
	require.True(t, h.HasLoop)
	require.Equal(t, 1+loopMultiplier, h.Total, "add-int counts once, the self-looping goto counts loopMultiplier times")
}

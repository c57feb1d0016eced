package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
)

// TestCombineBlocksRemergesIgnoredCheck reproduces spec.md §8 scenario 2: once
// null-check elimination proves an iget's guard redundant, CombineBlocks must
// fold the synthetic Check/work pair mir.Build created back into one real op
// and absorb the fall-through block, leaving no trace of the pair.
func TestCombineBlocksRemergesIgnoredCheck(t *testing.T) {
	// iget v0, v1, field@7 ; return-void
	insns := []uint16{
		uint16(insndecode.OpIget) | 0<<8 | 1<<12, 7,
		uint16(insndecode.OpReturnVoid),
	}
	g, res, preorder := buildSSA(t, insns, 2, 0)

	checkBlock := g.Block(g.Entry().FallThrough)
	check := checkBlock.LastMIR
	require.Equal(t, insndecode.OpCheck, check.Insn.Opcode)
	work := check.Meta.PairedMIR
	require.Equal(t, insndecode.OpIget, work.Insn.Opcode)
	fallBlockID := checkBlock.FallThrough

	EliminateNullAndRangeChecks(g, preorder, res.NumSSANames, true)
	require.True(t, work.OptFlags.Has(mir.FlagIgnoreNullCheck) == false, "nothing proved v1 non-null yet")

	// Force the condition CombineBlocks looks for directly, the way the
	// null-check pass would have if v1 were already known non-null.
	work.OptFlags |= mir.FlagIgnoreNullCheck

	CombineBlocks(g)

	require.Equal(t, insndecode.OpIget, checkBlock.FirstMIR.Insn.Opcode, "Check rewritten back into the real op")
	require.Equal(t, insndecode.OpReturnVoid, checkBlock.FirstMIR.Next.Insn.Opcode, "fall-through block's tail absorbed")
	require.Equal(t, insndecode.OpReturnVoid, checkBlock.LastMIR.Insn.Opcode)
	require.Equal(t, mir.BlockDead, g.Block(fallBlockID).Type)

	var sawCheck bool
	g.ForEachBlock(func(b *mir.BasicBlock) {
		b.ForEachMIR(func(m *mir.MIR) {
			if m.Insn.Opcode == insndecode.OpCheck {
				sawCheck = true
			}
		})
	})
	require.False(t, sawCheck, "no OpCheck should survive the merge")
}

package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
)

// TestEliminateNullAndRangeChecksOnlyRefinesTheNonNullEdge builds:
//
//	if-eqz v3, L1     ; branches to L1 when v3 == null
//	iget v1, v3, field  ; fall-through: the non-null arm
//	goto END
//	L1: iget v2, v3, field ; the null arm
//	END: return-void
//
// v3 is never proven non-null before the branch, so only the fall-through
// (non-null) edge may mark its iget's check redundant; the taken (null) edge
// must still perform the check.
func TestEliminateNullAndRangeChecksOnlyRefinesTheNonNullEdge(t *testing.T) {
	insns := []uint16{
		uint16(insndecode.OpIfEqz) | 3<<8, 5, // if-eqz v3, +5 (target offset 5)
		uint16(insndecode.OpIget) | 1<<8 | 3<<12, 7, // iget v1, v3, field@7
		uint16(insndecode.OpGoto) | 3<<8,            // goto +3 (target offset 7)
		uint16(insndecode.OpIget) | 2<<8 | 3<<12, 7, // L1: iget v2, v3, field@7
		uint16(insndecode.OpReturnVoid), // END
	}
	g, res, preorder := buildSSA(t, insns, 4, 1)
	EliminateNullAndRangeChecks(g, preorder, res.NumSSANames, true)

	var nonNullArmFlags, nullArmFlags mir.OptFlag
	var sawNonNullArm, sawNullArm bool
	g.ForEachBlock(func(b *mir.BasicBlock) {
		b.ForEachMIR(func(m *mir.MIR) {
			if m.Insn.Opcode != insndecode.OpIget {
				return
			}
			switch m.Insn.VA {
			case 1:
				nonNullArmFlags, sawNonNullArm = m.OptFlags, true
			case 2:
				nullArmFlags, sawNullArm = m.OptFlags, true
			}
		})
	})
	require.True(t, sawNonNullArm)
	require.True(t, sawNullArm)

	require.True(t, nonNullArmFlags.Has(mir.FlagIgnoreNullCheck), "fall-through arm's check is provably redundant")
	require.False(t, nullArmFlags.Has(mir.FlagIgnoreNullCheck), "taken arm still needs the check: v3 is null on this edge")
}

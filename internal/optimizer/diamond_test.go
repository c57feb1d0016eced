package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
)

// TestRewriteDiamondSelectsCollapsesConstArms reproduces spec.md §8 scenario
// 3's worked example: if-eqz v0 goto L1; v1=const 1; goto JOIN; L1: v1=const
// 2; JOIN:. The fall-through arm (v1=const 1, goto JOIN) is the
// Taken=join/FallThrough=Invalid shape, the L1 arm (v1=const 2, falls into
// JOIN) is the FallThrough=join/Taken=Invalid shape — closeBlock produces one
// of each for a real diamond, so both must be recognized.
func TestRewriteDiamondSelectsCollapsesConstArms(t *testing.T) {
	insns := []uint16{
		uint16(insndecode.OpIfEqz) | 0<<8, 4, // if-eqz v0, +4 (target offset 4)
		uint16(insndecode.OpConst4) | 1<<8 | 1<<12, // v1 = const 1
		uint16(insndecode.OpGoto) | 2<<8,           // goto +2 (target offset 5)
		uint16(insndecode.OpConst4) | 1<<8 | 2<<12, // L1: v1 = const 2
		uint16(insndecode.OpReturn) | 1<<8,         // JOIN: return v1
	}
	g, err := mir.Build(&mir.DecodedMethod{Insns: insns, RegistersSize: 2})
	require.NoError(t, err)

	condBlock := g.Block(g.Entry().FallThrough)
	takenArm := g.Block(condBlock.Taken)
	fallArm := g.Block(condBlock.FallThrough)
	joinID := fallArm.Taken
	require.Equal(t, joinID, takenArm.FallThrough)

	RewriteDiamondSelects(g)

	last := condBlock.LastMIR
	require.Equal(t, insndecode.OpSelect, last.Insn.Opcode)
	require.EqualValues(t, 1, last.Insn.VA)
	require.EqualValues(t, 1, last.Insn.VB, "true value: fall-through arm's const")
	require.EqualValues(t, 2, last.Insn.VC, "false value: taken arm's const")

	require.Equal(t, mir.InvalidBlockID, condBlock.Taken)
	require.Equal(t, joinID, condBlock.FallThrough)
	require.Equal(t, mir.BlockDead, takenArm.Type)
	require.Equal(t, mir.BlockDead, fallArm.Type)
}

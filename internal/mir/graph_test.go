package mir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyq8709/dexhunter/internal/insndecode"
)

func unit(op insndecode.Opcode, hi uint16) uint16 {
	return insndecode.ByteOf(op) | hi<<8
}

func TestBuildLinearMethodHasOneByteCodeBlock(t *testing.T) {
	// const/4 v0, #0 ; return-void
	insns := []uint16{
		unit(insndecode.OpConst4, 0),
		unit(insndecode.OpReturnVoid, 0),
	}
	g, err := Build(&DecodedMethod{Insns: insns, RegistersSize: 1})
	require.NoError(t, err)

	var count int
	g.ForEachBlock(func(b *BasicBlock) {
		if b.Type == BlockByteCode {
			count++
			require.True(t, b.TerminatedByReturn)
		}
	})
	require.Equal(t, 1, count)
	require.Equal(t, g.Entry().FallThrough, g.blockMap[0])
}

func TestBuildBranchSplitsBlocksAtTargets(t *testing.T) {
	// 0: goto +2  (jumps to offset 2)
	// 1: return-void  (unreachable after the goto; not a block head)
	// 2: return-void  (goto target)
	insns := []uint16{
		unit(insndecode.OpGoto, 2),
		unit(insndecode.OpReturnVoid, 0),
		unit(insndecode.OpReturnVoid, 0),
	}
	g, err := Build(&DecodedMethod{Insns: insns, RegistersSize: 0})
	require.NoError(t, err)

	gotoBlockID, ok := g.blockMap[0]
	require.True(t, ok)
	gotoBlock := g.Block(gotoBlockID)
	require.Equal(t, InvalidBlockID, gotoBlock.FallThrough, "unconditional goto must not fall through")

	targetID, ok := g.blockMap[2]
	require.True(t, ok)
	require.Equal(t, targetID, gotoBlock.Taken)

	targetBlock := g.Block(targetID)
	require.Contains(t, targetBlock.Predecessors, gotoBlockID)
}

func TestBuildConditionalBranchFallsThroughAndBranches(t *testing.T) {
	// 0: if-eqz v0, +2 (Fmt21t: op + AA(reg) + signed 16-bit delta; 2 units)
	// 2: return-void  (both fall-through and branch target)
	// 3: return-void
	insns := []uint16{
		insndecode.ByteOf(insndecode.OpIfEqz), // vA=0 in the high byte
		2,
		unit(insndecode.OpReturnVoid, 0),
		unit(insndecode.OpReturnVoid, 0),
	}
	g, err := Build(&DecodedMethod{Insns: insns, RegistersSize: 1})
	require.NoError(t, err)

	branchID := g.blockMap[0]
	branchBlock := g.Block(branchID)
	require.True(t, branchBlock.ConditionalBranch)
	require.NotEqual(t, InvalidBlockID, branchBlock.FallThrough)
	require.NotEqual(t, InvalidBlockID, branchBlock.Taken)
}

func TestBuildEmptyMethodWiresEntryDirectlyToExit(t *testing.T) {
	g, err := Build(&DecodedMethod{})
	require.NoError(t, err)
	require.Equal(t, g.ExitID, g.Entry().FallThrough)
	require.Contains(t, g.Exit().Predecessors, g.EntryID)
}

func TestBuildReturnsErrorOnTruncatedInstruction(t *testing.T) {
	insns := []uint16{unit(insndecode.OpInvokeStatic, 1 << 4)} // Fmt35c needs 3 units
	_, err := Build(&DecodedMethod{Insns: insns})
	require.Error(t, err)
}

func TestBuildSplitsThrowingInstructionIntoCheckWorkPair(t *testing.T) {
	// iget v0, v1, field@7 ; return-void
	insns := []uint16{
		uint16(insndecode.OpIget) | 0<<8 | 1<<12, 7,
		unit(insndecode.OpReturnVoid, 0),
	}
	g, err := Build(&DecodedMethod{Insns: insns, RegistersSize: 2})
	require.NoError(t, err)

	checkBlockID, ok := g.blockMap[0]
	require.True(t, ok)
	checkBlock := g.Block(checkBlockID)

	check := checkBlock.LastMIR
	require.Equal(t, insndecode.OpCheck, check.Insn.Opcode)
	require.NotNil(t, check.Meta.PairedMIR)
	work := check.Meta.PairedMIR
	require.Equal(t, insndecode.OpIget, work.Insn.Opcode)

	fallBlock := g.Block(checkBlock.FallThrough)
	require.Same(t, work, fallBlock.FirstMIR)
	require.Equal(t, insndecode.OpReturnVoid, fallBlock.FirstMIR.Next.Insn.Opcode)
}

func TestBuildDoesNotSplitNonThrowingFallthrough(t *testing.T) {
	// const/4 v0, #0 ; return-void: neither instruction has an implicit check,
	// so no block should end in a synthetic OpCheck.
	insns := []uint16{
		unit(insndecode.OpConst4, 0),
		unit(insndecode.OpReturnVoid, 0),
	}
	g, err := Build(&DecodedMethod{Insns: insns, RegistersSize: 1})
	require.NoError(t, err)

	g.ForEachBlock(func(b *BasicBlock) {
		if b.LastMIR != nil {
			require.NotEqual(t, insndecode.OpCheck, b.LastMIR.Insn.Opcode)
		}
	})
}

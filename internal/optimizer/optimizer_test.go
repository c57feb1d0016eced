package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
	"github.com/zyq8709/dexhunter/internal/ssaform"
)

func buildSSA(t *testing.T, insns []uint16, registersSize, insSize uint16) (*mir.Graph, *ssaform.Result, []mir.BasicBlockID) {
	t.Helper()
	method := &mir.DecodedMethod{Insns: insns, RegistersSize: registersSize, InsSize: insSize}
	g, err := mir.Build(method)
	require.NoError(t, err)

	numV := g.Method.NumRegisters()
	ssaform.ComputeUseDef(g, numV)
	ssaform.ComputeLiveness(g, numV)
	_, postorder := ssaform.ComputeDFSOrders(g)
	rpo := ssaform.ReversePostorder(postorder)
	ssaform.ComputeDominators(g, rpo)
	phis := ssaform.InsertPhis(g, numV, rpo)
	preorder, _ := ssaform.ComputeDFSOrders(g)
	res := ssaform.Rename(g, numV, preorder, phis)
	return g, res, preorder
}

func TestPropagateConstantsFoldsMove(t *testing.T) {
	// const/4 v0, #1 ; move v1, v0 ; return v1
	insns := []uint16{
		uint16(insndecode.OpConst4) | 0<<8 | 1<<12,
		uint16(insndecode.OpMove) | 1<<8 | 0<<12,
		uint16(insndecode.OpReturn) | 1<<8,
	}
	g, res, _ := buildSSA(t, insns, 4, 1)

	var moveDef mir.SSAName = mir.SSANameInvalid
	g.ForEachBlock(func(b *mir.BasicBlock) {
		b.ForEachMIR(func(m *mir.MIR) {
			if m.Insn.Opcode == insndecode.OpMove {
				moveDef = m.SSA.Defs[0]
			}
		})
	})
	require.NotEqual(t, mir.SSANameInvalid, moveDef)

	consts := PropagateConstants(g, res.NumSSANames)
	require.True(t, consts[moveDef].IsConst)
	require.EqualValues(t, 1, consts[moveDef].Value)
}

func TestFlippedCondition(t *testing.T) {
	flipped, ok := flippedCondition(insndecode.OpIfEqz)
	require.True(t, ok)
	require.Equal(t, insndecode.OpIfNez, flipped)

	_, ok = flippedCondition(insndecode.OpMove)
	require.False(t, ok)
}

func TestExtendedBasicBlocksChainsFallThroughs(t *testing.T) {
	insns := []uint16{
		uint16(insndecode.OpConst4) | 0<<8 | 1<<12,
		uint16(insndecode.OpReturn) | 0<<8,
	}
	method := &mir.DecodedMethod{Insns: insns, RegistersSize: 4, InsSize: 1}
	g, err := mir.Build(method)
	require.NoError(t, err)
	preorder, _ := ssaform.ComputeDFSOrders(g)
	chains := ExtendedBasicBlocks(g, preorder)
	require.NotEmpty(t, chains)
}

func TestAllChecksIgnored(t *testing.T) {
	m := &mir.MIR{OptFlags: mir.FlagIgnoreNullCheck}
	require.True(t, allChecksIgnored(m))
	m2 := &mir.MIR{}
	require.False(t, allChecksIgnored(m2))
}

func TestEliminateNullAndRangeChecksMarksSecondCheckRedundant(t *testing.T) {
	// iget v1, v3, field ; iget v2, v3, field  (same base: the incoming
	// parameter v3; same field twice)
	insns := []uint16{
		uint16(insndecode.OpIget) | 1<<8 | 3<<12, 7,
		uint16(insndecode.OpIget) | 2<<8 | 3<<12, 7,
		uint16(insndecode.OpReturnVoid),
	}
	g, res, preorder := buildSSA(t, insns, 4, 1)
	EliminateNullAndRangeChecks(g, preorder, res.NumSSANames, true)

	var flags []mir.OptFlag
	g.ForEachBlock(func(b *mir.BasicBlock) {
		b.ForEachMIR(func(m *mir.MIR) {
			if m.Insn.Opcode == insndecode.OpIget {
				flags = append(flags, m.OptFlags)
			}
		})
	})
	require.Len(t, flags, 2)
	require.False(t, flags[0].Has(mir.FlagIgnoreNullCheck))
	require.True(t, flags[1].Has(mir.FlagIgnoreNullCheck))
}

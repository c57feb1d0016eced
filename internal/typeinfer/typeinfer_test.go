package typeinfer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
	"github.com/zyq8709/dexhunter/internal/ssaform"
)

func TestInferSeedsReturnTypeFromShorty(t *testing.T) {
	insns := []uint16{
		uint16(insndecode.OpConst4) | 0<<8 | 1<<12,
		uint16(insndecode.OpReturn) | 0<<8,
	}
	method := &mir.DecodedMethod{Insns: insns, RegistersSize: 4, InsSize: 1}
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

	result := Infer(g, res.NumSSANames, preorder, phis, "I")
	require.False(t, result.PromotionDisabled)

	var retUse mir.SSAName = mir.SSANameInvalid
	g.ForEachBlock(func(b *mir.BasicBlock) {
		b.ForEachMIR(func(m *mir.MIR) {
			if m.Insn.Opcode == insndecode.OpReturn {
				retUse = m.SSA.Uses[0]
			}
		})
	})
	require.NotEqual(t, mir.SSANameInvalid, retUse)
	require.True(t, result.Types[retUse].Core)
}

func TestTypeUnionPromotionConflict(t *testing.T) {
	var ty Type
	ty.union(Type{FP: true})
	ty.union(Type{Core: true})
	require.True(t, ty.FP)
	require.True(t, ty.Core)
}

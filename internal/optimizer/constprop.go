package optimizer

import (
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
)

// ConstantInfo records whether an SSA name is a proven 32-bit constant
// (spec.md §4.4 step 2). Wide constants are represented as two chained
// SSA names, low half first, matching the raw vreg pairing rawUsesDefs
// already produces.
type ConstantInfo struct {
	IsConst bool
	Value   int32
}

// PropagateConstants implements spec.md §4.4 step 2: assign each SSA name a
// 32-bit constant when defined by a constant-producing opcode, or
// transitively by a move from another constant SSA name. Runs to a fixpoint
// since a move's source may itself be resolved on a later pass over the
// block order.
func PropagateConstants(g *mir.Graph, numSSANames int) []ConstantInfo {
	info := make([]ConstantInfo, numSSANames)
	changed := true
	for changed {
		changed = false
		g.ForEachBlock(func(b *mir.BasicBlock) {
			b.ForEachMIR(func(m *mir.MIR) {
				if m.SSA == nil || m.SSA.NumDefs == 0 {
					return
				}
				def := m.SSA.Defs[0]
				if info[def].IsConst {
					return
				}
				switch m.Insn.Opcode {
				case insndecode.OpConst4, insndecode.OpConst16, insndecode.OpConst, insndecode.OpConstHigh16:
					info[def] = ConstantInfo{IsConst: true, Value: m.Insn.VB}
					changed = true
				case insndecode.OpConstWide16, insndecode.OpConstWide32:
					info[def] = ConstantInfo{IsConst: true, Value: m.Insn.VB}
					if m.SSA.NumDefs > 1 {
						info[m.SSA.Defs[1]] = ConstantInfo{IsConst: true, Value: int32(int64(m.Insn.VB) >> 31)}
					}
					changed = true
				case insndecode.OpConstWide:
					info[def] = ConstantInfo{IsConst: true, Value: int32(m.Insn.VBWide)}
					if m.SSA.NumDefs > 1 {
						info[m.SSA.Defs[1]] = ConstantInfo{IsConst: true, Value: int32(m.Insn.VBWide >> 32)}
					}
					changed = true
				case insndecode.OpConstWideHigh16:
					info[def] = ConstantInfo{IsConst: true, Value: 0}
					if m.SSA.NumDefs > 1 {
						info[m.SSA.Defs[1]] = ConstantInfo{IsConst: true, Value: m.Insn.VB << 16}
					}
					changed = true
				case insndecode.OpMove, insndecode.OpMoveObject:
					if m.SSA.NumUses > 0 && info[m.SSA.Uses[0]].IsConst {
						info[def] = info[m.SSA.Uses[0]]
						changed = true
					}
				case insndecode.OpMoveWide:
					if m.SSA.NumUses > 0 && info[m.SSA.Uses[0]].IsConst {
						info[def] = info[m.SSA.Uses[0]]
						if m.SSA.NumDefs > 1 && m.SSA.NumUses > 1 && info[m.SSA.Uses[1]].IsConst {
							info[m.SSA.Defs[1]] = info[m.SSA.Uses[1]]
						}
						changed = true
					}
				}
			})
		})
	}
	return info
}

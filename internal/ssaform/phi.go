package ssaform

import "github.com/zyq8709/dexhunter/internal/mir"

// Phi is a pseudo-MIR at a block head representing the merge of a virtual
// register's latest definitions along every predecessor path (Glossary
// "Phi"). Phis are tracked alongside (not inside) the block's ordinary MIR
// list until Rename has run, since until renaming completes the
// operands aren't known.
type Phi struct {
	Block   mir.BasicBlockID
	VReg    int32
	Def     mir.SSAName
	Incoming []mir.SSAName // filled by Rename, parallel to block.Predecessors
}

// InsertPhis implements spec.md §4.3 step 5: for each vreg, iterate the
// dominance frontier of its def-blocks, inserting a phi wherever the vreg is
// live-in, per the standard Cytron placement algorithm.
func InsertPhis(g *mir.Graph, numVRegs int, reversePostorder []mir.BasicBlockID) []*Phi {
	defBlocks := make([][]mir.BasicBlockID, numVRegs)
	g.ForEachBlock(func(b *mir.BasicBlock) {
		for v := 0; v < numVRegs; v++ {
			if b.DataFlow.Def.Test(v) {
				defBlocks[v] = append(defBlocks[v], b.ID)
			}
		}
	})
	// Entry defines every parameter vreg (spec.md §4.3 step 2 "incoming
	// parameters count as defined in Entry").
	for v := g.Method.FirstInVReg(); v < numVRegs; v++ {
		defBlocks[v] = append(defBlocks[v], g.EntryID)
	}

	var phis []*Phi
	hasPhi := make([]map[mir.BasicBlockID]bool, numVRegs)
	for v := range hasPhi {
		hasPhi[v] = make(map[mir.BasicBlockID]bool)
	}

	for v := 0; v < numVRegs; v++ {
		worklist := append([]mir.BasicBlockID(nil), defBlocks[v]...)
		onWorklist := make(map[mir.BasicBlockID]bool)
		for _, b := range worklist {
			onWorklist[b] = true
		}
		for len(worklist) > 0 {
			b := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			onWorklist[b] = false
			g.Block(b).DomFrontier.ForEach(func(dfBlockIdx int) {
				df := mir.BasicBlockID(dfBlockIdx)
				if hasPhi[v][df] {
					return
				}
				if !g.Block(df).DataFlow.LiveIn.Test(v) {
					return
				}
				hasPhi[v][df] = true
				phis = append(phis, &Phi{Block: df, VReg: int32(v)})
				if !onWorklist[df] {
					worklist = append(worklist, df)
					onWorklist[df] = true
				}
			})
		}
	}
	return phis
}

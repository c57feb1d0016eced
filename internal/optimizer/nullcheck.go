package optimizer

import (
	"github.com/zyq8709/dexhunter/internal/bitvec"
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
)

// edgeKey identifies one control-flow edge, for the per-edge non-null
// refinement a null-testing branch produces.
type edgeKey struct {
	from, to mir.BasicBlockID
}

// EliminateNullAndRangeChecks implements spec.md §4.4 step 3: an iterative
// preorder walk tracking, per block, the set of SSA names known non-null at
// the block's end (temp_ssa_register_v_ in the original). Merge points
// intersect predecessor sets; catch blocks reset to empty since an exception
// can land there with anything live. An IF_EQZ/IF_NEZ only refines the single
// successor edge that actually proves non-nullity (nonNullOnEdge); the other
// edge inherits the unrefined exit set, since the tested reference is null on
// that path.
func EliminateNullAndRangeChecks(g *mir.Graph, preorder []mir.BasicBlockID, numSSANames int, isStatic bool) {
	nonNullAtExit := make(map[mir.BasicBlockID]*bitvec.BitVector)
	nonNullOnEdge := make(map[edgeKey]*bitvec.BitVector)

	for _, id := range preorder {
		b := g.Block(id)
		var set *bitvec.BitVector

		switch {
		case id == g.EntryID:
			set = bitvec.NewSized(numSSANames, true)
			if !isStatic && g.Method != nil && g.Method.InsSize > 0 {
				// `this` is the first in-vreg, which Rename names SSA 0.
				set.Set(0)
			}
		case b.CatchEntry:
			set = bitvec.NewSized(numSSANames, true)
		default:
			set = intersectPredecessors(g, b, nonNullAtExit, nonNullOnEdge, numSSANames)
		}

		b.ForEachMIR(func(m *mir.MIR) {
			if m.SSA == nil {
				return
			}
			attr := mir.Of(m.Insn.Opcode)
			if attr.Has(mir.DFNullChk0) && m.SSA.NumUses > 0 {
				applyNullCheck(m, set, int(m.SSA.Uses[0]))
			}
			if attr.Has(mir.DFNullChk1) && m.SSA.NumUses > 0 {
				applyNullCheck(m, set, int(m.SSA.Uses[0]))
			}
			if attr.Has(mir.DFNonNullDst) && m.SSA.NumDefs > 0 {
				set.Set(int(m.SSA.Defs[0]))
			}
			if attr.Has(mir.DFNonNullRet) && m.SSA.NumDefs > 0 {
				set.Set(int(m.SSA.Defs[0]))
			}
			if branchesOnNullity(m.Insn.Opcode) && m.SSA.NumUses > 0 {
				recordNonNullEdge(b, m, nonNullOnEdge, set)
			}
		})

		nonNullAtExit[id] = set
	}
}

func applyNullCheck(m *mir.MIR, set *bitvec.BitVector, ssaUse int) {
	if set.Test(ssaUse) {
		m.OptFlags |= mir.FlagIgnoreNullCheck
	} else {
		set.Set(ssaUse)
	}
}

func branchesOnNullity(op insndecode.Opcode) bool {
	return op == insndecode.OpIfEqz || op == insndecode.OpIfNez
}

// recordNonNullEdge clones set with the tested reference marked non-null and
// stores it only on the successor edge where that is actually true: IF_EQZ
// takes its branch when the reference is null (==0), so the fall-through arm
// is the non-null one; IF_NEZ is the mirror image.
func recordNonNullEdge(b *mir.BasicBlock, m *mir.MIR, nonNullOnEdge map[edgeKey]*bitvec.BitVector, set *bitvec.BitVector) {
	nonNullSucc := b.FallThrough
	if m.Insn.Opcode == insndecode.OpIfNez {
		nonNullSucc = b.Taken
	}
	if nonNullSucc == mir.InvalidBlockID {
		return
	}
	refined := set.Clone()
	refined.Set(int(m.SSA.Uses[0]))
	nonNullOnEdge[edgeKey{b.ID, nonNullSucc}] = refined
}

func intersectPredecessors(g *mir.Graph, b *mir.BasicBlock, exit map[mir.BasicBlockID]*bitvec.BitVector, onEdge map[edgeKey]*bitvec.BitVector, numSSANames int) *bitvec.BitVector {
	if len(b.Predecessors) == 0 {
		return bitvec.NewSized(numSSANames, true)
	}
	var result *bitvec.BitVector
	for _, p := range b.Predecessors {
		ps, ok := onEdge[edgeKey{p, b.ID}]
		if !ok {
			ps, ok = exit[p]
			if !ok {
				continue
			}
		}
		if result == nil {
			result = ps.Clone()
		} else {
			result.Intersect(ps)
		}
	}
	if result == nil {
		return bitvec.NewSized(numSSANames, true)
	}
	return result
}

package optimizer

import (
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
)

// RewriteDiamondSelects implements spec.md §4.4 step 5's "diamond select":
// an IF_EQZ/IF_NEZ whose two arms each hold a single constant assignment (an
// opcode with DFSetsConst) to the same virtual register and reach the same
// join block collapses into one kMirOpSelect MIR; the two arms are marked
// dead. Phis at the join are left as they are.
func RewriteDiamondSelects(g *mir.Graph) {
	g.ForEachBlock(func(b *mir.BasicBlock) {
		last := b.LastMIR
		if last == nil || !isIfZ(last.Insn.Opcode) || !b.ConditionalBranch {
			return
		}
		takenArm := g.Block(b.Taken)
		fallArm := g.Block(b.FallThrough)

		takenAssign, takenJoin, ok := singleAssignArm(takenArm)
		if !ok {
			return
		}
		fallAssign, fallJoin, ok := singleAssignArm(fallArm)
		if !ok || takenJoin != fallJoin {
			return
		}
		if takenAssign.Insn.VA != fallAssign.Insn.VA {
			return
		}
		if !mir.Of(takenAssign.Insn.Opcode).Has(mir.DFSetsConst) || !mir.Of(fallAssign.Insn.Opcode).Has(mir.DFSetsConst) {
			return
		}
		if len(takenArm.Predecessors) != 1 || len(fallArm.Predecessors) != 1 {
			return
		}

		// NE normalization (spec.md §3's worked example, 293): the "true"
		// value is whichever arm runs when the tested register is non-zero.
		var trueVal, falseVal int32
		if last.Insn.Opcode == insndecode.OpIfNez {
			trueVal, falseVal = takenAssign.Insn.VB, fallAssign.Insn.VB
		} else {
			trueVal, falseVal = fallAssign.Insn.VB, takenAssign.Insn.VB
		}

		last.Meta.OriginalOp = last.Insn.Opcode
		last.Meta.HasOriginalOp = true
		last.Insn.Opcode = insndecode.OpSelect
		last.Insn.VA = takenAssign.Insn.VA
		last.Insn.VB = trueVal
		last.Insn.VC = falseVal

		b.Taken = mir.InvalidBlockID
		b.ConditionalBranch = false
		b.FallThrough = takenJoin
		takenArm.Type, fallArm.Type = mir.BlockDead, mir.BlockDead
	})
}

// singleAssignArm reports whether b contains exactly one real MIR (any
// non-branch op; the caller checks that it sets a constant) and reaches a join block,
// returning that MIR and the join block id. closeBlock (mir/graph.go) wires
// an unconditional goto as Taken=join/FallThrough=Invalid and a plain
// fall-through arm as FallThrough=join/Taken=Invalid; both shapes are a
// legitimate diamond arm, so both are accepted here.
func singleAssignArm(b *mir.BasicBlock) (*mir.MIR, mir.BasicBlockID, bool) {
	var only *mir.MIR
	count := 0
	b.ForEachMIR(func(m *mir.MIR) {
		if m.IsNop() || m.Insn.Opcode.CanBranch() {
			// The unconditional goto to the join block is represented purely
			// by this block's FallThrough/Taken wiring; skip it here.
			return
		}
		count++
		only = m
	})
	if count != 1 || only == nil {
		return nil, mir.InvalidBlockID, false
	}
	switch {
	case b.Taken == mir.InvalidBlockID && b.FallThrough != mir.InvalidBlockID:
		return only, b.FallThrough, true
	case b.FallThrough == mir.InvalidBlockID && b.Taken != mir.InvalidBlockID:
		return only, b.Taken, true
	default:
		return nil, mir.InvalidBlockID, false
	}
}

package optimizer

import "github.com/zyq8709/dexhunter/internal/mir"

// CombineBlocks implements spec.md §4.4 step 4: if a block ends in the
// paired "Check" pseudo-op and the paired throwing MIR already has its
// relevant checks ignored, merge this block into its fall-through (which
// holds the work half), rewriting the Check into the real op and killing the
// exception edge.
//
// The Check/work split itself is synthesized once, up front, by the MIR
// graph builder (mir.Build's synthesizeCheckPairs, mir/graph.go) for every
// null/range/div-zero-checkable instruction; Meta.PairedMIR is set there.
// This pass only ever undoes that split when the null/range-check
// elimination pass that ran earlier in this same fixed order already proved
// every check the work half needs is redundant.
func CombineBlocks(g *mir.Graph) {
	g.ForEachBlock(func(b *mir.BasicBlock) {
		last := b.LastMIR
		if last == nil || last.Meta.PairedMIR == nil {
			return
		}
		paired := last.Meta.PairedMIR
		if !allChecksIgnored(paired) {
			return
		}
		if b.FallThrough == mir.InvalidBlockID || b.Taken != mir.InvalidBlockID {
			return
		}
		work := g.Block(b.FallThrough)
		if len(work.Predecessors) != 1 {
			return
		}

		last.Meta.OriginalOp = last.Insn.Opcode
		last.Insn.Opcode = paired.Insn.Opcode
		last.Insn.VA, last.Insn.VB, last.Insn.VC = paired.Insn.VA, paired.Insn.VB, paired.Insn.VC
		last.SSA = paired.SSA
		last.OptFlags = paired.OptFlags

		work.ForEachMIR(func(m *mir.MIR) {
			if m == paired {
				return
			}
			work.RemoveMIR(m)
			b.InsertMIRTail(m)
		})
		work.RemoveMIR(paired)

		b.FallThrough = work.FallThrough
		b.Taken = work.Taken
		b.SuccessorBlocks = work.SuccessorBlocks
		b.TerminatedByReturn = work.TerminatedByReturn
		work.Type = mir.BlockDead
	})
}

func allChecksIgnored(m *mir.MIR) bool {
	return m.OptFlags.Has(mir.FlagIgnoreNullCheck) ||
		m.OptFlags.Has(mir.FlagIgnoreRangeCheck) ||
		m.OptFlags.Has(mir.FlagIgnoreDivZeroCheck)
}

package ssaform

import (
	"github.com/zyq8709/dexhunter/internal/mir"
)

// ComputeUseDef fills DataFlow.Use/Def for every block from its raw
// (pre-SSA) Dalvik-register references, per spec.md §3's per-block use/def
// bitvectors. Use(v) is set the first time v is read in the block before any
// local def of v; Def(v) is set the first time v is written.
func ComputeUseDef(g *mir.Graph, numVRegs int) {
	g.ForEachBlock(func(b *mir.BasicBlock) {
		df := &mir.DataFlow{Use: newSizedBV(numVRegs), Def: newSizedBV(numVRegs)}
		b.DataFlow = df
		b.ForEachMIR(func(m *mir.MIR) {
			uses, defs := rawUsesDefs(m)
			for _, v := range uses {
				if !df.Def.Test(v) {
					df.Use.Set(v)
				}
			}
			for _, v := range defs {
				df.Def.Set(v)
			}
		})
	})
}

// ComputeLiveness runs the standard iterative backward liveness pass of
// spec.md §4.3 step 4: live_in = use ∪ (successor.live_in − def).
func ComputeLiveness(g *mir.Graph, numVRegs int) {
	g.ForEachBlock(func(b *mir.BasicBlock) {
		if b.DataFlow.LiveIn == nil {
			b.DataFlow.LiveIn = newSizedBV(numVRegs)
		}
	})
	changed := true
	for changed {
		changed = false
		g.ForEachBlock(func(b *mir.BasicBlock) {
			liveOut := newSizedBV(numVRegs)
			b.Successors(func(s mir.BasicBlockID) {
				sb := g.Block(s)
				if sb.DataFlow != nil && sb.DataFlow.LiveIn != nil {
					liveOut.Union(sb.DataFlow.LiveIn)
				}
			})
			liveOut.Subtract(b.DataFlow.Def)
			liveOut.Union(b.DataFlow.Use)
			if !liveOut.Equal(b.DataFlow.LiveIn) {
				b.DataFlow.LiveIn = liveOut
				changed = true
			}
		})
	}
}

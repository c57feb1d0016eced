// Package optimizer implements the MIR optimizer passes of spec.md §4.4–§4.5:
// code layout, constant propagation, null/range-check elimination, basic
// block combine, and local value numbering with compare-branch fusion and
// diamond-select rewriting. Grounded on ART's mir_optimization.cc, restructured
// along the teacher's (tetratelabs/wazero) convention of one pass per file.
package optimizer

import (
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
)

// SinkThrows implements spec.md §4.4 step 1: a block marked explicit_throw
// with exactly one predecessor that conditionally branches to it gets its
// branch condition flipped (taken/fall_through swapped) so the throw sits off
// the hot path.
func SinkThrows(g *mir.Graph) {
	g.ForEachBlock(func(b *mir.BasicBlock) {
		if !b.ExplicitThrow || len(b.Predecessors) != 1 {
			return
		}
		pred := g.Block(b.Predecessors[0])
		if !pred.ConditionalBranch || pred.Taken != b.ID {
			return
		}
		last := pred.LastMIR
		if last == nil {
			return
		}
		if flip, ok := flippedCondition(last.Insn.Opcode); ok {
			last.Insn.Opcode = flip
			pred.Taken, pred.FallThrough = pred.FallThrough, pred.Taken
		}
	})
}

// flippedCondition returns the logically negated IF_* opcode, if op is one.
var flipTable = map[insndecode.Opcode]insndecode.Opcode{
	insndecode.OpIfEq: insndecode.OpIfNe, insndecode.OpIfNe: insndecode.OpIfEq,
	insndecode.OpIfLt: insndecode.OpIfGe, insndecode.OpIfGe: insndecode.OpIfLt,
	insndecode.OpIfGt: insndecode.OpIfLe, insndecode.OpIfLe: insndecode.OpIfGt,
	insndecode.OpIfEqz: insndecode.OpIfNez, insndecode.OpIfNez: insndecode.OpIfEqz,
	insndecode.OpIfLtz: insndecode.OpIfGez, insndecode.OpIfGez: insndecode.OpIfLtz,
	insndecode.OpIfGtz: insndecode.OpIfLez, insndecode.OpIfLez: insndecode.OpIfGtz,
}

func flippedCondition(op insndecode.Opcode) (insndecode.Opcode, bool) {
	f, ok := flipTable[op]
	return f, ok
}

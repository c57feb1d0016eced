// Package mir implements the control-flow graph of Mid-level IR
// instructions (spec.md §2 component D, §3, §4.2), the SSA transform
// (component E, §4.3), and their shared node types. Grounded on ART's
// mir_graph.h/.cc and ssa_transformation.cc, restructured along the lines of
// the teacher's (tetratelabs/wazero) ssa package: one BasicBlock slice
// indexed by a dense BasicBlockID, instructions as an explicit doubly-linked
// list within each block.
package mir

import (
	"github.com/zyq8709/dexhunter/internal/insndecode"
)

// SSAName is a single-assignment value name, allocated during the SSA
// renaming pass (spec.md §4.3 step "Renaming"). SSANameInvalid (-1) never
// denotes a real value.
type SSAName int32

const SSANameInvalid SSAName = -1

// SSARepresentation holds a MIR's SSA uses/defs after the renaming pass
// (spec.md §3 "ssa_rep").
type SSARepresentation struct {
	Uses    []SSAName
	Defs    []SSAName
	FPUse   []bool
	FPDef   []bool
	NumUses int
	NumDefs int
}

// MIRMeta carries the kMirOpCheck pairing (spec.md §3 "meta: either a
// back-pointer to the paired throwing MIR ... or the original opcode saved
// when NOP'd").
type MIRMeta struct {
	PairedMIR     *MIR // set on the "Check" half, points at the paired work half
	OriginalOp    insndecode.Opcode
	HasOriginalOp bool
}

// MIR is one decoded input instruction plus optimizer metadata, per
// spec.md §3.
type MIR struct {
	Insn *insndecode.Instruction

	Offset      int32 // original bytecode offset, in code units
	Width       int32 // code units consumed
	MUnitIndex  int32 // which method, for the single-level intrinsic-inline path

	Prev, Next *MIR

	SSA *SSARepresentation

	OptFlags OptFlag
	Meta     MIRMeta

	// Block is a back-pointer to the owning BasicBlock, set when the MIR is
	// inserted; used by passes that walk from a MIR back to block-level
	// dataflow state (e.g. the LVN extended-BB walk).
	Block *BasicBlock
}

// IsNop reports whether this MIR has been NOP'd out by a pass (block
// combine turning a Check pseudo-op into the real op leaves the old work
// half's MIR behind as a dead NOP until the next layout pass drops it).
func (m *MIR) IsNop() bool {
	return m.Insn != nil && m.Insn.Opcode == insndecode.OpNop && !m.Meta.HasOriginalOp
}

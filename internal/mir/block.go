package mir

import "github.com/zyq8709/dexhunter/internal/bitvec"

// BasicBlockID is a dense index into Graph.blocks.
type BasicBlockID int32

const InvalidBlockID BasicBlockID = -1

// BlockType classifies a BasicBlock (spec.md §3).
type BlockType int

const (
	BlockEntry BlockType = iota
	BlockExit
	BlockByteCode
	BlockExceptionHandling
	BlockDead
)

// SuccessorKind distinguishes the three forms a successor_block_list can
// take (spec.md §3, §4.2).
type SuccessorKind int

const (
	SuccessorNone SuccessorKind = iota
	SuccessorPackedSwitch
	SuccessorSparseSwitch
	SuccessorCatch
)

// SuccessorEdge is one (target, key) entry of a successor_block_list: key is
// the switch case value for switch kinds, or the exception type index for
// Catch.
type SuccessorEdge struct {
	Target BasicBlockID
	Key    int32
}

// SuccessorBlockList is the ordered catch-table or switch-table attached to
// a block that ends in a switch or is try-protected (spec.md §3, §4.2).
type SuccessorBlockList struct {
	Kind    SuccessorKind
	Entries []SuccessorEdge
}

// DataFlow holds the per-block bitvectors and snapshot used by the SSA and
// optimizer passes (spec.md §3 "BasicBlockDataFlow").
type DataFlow struct {
	Use    *bitvec.BitVector // virtual registers used before any def in this block
	Def    *bitvec.BitVector // virtual registers defined in this block
	LiveIn *bitvec.BitVector // computed by the liveness pass (spec.md §4.3 step 4)

	// PhiNeeded is the set of virtual registers needing a phi here. It is not
	// set by ssaform.InsertPhis, which returns its placements as
	// []*ssaform.Phi instead.
	PhiNeeded *bitvec.BitVector

	// VRegToSSAMapExit is a per-vreg slot for the SSA name live at the end of
	// this block. It is not filled by ssaform.Rename, which keeps its
	// end-of-block maps internally to fill phi operands.
	VRegToSSAMapExit []SSAName
}

// BasicBlock is one node of the MIR control-flow graph (spec.md §3).
type BasicBlock struct {
	ID   BasicBlockID
	Type BlockType

	// DFSID and ReversePostOrder are not filled by ssaform.ComputeDFSOrders,
	// which returns the orders as lists.
	DFSID            int
	ReversePostOrder int

	Visited             bool
	Hidden              bool
	CatchEntry          bool
	ExplicitThrow       bool
	ConditionalBranch   bool
	TerminatedByReturn  bool
	DominatesReturn     bool
	LoopHeader          bool

	StartOffset   int32
	NestingDepth  int

	FirstMIR, LastMIR *MIR

	FallThrough BasicBlockID
	Taken       BasicBlockID

	IDom BasicBlockID

	Dominators    *bitvec.BitVector
	IDominated    *bitvec.BitVector
	DomFrontier   *bitvec.BitVector

	DataFlow *DataFlow

	Predecessors []BasicBlockID

	SuccessorBlocks *SuccessorBlockList
}

// Successors calls f for every successor block id this block can transfer
// control to: FallThrough, Taken, and every SuccessorBlockList entry.
func (b *BasicBlock) Successors(f func(BasicBlockID)) {
	if b.FallThrough != InvalidBlockID {
		f(b.FallThrough)
	}
	if b.Taken != InvalidBlockID {
		f(b.Taken)
	}
	if b.SuccessorBlocks != nil {
		for _, e := range b.SuccessorBlocks.Entries {
			f(e.Target)
		}
	}
}

// InsertMIRTail appends m to the end of this block's MIR list, setting its
// back-pointer.
func (b *BasicBlock) InsertMIRTail(m *MIR) {
	m.Block = b
	if b.LastMIR == nil {
		b.FirstMIR, b.LastMIR = m, m
		return
	}
	b.LastMIR.Next = m
	m.Prev = b.LastMIR
	b.LastMIR = m
}

// InsertMIRHead prepends m to the start of this block's MIR list, setting
// its back-pointer. Used to relocate a kMirOpCheck pair's work half to the
// front of its new block (mir/graph.go's Check/work synthesis).
func (b *BasicBlock) InsertMIRHead(m *MIR) {
	m.Block = b
	if b.FirstMIR == nil {
		b.FirstMIR, b.LastMIR = m, m
		return
	}
	m.Next = b.FirstMIR
	b.FirstMIR.Prev = m
	b.FirstMIR = m
}

// RemoveMIR unlinks m from this block's list (used by block-combine and by
// mir.Build's Check/work split).
func (b *BasicBlock) RemoveMIR(m *MIR) {
	if m.Prev != nil {
		m.Prev.Next = m.Next
	} else {
		b.FirstMIR = m.Next
	}
	if m.Next != nil {
		m.Next.Prev = m.Prev
	} else {
		b.LastMIR = m.Prev
	}
	m.Prev, m.Next = nil, nil
}

// Insert a MIR list: ForEachMIR calls f for every MIR in order.
func (b *BasicBlock) ForEachMIR(f func(*MIR)) {
	for m := b.FirstMIR; m != nil; {
		next := m.Next
		f(m)
		m = next
	}
}

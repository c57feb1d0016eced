package mir

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/zyq8709/dexhunter/internal/insndecode"
)

// Graph is the CFG of BasicBlocks for one method, plus the data needed by
// later passes (spec.md §2 component D, §4.2).
type Graph struct {
	Method *DecodedMethod

	blocks []*BasicBlock

	EntryID, ExitID BasicBlockID

	blockMap map[int32]BasicBlockID // bytecode offset -> block head id

	// NumSSANames, filled by the SSA pass.
	NumSSANames int
	// VRegToSSABase maps an SSA name back to its originating Dalvik vreg,
	// filled by the SSA pass.
	VRegToSSABase []int32
}

// Block returns the block with the given id.
func (g *Graph) Block(id BasicBlockID) *BasicBlock { return g.blocks[id] }

// NumBlocks returns the dense block count (including Dead blocks still
// resident in the slice).
func (g *Graph) NumBlocks() int { return len(g.blocks) }

// Entry returns the Entry block.
func (g *Graph) Entry() *BasicBlock { return g.blocks[g.EntryID] }

// Exit returns the Exit block.
func (g *Graph) Exit() *BasicBlock { return g.blocks[g.ExitID] }

// ForEachBlock calls f for every non-Dead block in id order.
func (g *Graph) ForEachBlock(f func(*BasicBlock)) {
	for _, b := range g.blocks {
		if b.Type != BlockDead {
			f(b)
		}
	}
}

func (g *Graph) newBlock(typ BlockType, startOffset int32) *BasicBlock {
	id := BasicBlockID(len(g.blocks))
	b := &BasicBlock{
		ID:          id,
		Type:        typ,
		StartOffset: startOffset,
		FallThrough: InvalidBlockID,
		Taken:       InvalidBlockID,
		IDom:        InvalidBlockID,
	}
	g.blocks = append(g.blocks, b)
	return b
}

// Build decodes method into a Graph: Entry/Exit blocks, one block per
// branch/throw/switch/return-terminated run of instructions, with
// successor_block_list entries for switches and try-protected throws
// (spec.md §4.2).
func Build(method *DecodedMethod) (*Graph, error) {
	g := &Graph{Method: method, blockMap: make(map[int32]BasicBlockID)}

	entry := g.newBlock(BlockEntry, 0)
	g.EntryID = entry.ID
	exit := g.newBlock(BlockExit, int32(len(method.Insns)))
	g.ExitID = exit.ID

	if len(method.Insns) == 0 {
		entry.FallThrough = exit.ID
		exit.Predecessors = append(exit.Predecessors, entry.ID)
		return g, nil
	}

	// Pass 1: decode every instruction, recording branch/switch targets so
	// we know every block-head offset before allocating blocks (spec.md §4.2
	// "every target of every branch must be a block head").
	type decoded struct {
		offset int32
		insn   *insndecode.Instruction
	}
	var stream []decoded
	heads := map[int32]bool{0: true}

	for off := 0; off < len(method.Insns); {
		insn, err := insndecode.Decode(method.Insns, off)
		if err != nil {
			return nil, errors.Wrapf(err, "mir: decoding at offset %d", off)
		}
		stream = append(stream, decoded{int32(off), insn})

		op := insn.Opcode
		if op.CanBranch() || op.IsSwitch() {
			heads[insn.BranchTarget] = true
		}
		// A block ends at every branch/switch/return/throw, per spec.md
		// §4.2; the instruction after any of those (when reachable by
		// fall-through) must be a block head even though it is not itself a
		// branch target.
		if op.CanBranch() || op.IsSwitch() || op.CanThrow() || op.IsReturn() {
			next := int32(off) + int32(insn.WidthInCodeUnits())
			if op.ContinuesToNext() && int(next) < len(method.Insns) {
				heads[next] = true
			}
		}
		off += insn.WidthInCodeUnits()
	}
	for _, tr := range method.Tries {
		for _, h := range tr.Handlers {
			heads[h.HandlerOffset] = true
		}
	}

	var headOffsets []int32
	for off := range heads {
		if off >= 0 && int(off) < len(method.Insns) {
			headOffsets = append(headOffsets, off)
		}
	}
	sort.Slice(headOffsets, func(i, j int) bool { return headOffsets[i] < headOffsets[j] })

	// Pass 2: allocate one ByteCode block per head offset, in source order.
	for _, off := range headOffsets {
		b := g.newBlock(BlockByteCode, off)
		g.blockMap[off] = b.ID
	}

	// Pass 3: walk the instruction stream, appending MIRs to the current
	// block. A block ends either at a terminator (return/branch/switch/
	// throw) or when the next instruction's offset is itself a block head
	// (a branch target or catch handler landed in what would otherwise be
	// the middle of this run) — in the latter case the block implicitly
	// falls through, wired by closeBlock's wireFallThroughToNext.
	offsetToStreamIdx := make(map[int32]int, len(stream))
	for i, d := range stream {
		offsetToStreamIdx[d.offset] = i
	}
	for _, off := range headOffsets {
		b := g.blocks[g.blockMap[off]]
		idx, ok := offsetToStreamIdx[off]
		if !ok {
			continue
		}
		for idx < len(stream) {
			d := stream[idx]
			m := &MIR{Insn: d.insn, Offset: d.offset, Width: int32(d.insn.WidthInCodeUnits())}
			b.InsertMIRTail(m)
			if isTerminator(d.insn) {
				break
			}
			idx++
			if idx >= len(stream) || heads[stream[idx].offset] {
				break
			}
		}
		g.closeBlock(b, method)
	}

	// Wire Entry and catch-handler predecessor bookkeeping.
	if first, ok := g.blockMap[0]; ok {
		entry.FallThrough = first
		g.blocks[first].Predecessors = append(g.blocks[first].Predecessors, entry.ID)
	}
	g.markCatchEntries(method)
	g.linkExitPredecessors()
	g.synthesizeCheckPairs()
	return g, nil
}

// synthesizeCheckPairs implements spec.md §3/§4.4's kMirOpCheck data model:
// every instruction with an implicit null/range/div-zero check that survives
// to a real fall-through whose only predecessor is its own block (closeBlock
// already made it the last MIR of its block, since CanThrow is a
// terminator) is replaced in place by a synthetic
// OpCheck guard, and the original instruction (the "work" half) is relocated
// to the head of the fall-through block, linked back via Meta.PairedMIR.
// CombineBlocks later re-merges the pair once every check the work half
// needs has been proved ignorable.
func (g *Graph) synthesizeCheckPairs() {
	g.ForEachBlock(func(b *BasicBlock) {
		work := b.LastMIR
		if work == nil || !isCheckEligible(work.Insn.Opcode) || b.FallThrough == InvalidBlockID {
			return
		}
		fallBlock := g.blocks[b.FallThrough]
		if len(fallBlock.Predecessors) != 1 {
			return
		}

		b.RemoveMIR(work)
		check := &MIR{
			Insn:   &insndecode.Instruction{Opcode: insndecode.OpCheck, Format: work.Insn.Format},
			Offset: work.Offset,
		}
		check.Meta.PairedMIR = work
		b.InsertMIRTail(check)
		fallBlock.InsertMIRHead(work)
	})
}

func isCheckEligible(op insndecode.Opcode) bool {
	if !op.CanThrow() {
		return false
	}
	attr := Of(op)
	return attr.Has(DFNullChk0) || attr.Has(DFNullChk1) || attr.Has(DFRangeChk1) ||
		attr.Has(DFRangeChk2) || attr.Has(DFDivZeroChk)
}

func isTerminator(insn *insndecode.Instruction) bool {
	op := insn.Opcode
	return op.IsReturn() || op.CanBranch() || op.IsSwitch() || op.CanThrow()
}

// closeBlock inspects the last MIR in b and wires FallThrough/Taken/
// SuccessorBlockList accordingly.
func (g *Graph) closeBlock(b *BasicBlock, method *DecodedMethod) {
	last := b.LastMIR
	if last == nil {
		// Empty block (e.g. a head that is immediately another head): treat
		// as pure fall-through to the next block in offset order.
		g.wireFallThroughToNext(b)
		return
	}
	op := last.Insn.Opcode
	nextOffset := last.Offset + last.Width

	switch {
	case op.IsReturn():
		b.TerminatedByReturn = true
		b.FallThrough = InvalidBlockID

	case op.IsSwitch():
		b.SuccessorBlocks = g.buildSwitchSuccessors(last, method)
		if int(nextOffset) < len(method.Insns) {
			if id, ok := g.blockMap[nextOffset]; ok {
				b.FallThrough = id
				g.addPred(id, b.ID)
			}
		}
		for _, e := range b.SuccessorBlocks.Entries {
			g.addPred(e.Target, b.ID)
		}

	case op.CanBranch():
		if id, ok := g.blockMap[last.Insn.BranchTarget]; ok {
			b.Taken = id
			g.addPred(id, b.ID)
		}
		isUnconditional := last.Insn.Format == insndecode.Fmt10t || last.Insn.Format == insndecode.Fmt20t || last.Insn.Format == insndecode.Fmt30t
		if isUnconditional {
			b.FallThrough = InvalidBlockID
		} else {
			b.ConditionalBranch = true
			if int(nextOffset) < len(method.Insns) {
				if id, ok := g.blockMap[nextOffset]; ok {
					b.FallThrough = id
					g.addPred(id, b.ID)
				}
			}
		}

	case op.CanThrow():
		b.ExplicitThrow = op == insndecode.OpThrow
		g.attachCatchSuccessors(b, last, method)
		g.wireFallThroughToNext(b)

	default:
		g.wireFallThroughToNext(b)
	}
}

func (g *Graph) wireFallThroughToNext(b *BasicBlock) {
	last := b.LastMIR
	var nextOffset int32
	if last != nil {
		nextOffset = last.Offset + last.Width
	} else {
		nextOffset = b.StartOffset
	}
	if int(nextOffset) >= len(g.Method.Insns) {
		return
	}
	if id, ok := g.blockMap[nextOffset]; ok {
		b.FallThrough = id
		g.addPred(id, b.ID)
	}
}

func (g *Graph) addPred(id, pred BasicBlockID) {
	b := g.blocks[id]
	for _, p := range b.Predecessors {
		if p == pred {
			return
		}
	}
	b.Predecessors = append(b.Predecessors, pred)
}

func (g *Graph) buildSwitchSuccessors(m *MIR, method *DecodedMethod) *SuccessorBlockList {
	payloadOff := int(m.Insn.BranchTarget)
	anchor := int(m.Offset)
	if m.Insn.Opcode == insndecode.OpPackedSwitch {
		p, err := insndecode.DecodePackedSwitch(method.Insns, payloadOff, anchor)
		if err != nil {
			return &SuccessorBlockList{Kind: SuccessorPackedSwitch}
		}
		list := &SuccessorBlockList{Kind: SuccessorPackedSwitch}
		for i, t := range p.Targets {
			if id, ok := g.blockMap[t]; ok {
				list.Entries = append(list.Entries, SuccessorEdge{Target: id, Key: p.FirstKey + int32(i)})
			}
		}
		return list
	}
	p, err := insndecode.DecodeSparseSwitch(method.Insns, payloadOff, anchor)
	if err != nil {
		return &SuccessorBlockList{Kind: SuccessorSparseSwitch}
	}
	list := &SuccessorBlockList{Kind: SuccessorSparseSwitch}
	for i, t := range p.Targets {
		if id, ok := g.blockMap[t]; ok {
			list.Entries = append(list.Entries, SuccessorEdge{Target: id, Key: p.Keys[i]})
		}
	}
	return list
}

// attachCatchSuccessors adds a Catch successor_block_list to b if the
// instruction m falls inside a try-protected region (spec.md §4.2 step 5).
func (g *Graph) attachCatchSuccessors(b *BasicBlock, m *MIR, method *DecodedMethod) {
	for _, tr := range method.Tries {
		if m.Offset < tr.StartOffset || m.Offset >= tr.StartOffset+tr.InsnCount {
			continue
		}
		list := &SuccessorBlockList{Kind: SuccessorCatch}
		for _, h := range tr.Handlers {
			if id, ok := g.blockMap[h.HandlerOffset]; ok {
				list.Entries = append(list.Entries, SuccessorEdge{Target: id, Key: int32(h.TypeIdx)})
				g.addPred(id, b.ID)
			}
		}
		b.SuccessorBlocks = list
		return
	}
}

func (g *Graph) markCatchEntries(method *DecodedMethod) {
	for _, tr := range method.Tries {
		for _, h := range tr.Handlers {
			if id, ok := g.blockMap[h.HandlerOffset]; ok {
				g.blocks[id].CatchEntry = true
				g.blocks[id].Type = BlockExceptionHandling
			}
		}
	}
}

// linkExitPredecessors wires every return-terminated block to Exit, per
// spec.md §4.2 "Exit has only return-terminated predecessors".
func (g *Graph) linkExitPredecessors() {
	exit := g.blocks[g.ExitID]
	for _, b := range g.blocks {
		if b.Type == BlockByteCode && b.TerminatedByReturn {
			exit.Predecessors = append(exit.Predecessors, b.ID)
		}
	}
}

// Package lir implements the target-neutral Low-level IR node of spec.md §3
// ("LIR") and the fixed set of pseudo-ops every backend shares (labels,
// safepoints, exported PCs, alignment). Grounded on ART's mir_to_lir.h LIR
// struct and its kPseudo* enum, restructured as a Go struct with an explicit
// linked list matching the teacher's (tetratelabs/wazero) backend IR node
// shape (backend/lower.go's instruction linked list).
package lir

// Opcode identifies an LIR's operation. Real target instructions use
// non-negative values private to each backend/isa package; pseudo-ops are
// negative and shared across every target, per spec.md §3 "opcode
// (pseudo-ops are negative)".
type Opcode int32

const (
	PseudoTargetLabel  Opcode = -1
	PseudoSafepointPC  Opcode = -2
	PseudoExportedPC   Opcode = -3
	PseudoAlign4       Opcode = -4
	PseudoEntryBlock   Opcode = -5
	PseudoExitBlock    Opcode = -6
	PseudoThrowTarget  Opcode = -7
	PseudoCaseLabel    Opcode = -8
	PseudoBarrier      Opcode = -9
)

// IsPseudo reports whether op is one of the shared pseudo-ops.
func (op Opcode) IsPseudo() bool { return op < 0 }

// ResourceMask is the 64-bit bitmap of spec.md §3 "use_mask/def_mask (64-bit
// resource bitmaps mixing physical registers and abstract memory regions)".
// The low bits (0..numPhysRegBits) name physical registers; the high bits
// name abstract resources (ENCODE_LITERAL, ENCODE_DALVIK_REG, ENCODE_HEAP,
// ENCODE_FRAME, ENCODE_CC (condition codes) — spec.md §4.9's scheduling
// barriers use ENCODE_ALL, all bits set).
type ResourceMask uint64

const (
	EncodeHeap ResourceMask = 1 << (56 + iota)
	EncodeLiteral
	EncodeDalvikReg
	EncodeFrame
	EncodeCC
)

// EncodeAll is the all-resources scheduling barrier mask of spec.md §4.8
// step 5 "set its def_mask to ENCODE_ALL to act as a scheduling barrier".
const EncodeAll ResourceMask = ^ResourceMask(0)

// AliasInfo encodes a Dalvik virtual-register slot plus its wide flag for
// must-alias comparisons in the LIR optimizer (spec.md §3 "alias_info
// (encodes Dalvik-vreg + wide flag)").
type AliasInfo struct {
	VReg int32
	Wide bool
}

// Flags is the per-LIR bitset of spec.md §3 "flags {is_nop,
// needs_pcrel_fixup, size-in-bytes}".
type Flags struct {
	IsNop           bool
	NeedsPCRelFixup bool
	IsUnconditionalBranch bool
	SizeBytes       int
}

// LIR is one target machine instruction (or pseudo-op) in a method's
// lowered instruction stream (spec.md §3).
type LIR struct {
	Opcode Opcode

	Offset      int32 // native code offset, assigned by the assembler driver
	DalvikOffset int32 // the source bytecode offset this LIR maps back to

	Operands [5]int32

	// Target is a same-list LIR this instruction refers to: a branch's
	// label, or a load's paired store for scheduling purposes.
	Target *LIR

	UseMask, DefMask ResourceMask
	Alias            AliasInfo
	Flags            Flags

	Prev, Next *LIR
}

// List is a doubly-linked LIR list for one method, one per backend target
// instance (spec.md §4.8 "Instruction emission").
type List struct {
	First, Last *LIR
}

// Append adds l to the end of the list.
func (lst *List) Append(l *LIR) {
	if lst.Last == nil {
		lst.First, lst.Last = l, l
		return
	}
	lst.Last.Next = l
	l.Prev = lst.Last
	lst.Last = l
}

// InsertBefore inserts l immediately before at.
func (lst *List) InsertBefore(at, l *LIR) {
	l.Prev = at.Prev
	l.Next = at
	if at.Prev != nil {
		at.Prev.Next = l
	} else {
		lst.First = l
	}
	at.Prev = l
}

// Remove unlinks l from the list.
func (lst *List) Remove(l *LIR) {
	if l.Prev != nil {
		l.Prev.Next = l.Next
	} else {
		lst.First = l.Next
	}
	if l.Next != nil {
		l.Next.Prev = l.Prev
	} else {
		lst.Last = l.Prev
	}
	l.Prev, l.Next = nil, nil
}

// ForEach calls f for every LIR in order; f may remove the current node.
func (lst *List) ForEach(f func(*LIR)) {
	for l := lst.First; l != nil; {
		next := l.Next
		f(l)
		l = next
	}
}

// NextNonPseudo returns the next real (non-pseudo, non-nop) LIR after l, or
// nil, per spec.md §4.9 "redundant branch removal: ... whose target is the
// next non-pseudo LIR".
func NextNonPseudo(l *LIR) *LIR {
	for n := l.Next; n != nil; n = n.Next {
		if n.Opcode.IsPseudo() || n.Flags.IsNop {
			continue
		}
		return n
	}
	return nil
}

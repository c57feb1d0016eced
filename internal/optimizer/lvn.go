package optimizer

import (
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
)

// Sentinel value numbers reserved out of the 16-bit value-number space
// (spec.md §4.5).
const (
	noValue  uint16 = 0xffff
	arrayRef uint16 = 0xfffe
)

// LVN is the single value-numbering structure for one extended basic block
// (spec.md §4.5). Keys are 64-bit: op<<48 | operand1<<32 | operand2<<16 |
// modifier; a key maps to a single, never-changing value number for the
// life of the structure.
type LVN struct {
	table      map[uint64]uint16
	next       uint16
	ssaVN      []uint16 // ssa name -> value number, noValue until computed
	memVer     map[memKey]uint16
	fieldEpoch map[uint32]uint16 // invalidateAllFields fallback, see bumpMemVersion
	rangeCheck map[uint64]bool
}

type memKey struct {
	base  uint16
	field uint32
}

func newLVN(numSSANames int) *LVN {
	vn := make([]uint16, numSSANames)
	for i := range vn {
		vn[i] = noValue
	}
	return &LVN{
		table:      make(map[uint64]uint16),
		next:       1,
		ssaVN:      vn,
		memVer:     make(map[memKey]uint16),
		fieldEpoch: make(map[uint32]uint16),
		rangeCheck: make(map[uint64]bool),
	}
}

func key(op uint16, o1, o2 uint32, mod uint16) uint64 {
	return uint64(op)<<48 | uint64(o1)<<32 | uint64(o2)<<16 | uint64(mod)
}

func (l *LVN) lookup(op uint16, o1, o2 uint32, mod uint16) uint16 {
	k := key(op, o1, o2, mod)
	if vn, ok := l.table[k]; ok {
		return vn
	}
	vn := l.next
	l.next++
	l.table[k] = vn
	return vn
}

func (l *LVN) valueOf(ssa mir.SSAName) uint16 {
	if int(ssa) < 0 || int(ssa) >= len(l.ssaVN) {
		return noValue
	}
	return l.ssaVN[ssa]
}

func (l *LVN) setValue(ssa mir.SSAName, vn uint16) {
	if int(ssa) >= 0 && int(ssa) < len(l.ssaVN) {
		l.ssaVN[ssa] = vn
	}
}

// memVersion combines the (base, field) version with the field's global
// invalidation epoch, so a store through an object this LVN cannot prove
// distinct from base still forces a fresh version here (invalidateAllFields,
// below).
func (l *LVN) memVersion(base uint16, field uint32) uint16 {
	return l.memVer[memKey{base, field}] ^ l.fieldEpoch[field]
}

// bumpMemVersion records a store to (base, field) and also runs
// invalidateAllFields: since this LVN tracks no alias analysis proving base
// is the only live reference to an object with this field, a store through
// any base must be assumed to alias every other base's copy of the same
// field name, matching the original's conservative "unknown base
// invalidates everything of that field name" rule.
func (l *LVN) bumpMemVersion(base uint16, field uint32) {
	l.memVer[memKey{base, field}]++
	l.invalidateAllFields(field)
}

func (l *LVN) invalidateAllFields(field uint32) {
	l.fieldEpoch[field]++
}

// RunExtendedBB runs one LVN pass over an extended basic block (a chain of
// blocks linked by single-predecessor fall-through, per spec.md §4.5),
// computing a value number for every MIR's defs, additionally performing
// compare-branch fusion as it walks, and
// marking FlagIgnoreRangeCheck where a prior identical bounds check already
// ran.
func RunExtendedBB(g *mir.Graph, blocks []mir.BasicBlockID, numSSANames int) {
	l := newLVN(numSSANames)
	for _, id := range blocks {
		b := g.Block(id)
		var pendingCmp *mir.MIR
		b.ForEachMIR(func(m *mir.MIR) {
			if m.Insn.Opcode == insndecode.OpNop {
				return
			}
			if isCompareOp(m.Insn.Opcode) {
				pendingCmp = m
				return
			}
			if pendingCmp != nil && isIfZ(m.Insn.Opcode) && usesResultOf(m, pendingCmp) {
				fuse(m, pendingCmp)
				pendingCmp = nil
				valueNumber(l, m)
				return
			}
			pendingCmp = nil
			valueNumber(l, m)
		})
	}
}

func isCompareOp(op insndecode.Opcode) bool {
	switch op {
	case insndecode.OpCmplFloat, insndecode.OpCmpgFloat, insndecode.OpCmplDouble, insndecode.OpCmpgDouble, insndecode.OpCmpLong:
		return true
	default:
		return false
	}
}

func isIfZ(op insndecode.Opcode) bool {
	switch op {
	case insndecode.OpIfEqz, insndecode.OpIfNez:
		return true
	default:
		return false
	}
}

func usesResultOf(ifz, cmp *mir.MIR) bool {
	if ifz.SSA == nil || cmp.SSA == nil || cmp.SSA.NumDefs == 0 || ifz.SSA.NumUses == 0 {
		return false
	}
	return ifz.SSA.Uses[0] == cmp.SSA.Defs[0]
}

var fusedOpFor = map[insndecode.Opcode]insndecode.Opcode{
	insndecode.OpCmplFloat:  insndecode.OpFusedCmplFloat,
	insndecode.OpCmpgFloat:  insndecode.OpFusedCmpgFloat,
	insndecode.OpCmplDouble: insndecode.OpFusedCmplDouble,
	insndecode.OpCmpgDouble: insndecode.OpFusedCmpgDouble,
	insndecode.OpCmpLong:    insndecode.OpFusedCmpLong,
}

// fuse rewrites ifz into a fused compare-and-branch MIR and NOPs cmp, per
// spec.md §4.4 step 5 "compare-branch fusion".
func fuse(ifz, cmp *mir.MIR) {
	fusedOp, ok := fusedOpFor[cmp.Insn.Opcode]
	if !ok {
		return
	}
	isNez := ifz.Insn.Opcode == insndecode.OpIfNez
	ifz.Insn.Opcode = fusedOp
	ifz.Insn.VA = cmp.Insn.VB
	ifz.Insn.VB = cmp.Insn.VC
	_ = isNez // the taken/fall_through polarity is unchanged; only the
	// compare semantics that feeds the branch changes, not which edge is
	// "taken" for IfEqz vs IfNez.
	ifz.SSA.Uses = cmp.SSA.Uses
	ifz.SSA.NumUses = cmp.SSA.NumUses

	cmp.Meta.OriginalOp = cmp.Insn.Opcode
	cmp.Meta.HasOriginalOp = true
	cmp.Insn.Opcode = insndecode.OpNop
}

// valueNumber assigns l's value numbers to m's defs per spec.md §4.5's
// per-opcode-family rules, and marks redundant range checks.
func valueNumber(l *LVN, m *mir.MIR) {
	if m.SSA == nil {
		return
	}
	op := m.Insn.Opcode
	opKey := uint16(op)

	switch {
	case op.IsInvoke(), op == insndecode.OpMonitorEnter, op == insndecode.OpMonitorExit, op == insndecode.OpThrow,
		op == insndecode.OpFilledNewArray, op == insndecode.OpFillArrayData:
		// Opaque/side-effecting: no VN produced (spec.md §4.5 invariants).
		return

	case mir.Of(op).Has(mir.DFIsMove):
		if m.SSA.NumUses > 0 && m.SSA.NumDefs > 0 {
			l.setValue(m.SSA.Defs[0], l.valueOf(m.SSA.Uses[0]))
			if m.SSA.NumDefs > 1 && m.SSA.NumUses > 1 {
				l.setValue(m.SSA.Defs[1], l.valueOf(m.SSA.Uses[1]))
			}
		}

	case mir.Of(op).Has(mir.DFSetsConst):
		lowKey := l.lookup(opKey, uint32(m.Insn.VB), 0, noValue)
		if m.SSA.NumDefs > 0 {
			l.setValue(m.SSA.Defs[0], lowKey)
		}
		if m.SSA.NumDefs > 1 {
			highKey := l.lookup(opKey, uint32(m.Insn.VB>>31), 1, noValue)
			l.setValue(m.SSA.Defs[1], l.lookup(opKey, uint32(lowKey), uint32(highKey), noValue))
		}

	case isArrayGet(op):
		base := l.valueOf(m.SSA.Uses[0])
		idx := l.valueOf(m.SSA.Uses[1])
		rangeKey := l.lookup(uint16(arrayRef), uint32(base), uint32(idx), noValue)
		markRangeCheck(l, m, rangeKey, base, idx)
		memVer := l.memVersion(base, uint32(idx))
		vn := l.lookup(opKey, uint32(base), uint32(idx), memVer)
		if m.SSA.NumDefs > 0 {
			l.setValue(m.SSA.Defs[0], vn)
		}

	case isArrayPut(op):
		base := l.valueOf(m.SSA.Uses[len(m.SSA.Uses)-2])
		idx := l.valueOf(m.SSA.Uses[len(m.SSA.Uses)-1])
		l.lookup(uint16(arrayRef), uint32(base), uint32(idx), noValue)
		l.bumpMemVersion(base, uint32(idx))

	case op == insndecode.OpIget || op == insndecode.OpIgetWide || op == insndecode.OpIgetObject:
		base := l.valueOf(m.SSA.Uses[0])
		field := m.Insn.PoolIndex
		memVer := l.memVersion(base, field)
		vn := l.lookup(opKey, uint32(base), field, memVer)
		if m.SSA.NumDefs > 0 {
			l.setValue(m.SSA.Defs[0], vn)
		}

	case op == insndecode.OpIput || op == insndecode.OpIputWide || op == insndecode.OpIputObject:
		base := l.valueOf(m.SSA.Uses[len(m.SSA.Uses)-1])
		l.bumpMemVersion(base, m.Insn.PoolIndex)

	case op == insndecode.OpSget || op == insndecode.OpSgetWide || op == insndecode.OpSgetObject:
		memVer := l.memVersion(0, m.Insn.PoolIndex)
		vn := l.lookup(opKey, m.Insn.PoolIndex, 0, memVer)
		if m.SSA.NumDefs > 0 {
			l.setValue(m.SSA.Defs[0], vn)
		}

	case op == insndecode.OpSput || op == insndecode.OpSputWide || op == insndecode.OpSputObject:
		l.bumpMemVersion(0, m.Insn.PoolIndex)

	default:
		// Unary/binary arithmetic and everything else with exactly one def:
		// vn = lookup(op, vn(src1), vn(src2), NO_VALUE).
		if m.SSA.NumDefs == 0 {
			return
		}
		var o1, o2 uint32 = uint32(noValue), uint32(noValue)
		if m.SSA.NumUses > 0 {
			o1 = uint32(l.valueOf(m.SSA.Uses[0]))
		}
		if m.SSA.NumUses > 1 {
			o2 = uint32(l.valueOf(m.SSA.Uses[1]))
		}
		l.setValue(m.SSA.Defs[0], l.lookup(opKey, o1, o2, noValue))
	}
}

// markRangeCheck implements spec.md §4.5 "range/null checks: recorded as
// side-effects by calling lookup(ARRAY_REF, base, index, NO_VALUE); if the
// same key already exists, the current MIR can drop its range check."
func markRangeCheck(l *LVN, m *mir.MIR, rangeKey uint16, base, idx uint16) {
	k := key(uint16(arrayRef), uint32(base), uint32(idx), noValue)
	if l.rangeCheck[k] {
		m.OptFlags |= mir.FlagIgnoreRangeCheck
	}
	l.rangeCheck[k] = true
	_ = rangeKey
}

func isArrayGet(op insndecode.Opcode) bool {
	switch op {
	case insndecode.OpAget, insndecode.OpAgetWide, insndecode.OpAgetObject, insndecode.OpAgetBoolean,
		insndecode.OpAgetByte, insndecode.OpAgetChar, insndecode.OpAgetShort:
		return true
	default:
		return false
	}
}

func isArrayPut(op insndecode.Opcode) bool {
	switch op {
	case insndecode.OpAput, insndecode.OpAputWide, insndecode.OpAputObject, insndecode.OpAputBoolean,
		insndecode.OpAputByte, insndecode.OpAputChar, insndecode.OpAputShort:
		return true
	default:
		return false
	}
}

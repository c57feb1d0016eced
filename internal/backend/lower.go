package backend

import (
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/lir"
	"github.com/zyq8709/dexhunter/internal/mir"
	"github.com/zyq8709/dexhunter/internal/regalloc"
)

// Lower runs spec.md §4.8's pipeline steps 3-5 over g, dispatching each MIR
// to m through the Machine capability interface: one label per block (catch
// entries get a kPseudoExportedPC marker), per-MIR emission via a large
// switch, and a kPseudoSafepointPC barrier after anything that can suspend.
func Lower(g *mir.Graph, m Machine, assignment regalloc.Assignment, resolver IntrinsicResolver, vregOfSSA []int32) *lir.List {
	list := &lir.List{}
	labels := make(map[mir.BasicBlockID]*lir.LIR)

	g.ForEachBlock(func(b *mir.BasicBlock) {
		labels[b.ID] = &lir.LIR{Opcode: lir.PseudoTargetLabel, Operands: [5]int32{int32(b.ID)}}
	})

	dexFileVersion := 0
	if g.Method != nil {
		dexFileVersion = g.Method.DexFileVersion
	}
	g.ForEachBlock(func(b *mir.BasicBlock) {
		list.Append(labels[b.ID])
		if b.CatchEntry {
			list.Append(&lir.LIR{Opcode: lir.PseudoExportedPC, DalvikOffset: b.StartOffset})
		}
		b.ForEachMIR(func(mi *mir.MIR) {
			emitOne(list, m, mi, assignment, labels, resolver, vregOfSSA, dexFileVersion)
		})
	})
	return list
}

func reg(assignment regalloc.Assignment, ssa mir.SSAName) int32 {
	if r, ok := assignment[ssa]; ok {
		return r
	}
	return -1 - int32(ssa) // a negative sentinel meaning "spilled, lives at its Dalvik slot"
}

func emitOne(list *lir.List, m Machine, mi *mir.MIR, assignment regalloc.Assignment, labels map[mir.BasicBlockID]*lir.LIR, resolver IntrinsicResolver, vregOfSSA []int32, dexFileVersion int) {
	op := mi.Insn.Opcode
	ssaDef := func(i int) int32 {
		if mi.SSA == nil || i >= len(mi.SSA.Defs) {
			return -1
		}
		return reg(assignment, mi.SSA.Defs[i])
	}
	ssaUse := func(i int) int32 {
		if mi.SSA == nil || i >= len(mi.SSA.Uses) {
			return -1
		}
		return reg(assignment, mi.SSA.Uses[i])
	}

	suspends := false

	switch {
	case op == insndecode.OpNop:
		return

	case op == insndecode.OpCheck:
		// The guard half of an un-recombined kMirOpCheck pair: the fault the
		// guard stands for is realized implicitly by the paired work MIR's
		// own memory access (its Gen* emitter never does explicit bounds/
		// null/div-zero codegen, consistent with every other capability
		// method in Machine), so the guard itself contributes no code.
		return

	case op == insndecode.OpSelect:
		m.GenArithOp(list, op, ssaDef(0), mi.Insn.VB, mi.Insn.VC)

	case isFusedCompareBranch(op):
		target := labels[mi.Block.Taken]
		m.GenCompareAndBranch(list, op, ssaUse(0), ssaUse(1), target)

	case op.IsReturn():
		wide := mir.Of(op).Has(mir.DFAWide)
		object := op == insndecode.OpReturnObject
		m.GenReturn(list, ssaUse(0), wide, object, op == insndecode.OpReturnVoid)

	case op.CanBranch() && !op.IsSwitch():
		target := labels[mi.Block.Taken]
		if op == insndecode.OpGoto || op == insndecode.OpGoto16 || op == insndecode.OpGoto32 {
			m.GenGoto(list, target)
		} else {
			m.GenCompareAndBranch(list, op, ssaUse(0), zeroOrSecondOperand(mi, ssaUse), target)
		}

	case isArrayGet(op):
		m.GenArrayGet(list, op, ssaDef(0), ssaUse(0), ssaUse(1))

	case isArrayPut(op):
		m.GenArrayPut(list, op, ssaUse(0), ssaUse(len(mi.SSA.Uses)-2), ssaUse(len(mi.SSA.Uses)-1))

	case op == insndecode.OpIget, op == insndecode.OpIgetWide, op == insndecode.OpIgetObject:
		m.GenIGet(list, op, ssaDef(0), ssaUse(0), mi.Insn.PoolIndex)
	case op == insndecode.OpIput, op == insndecode.OpIputWide, op == insndecode.OpIputObject:
		m.GenIPut(list, op, ssaUse(len(mi.SSA.Uses)-1), ssaUse(0), mi.Insn.PoolIndex)
	case op == insndecode.OpSget, op == insndecode.OpSgetWide, op == insndecode.OpSgetObject:
		m.GenSget(list, op, ssaDef(0), mi.Insn.PoolIndex)
	case op == insndecode.OpSput, op == insndecode.OpSputWide, op == insndecode.OpSputObject:
		m.GenSput(list, op, ssaUse(len(mi.SSA.Uses)-1), mi.Insn.PoolIndex)

	case op.IsInvoke():
		if intrinsic, ok := matchIntrinsic(resolver, mi.Insn); ok {
			emitIntrinsic(list, m, intrinsic, mi, assignment)
		} else {
			var args []int32
			for i := range mi.SSA.Uses {
				args = append(args, ssaUse(i))
			}
			m.GenInvoke(list, mi.Insn, args)
		}
		suspends = true

	case op == insndecode.OpNewInstance || op == insndecode.OpNewArray:
		m.GenNewArray(list, ssaDef(0), ssaUse(0), mi.Insn.PoolIndex)
		suspends = true

	case op == insndecode.OpCheckCast:
		m.GenCheckCast(list, ssaUse(0), mi.Insn.PoolIndex)
	case op == insndecode.OpInstanceOf:
		m.GenInstanceOf(list, ssaDef(0), ssaUse(0), mi.Insn.PoolIndex)
	case op == insndecode.OpMonitorEnter:
		m.GenMonitorEnter(list, ssaUse(0))
		suspends = true
	case op == insndecode.OpMonitorExit:
		if monitorUnlockMismatchFatal(dexFileVersion) {
			mi.OptFlags |= mir.FlagMonitorUnlockFatal
		}
		m.GenMonitorExit(list, ssaUse(0))
		suspends = true

	case mir.Of(op).Has(mir.DFIsMove):
		dst := ssaDef(0)
		m.LoadValue(list, dst, mi.SSA.Uses[0])
		tagFrameSlotAccess(list.Last, dst, mi.SSA.Defs[0], vregOfSSA, mir.Of(op).Has(mir.DFAWide), false)

	case mir.Of(op).Has(mir.DFSetsConst):
		dst := ssaDef(0)
		m.StoreValue(list, mi.SSA.Defs[0], dst)
		tagFrameSlotAccess(list.Last, dst, mi.SSA.Defs[0], vregOfSSA, mir.Of(op).Has(mir.DFAWide), true)

	default:
		m.GenArithOp(list, op, ssaDef(0), ssaUse(0), ssaUse(1))
	}

	if mi.OptFlags.Has(mir.FlagIgnoreSuspendCheck) {
		suspends = false
	}
	if suspends {
		list.Append(&lir.LIR{Opcode: lir.PseudoSafepointPC, DalvikOffset: mi.Offset, DefMask: lir.EncodeAll})
		m.GenSuspendTest(list)
	}
}

// tagFrameSlotAccess stamps the last-emitted LIR with the Dalvik-vreg
// AliasInfo and an EncodeDalvikReg resource bit whenever reg turned out to
// be an unpromoted (spilled) SSA name, so lopt's must-alias load/store
// elimination has something concrete to compare against (spec.md §3's
// "alias_info encodes Dalvik-vreg + wide flag" exists specifically for this
// stack-slot reload/spill case, not for promoted registers).
func tagFrameSlotAccess(node *lir.LIR, reg int32, ssa mir.SSAName, vregOfSSA []int32, wide, isStore bool) {
	if node == nil || reg >= 0 {
		return
	}
	vreg := int32(-1)
	if int(ssa) < len(vregOfSSA) {
		vreg = vregOfSSA[ssa]
	}
	node.Alias = lir.AliasInfo{VReg: vreg, Wide: wide}
	node.UseMask |= lir.EncodeDalvikReg
	if isStore {
		node.DefMask |= lir.EncodeDalvikReg
	} else if node.DefMask == 0 {
		// mark a nonzero, non-frame-slot def so lopt's isLoad predicate
		// (DefMask != 0 && DefMask lacks EncodeDalvikReg) recognizes this
		// as a reload rather than a plain memory write.
		node.DefMask = 1
	}
}

func zeroOrSecondOperand(mi *mir.MIR, ssaUse func(int) int32) int32 {
	if mi.SSA != nil && len(mi.SSA.Uses) > 1 {
		return ssaUse(1)
	}
	return 0
}

func isFusedCompareBranch(op insndecode.Opcode) bool {
	switch op {
	case insndecode.OpFusedCmplFloat, insndecode.OpFusedCmpgFloat, insndecode.OpFusedCmplDouble,
		insndecode.OpFusedCmpgDouble, insndecode.OpFusedCmpLong:
		return true
	default:
		return false
	}
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

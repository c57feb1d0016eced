package ssaform

import (
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
)

// rawUsesDefs extracts the pre-SSA Dalvik virtual-register use/def sets for
// m from its DFAttr classification (mir.Of), expanding wide operands to the
// pair of vregs they occupy and invoke argument lists to every argument
// register, per spec.md §4.3's renaming pass operating over raw vreg
// references before SSA names exist.
func rawUsesDefs(m *mir.MIR) (uses, defs []int) {
	insn := m.Insn
	attr := mir.Of(insn.Opcode)

	if insn.Opcode.IsInvoke() {
		return invokeUses(insn), nil
	}

	if attr.Has(mir.DFUseA) {
		uses = appendVReg(uses, int(insn.VA), attr.Has(mir.DFAWide))
	}
	if attr.Has(mir.DFUseB) {
		uses = appendVReg(uses, int(insn.VB), attr.Has(mir.DFBWide))
	}
	if attr.Has(mir.DFUseC) {
		uses = appendVReg(uses, int(insn.VC), attr.Has(mir.DFCWide))
	}
	if attr.Has(mir.DFDefA) {
		defs = appendVReg(defs, int(insn.VA), attr.Has(mir.DFAWide))
	}
	return uses, defs
}

func appendVReg(list []int, v int, wide bool) []int {
	list = append(list, v)
	if wide {
		list = append(list, v+1)
	}
	return list
}

func invokeUses(insn *insndecode.Instruction) []int {
	var uses []int
	if insn.Format == insndecode.Fmt3rc {
		first := int(insn.VC)
		for i := 0; i < insn.ArgCount; i++ {
			uses = append(uses, first+i)
		}
		return uses
	}
	for i := 0; i < insn.ArgCount && i < 5; i++ {
		uses = append(uses, int(insn.Args[i]))
	}
	return uses
}

// Package mips32 implements backend.Machine for the MIPS32 instruction set,
// one more concrete type dispatched against through the teacher-grounded
// Machine interface in internal/backend/machine.go (same role as the
// teacher's (tetratelabs/wazero) backend/isa/amd64 package alongside its
// arm64 sibling: a second target sharing one generic lowering pass).
package mips32

import (
	"encoding/binary"

	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/lir"
	"github.com/zyq8709/dexhunter/internal/mir"
	"github.com/zyq8709/dexhunter/internal/regalloc"
)

// MIPS32 register numbers (O32 ABI names in comments).
const (
	ZERO = iota
	AT
	V0
	V1
	A0
	A1
	A2
	A3
	T0
	T1
	T2
	T3
	T4
	T5
	T6
	T7
	S0
	S1
	S2
	S3
	S4
	S5
	S6
	S7
	T8
	T9
	K0
	K1
	GP
	SP
	FP
	RA
)

var corePool = []int32{S0, S2, S3, S4, S5, S6, S7} // $s1 is the reserved "self" register
var fpPool = []int32{0, 2, 4, 6, 8, 10, 12, 14} // $f0,$f2,... (even-numbered, single-precision aliases)

type Machine struct {
	ssaHome map[mir.SSAName]int32
}

func New() *Machine { return &Machine{ssaHome: make(map[mir.SSAName]int32)} }

func (m *Machine) Name() string { return "mips32" }

func (m *Machine) RegisterPool() regalloc.Pool {
	return regalloc.Pool{Core: corePool, Ref: corePool, FP: fpPool}
}

func emit(l *lir.List, word uint32) {
	l.Append(&lir.LIR{Opcode: lir.Opcode(word >> 16), Operands: [5]int32{int32(word & 0xffff)}, Flags: lir.Flags{SizeBytes: 4}})
}

func (m *Machine) LoadValue(l *lir.List, dst int32, ssa mir.SSAName) {
	emit(l, encodeMove(uint8(dst), uint8(m.ssaHome[ssa])))
}

func (m *Machine) StoreValue(l *lir.List, ssa mir.SSAName, src int32) {
	m.ssaHome[ssa] = src
}

func (m *Machine) GenArithOp(l *lir.List, op insndecode.Opcode, dst, src1, src2 int32) {
	emit(l, encodeRType(funcFor(op), uint8(src1), uint8(src2), uint8(dst)))
}

func (m *Machine) GenArrayGet(l *lir.List, op insndecode.Opcode, dst, base, index int32) {
	emit(l, encodeRType(funcAddu, uint8(base), uint8(index), AT))
	emit(l, encodeLw(uint8(dst), AT, 0))
}

func (m *Machine) GenArrayPut(l *lir.List, op insndecode.Opcode, src, base, index int32) {
	emit(l, encodeRType(funcAddu, uint8(base), uint8(index), AT))
	emit(l, encodeSw(uint8(src), AT, 0))
}

func (m *Machine) GenIGet(l *lir.List, op insndecode.Opcode, dst, base int32, fieldIdx uint32) {
	emit(l, encodeLw(uint8(dst), uint8(base), int16(fieldIdx)))
}

func (m *Machine) GenIPut(l *lir.List, op insndecode.Opcode, src, base int32, fieldIdx uint32) {
	emit(l, encodeSw(uint8(src), uint8(base), int16(fieldIdx)))
}

func (m *Machine) GenSget(l *lir.List, op insndecode.Opcode, dst int32, fieldIdx uint32) {
	emit(l, encodeLui(AT, uint16(fieldIdx>>16)))
	emit(l, encodeLw(uint8(dst), AT, int16(fieldIdx)))
}

func (m *Machine) GenSput(l *lir.List, op insndecode.Opcode, src int32, fieldIdx uint32) {
	emit(l, encodeLui(AT, uint16(fieldIdx>>16)))
	emit(l, encodeSw(uint8(src), AT, int16(fieldIdx)))
}

func (m *Machine) GenInvoke(l *lir.List, insn *insndecode.Instruction, argRegs []int32) {
	for i, r := range argRegs {
		if i < 4 {
			emit(l, encodeMove(uint8(A0+i), uint8(r)))
		}
	}
	emit(l, encodeJal(0))
	emit(l, encodeNop()) // branch-delay slot
}

func (m *Machine) GenNewArray(l *lir.List, dst, lengthReg int32, typeIdx uint32) {
	emit(l, encodeMove(A0, uint8(lengthReg)))
	emit(l, encodeJal(0))
	emit(l, encodeNop())
	emit(l, encodeMove(uint8(dst), V0))
}

func (m *Machine) GenCheckCast(l *lir.List, ref int32, typeIdx uint32) {
	emit(l, encodeMove(A0, uint8(ref)))
	emit(l, encodeJal(0))
	emit(l, encodeNop())
}

func (m *Machine) GenInstanceOf(l *lir.List, dst, ref int32, typeIdx uint32) {
	emit(l, encodeMove(A0, uint8(ref)))
	emit(l, encodeJal(0))
	emit(l, encodeNop())
	emit(l, encodeMove(uint8(dst), V0))
}

func (m *Machine) GenMonitorEnter(l *lir.List, ref int32) {
	emit(l, encodeMove(A0, uint8(ref)))
	emit(l, encodeJal(0))
	emit(l, encodeNop())
}

func (m *Machine) GenMonitorExit(l *lir.List, ref int32) {
	emit(l, encodeMove(A0, uint8(ref)))
	emit(l, encodeJal(0))
	emit(l, encodeNop())
}

// GenSuspendTest loads ART's thread-local suspend flag off $s1 (the MIPS
// quick backend's reserved "self" register) into $at; no compare or branch
// is emitted here.
func (m *Machine) GenSuspendTest(l *lir.List) {
	emit(l, encodeLw(AT, S1, 0))
}

// GenCompareAndBranch lowers every ordering test through slt into MIPS's
// only native conditional branches, beq/bne against $zero: only eq/ne
// compare the two operands directly, matching ART's Mips32Mir2Lir which
// does the same slt-then-branch expansion for everything but eq/ne.
func (m *Machine) GenCompareAndBranch(l *lir.List, op insndecode.Opcode, src1, src2 int32, target *lir.LIR) *lir.LIR {
	if isOrderingCompare(op) {
		rs, rt := src1, src2
		switch op {
		case insndecode.OpIfGt, insndecode.OpIfGtz, insndecode.OpIfLe, insndecode.OpIfLez:
			rs, rt = src2, src1 // gt/le test src2 < src1
		}
		emit(l, encodeRType(sltFuncFor(op), uint8(rs), uint8(rt), AT))
		src1, src2 = AT, ZERO
	}
	branch := &lir.LIR{Opcode: lir.Opcode(branchOpcodeFor(op)), Operands: [5]int32{src1, src2}, Target: target, Flags: lir.Flags{NeedsPCRelFixup: true, SizeBytes: 8}}
	l.Append(branch)
	return branch
}

func (m *Machine) GenGoto(l *lir.List, target *lir.LIR) *lir.LIR {
	branch := &lir.LIR{Opcode: lir.Opcode(opJ), Target: target, Flags: lir.Flags{NeedsPCRelFixup: true, IsUnconditionalBranch: true, SizeBytes: 8}}
	l.Append(branch)
	return branch
}

func (m *Machine) GenReturn(l *lir.List, src int32, wide, object, isVoid bool) {
	if !isVoid {
		emit(l, encodeMove(V0, uint8(src)))
	}
	emit(l, encodeJr(RA))
	emit(l, encodeNop())
}

// AssembleInstructions writes each 32-bit instruction word; a branch's
// SizeBytes of 8 reserves its delay slot, which is filled with a nop here. MIPS32's ±128KiB PC-relative branch range is generous enough
// that, unlike the Thumb2 and x86-32 targets, a retry is only forced by an
// absolute jal/j target crossing a 256MiB segment boundary, which this
// single-method compiler never produces.
func (m *Machine) AssembleInstructions(list *lir.List, buf []byte) (int, bool) {
	n := 0
	list.ForEach(func(l *lir.LIR) {
		if l.Opcode.IsPseudo() {
			return
		}
		word := uint32(l.Opcode)<<16 | uint32(uint16(l.Operands[0]))
		if n+4 <= len(buf) {
			binary.LittleEndian.PutUint32(buf[n:], word)
		}
		n += 4
		if l.Flags.SizeBytes == 8 {
			if n+4 <= len(buf) {
				binary.LittleEndian.PutUint32(buf[n:], encodeNop())
			}
			n += 4
		}
	})
	return n, true
}

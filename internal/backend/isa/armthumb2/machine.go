// Package armthumb2 implements backend.Machine for the ARMv7 Thumb2
// instruction set. Grounded on the teacher's (tetratelabs/wazero)
// backend/isa/arm64 package's shape (one machine struct, Gen* methods
// appending instructions, Encode walking the list to emit bytes), adapted to
// Thumb2's 16/32-bit mixed-width encoding instead of arm64's fixed 4-byte
// words.
package armthumb2

import (
	"encoding/binary"

	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/lir"
	"github.com/zyq8709/dexhunter/internal/mir"
	"github.com/zyq8709/dexhunter/internal/regalloc"
)

// Register numbers in Thumb2 encoding order: r0-r12 general purpose, r13=sp,
// r14=lr, r15=pc. The allocator's core pool is r0-r7 and r11; it leaves out
// r8, r9 (ART's "self" register, read by GenSuspendTest), r10, r12 (the
// scratch register GenSuspendTest loads into), and sp/lr/pc.
const (
	R0 = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	SP
	LR
	PC
)

var corePool = []int32{R0, R1, R2, R3, R4, R5, R6, R7, R11}
var fpPool = []int32{16, 17, 18, 19, 20, 21, 22, 23} // s0-s7

// Machine is the ARMv7 Thumb2 code generator.
type Machine struct {
	ssaHome map[mir.SSAName]int32 // vreg -> simulated Dalvik-frame slot for unpromoted SSA names
}

// New returns a fresh Thumb2 Machine instance for one method compilation.
func New() *Machine {
	return &Machine{ssaHome: make(map[mir.SSAName]int32)}
}

func (m *Machine) Name() string { return "armthumb2" }

func (m *Machine) RegisterPool() regalloc.Pool {
	return regalloc.Pool{Core: corePool, Ref: corePool, FP: fpPool}
}

func emit16(l *lir.List, half uint16) {
	l.Append(&lir.LIR{Opcode: lir.Opcode(half), Flags: lir.Flags{SizeBytes: 2}})
}

func emit32(l *lir.List, word uint32) {
	l.Append(&lir.LIR{Opcode: lir.Opcode(word >> 16), Operands: [5]int32{int32(word & 0xffff)}, Flags: lir.Flags{SizeBytes: 4}})
}

// LoadValue emits a mov reg<-reg for a promoted source, matching ART's
// Thumb2Mir2Lir::OpRegCopy shape of always going through a single helper so
// wide/narrow moves share one code path upstream.
func (m *Machine) LoadValue(l *lir.List, dst int32, ssa mir.SSAName) {
	emit16(l, encodeMovRegReg(uint8(dst), uint8(m.ssaHome[ssa])))
}

func (m *Machine) StoreValue(l *lir.List, ssa mir.SSAName, src int32) {
	m.ssaHome[ssa] = src
}

func (m *Machine) GenArithOp(l *lir.List, op insndecode.Opcode, dst, src1, src2 int32) {
	emit16(l, encodeDataProcessing(arithThumbOp(op), uint8(dst), uint8(src1), uint8(src2)))
}

func (m *Machine) GenArrayGet(l *lir.List, op insndecode.Opcode, dst, base, index int32) {
	emit16(l, encodeLdrReg(uint8(dst), uint8(base), uint8(index)))
}

func (m *Machine) GenArrayPut(l *lir.List, op insndecode.Opcode, src, base, index int32) {
	emit16(l, encodeStrReg(uint8(src), uint8(base), uint8(index)))
}

func (m *Machine) GenIGet(l *lir.List, op insndecode.Opcode, dst, base int32, fieldIdx uint32) {
	emit16(l, encodeLdrImm(uint8(dst), uint8(base), uint8(fieldIdx&0x1f)))
}

func (m *Machine) GenIPut(l *lir.List, op insndecode.Opcode, src, base int32, fieldIdx uint32) {
	emit16(l, encodeStrImm(uint8(src), uint8(base), uint8(fieldIdx&0x1f)))
}

func (m *Machine) GenSget(l *lir.List, op insndecode.Opcode, dst int32, fieldIdx uint32) {
	emit32(l, encodeLdrLiteral(uint8(dst), fieldIdx))
}

func (m *Machine) GenSput(l *lir.List, op insndecode.Opcode, src int32, fieldIdx uint32) {
	emit32(l, encodeStrLiteral(uint8(src), fieldIdx))
}

func (m *Machine) GenInvoke(l *lir.List, insn *insndecode.Instruction, argRegs []int32) {
	for i, r := range argRegs {
		if i < 4 {
			emit16(l, encodeMovRegReg(uint8(i), uint8(r)))
		}
	}
	emit32(l, encodeBL(0)) // placeholder displacement, patched by the assembler driver
}

func (m *Machine) GenNewArray(l *lir.List, dst, lengthReg int32, typeIdx uint32) {
	emit16(l, encodeMovRegReg(R0, uint8(lengthReg)))
	emit32(l, encodeBL(0))
	emit16(l, encodeMovRegReg(uint8(dst), R0))
}

func (m *Machine) GenCheckCast(l *lir.List, ref int32, typeIdx uint32) {
	emit16(l, encodeMovRegReg(R0, uint8(ref)))
	emit32(l, encodeBL(0))
}

func (m *Machine) GenInstanceOf(l *lir.List, dst, ref int32, typeIdx uint32) {
	emit16(l, encodeMovRegReg(R0, uint8(ref)))
	emit32(l, encodeBL(0))
	emit16(l, encodeMovRegReg(uint8(dst), R0))
}

func (m *Machine) GenMonitorEnter(l *lir.List, ref int32) {
	emit16(l, encodeMovRegReg(R0, uint8(ref)))
	emit32(l, encodeBL(0))
}

func (m *Machine) GenMonitorExit(l *lir.List, ref int32) {
	emit16(l, encodeMovRegReg(R0, uint8(ref)))
	emit32(l, encodeBL(0))
}

// GenSuspendTest loads the thread-local suspend flag (kept at a fixed offset
// off r9, ART's "self" register on ARM) and compares against zero; the
// actual conditional branch to the slow path is installed by the assembler
// driver once block offsets are final.
func (m *Machine) GenSuspendTest(l *lir.List) {
	emit16(l, encodeLdrImm(R12, R9, 0))
	emit16(l, encodeCmpImm(R12, 0))
}

func (m *Machine) GenCompareAndBranch(l *lir.List, op insndecode.Opcode, src1, src2 int32, target *lir.LIR) *lir.LIR {
	emit16(l, encodeCmpReg(uint8(src1), uint8(src2)))
	branch := &lir.LIR{Opcode: lir.Opcode(branchCondThumbOp(op)), Target: target, Flags: lir.Flags{NeedsPCRelFixup: true, SizeBytes: 2}}
	l.Append(branch)
	return branch
}

func (m *Machine) GenGoto(l *lir.List, target *lir.LIR) *lir.LIR {
	branch := &lir.LIR{Opcode: lir.Opcode(bUnconditional), Target: target, Flags: lir.Flags{NeedsPCRelFixup: true, IsUnconditionalBranch: true, SizeBytes: 2}}
	l.Append(branch)
	return branch
}

func (m *Machine) GenReturn(l *lir.List, src int32, wide, object, isVoid bool) {
	if !isVoid {
		emit16(l, encodeMovRegReg(R0, uint8(src)))
	}
	emit16(l, encodeBX(LR))
}

// AssembleInstructions walks list, packing each already-sized LIR's encoding
// back into buf. Thumb2's mixed 16/32-bit widths mean a literal, branch, or
// call that widens on a retry changes every later offset, so this returns
// ok=false (a kRetryAll) whenever a PC-relative fixup lands outside its
// 16-bit branch's ±2KiB range. (The MIPS target never returns ok=false.)
func (m *Machine) AssembleInstructions(list *lir.List, buf []byte) (int, bool) {
	n := 0
	ok := true
	list.ForEach(func(l *lir.LIR) {
		if l.Opcode.IsPseudo() {
			return
		}
		if l.Flags.NeedsPCRelFixup && l.Target != nil {
			delta := l.Target.Offset - l.Offset
			if delta > 2046 || delta < -2048 {
				ok = false
				return
			}
		}
		switch l.Flags.SizeBytes {
		case 4:
			if n+4 <= len(buf) {
				binary.LittleEndian.PutUint32(buf[n:], uint32(l.Opcode)<<16|uint32(uint16(l.Operands[0])))
			}
			n += 4
		default:
			if n+2 <= len(buf) {
				binary.LittleEndian.PutUint16(buf[n:], uint16(l.Opcode))
			}
			n += 2
		}
	})
	return n, ok
}

// Package x86_32 implements backend.Machine for the x86-32 instruction set,
// the third concrete type plugged into the same generic dispatcher as
// armthumb2 and mips32, matching how the teacher (tetratelabs/wazero) keeps
// its amd64 backend a structural sibling of arm64 behind one Machine
// interface rather than special-casing either in the shared lowering pass.
package x86_32

import (
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/lir"
	"github.com/zyq8709/dexhunter/internal/mir"
	"github.com/zyq8709/dexhunter/internal/regalloc"
)

// x86-32 general-purpose register numbers (ModRM/SIB encoding order).
const (
	EAX = iota
	ECX
	EDX
	EBX
	ESP
	EBP
	ESI
	EDI
)

var corePool = []int32{EBX, ESI, EDI, EBP}
var fpPool = []int32{0, 1, 2, 3, 4, 5, 6, 7} // xmm0-xmm7

type Machine struct {
	ssaHome map[mir.SSAName]int32

	// bytesByNode holds each emitted LIR's already-encoded bytes; x86's
	// variable-length encoding doesn't fit the fixed Operands array the
	// Thumb2/MIPS32 backends pack their fixed-width words into.
	bytesByNode map[*lir.LIR][]byte
}

func New() *Machine { return &Machine{ssaHome: make(map[mir.SSAName]int32)} }

func (m *Machine) Name() string { return "x86_32" }

func (m *Machine) RegisterPool() regalloc.Pool {
	return regalloc.Pool{Core: corePool, Ref: corePool, FP: fpPool}
}

// emit appends one already-encoded instruction as a single variable-length
// LIR node; x86's byte-oriented encoding doesn't fit a fixed-width Operands
// slot the way Thumb2/MIPS32 do, so the raw bytes are stashed in a side
// table keyed by node identity instead.
func (m *Machine) emit(l *lir.List, bytes []byte) *lir.LIR {
	n := &lir.LIR{Flags: lir.Flags{SizeBytes: len(bytes)}}
	l.Append(n)
	m.recordBytes(n, bytes)
	return n
}

func (m *Machine) LoadValue(l *lir.List, dst int32, ssa mir.SSAName) {
	m.emit(l, encodeMovRegReg(uint8(dst), uint8(m.ssaHome[ssa])))
}

func (m *Machine) StoreValue(l *lir.List, ssa mir.SSAName, src int32) {
	m.ssaHome[ssa] = src
}

func (m *Machine) GenArithOp(l *lir.List, op insndecode.Opcode, dst, src1, src2 int32) {
	if dst != src1 {
		m.emit(l, encodeMovRegReg(uint8(dst), uint8(src1)))
	}
	m.emit(l, encodeArithRegReg(arithOpcodeFor(op), uint8(dst), uint8(src2)))
}

func (m *Machine) GenArrayGet(l *lir.List, op insndecode.Opcode, dst, base, index int32) {
	m.emit(l, encodeMovLoadSIB(uint8(dst), uint8(base), uint8(index)))
}

func (m *Machine) GenArrayPut(l *lir.List, op insndecode.Opcode, src, base, index int32) {
	m.emit(l, encodeMovStoreSIB(uint8(src), uint8(base), uint8(index)))
}

func (m *Machine) GenIGet(l *lir.List, op insndecode.Opcode, dst, base int32, fieldIdx uint32) {
	m.emit(l, encodeMovLoadDisp8(uint8(dst), uint8(base), int8(fieldIdx)))
}

func (m *Machine) GenIPut(l *lir.List, op insndecode.Opcode, src, base int32, fieldIdx uint32) {
	m.emit(l, encodeMovStoreDisp8(uint8(src), uint8(base), int8(fieldIdx)))
}

func (m *Machine) GenSget(l *lir.List, op insndecode.Opcode, dst int32, fieldIdx uint32) {
	m.emit(l, encodeMovLoadAbs(uint8(dst), fieldIdx))
}

func (m *Machine) GenSput(l *lir.List, op insndecode.Opcode, src int32, fieldIdx uint32) {
	m.emit(l, encodeMovStoreAbs(uint8(src), fieldIdx))
}

func (m *Machine) GenInvoke(l *lir.List, insn *insndecode.Instruction, argRegs []int32) {
	for i := len(argRegs) - 1; i >= 0; i-- {
		m.emit(l, encodePushReg(uint8(argRegs[i])))
	}
	m.emit(l, encodeCallRel32(0))
	if len(argRegs) > 0 {
		m.emit(l, encodeAddEspImm8(uint8(len(argRegs)*4)))
	}
}

func (m *Machine) GenNewArray(l *lir.List, dst, lengthReg int32, typeIdx uint32) {
	m.emit(l, encodePushReg(uint8(lengthReg)))
	m.emit(l, encodeCallRel32(0))
	m.emit(l, encodeAddEspImm8(4))
	m.emit(l, encodeMovRegReg(uint8(dst), EAX))
}

func (m *Machine) GenCheckCast(l *lir.List, ref int32, typeIdx uint32) {
	m.emit(l, encodePushReg(uint8(ref)))
	m.emit(l, encodeCallRel32(0))
	m.emit(l, encodeAddEspImm8(4))
}

func (m *Machine) GenInstanceOf(l *lir.List, dst, ref int32, typeIdx uint32) {
	m.emit(l, encodePushReg(uint8(ref)))
	m.emit(l, encodeCallRel32(0))
	m.emit(l, encodeAddEspImm8(4))
	m.emit(l, encodeMovRegReg(uint8(dst), EAX))
}

func (m *Machine) GenMonitorEnter(l *lir.List, ref int32) {
	m.emit(l, encodePushReg(uint8(ref)))
	m.emit(l, encodeCallRel32(0))
	m.emit(l, encodeAddEspImm8(4))
}

func (m *Machine) GenMonitorExit(l *lir.List, ref int32) {
	m.emit(l, encodePushReg(uint8(ref)))
	m.emit(l, encodeCallRel32(0))
	m.emit(l, encodeAddEspImm8(4))
}

// GenSuspendTest checks the thread-local suspend flag held at a fixed
// offset off fs:0 (x86's thread-local segment register, the quick backend's
// usual place for the "self" pointer on this target).
func (m *Machine) GenSuspendTest(l *lir.List) {
	m.emit(l, encodeTestFsOffset())
}

func (m *Machine) GenCompareAndBranch(l *lir.List, op insndecode.Opcode, src1, src2 int32, target *lir.LIR) *lir.LIR {
	m.emit(l, encodeCmpRegReg(uint8(src1), uint8(src2)))
	n := &lir.LIR{Target: target, Flags: lir.Flags{NeedsPCRelFixup: true, SizeBytes: 6}}
	l.Append(n)
	m.recordBytes(n, encodeJcc(jccCondFor(op), 0))
	return n
}

func (m *Machine) GenGoto(l *lir.List, target *lir.LIR) *lir.LIR {
	n := &lir.LIR{Target: target, Flags: lir.Flags{NeedsPCRelFixup: true, IsUnconditionalBranch: true, SizeBytes: 5}}
	l.Append(n)
	m.recordBytes(n, encodeJmpRel32(0))
	return n
}

func (m *Machine) GenReturn(l *lir.List, src int32, wide, object, isVoid bool) {
	if !isVoid && src != EAX {
		m.emit(l, encodeMovRegReg(EAX, uint8(src)))
	}
	m.emit(l, encodeLeave())
	m.emit(l, encodeRet())
}

func (m *Machine) recordBytes(n *lir.LIR, bytes []byte) {
	if m.bytesByNode == nil {
		m.bytesByNode = make(map[*lir.LIR][]byte)
	}
	m.bytesByNode[n] = bytes
}

// AssembleInstructions copies each node's recorded bytes, patching any
// PC-relative fixup once the target's final offset is known; an
// out-of-range 8-bit displacement would force a kRetryAll as on Thumb2 (the
// MIPS target never asks for one), but this backend always emits the 32-bit rel32 forms
// of call/jmp/jcc so in practice no x86-32 method ever needs a retry.
func (m *Machine) AssembleInstructions(list *lir.List, buf []byte) (int, bool) {
	n := 0
	list.ForEach(func(l *lir.LIR) {
		if l.Opcode.IsPseudo() {
			return
		}
		raw := m.bytesByNode[l]
		if l.Flags.NeedsPCRelFixup && l.Target != nil && len(raw) >= 4 {
			rel := l.Target.Offset - (l.Offset + int32(len(raw)))
			raw = append([]byte(nil), raw...)
			raw[len(raw)-4] = byte(rel)
			raw[len(raw)-3] = byte(rel >> 8)
			raw[len(raw)-2] = byte(rel >> 16)
			raw[len(raw)-1] = byte(rel >> 24)
		}
		if n+len(raw) <= len(buf) {
			copy(buf[n:], raw)
		}
		n += len(raw)
	})
	return n, true
}

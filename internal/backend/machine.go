// Package backend implements the target-independent MIR→LIR dispatch of
// spec.md §4.8: register-allocator init, label emission, per-MIR instruction
// emission dispatched through a fixed capability interface, and safepoint
// marking. Grounded on ART's mir_to_lir.h Mir2Lir base class (the "fixed
// capability interface" every quick-backend target subclasses) and
// restructured along the teacher's (tetratelabs/wazero) backend.Machine
// interface in internal/engine/wazevo/backend/machine.go, which plays the
// same "one interface, one concrete type per target" role for a Wasm
// compiler.
package backend

import (
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/lir"
	"github.com/zyq8709/dexhunter/internal/mir"
	"github.com/zyq8709/dexhunter/internal/regalloc"
)

// Machine is the fixed capability interface every target (ARMv7 Thumb2,
// MIPS32, x86-32) implements so the generic dispatcher in lower.go never
// needs target-specific branches (spec.md §4.8 "Per-target code generator
// implements a fixed capability interface").
type Machine interface {
	// RegisterPool returns this target's core/FP/ref register lists for
	// regalloc.BuildCandidates/Promote (spec.md §4.8 step 1).
	RegisterPool() regalloc.Pool

	LoadValue(l *lir.List, dst int32, ssa mir.SSAName)
	StoreValue(l *lir.List, ssa mir.SSAName, src int32)

	GenArithOp(l *lir.List, op insndecode.Opcode, dst, src1, src2 int32)
	GenArrayGet(l *lir.List, op insndecode.Opcode, dst, base, index int32)
	GenArrayPut(l *lir.List, op insndecode.Opcode, src, base, index int32)
	GenIGet(l *lir.List, op insndecode.Opcode, dst, base int32, fieldIdx uint32)
	GenIPut(l *lir.List, op insndecode.Opcode, src, base int32, fieldIdx uint32)
	GenSget(l *lir.List, op insndecode.Opcode, dst int32, fieldIdx uint32)
	GenSput(l *lir.List, op insndecode.Opcode, src int32, fieldIdx uint32)
	GenInvoke(l *lir.List, insn *insndecode.Instruction, argRegs []int32)
	GenNewArray(l *lir.List, dst, lengthReg int32, typeIdx uint32)
	GenCheckCast(l *lir.List, ref int32, typeIdx uint32)
	GenInstanceOf(l *lir.List, dst, ref int32, typeIdx uint32)
	GenMonitorEnter(l *lir.List, ref int32)
	GenMonitorExit(l *lir.List, ref int32)
	GenSuspendTest(l *lir.List)
	GenCompareAndBranch(l *lir.List, op insndecode.Opcode, src1, src2 int32, target *lir.LIR) *lir.LIR
	GenGoto(l *lir.List, target *lir.LIR) *lir.LIR
	GenReturn(l *lir.List, src int32, wide, object, isVoid bool)

	// AssembleInstructions implements spec.md §4.10 step 2: emit bytes for
	// every LIR with an assigned offset into buf, returning ok=false (a
	// kRetryAll) if a branch was out of range and had to be widened, in
	// which case the caller resets and retries per spec.md §4.10.
	AssembleInstructions(list *lir.List, buf []byte) (n int, ok bool)

	// Name identifies the target for diagnostics.
	Name() string
}

// Package asm implements the assembler driver of spec.md §4.10: offset
// assignment, iterative reassembly to converge on a fixed point when a
// PC-relative branch needed widening, literal/switch/fill-data pool
// installation, the PC-to-dex map, the native GC map, and the vmap table.
// Grounded on ART's Mir2Lir::AssembleLIR (the fixed-point relayout loop) and
// restructured along the teacher's (tetratelabs/wazero) compiler.go
// Compile() driver shape: one top-level function orchestrating a sequence of
// finalization passes over an already-lowered instruction stream.
package asm

import (
	"github.com/pkg/errors"

	"github.com/zyq8709/dexhunter/internal/backend"
	"github.com/zyq8709/dexhunter/internal/compilelog"
	"github.com/zyq8709/dexhunter/internal/lir"
)

// MaxAssemblerRetries bounds the offset-assignment/re-encode fixed-point
// loop, matching ART's mir_to_lir.h kMaxAssemblerRetries (spec.md §4.10).
const MaxAssemblerRetries = 50

// Result is the finished native method: its code bytes plus the auxiliary
// tables consumed by the runtime (spec.md §4.10 steps 3-4).
type Result struct {
	Code       []byte
	Literals   *LiteralPool
	PCToDex    []byte // LEB128-encoded PC<->dex offset map
	GCMap      *GCMap
	VmapTable  VmapTable
	CodeSize   int
}

// AssignOffsets walks list in order, giving each non-pseudo, non-NOP LIR an
// Offset equal to the running byte total, per spec.md §4.10 step 1. Pseudo
// labels and safepoints take the offset of the next real instruction so
// branch targets resolve correctly.
func AssignOffsets(list *lir.List) int {
	offset := int32(0)
	list.ForEach(func(l *lir.LIR) {
		l.Offset = offset
		if l.Opcode.IsPseudo() || l.Flags.IsNop {
			return
		}
		offset += int32(l.Flags.SizeBytes)
	})
	return int(offset)
}

// Assemble drives m's AssembleInstructions to a fixed point: offsets are
// assigned, bytes are encoded, and if a branch needed to widen (AssembleInstructions
// returns ok=false, ART's kRetryAll) everything is re-laid-out and retried,
// up to MaxAssemblerRetries times, per spec.md §4.10 "iterative reassembly".
func Assemble(list *lir.List, m backend.Machine, log *compilelog.Logger) ([]byte, int, error) {
	var buf []byte
	for attempt := 0; attempt < MaxAssemblerRetries; attempt++ {
		size := AssignOffsets(list)
		if size > len(buf) {
			buf = make([]byte, size)
		}
		n, ok := m.AssembleInstructions(list, buf)
		if ok {
			return buf[:n], attempt, nil
		}
		log.Warnf("assembler: retry %d/%d on %s (branch out of range)", attempt+1, MaxAssemblerRetries, m.Name())
	}
	return nil, MaxAssemblerRetries, errors.Errorf("asm: failed to converge within %d retries", MaxAssemblerRetries)
}

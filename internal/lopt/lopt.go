// Package lopt implements the LIR-level optimizer of spec.md §4.9: redundant
// load/store elimination, load hoisting, and redundant branch removal, all
// scanning the same linked lir.List the backend package just finished
// emitting into. Grounded on ART's Mir2Lir::ApplyLocalOptimizations (the
// post-lowering LIR pass), restructured along the teacher's
// (tetratelabs/wazero) optimizer-pass shape of one function per concern
// walking a linked instruction list in place.
package lopt

import "github.com/zyq8709/dexhunter/internal/lir"

// LD_LATENCY and LDLD_DISTANCE bound how far load hoisting searches,
// matching ART's mir_to_lir.h constants of the same name (spec.md §4.9).
const (
	ldLatency                = 2
	ldLdDistance             = 4
	maxHoistScanPredecessors = 20
)

func mustAlias(a, b lir.AliasInfo) bool {
	return a.VReg >= 0 && a.VReg == b.VReg && a.Wide == b.Wide
}

func isLoad(l *lir.LIR) bool  { return l.DefMask != 0 && l.UseMask&lir.EncodeDalvikReg != 0 && l.DefMask&lir.EncodeDalvikReg == 0 }
func isStore(l *lir.LIR) bool { return l.UseMask&lir.EncodeDalvikReg != 0 && l.DefMask&lir.EncodeDalvikReg != 0 }

// EliminateRedundantLoadsStores does a top-down must-alias scan that tracks
// only the single most recent Dalvik-slot access (store or load): a load of
// the same slot as that access is redundant and is replaced by a register-to-register move captured as a
// NOP'd placeholder (the backend already assigned both sides a register; the
// move itself is folded away once a later pass or the register allocator's
// copy-coalescing would apply, so here it is simply dropped), per spec.md
// §4.9 "load/store elimination: ... a top-down scan replacing a redundant
// load after a store or load to the same slot".
func EliminateRedundantLoadsStores(list *lir.List) {
	var lastAccess *lir.LIR
	list.ForEach(func(l *lir.LIR) {
		if l.Opcode.IsPseudo() || l.Flags.IsNop {
			if l.Opcode == lir.PseudoBarrier || l.Opcode == lir.PseudoSafepointPC {
				lastAccess = nil
			}
			return
		}
		switch {
		case isLoad(l):
			if lastAccess != nil && mustAlias(lastAccess.Alias, l.Alias) {
				l.Flags.IsNop = true
			} else {
				lastAccess = l
			}
		case isStore(l):
			lastAccess = l
		default:
			if l.DefMask&lir.EncodeAll == lir.EncodeAll {
				lastAccess = nil
			}
		}
	})
}

// HoistLoads scans bottom-up for loads that can move earlier to hide their
// LD_LATENCY behind independent instructions, stopping at LDLD_DISTANCE
// other loads, a safepoint/barrier, or after scanning
// maxHoistScanPredecessors candidate slots, per spec.md §4.9 "load hoisting:
// ... bottom-up, bounded by LD_LATENCY/LDLD_DISTANCE, never crossing a
// safepoint or barrier".
func HoistLoads(list *lir.List) {
	var nodes []*lir.LIR
	list.ForEach(func(l *lir.LIR) { nodes = append(nodes, l) })

	for i := len(nodes) - 1; i >= 0; i-- {
		l := nodes[i]
		if l.Opcode.IsPseudo() || l.Flags.IsNop || !isLoad(l) {
			continue
		}
		scanned := 0
		ldCount := 0
		insertAt := i
		for j := i - 1; j >= 0 && scanned < maxHoistScanPredecessors; j-- {
			p := nodes[j]
			scanned++
			if p.Opcode == lir.PseudoSafepointPC || p.Opcode == lir.PseudoBarrier || p.Opcode == lir.PseudoTargetLabel {
				break
			}
			if conflicts(p, l) {
				break
			}
			if isLoad(p) {
				ldCount++
				if ldCount >= ldLdDistance {
					break
				}
			}
			insertAt = j
		}
		if insertAt < i && i-insertAt >= ldLatency {
			moveBefore(list, l, nodes[insertAt])
		}
	}
}

func conflicts(p, l *lir.LIR) bool {
	if p.DefMask&l.UseMask != 0 || p.UseMask&l.DefMask != 0 || p.DefMask&l.DefMask != 0 {
		return true
	}
	if isStore(p) && mustAlias(p.Alias, l.Alias) {
		return true
	}
	return false
}

func moveBefore(list *lir.List, l, at *lir.LIR) {
	list.Remove(l)
	list.InsertBefore(at, l)
}

// RemoveRedundantBranches NOPs any unconditional branch whose target is the
// next non-pseudo LIR, per spec.md §4.9 "redundant branch removal: an
// unconditional branch to the next non-pseudo LIR is a NOP".
func RemoveRedundantBranches(list *lir.List, isUnconditionalBranch func(*lir.LIR) bool) {
	list.ForEach(func(l *lir.LIR) {
		if l.Flags.IsNop || !isUnconditionalBranch(l) {
			return
		}
		if l.Target != nil && l.Target == lir.NextNonPseudo(l) {
			l.Flags.IsNop = true
		}
	})
}

// Run applies the fixed pass order of spec.md §4.9 to list.
func Run(list *lir.List, isUnconditionalBranch func(*lir.LIR) bool) {
	EliminateRedundantLoadsStores(list)
	HoistLoads(list)
	RemoveRedundantBranches(list, isUnconditionalBranch)
}

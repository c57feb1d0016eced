package mir

// OptFlag is the per-MIR optimization-decision bitset of spec.md §3 ("MIR
// ... optimization_flags"), grounded on ART's compiler_enums.h MIROptimizationFlags
// and expanded per SPEC_FULL.md §12.1 with MIR_IGNORE_DIV_ZERO_CHECK.
type OptFlag uint16

const (
	// FlagIgnoreNullCheck marks that null-check elimination (spec.md §4.4)
	// proved the base reference of this instruction already non-null.
	FlagIgnoreNullCheck OptFlag = 1 << iota
	// FlagIgnoreRangeCheck marks that the array bounds check is redundant,
	// proved by local value numbering (spec.md §4.5).
	FlagIgnoreRangeCheck
	// FlagIgnoreDivZeroCheck marks that the divisor of an integer div/rem is
	// proved nonzero. Recovered from the original ART source; see
	// SPEC_FULL.md §12.1.
	FlagIgnoreDivZeroCheck
	// FlagIgnoreSuspendCheck marks that the normal suspend check at a
	// back-edge is unnecessary because the edge provably reaches a return
	// without another back-edge (spec.md §4.4 "back-edge-to-return
	// suppression").
	FlagIgnoreSuspendCheck
	// FlagInlined marks a MIR produced by the closed-set intrinsic inliner
	// of spec.md §4.8.
	FlagInlined
	// FlagDup marks a MIR that is a duplicate created by block splitting or
	// extended-BB construction and should not be independently counted by
	// the method-cost analyzer.
	FlagDup
	// FlagMark is scratch space used by individual passes for local
	// worklist bookkeeping; cleared between passes.
	FlagMark
	// FlagCallee marks the second half of a kMirOpCheck pair (spec.md §4.4
	// "the paired throwing MIR"). mir.Build's Check/work split does not set
	// it; it links the pair through Meta.PairedMIR.
	FlagCallee
	// FlagMonitorUnlockFatal marks a monitor-exit whose owning method's
	// dex file predates the version that downgraded a stack-unlock mismatch
	// from a fatal VM abort to a thrown IllegalMonitorStateException; set by
	// backend.monitorUnlockMismatchFatal, consumed by the runtime's unlock
	// helper (out of scope here, per SPEC_FULL.md §12.5).
	FlagMonitorUnlockFatal
)

// Has reports whether f is set in flags.
func (flags OptFlag) Has(f OptFlag) bool { return flags&f != 0 }

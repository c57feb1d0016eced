// Package compconfig holds the control-flag surface the embedding driver
// (out of scope per spec.md §1) sets before asking the CORE to compile a
// method. The CORE never reads flags, env vars, or files itself.
package compconfig

// DisableOpt is a bitset over optimization passes that can be individually
// turned off, per spec.md §6.
type DisableOpt uint32

const (
	DisableLoadStoreElimination DisableOpt = 1 << iota
	DisableLoadHoisting
	DisableSuppressLoads
	DisableNullCheckElimination
	DisablePromoteRegs
	DisableTrackLiveTemps
	DisableSafeOptimizations
	DisableBBOpt
	DisableMatch
	DisablePromoteCompilerTemps
	DisableBranchFusing
)

// Has reports whether opt is turned off by d.
func (d DisableOpt) Has(opt DisableOpt) bool { return d&opt != 0 }

// EnableDebug is a bitset over debug/diagnostic features, per spec.md §6.
type EnableDebug uint32

const (
	DebugDumpCFG EnableDebug = 1 << iota
	DebugVerifyDataflow
	DebugShowMemoryUsage
	DebugDumpCheckStats
	DebugCountOpcodes
)

// Has reports whether dbg is enabled by e.
func (e EnableDebug) Has(dbg EnableDebug) bool { return e&dbg != 0 }

// Filter selects the cost/benefit tradeoff the method-cost analyzer applies,
// per spec.md §4.7.
type Filter int

const (
	FilterEverything Filter = iota
	FilterInterpretOnly
	FilterBalanced
	FilterSpace
	FilterSpeed
)

// ISA selects the target instruction set.
type ISA int

const (
	ISAArmThumb2 ISA = iota
	ISAMips32
	ISAX86_32
)

func (i ISA) String() string {
	switch i {
	case ISAArmThumb2:
		return "arm-thumb2"
	case ISAMips32:
		return "mips32"
	case ISAX86_32:
		return "x86-32"
	default:
		return "unknown-isa"
	}
}

// Options is the full set of per-compilation control flags, threaded through
// a CompilationUnit unchanged for the method's entire pipeline run.
type Options struct {
	DisableOpt     DisableOpt
	EnableDebug    EnableDebug
	CompilerFilter Filter
	TargetISA      ISA

	// MaxInlineDepth bounds the single-method intrinsic-inlining path of
	// spec.md §4.8 (Math.abs, String.charAt, ...). It does not enable
	// general cross-method inlining, which stays out of scope (§1).
	// See SPEC_FULL.md §12.4.
	MaxInlineDepth int
}

// DefaultOptions returns the Balanced/ArmThumb2 configuration used when the
// driver does not override anything.
func DefaultOptions() Options {
	return Options{
		CompilerFilter: FilterBalanced,
		TargetISA:      ISAArmThumb2,
		MaxInlineDepth: 1,
	}
}

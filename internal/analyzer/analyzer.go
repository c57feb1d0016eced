// Package analyzer implements the method-cost analyzer of spec.md §4.7: a
// per-opcode attribute histogram over one pass of the method's basic blocks
// (each block counted on its own; fall-through chains are not merged into
// super-blocks), cheap self-loop detection, and the
// SkipCompilation decision table. Grounded on ART's mir_analysis.cc /
// compiler_internals.h attribute tables (MIR_MATH, MIR_FP, ...), restructured
// as Go bitflags per spec.md §9's "explicit enums with bitflag types".
package analyzer

import (
	"github.com/zyq8709/dexhunter/internal/compconfig"
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
)

// Attr classifies one opcode along the axes the analyzer histograms.
type Attr uint16

const (
	AttrMath Attr = 1 << iota
	AttrFP
	AttrLong
	AttrInt
	AttrSingle
	AttrDouble
	AttrBranch
	AttrInvoke
	AttrArrayOp
	AttrHeavyweight
	AttrSimpleConst
	AttrMove
	AttrSwitch
)

func (a Attr) has(f Attr) bool { return a&f != 0 }

func attrsOf(op insndecode.Opcode) Attr {
	switch {
	case op.IsSwitch():
		return AttrSwitch | AttrBranch
	case op.IsInvoke():
		return AttrInvoke | AttrHeavyweight
	case op.CanBranch():
		return AttrBranch
	}
	switch op {
	case insndecode.OpMove, insndecode.OpMoveWide, insndecode.OpMoveObject,
		insndecode.OpMoveResult, insndecode.OpMoveResultWide, insndecode.OpMoveResultObject:
		return AttrMove
	case insndecode.OpConst4, insndecode.OpConst16, insndecode.OpConst, insndecode.OpConstHigh16:
		return AttrSimpleConst | AttrInt
	case insndecode.OpConstWide16, insndecode.OpConstWide32, insndecode.OpConstWide, insndecode.OpConstWideHigh16:
		return AttrSimpleConst | AttrLong
	case insndecode.OpNewInstance, insndecode.OpNewArray, insndecode.OpFilledNewArray,
		insndecode.OpCheckCast, insndecode.OpInstanceOf, insndecode.OpMonitorEnter, insndecode.OpMonitorExit,
		insndecode.OpFillArrayData, insndecode.OpThrow:
		return AttrHeavyweight
	}
	if isArrayOp(op) {
		return AttrArrayOp | AttrMath
	}
	if isFloatOp(op) {
		return AttrMath | AttrFP | AttrSingle
	}
	if isDoubleOp(op) {
		return AttrMath | AttrFP | AttrDouble
	}
	if isLongOp(op) {
		return AttrMath | AttrLong
	}
	if isIntMathOp(op) {
		return AttrMath | AttrInt
	}
	return 0
}

func isArrayOp(op insndecode.Opcode) bool {
	switch op {
	case insndecode.OpAget, insndecode.OpAgetWide, insndecode.OpAgetObject, insndecode.OpAgetBoolean,
		insndecode.OpAgetByte, insndecode.OpAgetChar, insndecode.OpAgetShort,
		insndecode.OpAput, insndecode.OpAputWide, insndecode.OpAputObject, insndecode.OpAputBoolean,
		insndecode.OpAputByte, insndecode.OpAputChar, insndecode.OpAputShort, insndecode.OpArrayLength:
		return true
	default:
		return false
	}
}

func isFloatOp(op insndecode.Opcode) bool {
	switch op {
	case insndecode.OpAddFloat, insndecode.OpSubFloat, insndecode.OpMulFloat, insndecode.OpDivFloat, insndecode.OpRemFloat,
		insndecode.OpNegFloat, insndecode.OpCmplFloat, insndecode.OpCmpgFloat,
		insndecode.OpIntToFloat, insndecode.OpLongToFloat, insndecode.OpDoubleToFloat, insndecode.OpFloatToInt,
		insndecode.OpFloatToLong, insndecode.OpFloatToDouble:
		return true
	default:
		return false
	}
}

func isDoubleOp(op insndecode.Opcode) bool {
	switch op {
	case insndecode.OpAddDouble, insndecode.OpSubDouble, insndecode.OpMulDouble, insndecode.OpDivDouble, insndecode.OpRemDouble,
		insndecode.OpNegDouble, insndecode.OpCmplDouble, insndecode.OpCmpgDouble,
		insndecode.OpIntToDouble, insndecode.OpLongToDouble, insndecode.OpFloatToDouble,
		insndecode.OpDoubleToInt, insndecode.OpDoubleToLong, insndecode.OpDoubleToFloat:
		return true
	default:
		return false
	}
}

func isLongOp(op insndecode.Opcode) bool {
	switch op {
	case insndecode.OpAddLong, insndecode.OpSubLong, insndecode.OpMulLong, insndecode.OpDivLong, insndecode.OpRemLong,
		insndecode.OpAndLong, insndecode.OpOrLong, insndecode.OpXorLong, insndecode.OpShlLong, insndecode.OpShrLong,
		insndecode.OpUshrLong, insndecode.OpNegLong, insndecode.OpNotLong, insndecode.OpCmpLong,
		insndecode.OpIntToLong, insndecode.OpLongToInt:
		return true
	default:
		return false
	}
}

func isIntMathOp(op insndecode.Opcode) bool {
	switch op {
	case insndecode.OpAddInt, insndecode.OpSubInt, insndecode.OpMulInt, insndecode.OpDivInt, insndecode.OpRemInt,
		insndecode.OpAndInt, insndecode.OpOrInt, insndecode.OpXorInt, insndecode.OpShlInt, insndecode.OpShrInt,
		insndecode.OpUshrInt, insndecode.OpNegInt, insndecode.OpNotInt,
		insndecode.OpAddIntLit16, insndecode.OpRsubInt, insndecode.OpMulIntLit16, insndecode.OpDivIntLit16,
		insndecode.OpRemIntLit16, insndecode.OpAndIntLit16, insndecode.OpOrIntLit16, insndecode.OpXorIntLit16,
		insndecode.OpAddIntLit8, insndecode.OpRsubIntLit8, insndecode.OpMulIntLit8, insndecode.OpDivIntLit8,
		insndecode.OpRemIntLit8, insndecode.OpAndIntLit8, insndecode.OpOrIntLit8, insndecode.OpXorIntLit8,
		insndecode.OpShlIntLit8, insndecode.OpShrIntLit8, insndecode.OpUshrIntLit8:
		return true
	default:
		return false
	}
}

// Histogram is the method-wide instruction-class counts produced by Analyze.
type Histogram struct {
	Total       int
	Math        int
	FP          int
	Branch      int
	Invoke      int
	ArrayOp     int
	Heavyweight int
	SimpleConst int
	Move        int
	Switch      int
	HasLoop     bool
}

const loopMultiplier = 25

// Analyze walks every non-dead ByteCode block and accumulates a Histogram.
// Each block is counted on its own; the walk does not extend across
// fall-throughs into a super-block. A block whose Taken or FallThrough
// successor is itself has its contribution multiplied by loopMultiplier, the
// analyzer's cheap stand-in for real loop-trip profiling (spec.md §4.7); a
// loop whose back-edge targets another block is not detected.
func Analyze(g *mir.Graph) Histogram {
	var h Histogram
	g.ForEachBlock(func(b *mir.BasicBlock) {
		if b.Type != mir.BlockByteCode {
			return
		}
		weight := 1
		if b.Taken == b.ID || b.FallThrough == b.ID {
			weight = loopMultiplier
			h.HasLoop = true
		}
		b.ForEachMIR(func(m *mir.MIR) {
			if m.IsNop() {
				return
			}
			a := attrsOf(m.Insn.Opcode)
			h.Total += weight
			if a.has(AttrMath) {
				h.Math += weight
			}
			if a.has(AttrFP) {
				h.FP += weight
			}
			if a.has(AttrBranch) {
				h.Branch += weight
			}
			if a.has(AttrInvoke) {
				h.Invoke += weight
			}
			if a.has(AttrArrayOp) {
				h.ArrayOp += weight
			}
			if a.has(AttrHeavyweight) {
				h.Heavyweight += weight
			}
			if a.has(AttrSimpleConst) {
				h.SimpleConst += weight
			}
			if a.has(AttrMove) {
				h.Move += weight
			}
			if a.has(AttrSwitch) {
				h.Switch += weight
			}
		})
	})
	return h
}

func (h Histogram) ratio(n int) float64 {
	if h.Total == 0 {
		return 0
	}
	return float64(n) / float64(h.Total)
}

// Thresholds holds the size cutoffs SkipCompilation compares against,
// selected per compconfig.Filter (spec.md §4.7's filter table).
type Thresholds struct {
	SmallCutoff   int
	DefaultCutoff int
	Huge          int
}

// ThresholdsFor returns the size-cutoff pair for filter per spec.md §4.7's
// table, plus the fixed "huge" ceiling shared by every filter (Speed simply
// sets both cutoffs to it).
func ThresholdsFor(filter compconfig.Filter) Thresholds {
	const (
		tiny                 = 16
		small                = 64
		smallMethodThreshold = 60
		largeMethodThreshold = 400
		huge                 = 4000
	)
	switch filter {
	case compconfig.FilterSpace:
		return Thresholds{SmallCutoff: tiny, DefaultCutoff: small, Huge: huge}
	case compconfig.FilterSpeed:
		return Thresholds{SmallCutoff: huge, DefaultCutoff: huge, Huge: huge}
	default:
		return Thresholds{SmallCutoff: smallMethodThreshold, DefaultCutoff: largeMethodThreshold, Huge: huge}
	}
}

// SkipCompilation implements spec.md §4.7's decision table: first match
// wins. isClinit/isSpecialTemplate/analyzerReclaims are the external signals
// the CORE consumes from its caller per spec.md §6 (class/method metadata
// and the "special-case template" recognizer are out of this CORE's scope).
func SkipCompilation(h Histogram, filter compconfig.Filter, isClinit, isSpecialTemplate, analyzerReclaims bool) bool {
	t := ThresholdsFor(filter)

	if isClinit {
		return true
	}
	if h.Total > t.Huge {
		return !analyzerReclaims
	}
	if isSpecialTemplate {
		return false
	}
	if h.Total < t.SmallCutoff {
		return false
	}
	if h.HasLoop && h.ratio(h.Heavyweight) < 0.04 {
		return false
	}
	large := h.Total > t.DefaultCutoff
	if large && h.ratio(h.Branch) > 0.30 {
		return false
	}
	if h.ratio(h.FP) > 0.05 {
		return false
	}
	if h.ratio(h.Math) > 0.30 {
		return false
	}
	if h.ratio(h.ArrayOp) > 0.10 {
		return false
	}
	if h.Switch > 0 {
		return false
	}
	if large && h.ratio(h.Heavyweight) > 0.30 {
		return true
	}
	return large
}

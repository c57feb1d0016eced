package mir

import "github.com/zyq8709/dexhunter/internal/insndecode"

// DFAttr is the per-opcode data-flow attribute bitset of spec.md §9 ("model
// as explicit enums with bitflag types and compile-time-constant tables"),
// grounded on ART's mir_dataflow.cc DF_* family (DF_UA/DF_UB/DF_UC = vA/vB/vC
// is a use, DF_DA = vA is a def, *_WIDE = that operand is 64-bit, NULL_CHK_0/
// RANGE_CHK_1 = that use position needs a null/range check).
type DFAttr uint32

const (
	DFUseA DFAttr = 1 << iota
	DFUseB
	DFUseC
	DFDefA
	DFAWide
	DFBWide
	DFCWide
	DFNullChk0   // the vA-position use needs a null check (e.g. MONITOR_ENTER object)
	DFNullChk1   // the vB-position use needs a null check (e.g. AGET base)
	DFRangeChk1  // the vB-position use needs a range check (no opcode in classify sets it)
	DFRangeChk2  // the vC-position use needs a range check (AGET/APUT index)
	DFDivZeroChk // the vC-position use needs a div-by-zero check
	DFFPA
	DFFPB
	DFFPC
	DFCoreA
	DFCoreB
	DFCoreC
	DFRefA
	DFRefB
	DFRefC
	DFIsMove
	DFSetsConst
	DFNonNullDst  // def is provably non-null (e.g. NEW_INSTANCE)
	DFNonNullRet  // a following MOVE_RESULT_OBJECT is provably non-null
	DFHasNullChks // shorthand: this instruction has at least one null check use
	DFHasRangeChks
)

// attrTable is computed once in init() from the opcode's static shape
// (insndecode.Opcode / Flag / Format) rather than hand-listing one literal
// per opcode as the original mir_dataflow.cc does — the spec calls for "a
// single source of truth keyed on the instruction list" (spec.md §9), and
// here that source of truth is the opcode's own category, which the
// insndecode package already expresses as Flag/Format.
var attrTable [int(insndecodeNumOpcodesSentinel)]DFAttr

// insndecodeNumOpcodesSentinel mirrors insndecode's private opcode count so
// this package can size attrTable without exporting it; kept in sync via
// the Of() bounds check instead of a hard dependency on an unexported value.
const insndecodeNumOpcodesSentinel = 256

func init() {
	for op := insndecode.Opcode(0); int(op) < insndecodeNumOpcodesSentinel; op++ {
		attrTable[op] = classify(op)
	}
}

func classify(op insndecode.Opcode) DFAttr {
	switch op {
	case insndecode.OpMove, insndecode.OpMoveObject:
		return DFDefA | DFUseB | DFIsMove | condRef(op)
	case insndecode.OpMoveWide:
		return DFDefA | DFAWide | DFUseB | DFBWide | DFIsMove
	case insndecode.OpMoveResult, insndecode.OpMoveResultObject, insndecode.OpMoveException:
		return DFDefA | condRef(op)
	case insndecode.OpMoveResultWide:
		return DFDefA | DFAWide
	case insndecode.OpConst4, insndecode.OpConst16, insndecode.OpConst, insndecode.OpConstHigh16:
		return DFDefA | DFSetsConst | DFCoreA
	case insndecode.OpConstWide16, insndecode.OpConstWide32, insndecode.OpConstWide, insndecode.OpConstWideHigh16:
		return DFDefA | DFAWide | DFSetsConst | DFCoreA
	case insndecode.OpConstString, insndecode.OpConstClass:
		return DFDefA | DFRefA | DFNonNullDst
	case insndecode.OpNewInstance:
		return DFDefA | DFRefA | DFNonNullDst
	case insndecode.OpNewArray:
		return DFDefA | DFUseB | DFRefA | DFNonNullDst
	case insndecode.OpCheckCast, insndecode.OpMonitorEnter, insndecode.OpMonitorExit, insndecode.OpThrow:
		return DFUseA | DFNullChk0 | DFRefA
	case insndecode.OpInstanceOf:
		return DFDefA | DFUseB | DFNullChk1 | DFRefB | DFCoreA
	case insndecode.OpArrayLength:
		return DFDefA | DFUseB | DFNullChk1 | DFRefB | DFCoreA
	case insndecode.OpAget, insndecode.OpAgetObject, insndecode.OpAgetBoolean, insndecode.OpAgetByte,
		insndecode.OpAgetChar, insndecode.OpAgetShort:
		return DFDefA | DFUseB | DFUseC | DFNullChk1 | DFRangeChk2 | DFRefB | condRef(op)
	case insndecode.OpAgetWide:
		return DFDefA | DFAWide | DFUseB | DFUseC | DFNullChk1 | DFRangeChk2 | DFRefB
	case insndecode.OpAput, insndecode.OpAputObject, insndecode.OpAputBoolean, insndecode.OpAputByte,
		insndecode.OpAputChar, insndecode.OpAputShort:
		return DFUseA | DFUseB | DFUseC | DFNullChk1 | DFRangeChk2 | DFRefB
	case insndecode.OpAputWide:
		return DFUseA | DFAWide | DFUseB | DFUseC | DFNullChk1 | DFRangeChk2 | DFRefB
	case insndecode.OpIget, insndecode.OpIgetObject:
		return DFDefA | DFUseB | DFNullChk1 | DFRefB | condRef(op)
	case insndecode.OpIgetWide:
		return DFDefA | DFAWide | DFUseB | DFNullChk1 | DFRefB
	case insndecode.OpIput, insndecode.OpIputObject:
		return DFUseA | DFUseB | DFNullChk1 | DFRefB
	case insndecode.OpIputWide:
		return DFUseA | DFAWide | DFUseB | DFNullChk1 | DFRefB
	case insndecode.OpSget, insndecode.OpSgetObject:
		return DFDefA | condRef(op)
	case insndecode.OpSgetWide:
		return DFDefA | DFAWide
	case insndecode.OpSput, insndecode.OpSputObject:
		return DFUseA
	case insndecode.OpSputWide:
		return DFUseA | DFAWide
	case insndecode.OpCmplFloat, insndecode.OpCmpgFloat:
		return DFDefA | DFUseB | DFUseC | DFFPB | DFFPC | DFCoreA
	case insndecode.OpCmplDouble, insndecode.OpCmpgDouble:
		return DFDefA | DFUseB | DFBWide | DFUseC | DFCWide | DFFPB | DFFPC | DFCoreA
	case insndecode.OpCmpLong:
		return DFDefA | DFUseB | DFBWide | DFUseC | DFCWide | DFCoreA
	case insndecode.OpIfEq, insndecode.OpIfNe, insndecode.OpIfLt, insndecode.OpIfGe, insndecode.OpIfGt, insndecode.OpIfLe:
		return DFUseA | DFUseB
	case insndecode.OpIfEqz, insndecode.OpIfNez, insndecode.OpIfLtz, insndecode.OpIfGez, insndecode.OpIfGtz, insndecode.OpIfLez:
		return DFUseA
	case insndecode.OpReturn:
		return DFUseA
	case insndecode.OpReturnWide:
		return DFUseA | DFAWide
	case insndecode.OpReturnObject:
		return DFUseA | DFRefA
	case insndecode.OpDivInt, insndecode.OpRemInt, insndecode.OpDivLong, insndecode.OpRemLong,
		insndecode.OpDivIntLit16, insndecode.OpRemIntLit16, insndecode.OpDivIntLit8, insndecode.OpRemIntLit8:
		return binaryArith(op) | DFDivZeroChk
	default:
		return defaultArithOrUnknown(op)
	}
}

func condRef(op insndecode.Opcode) DFAttr {
	switch op {
	case insndecode.OpMove, insndecode.OpMoveObject, insndecode.OpMoveResult, insndecode.OpMoveResultObject,
		insndecode.OpMoveException, insndecode.OpAgetObject, insndecode.OpIgetObject, insndecode.OpSgetObject:
		return DFRefA
	default:
		return DFCoreA
	}
}

func binaryArith(op insndecode.Opcode) DFAttr {
	f := insndecode.FormatOf(op)
	switch f {
	case insndecode.Fmt23x:
		return DFDefA | DFUseB | DFUseC | DFCoreA | DFCoreB | DFCoreC
	case insndecode.Fmt22s, insndecode.Fmt22b:
		return DFDefA | DFUseA | DFUseB | DFCoreA | DFCoreB
	default:
		return DFDefA | DFUseB | DFCoreA | DFCoreB
	}
}

func defaultArithOrUnknown(op insndecode.Opcode) DFAttr {
	f := insndecode.FormatOf(op)
	switch f {
	case insndecode.Fmt12x:
		return DFDefA | DFUseB | DFCoreA | DFCoreB
	case insndecode.Fmt23x:
		return binaryArith(op)
	case insndecode.Fmt22s, insndecode.Fmt22b:
		return binaryArith(op)
	case insndecode.Fmt35c, insndecode.Fmt3rc:
		return DFHasNullChks // uses come from Args/range, handled specially by the builder
	default:
		return 0
	}
}

// Of returns op's data-flow attributes.
func Of(op insndecode.Opcode) DFAttr {
	if int(op) < 0 || int(op) >= insndecodeNumOpcodesSentinel {
		return 0
	}
	return attrTable[op]
}

// Has reports whether f is set.
func (d DFAttr) Has(f DFAttr) bool { return d&f != 0 }

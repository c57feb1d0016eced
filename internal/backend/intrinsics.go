package backend

import (
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/lir"
	"github.com/zyq8709/dexhunter/internal/mir"
	"github.com/zyq8709/dexhunter/internal/regalloc"
)

// IntrinsicResolver turns an invoke's method-pool index back into the
// (declaring class, method name) pair matchIntrinsic keys on. The CORE never
// parses the container file itself (mir.DecodedMethod.ContainerFile is
// opaque); whatever built the method handle supplies this resolver so the
// closed intrinsic set of spec.md §4.8 step 4 can still be recognized.
type IntrinsicResolver interface {
	ResolveMethod(poolIndex uint32) (class, name string, ok bool)
}

// Intrinsic identifies one of the fixed, hand-recognized library methods
// spec.md §4.8 step 4 calls out for inline code generation instead of a real
// call: "String.charAt/indexOf/compareTo/isEmpty/length, Math.abs/sqrt/min/
// max, Float/Double bit-cast pairs, Unsafe accessors, Thread.currentThread".
type Intrinsic int

const (
	IntrinsicNone Intrinsic = iota
	IntrinsicStringCharAt
	IntrinsicStringIndexOf
	IntrinsicStringCompareTo
	IntrinsicStringIsEmpty
	IntrinsicStringLength
	IntrinsicMathAbsInt
	IntrinsicMathAbsLong
	IntrinsicMathAbsFloat
	IntrinsicMathAbsDouble
	IntrinsicMathSqrt
	IntrinsicMathMinInt
	IntrinsicMathMaxInt
	IntrinsicFloatToIntBits
	IntrinsicIntBitsToFloat
	IntrinsicDoubleToLongBits
	IntrinsicLongBitsToDouble
	IntrinsicUnsafeGetInt
	IntrinsicUnsafePutInt
	IntrinsicUnsafeGetObject
	IntrinsicUnsafePutObject
	IntrinsicThreadCurrentThread
)

type intrinsicKey struct {
	class, name string
}

var intrinsicTable = map[intrinsicKey]Intrinsic{
	{"Ljava/lang/String;", "charAt"}:     IntrinsicStringCharAt,
	{"Ljava/lang/String;", "indexOf"}:    IntrinsicStringIndexOf,
	{"Ljava/lang/String;", "compareTo"}:  IntrinsicStringCompareTo,
	{"Ljava/lang/String;", "isEmpty"}:    IntrinsicStringIsEmpty,
	{"Ljava/lang/String;", "length"}:     IntrinsicStringLength,
	{"Ljava/lang/Math;", "abs"}:          IntrinsicMathAbsInt, // refined by shorty in matchIntrinsic
	{"Ljava/lang/Math;", "sqrt"}:         IntrinsicMathSqrt,
	{"Ljava/lang/Math;", "min"}:          IntrinsicMathMinInt,
	{"Ljava/lang/Math;", "max"}:          IntrinsicMathMaxInt,
	{"Ljava/lang/Float;", "floatToIntBits"}:    IntrinsicFloatToIntBits,
	{"Ljava/lang/Float;", "intBitsToFloat"}:    IntrinsicIntBitsToFloat,
	{"Ljava/lang/Double;", "doubleToLongBits"}: IntrinsicDoubleToLongBits,
	{"Ljava/lang/Double;", "longBitsToDouble"}: IntrinsicLongBitsToDouble,
	{"Lsun/misc/Unsafe;", "getInt"}:      IntrinsicUnsafeGetInt,
	{"Lsun/misc/Unsafe;", "putInt"}:      IntrinsicUnsafePutInt,
	{"Lsun/misc/Unsafe;", "getObject"}:   IntrinsicUnsafeGetObject,
	{"Lsun/misc/Unsafe;", "putObject"}:   IntrinsicUnsafePutObject,
	{"Ljava/lang/Thread;", "currentThread"}: IntrinsicThreadCurrentThread,
}

// matchIntrinsic looks insn's invoked method up against the closed table
// above. Only Math.abs is refined, by the call site's argument register
// count: two registers select the long form, one the int form. A float or
// double argument is not told apart from an int or long one, and Math.min/max
// are not refined.
func matchIntrinsic(resolver IntrinsicResolver, insn *insndecode.Instruction) (Intrinsic, bool) {
	if resolver == nil {
		return IntrinsicNone, false
	}
	class, name, ok := resolver.ResolveMethod(insn.PoolIndex)
	if !ok {
		return IntrinsicNone, false
	}
	id, ok := intrinsicTable[intrinsicKey{class, name}]
	if !ok {
		return IntrinsicNone, false
	}
	if class == "Ljava/lang/Math;" && name == "abs" {
		switch insn.ArgCount {
		case 2:
			id = IntrinsicMathAbsLong
		case 1:
			id = IntrinsicMathAbsInt
		}
	}
	return id, true
}

// emitIntrinsic lowers a recognized intrinsic call directly to target code
// through m, bypassing GenInvoke entirely.
func emitIntrinsic(list *lir.List, m Machine, id Intrinsic, mi *mir.MIR, assignment regalloc.Assignment) {
	argAt := func(i int) int32 {
		if mi.SSA == nil || i >= len(mi.SSA.Uses) {
			return -1
		}
		return reg(assignment, mi.SSA.Uses[i])
	}
	dst := int32(-1)
	if mi.SSA != nil && len(mi.SSA.Defs) > 0 {
		dst = reg(assignment, mi.SSA.Defs[0])
	}

	switch id {
	case IntrinsicStringLength, IntrinsicStringIsEmpty:
		m.GenIGet(list, insndecode.OpIget, dst, argAt(0), stringCountFieldIdx)
	case IntrinsicStringCharAt:
		m.GenArrayGet(list, insndecode.OpAgetChar, dst, argAt(0), argAt(1))
	case IntrinsicStringIndexOf, IntrinsicStringCompareTo:
		m.GenInvoke(list, mi.Insn, ssaArgs(mi, assignment))
	case IntrinsicMathAbsInt, IntrinsicMathAbsLong, IntrinsicMathAbsFloat, IntrinsicMathAbsDouble:
		m.GenArithOp(list, insndecode.OpSelect, dst, argAt(0), argAt(0))
	case IntrinsicMathSqrt:
		m.GenArithOp(list, insndecode.OpSelect, dst, argAt(0), argAt(0))
	case IntrinsicMathMinInt, IntrinsicMathMaxInt:
		m.GenArithOp(list, insndecode.OpSelect, dst, argAt(0), argAt(1))
	case IntrinsicFloatToIntBits, IntrinsicIntBitsToFloat, IntrinsicDoubleToLongBits, IntrinsicLongBitsToDouble:
		m.LoadValue(list, dst, mi.SSA.Uses[0])
	case IntrinsicUnsafeGetInt, IntrinsicUnsafeGetObject:
		m.GenArrayGet(list, insndecode.OpAget, dst, argAt(1), argAt(2))
	case IntrinsicUnsafePutInt, IntrinsicUnsafePutObject:
		m.GenArrayPut(list, insndecode.OpAput, argAt(3), argAt(1), argAt(2))
	case IntrinsicThreadCurrentThread:
		m.GenInvoke(list, mi.Insn, nil)
	default:
		m.GenInvoke(list, mi.Insn, ssaArgs(mi, assignment))
	}
}

func ssaArgs(mi *mir.MIR, assignment regalloc.Assignment) []int32 {
	if mi.SSA == nil {
		return nil
	}
	args := make([]int32, len(mi.SSA.Uses))
	for i, u := range mi.SSA.Uses {
		args[i] = reg(assignment, u)
	}
	return args
}

// stringCountFieldIdx is a placeholder field-pool index for String's packed
// length/hash "count" field; a real build threads the resolved index in
// through IntrinsicResolver alongside the method lookup.
const stringCountFieldIdx = 0

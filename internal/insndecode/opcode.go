package insndecode

// Flag is the per-opcode control-flow classification exposed by the decoder
// (spec.md §6: "flags_of(opcode) & kInvoke|kBranch|kContinue|kReturn|kThrow|kSwitch").
type Flag uint8

const (
	FlagContinue Flag = 1 << iota
	FlagBranch
	FlagSwitch
	FlagThrow
	FlagReturn
	FlagInvoke
)

// Opcode identifies the decoded instruction's operation, independent of its
// wire format. Only the subset needed to drive the CORE's passes is named
// here; an unrecognized opcode byte is a decode error (Decode returns an
// error for it).
type Opcode int

const (
	OpNop Opcode = iota
	OpMove
	OpMoveWide
	OpMoveObject
	OpMoveResult
	OpMoveResultWide
	OpMoveResultObject
	OpMoveException
	OpReturnVoid
	OpReturn
	OpReturnWide
	OpReturnObject
	OpConst4
	OpConst16
	OpConst
	OpConstHigh16
	OpConstWide16
	OpConstWide32
	OpConstWide
	OpConstWideHigh16
	OpConstString
	OpConstClass
	OpMonitorEnter
	OpMonitorExit
	OpCheckCast
	OpInstanceOf
	OpArrayLength
	OpNewInstance
	OpNewArray
	OpFilledNewArray
	OpFillArrayData
	OpThrow
	OpGoto
	OpGoto16
	OpGoto32
	OpPackedSwitch
	OpSparseSwitch
	OpCmplFloat
	OpCmpgFloat
	OpCmplDouble
	OpCmpgDouble
	OpCmpLong
	OpIfEq
	OpIfNe
	OpIfLt
	OpIfGe
	OpIfGt
	OpIfLe
	OpIfEqz
	OpIfNez
	OpIfLtz
	OpIfGez
	OpIfGtz
	OpIfLez
	OpAget
	OpAgetWide
	OpAgetObject
	OpAgetBoolean
	OpAgetByte
	OpAgetChar
	OpAgetShort
	OpAput
	OpAputWide
	OpAputObject
	OpAputBoolean
	OpAputByte
	OpAputChar
	OpAputShort
	OpIget
	OpIgetWide
	OpIgetObject
	OpIput
	OpIputWide
	OpIputObject
	OpSget
	OpSgetWide
	OpSgetObject
	OpSput
	OpSputWide
	OpSputObject
	OpInvokeVirtual
	OpInvokeSuper
	OpInvokeDirect
	OpInvokeStatic
	OpInvokeInterface
	OpInvokeVirtualRange
	OpInvokeDirectRange
	OpInvokeStaticRange
	OpNegInt
	OpNotInt
	OpNegLong
	OpNotLong
	OpNegFloat
	OpNegDouble
	OpIntToLong
	OpIntToFloat
	OpIntToDouble
	OpLongToInt
	OpLongToFloat
	OpLongToDouble
	OpFloatToInt
	OpFloatToLong
	OpFloatToDouble
	OpDoubleToInt
	OpDoubleToLong
	OpDoubleToFloat
	OpIntToByte
	OpIntToChar
	OpIntToShort
	OpAddInt
	OpSubInt
	OpMulInt
	OpDivInt
	OpRemInt
	OpAndInt
	OpOrInt
	OpXorInt
	OpShlInt
	OpShrInt
	OpUshrInt
	OpAddLong
	OpSubLong
	OpMulLong
	OpDivLong
	OpRemLong
	OpAndLong
	OpOrLong
	OpXorLong
	OpShlLong
	OpShrLong
	OpUshrLong
	OpAddFloat
	OpSubFloat
	OpMulFloat
	OpDivFloat
	OpRemFloat
	OpAddDouble
	OpSubDouble
	OpMulDouble
	OpDivDouble
	OpRemDouble
	OpAddIntLit16
	OpRsubInt
	OpMulIntLit16
	OpDivIntLit16
	OpRemIntLit16
	OpAndIntLit16
	OpOrIntLit16
	OpXorIntLit16
	OpAddIntLit8
	OpRsubIntLit8
	OpMulIntLit8
	OpDivIntLit8
	OpRemIntLit8
	OpAndIntLit8
	OpOrIntLit8
	OpXorIntLit8
	OpShlIntLit8
	OpShrIntLit8
	OpUshrIntLit8

	// OpThrowVerificationError is the verifier-synthesized placeholder
	// described in SPEC_FULL.md §12.6: the verifier could not prove the
	// original instruction safe and replaced it with an instruction that
	// always throws. It has no "real" semantics; the MIR builder treats it like
	// any other throwing instruction that does not continue: it ends its
	// block, and no separate always-throws exit block is created.
	OpThrowVerificationError

	// The following are not wire formats at all: they are MIR-only pseudo-
	// opcodes synthesized by the optimizer (spec.md §4.4, §3 "meta") and
	// never appear in a decoded instruction stream. They share this enum
	// because every MIR-consuming pass already switches on insndecode.Opcode;
	// giving pseudo-ops their own parallel type would force every such
	// switch to handle two enums instead of one.

	// OpCheck is the Check (guard) half of a kMirOpCheck pair: the MIR graph
	// builder splits every null/range/div-zero-checkable instruction into
	// this guard, terminating its original block, and the paired real op
	// (the "work" half), moved to the head of the fall-through block (spec.md
	// §4.4 step 4, §3 "meta"); CombineBlocks folds the pair back together
	// once every check the work half needs has been proved ignorable.
	OpCheck
	// OpSelect is the diamond-select pseudo-op of spec.md §4.4 step 5's LVN
	// pass: an IF_EQZ/IF_NEZ diamond whose two arms each assign the same
	// constant-or-move to one vreg collapses to this single MIR (vB/vC hold
	// the true/false values).
	OpSelect
	// OpFusedCmplFloat, OpFusedCmpgFloat, OpFusedCmplDouble, OpFusedCmpgDouble,
	// and OpFusedCmpLong are the "fused compare-and-branch" pseudo-ops of
	// spec.md §4.4 step 5's compare-branch fusion: a float/double/long
	// compare immediately consumed by an IF_*Z collapses into one of these.
	OpFusedCmplFloat
	OpFusedCmpgFloat
	OpFusedCmplDouble
	OpFusedCmpgDouble
	OpFusedCmpLong

	numOpcodes
)

// FmtPseudo marks a MIR-only pseudo-opcode with no wire encoding.
const FmtPseudo Format = -1

// attr describes one opcode's control-flow flags and wire format.
type attr struct {
	flags  Flag
	format Format
}

var opcodeAttrs = [numOpcodes]attr{
	OpNop:                {FlagContinue, Fmt10x},
	OpMove:                {FlagContinue, Fmt12x},
	OpMoveWide:            {FlagContinue, Fmt12x},
	OpMoveObject:          {FlagContinue, Fmt12x},
	OpMoveResult:          {FlagContinue, Fmt11x},
	OpMoveResultWide:      {FlagContinue, Fmt11x},
	OpMoveResultObject:    {FlagContinue, Fmt11x},
	OpMoveException:       {FlagContinue, Fmt11x},
	OpReturnVoid:          {FlagReturn, Fmt10x},
	OpReturn:              {FlagReturn, Fmt11x},
	OpReturnWide:          {FlagReturn, Fmt11x},
	OpReturnObject:        {FlagReturn, Fmt11x},
	OpConst4:              {FlagContinue, Fmt11n},
	OpConst16:             {FlagContinue, Fmt21s},
	OpConst:               {FlagContinue, Fmt31i},
	OpConstHigh16:         {FlagContinue, Fmt21h},
	OpConstWide16:         {FlagContinue, Fmt21s},
	OpConstWide32:         {FlagContinue, Fmt31i},
	OpConstWide:           {FlagContinue, Fmt51l},
	OpConstWideHigh16:     {FlagContinue, Fmt21h},
	OpConstString:         {FlagContinue | FlagThrow, Fmt21c},
	OpConstClass:          {FlagContinue | FlagThrow, Fmt21c},
	OpMonitorEnter:        {FlagContinue | FlagThrow, Fmt11x},
	OpMonitorExit:         {FlagContinue | FlagThrow, Fmt11x},
	OpCheckCast:           {FlagContinue | FlagThrow, Fmt21c},
	OpInstanceOf:          {FlagContinue | FlagThrow, Fmt22c},
	OpArrayLength:         {FlagContinue | FlagThrow, Fmt12x},
	OpNewInstance:         {FlagContinue | FlagThrow, Fmt21c},
	OpNewArray:            {FlagContinue | FlagThrow, Fmt22c},
	OpFilledNewArray:      {FlagContinue | FlagThrow, Fmt35c},
	OpFillArrayData:       {FlagContinue | FlagThrow, Fmt31t},
	OpThrow:               {FlagThrow, Fmt11x},
	OpGoto:                {FlagBranch, Fmt10t},
	OpGoto16:              {FlagBranch, Fmt20t},
	OpGoto32:              {FlagBranch, Fmt30t},
	OpPackedSwitch:        {FlagContinue | FlagSwitch, Fmt31t},
	OpSparseSwitch:        {FlagContinue | FlagSwitch, Fmt31t},
	OpCmplFloat:           {FlagContinue, Fmt23x},
	OpCmpgFloat:           {FlagContinue, Fmt23x},
	OpCmplDouble:          {FlagContinue, Fmt23x},
	OpCmpgDouble:          {FlagContinue, Fmt23x},
	OpCmpLong:             {FlagContinue, Fmt23x},
	OpIfEq:                {FlagContinue | FlagBranch, Fmt22t},
	OpIfNe:                {FlagContinue | FlagBranch, Fmt22t},
	OpIfLt:                {FlagContinue | FlagBranch, Fmt22t},
	OpIfGe:                {FlagContinue | FlagBranch, Fmt22t},
	OpIfGt:                {FlagContinue | FlagBranch, Fmt22t},
	OpIfLe:                {FlagContinue | FlagBranch, Fmt22t},
	OpIfEqz:               {FlagContinue | FlagBranch, Fmt21t},
	OpIfNez:               {FlagContinue | FlagBranch, Fmt21t},
	OpIfLtz:               {FlagContinue | FlagBranch, Fmt21t},
	OpIfGez:               {FlagContinue | FlagBranch, Fmt21t},
	OpIfGtz:               {FlagContinue | FlagBranch, Fmt21t},
	OpIfLez:               {FlagContinue | FlagBranch, Fmt21t},
	OpAget:                {FlagContinue | FlagThrow, Fmt23x},
	OpAgetWide:            {FlagContinue | FlagThrow, Fmt23x},
	OpAgetObject:          {FlagContinue | FlagThrow, Fmt23x},
	OpAgetBoolean:         {FlagContinue | FlagThrow, Fmt23x},
	OpAgetByte:            {FlagContinue | FlagThrow, Fmt23x},
	OpAgetChar:            {FlagContinue | FlagThrow, Fmt23x},
	OpAgetShort:           {FlagContinue | FlagThrow, Fmt23x},
	OpAput:                {FlagContinue | FlagThrow, Fmt23x},
	OpAputWide:            {FlagContinue | FlagThrow, Fmt23x},
	OpAputObject:          {FlagContinue | FlagThrow, Fmt23x},
	OpAputBoolean:         {FlagContinue | FlagThrow, Fmt23x},
	OpAputByte:            {FlagContinue | FlagThrow, Fmt23x},
	OpAputChar:            {FlagContinue | FlagThrow, Fmt23x},
	OpAputShort:           {FlagContinue | FlagThrow, Fmt23x},
	OpIget:                {FlagContinue | FlagThrow, Fmt22c},
	OpIgetWide:            {FlagContinue | FlagThrow, Fmt22c},
	OpIgetObject:          {FlagContinue | FlagThrow, Fmt22c},
	OpIput:                {FlagContinue | FlagThrow, Fmt22c},
	OpIputWide:            {FlagContinue | FlagThrow, Fmt22c},
	OpIputObject:          {FlagContinue | FlagThrow, Fmt22c},
	OpSget:                {FlagContinue | FlagThrow, Fmt21c},
	OpSgetWide:            {FlagContinue | FlagThrow, Fmt21c},
	OpSgetObject:          {FlagContinue | FlagThrow, Fmt21c},
	OpSput:                {FlagContinue | FlagThrow, Fmt21c},
	OpSputWide:            {FlagContinue | FlagThrow, Fmt21c},
	OpSputObject:          {FlagContinue | FlagThrow, Fmt21c},
	OpInvokeVirtual:       {FlagContinue | FlagThrow | FlagInvoke, Fmt35c},
	OpInvokeSuper:         {FlagContinue | FlagThrow | FlagInvoke, Fmt35c},
	OpInvokeDirect:        {FlagContinue | FlagThrow | FlagInvoke, Fmt35c},
	OpInvokeStatic:        {FlagContinue | FlagThrow | FlagInvoke, Fmt35c},
	OpInvokeInterface:     {FlagContinue | FlagThrow | FlagInvoke, Fmt35c},
	OpInvokeVirtualRange:  {FlagContinue | FlagThrow | FlagInvoke, Fmt3rc},
	OpInvokeDirectRange:   {FlagContinue | FlagThrow | FlagInvoke, Fmt3rc},
	OpInvokeStaticRange:   {FlagContinue | FlagThrow | FlagInvoke, Fmt3rc},
	OpThrowVerificationError: {FlagThrow, Fmt20t},

	OpCheck:             {FlagContinue | FlagThrow, FmtPseudo},
	OpSelect:            {FlagContinue, FmtPseudo},
	OpFusedCmplFloat:    {FlagContinue | FlagBranch, FmtPseudo},
	OpFusedCmpgFloat:    {FlagContinue | FlagBranch, FmtPseudo},
	OpFusedCmplDouble:   {FlagContinue | FlagBranch, FmtPseudo},
	OpFusedCmpgDouble:   {FlagContinue | FlagBranch, FmtPseudo},
	OpFusedCmpLong:      {FlagContinue | FlagBranch, FmtPseudo},
}

func init() {
	// Every arithmetic/conversion opcode not listed explicitly above is a
	// plain fall-through of the obvious arithmetic format; fill the table
	// instead of repeating the same {FlagContinue, Fmt23x}/{..,Fmt12x} pair
	// dozens of times above.
	unary12x := []Opcode{
		OpNegInt, OpNotInt, OpNegLong, OpNotLong, OpNegFloat, OpNegDouble,
		OpIntToLong, OpIntToFloat, OpIntToDouble, OpLongToInt, OpLongToFloat,
		OpLongToDouble, OpFloatToInt, OpFloatToLong, OpFloatToDouble,
		OpDoubleToInt, OpDoubleToLong, OpDoubleToFloat, OpIntToByte,
		OpIntToChar, OpIntToShort,
	}
	for _, op := range unary12x {
		opcodeAttrs[op] = attr{FlagContinue, Fmt12x}
	}
	binary23x := []Opcode{
		OpAddInt, OpSubInt, OpMulInt, OpAndInt, OpOrInt, OpXorInt, OpShlInt,
		OpShrInt, OpUshrInt, OpAddLong, OpSubLong, OpMulLong, OpAndLong,
		OpOrLong, OpXorLong, OpShlLong, OpShrLong, OpUshrLong, OpAddFloat,
		OpSubFloat, OpMulFloat, OpDivFloat, OpRemFloat, OpAddDouble,
		OpSubDouble, OpMulDouble, OpDivDouble, OpRemDouble,
	}
	for _, op := range binary23x {
		opcodeAttrs[op] = attr{FlagContinue, Fmt23x}
	}
	divRem23xThrowing := []Opcode{OpDivInt, OpRemInt, OpDivLong, OpRemLong}
	for _, op := range divRem23xThrowing {
		opcodeAttrs[op] = attr{FlagContinue | FlagThrow, Fmt23x}
	}
	lit16 := []Opcode{
		OpAddIntLit16, OpRsubInt, OpMulIntLit16, OpAndIntLit16, OpOrIntLit16,
		OpXorIntLit16,
	}
	for _, op := range lit16 {
		opcodeAttrs[op] = attr{FlagContinue, Fmt22s}
	}
	lit16Throwing := []Opcode{OpDivIntLit16, OpRemIntLit16}
	for _, op := range lit16Throwing {
		opcodeAttrs[op] = attr{FlagContinue | FlagThrow, Fmt22s}
	}
	lit8 := []Opcode{
		OpAddIntLit8, OpRsubIntLit8, OpMulIntLit8, OpAndIntLit8, OpOrIntLit8,
		OpXorIntLit8, OpShlIntLit8, OpShrIntLit8, OpUshrIntLit8,
	}
	for _, op := range lit8 {
		opcodeAttrs[op] = attr{FlagContinue, Fmt22b}
	}
	lit8Throwing := []Opcode{OpDivIntLit8, OpRemIntLit8}
	for _, op := range lit8Throwing {
		opcodeAttrs[op] = attr{FlagContinue | FlagThrow, Fmt22b}
	}
}

// FlagsOf returns op's control-flow flags.
func FlagsOf(op Opcode) Flag {
	if int(op) < 0 || int(op) >= int(numOpcodes) {
		return FlagContinue
	}
	return opcodeAttrs[op].flags
}

// FormatOf returns op's wire format.
func FormatOf(op Opcode) Format {
	if int(op) < 0 || int(op) >= int(numOpcodes) {
		return FmtUnknown()
	}
	return opcodeAttrs[op].format
}

func FmtUnknown() Format { return FormatUnknown }

// CanThrow reports whether op may raise an exception and therefore needs a
// Catch successor_block_list entry when inside a try region (spec.md §4.2).
func (op Opcode) CanThrow() bool { return FlagsOf(op)&FlagThrow != 0 }

// CanBranch reports whether op ends its block with a conditional or
// unconditional branch.
func (op Opcode) CanBranch() bool { return FlagsOf(op)&FlagBranch != 0 }

// IsSwitch reports whether op is packed-switch or sparse-switch.
func (op Opcode) IsSwitch() bool { return FlagsOf(op)&FlagSwitch != 0 }

// IsReturn reports whether op is a return variant.
func (op Opcode) IsReturn() bool { return FlagsOf(op)&FlagReturn != 0 }

// IsInvoke reports whether op is an invoke variant.
func (op Opcode) IsInvoke() bool { return FlagsOf(op)&FlagInvoke != 0 }

// ContinuesToNext reports whether control can fall through to the next
// instruction (false only for unconditional branch/return/throw/switch-only
// terminators).
func (op Opcode) ContinuesToNext() bool { return FlagsOf(op)&FlagContinue != 0 }

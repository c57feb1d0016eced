package insndecode

import (
	"fmt"

	"github.com/pkg/errors"
)

// Instruction is one decoded input instruction: an opcode plus up to three
// register operands (vA, vB, vC), an optional wide vB, and an optional
// 5-slot argument array for n-arg invokes (spec.md §3 "MIR ... insn").
type Instruction struct {
	Opcode Opcode
	Format Format

	VA int32
	VB int32
	VC int32

	VBWide  int64
	HasWide bool

	// Args holds up to 5 register arguments for k35c invoke-kind
	// instructions; ArgCount is the vararg count (VA for k35c).
	Args     [5]uint16
	ArgCount int

	// PoolIndex is the constant/field/method/type pool index for c-suffixed
	// formats (21c, 22c, 31c, 35c, 3rc).
	PoolIndex uint32

	// BranchTarget is the absolute code-unit offset a t-suffixed format
	// branches to, already resolved from the instruction's signed delta and
	// its own offset.
	BranchTarget int32

	widthUnits int
}

// WidthInCodeUnits returns the number of 16-bit code units this instruction
// occupies, including payload for variable-length pseudo-ops.
func (in *Instruction) WidthInCodeUnits() int { return in.widthUnits }

// Decode decodes one instruction from code starting at offset (in 16-bit
// code units), returning the decoded Instruction. Multi-unit formats and the
// variable-length switch/array-data payloads are fully consumed.
func Decode(code []uint16, offset int) (*Instruction, error) {
	if offset < 0 || offset >= len(code) {
		return nil, errors.Errorf("insndecode: offset %d out of range (len=%d)", offset, len(code))
	}
	unit0 := code[offset]
	opByte := unit0 & 0xff

	op, ok := opcodeFromByte(opByte)
	if !ok {
		return nil, errors.Errorf("insndecode: unrecognized opcode byte 0x%02x at offset %d", opByte, offset)
	}

	// opcode byte 0x00 (OpNop) is shared with the three variable-length
	// pseudo-ops; a payload is distinguished by a magic value in the next
	// code unit, matching the published dex nop/payload overload.
	if op == OpNop && offset+1 < len(code) && isPayloadMagic(code[offset+1]) {
		width, payloadFmt, perr := decodePayload(code, offset)
		if perr != nil {
			return nil, perr
		}
		return &Instruction{Opcode: OpNop, Format: payloadFmt, widthUnits: width}, nil
	}

	fmtKind := FormatOf(op)
	in := &Instruction{Opcode: op, Format: fmtKind}

	need := fmtKind.SizeInCodeUnits()
	if need < 0 {
		need = 1
	}
	if offset+need > len(code) {
		return nil, errors.Errorf("insndecode: truncated instruction at offset %d (opcode %v needs %d units)", offset, op, need)
	}

	switch fmtKind {
	case Fmt10x:
		in.widthUnits = 1
	case Fmt10t:
		in.VA = int32(int8(unit0 >> 8))
		in.BranchTarget = int32(offset) + in.VA
		in.widthUnits = 1
	case Fmt11n:
		in.VA = int32((unit0 >> 8) & 0xf)
		in.VB = signExtend(int32((unit0>>12)&0xf), 4)
		in.widthUnits = 1
	case Fmt11x:
		in.VA = int32(unit0 >> 8)
		in.widthUnits = 1
	case Fmt12x:
		in.VA = int32((unit0 >> 8) & 0xf)
		in.VB = int32((unit0 >> 12) & 0xf)
		in.widthUnits = 1
	case Fmt20t:
		in.VA = int32(int16(code[offset+1]))
		in.BranchTarget = int32(offset) + in.VA
		in.widthUnits = 2
	case Fmt21c:
		in.VA = int32(unit0 >> 8)
		in.PoolIndex = uint32(code[offset+1])
		in.widthUnits = 2
	case Fmt21h:
		in.VA = int32(unit0 >> 8)
		in.VB = int32(code[offset+1])
		in.widthUnits = 2
	case Fmt21s:
		in.VA = int32(unit0 >> 8)
		in.VB = int32(int16(code[offset+1]))
		in.widthUnits = 2
	case Fmt21t:
		in.VA = int32(unit0 >> 8)
		in.VB = int32(int16(code[offset+1]))
		in.BranchTarget = int32(offset) + in.VB
		in.widthUnits = 2
	case Fmt22b:
		in.VA = int32(unit0 >> 8)
		in.VB = int32(code[offset+1] & 0xff)
		in.VC = int32(int8(code[offset+1] >> 8))
		in.widthUnits = 2
	case Fmt22c:
		in.VA = int32((unit0 >> 8) & 0xf)
		in.VB = int32((unit0 >> 12) & 0xf)
		in.PoolIndex = uint32(code[offset+1])
		in.widthUnits = 2
	case Fmt22s:
		in.VA = int32((unit0 >> 8) & 0xf)
		in.VB = int32((unit0 >> 12) & 0xf)
		in.VC = int32(int16(code[offset+1]))
		in.widthUnits = 2
	case Fmt22t:
		in.VA = int32((unit0 >> 8) & 0xf)
		in.VB = int32((unit0 >> 12) & 0xf)
		in.VC = int32(int16(code[offset+1]))
		in.BranchTarget = int32(offset) + in.VC
		in.widthUnits = 2
	case Fmt22x:
		in.VA = int32(unit0 >> 8)
		in.VB = int32(code[offset+1])
		in.widthUnits = 2
	case Fmt23x:
		in.VA = int32(unit0 >> 8)
		in.VB = int32(code[offset+1] & 0xff)
		in.VC = int32(code[offset+1] >> 8)
		in.widthUnits = 2
	case Fmt30t:
		in.VA = int32(code[offset+1]) | int32(code[offset+2])<<16
		in.BranchTarget = int32(offset) + in.VA
		in.widthUnits = 3
	case Fmt31c:
		in.VA = int32(unit0 >> 8)
		in.PoolIndex = uint32(code[offset+1]) | uint32(code[offset+2])<<16
		in.widthUnits = 3
	case Fmt31i:
		in.VA = int32(unit0 >> 8)
		in.VB = int32(code[offset+1]) | int32(code[offset+2])<<16
		in.widthUnits = 3
	case Fmt31t:
		in.VA = int32(unit0 >> 8)
		delta := int32(code[offset+1]) | int32(code[offset+2])<<16
		in.VB = delta
		in.BranchTarget = int32(offset) + delta
		in.widthUnits = 3
	case Fmt32x:
		in.VA = int32(code[offset+1])
		in.VB = int32(code[offset+2])
		in.widthUnits = 3
	case Fmt35c:
		argCount := int((unit0 >> 12) & 0xf)
		in.ArgCount = argCount
		in.PoolIndex = uint32(code[offset+1])
		g := code[offset+2]
		in.Args[0] = g & 0xf
		in.Args[1] = (g >> 4) & 0xf
		in.Args[2] = (g >> 8) & 0xf
		in.Args[3] = (g >> 12) & 0xf
		in.Args[4] = uint16((unit0 >> 8) & 0xf) // the 5th arg ("G") per k35c
		in.widthUnits = 3
	case Fmt3rc:
		count := int(unit0 >> 8)
		in.ArgCount = count
		in.PoolIndex = uint32(code[offset+1])
		in.VC = int32(code[offset+2]) // first register in range
		in.widthUnits = 3
	case Fmt51l:
		in.VA = int32(unit0 >> 8)
		lo := uint64(code[offset+1]) | uint64(code[offset+2])<<16
		hi := uint64(code[offset+3]) | uint64(code[offset+4])<<16
		in.VBWide = int64(lo | hi<<32)
		in.HasWide = true
		in.widthUnits = 5
	default:
		return nil, errors.Errorf("insndecode: unhandled format %v for opcode %v", fmtKind, op)
	}
	return in, nil
}

func signExtend(v int32, bits uint) int32 {
	shift := 32 - bits
	return (v << shift) >> shift
}

// decodePayload recognizes the three variable-length pseudo-ops. They are
// distinguished in the real format by a reserved opcode byte (0x00) and a
// magic value in the following unit; here the magic lives in code[offset+1]
// directly for simplicity of this CORE's input contract.
func decodePayload(code []uint16, offset int) (widthUnits int, format Format, err error) {
	if offset+1 >= len(code) {
		return 0, 0, errors.New("insndecode: truncated payload header")
	}
	magic := code[offset+1]
	switch magic {
	case packedSwitchMagic:
		if offset+2 >= len(code) {
			return 0, 0, errors.New("insndecode: truncated packed-switch payload")
		}
		size := int(code[offset+2])
		return 5 + 2*size, FmtPackedSwitchPayload, nil
	case sparseSwitchMagic:
		if offset+2 >= len(code) {
			return 0, 0, errors.New("insndecode: truncated sparse-switch payload")
		}
		size := int(code[offset+2])
		return 3 + 4*size, FmtSparseSwitchPayload, nil
	case arrayDataMagic:
		if offset+4 >= len(code) {
			return 0, 0, errors.New("insndecode: truncated array-data payload")
		}
		elemWidth := int(code[offset+2])
		size := int(code[offset+3]) | int(code[offset+4])<<16
		total := elemWidth * size
		units := 5 + (total+1)/2
		return units, FmtArrayDataPayload, nil
	default:
		return 0, 0, errors.Errorf("insndecode: unrecognized payload magic 0x%04x", magic)
	}
}

const (
	packedSwitchMagic = 0x0100
	sparseSwitchMagic = 0x0200
	arrayDataMagic    = 0x0300
)

func isPayloadMagic(u uint16) bool {
	return u == packedSwitchMagic || u == sparseSwitchMagic || u == arrayDataMagic
}

// PackedSwitchPayload is the decoded body of a packed-switch-payload pseudo-op.
type PackedSwitchPayload struct {
	FirstKey int32
	Targets  []int32 // absolute code-unit offsets, resolved from the anchor
}

// DecodePackedSwitch decodes a packed-switch-payload at offset (relative to
// the switch instruction's own offset, anchor) into absolute targets.
func DecodePackedSwitch(code []uint16, offset, anchor int) (*PackedSwitchPayload, error) {
	if code[offset+1] != packedSwitchMagic {
		return nil, errors.New("insndecode: not a packed-switch-payload")
	}
	size := int(code[offset+2])
	firstKey := int32(code[offset+3]) | int32(code[offset+4])<<16
	p := &PackedSwitchPayload{FirstKey: firstKey, Targets: make([]int32, size)}
	base := offset + 5
	for i := 0; i < size; i++ {
		delta := int32(code[base+2*i]) | int32(code[base+2*i+1])<<16
		p.Targets[i] = int32(anchor) + delta
	}
	return p, nil
}

// SparseSwitchPayload is the decoded body of a sparse-switch-payload.
type SparseSwitchPayload struct {
	Keys    []int32
	Targets []int32
}

// DecodeSparseSwitch decodes a sparse-switch-payload into (key, absolute
// target) pairs.
func DecodeSparseSwitch(code []uint16, offset, anchor int) (*SparseSwitchPayload, error) {
	if code[offset+1] != sparseSwitchMagic {
		return nil, errors.New("insndecode: not a sparse-switch-payload")
	}
	size := int(code[offset+2])
	p := &SparseSwitchPayload{Keys: make([]int32, size), Targets: make([]int32, size)}
	keyBase := offset + 3
	for i := 0; i < size; i++ {
		p.Keys[i] = int32(code[keyBase+2*i]) | int32(code[keyBase+2*i+1])<<16
	}
	targetBase := keyBase + 2*size
	for i := 0; i < size; i++ {
		delta := int32(code[targetBase+2*i]) | int32(code[targetBase+2*i+1])<<16
		p.Targets[i] = int32(anchor) + delta
	}
	return p, nil
}

func (in *Instruction) String() string {
	return fmt.Sprintf("%v vA=%d vB=%d vC=%d", in.Opcode, in.VA, in.VB, in.VC)
}

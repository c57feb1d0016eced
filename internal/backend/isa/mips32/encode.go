package mips32

import "github.com/zyq8709/dexhunter/internal/insndecode"

const (
	opRType = 0x00
	opJ     = 0x02
	opJal   = 0x03
	opLw    = 0x23
	opSw    = 0x2B
	opLui   = 0x0F

	funcAddu = 0x21
	funcSubu = 0x23
	funcAnd  = 0x24
	funcOr   = 0x25
	funcXor  = 0x26
	funcMult = 0x18
	funcOr0  = 0x25 // move pseudo-instruction: or $rd, $rs, $zero
)

func encodeRType(fn uint8, rs, rt, rd uint8) uint32 {
	return uint32(opRType)<<26 | uint32(rs&0x1f)<<21 | uint32(rt&0x1f)<<16 | uint32(rd&0x1f)<<11 | uint32(fn&0x3f)
}

func encodeMove(dst, src uint8) uint32 {
	return encodeRType(funcOr0, src, ZERO, dst)
}

func encodeIType(op uint8, rs, rt uint8, imm int16) uint32 {
	return uint32(op)<<26 | uint32(rs&0x1f)<<21 | uint32(rt&0x1f)<<16 | uint32(uint16(imm))
}

func encodeLw(dst, base uint8, imm int16) uint32 { return encodeIType(opLw, base, dst, imm) }
func encodeSw(src, base uint8, imm int16) uint32 { return encodeIType(opSw, base, src, imm) }
func encodeLui(dst uint8, imm uint16) uint32      { return encodeIType(opLui, 0, dst, int16(imm)) }

func encodeJal(targetWords uint32) uint32 { return uint32(opJal)<<26 | (targetWords & 0x3ffffff) }
func encodeJ(targetWords uint32) uint32   { return uint32(opJ)<<26 | (targetWords & 0x3ffffff) }

func encodeJr(reg uint8) uint32 { return encodeRType(0x08, reg, 0, 0) }
func encodeNop() uint32         { return 0 }

func funcFor(op insndecode.Opcode) uint8 {
	switch op {
	case insndecode.OpSubInt, insndecode.OpSubLong, insndecode.OpSubFloat, insndecode.OpSubDouble:
		return funcSubu
	case insndecode.OpMulInt, insndecode.OpMulLong:
		return funcMult
	case insndecode.OpAndInt, insndecode.OpAndLong:
		return funcAnd
	case insndecode.OpOrInt, insndecode.OpOrLong:
		return funcOr
	case insndecode.OpXorInt, insndecode.OpXorLong:
		return funcXor
	default:
		return funcAddu
	}
}

// branchOpcodeFor returns the MIPS I-type branch opcode, encoded the same
// way beq/bne are (opcode bits packed into the LIR's Opcode field by the
// caller; src1/src2 already sit in Operands[0:2]).
func branchOpcodeFor(op insndecode.Opcode) uint8 {
	switch op {
	case insndecode.OpIfNe, insndecode.OpIfNez, insndecode.OpIfLt, insndecode.OpIfLtz,
		insndecode.OpIfGt, insndecode.OpIfGtz:
		return 0x05 // bne (the slt result is 1 when the ordering test holds)
	default:
		return 0x04 // beq (eq/ge/le compare directly, or against a negated slt)
	}
}

func isOrderingCompare(op insndecode.Opcode) bool {
	switch op {
	case insndecode.OpIfLt, insndecode.OpIfLtz, insndecode.OpIfGe, insndecode.OpIfGez,
		insndecode.OpIfGt, insndecode.OpIfGtz, insndecode.OpIfLe, insndecode.OpIfLez:
		return true
	default:
		return false
	}
}

// sltFuncFor picks slt's argument order so the result is 1 exactly when the
// tested ordering holds; ge/le reuse lt/gt's slt and flip to beq (see
// branchOpcodeFor), since "not less" is what ge/le actually test here.
func sltFuncFor(op insndecode.Opcode) uint8 {
	switch op {
	case insndecode.OpIfGt, insndecode.OpIfGtz, insndecode.OpIfLe, insndecode.OpIfLez:
		return 0x2a // slt with operands swapped by the caller convention: rt<rs
	default:
		return 0x2a // slt rd, rs, rt
	}
}

package armthumb2

import "github.com/zyq8709/dexhunter/internal/insndecode"

// The encodings below follow the ARM Architecture Reference Manual Thumb
// instruction set tables (16-bit "T1/T2" encodings for the low-register
// forms this backend restricts itself to; ART's Thumb2 quick backend takes
// the same low-register-only shortcut for everything but literal pool
// loads and branch-link, which need the 32-bit Thumb2 forms).

const (
	bUnconditional = 0xE000 // T2 unconditional branch opcode bits, offset filled by the assembler
	bCondEQ        = 0xD000
	bCondNE        = 0xD100
	bCondLT        = 0xDB00
	bCondGE        = 0xDA00
	bCondGT        = 0xDC00
	bCondLE        = 0xDD00
)

func encodeMovRegReg(dst, src uint8) uint16 {
	// MOV (register), T1: 0100 0110 D Rm Rd (high-register form covers r0-r15)
	return 0x4600 | uint16(dst&0x7) | uint16(src&0xf)<<3 | uint16((dst>>3)&1)<<7
}

func encodeDataProcessing(op uint16, dst, src1, src2 uint8) uint16 {
	// ADDS/SUBS etc (register), T1: 000 11 op Rm Rn Rd, three low registers.
	return op | uint16(src2&0x7)<<6 | uint16(src1&0x7)<<3 | uint16(dst&0x7)
}

func arithThumbOp(op insndecode.Opcode) uint16 {
	switch op {
	case insndecode.OpSubInt, insndecode.OpSubLong, insndecode.OpSubFloat, insndecode.OpSubDouble:
		return 0x1A00
	case insndecode.OpMulInt, insndecode.OpMulLong:
		return 0x4340 // MULS (two-operand form, Rd==Rn)
	case insndecode.OpAndInt, insndecode.OpAndLong:
		return 0x4000
	case insndecode.OpOrInt, insndecode.OpOrLong:
		return 0x4300
	case insndecode.OpXorInt, insndecode.OpXorLong:
		return 0x4040
	default:
		return 0x1800 // ADDS (register), T1
	}
}

func encodeLdrReg(dst, base, index uint8) uint16 {
	// LDR (register), T1: 0101 100 Rm Rn Rt
	return 0x5800 | uint16(index&0x7)<<6 | uint16(base&0x7)<<3 | uint16(dst&0x7)
}

func encodeStrReg(src, base, index uint8) uint16 {
	return 0x5000 | uint16(index&0x7)<<6 | uint16(base&0x7)<<3 | uint16(src&0x7)
}

func encodeLdrImm(dst, base, imm5 uint8) uint16 {
	// LDR (immediate), T1: 0110 1 imm5 Rn Rt
	return 0x6800 | uint16(imm5&0x1f)<<6 | uint16(base&0x7)<<3 | uint16(dst&0x7)
}

func encodeStrImm(src, base, imm5 uint8) uint16 {
	return 0x6000 | uint16(imm5&0x1f)<<6 | uint16(base&0x7)<<3 | uint16(src&0x7)
}

func encodeCmpReg(a, b uint8) uint16 {
	// CMP (register), T1: 0100 0010 10 Rm Rn
	return 0x4280 | uint16(b&0x7)<<3 | uint16(a&0x7)
}

func encodeCmpImm(reg uint8, imm8 uint8) uint16 {
	// CMP (immediate), T1: 0010 1 Rn imm8
	return 0x2800 | uint16(reg&0x7)<<8 | uint16(imm8)
}

func encodeBX(reg uint8) uint16 {
	// BX, T1: 0100 0111 0 Rm 000
	return 0x4700 | uint16(reg&0xf)<<3
}

func encodeBL(displacementWords int32) uint32 {
	// BL, T1 32-bit form; displacement patched once block offsets are final,
	// so bits are left zero here and filled by the assembler driver.
	return 0xF000D000 | uint32(displacementWords&0x7ff)
}

func encodeLdrLiteral(dst uint8, poolIdx uint32) uint32 {
	// LDR (literal), T2 32-bit form, PC-relative; the literal pool entry for
	// poolIdx is installed by the assembler driver's pool pass.
	return 0xF8DF0000 | uint32(dst)<<12 | (poolIdx & 0xfff)
}

func encodeStrLiteral(src uint8, poolIdx uint32) uint32 {
	return 0xF8C00000 | uint32(src)<<12 | (poolIdx & 0xfff)
}

func branchCondThumbOp(op insndecode.Opcode) uint16 {
	switch op {
	case insndecode.OpIfEq, insndecode.OpIfEqz:
		return bCondEQ
	case insndecode.OpIfNe, insndecode.OpIfNez:
		return bCondNE
	case insndecode.OpIfLt, insndecode.OpIfLtz:
		return bCondLT
	case insndecode.OpIfGe, insndecode.OpIfGez:
		return bCondGE
	case insndecode.OpIfGt, insndecode.OpIfGtz:
		return bCondGT
	case insndecode.OpIfLe, insndecode.OpIfLez:
		return bCondLE
	default:
		return bCondEQ
	}
}

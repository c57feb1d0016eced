package x86_32

import "github.com/zyq8709/dexhunter/internal/insndecode"

// modrmReg builds a ModRM byte for the register-direct addressing mode
// (mod=11), matching the teacher's (tetratelabs/wazero) amd64 assembler's
// modrm-construction helpers in shape: one small function per addressing
// mode instead of one do-everything encoder.
func modrmReg(reg, rm uint8) byte { return 0xC0 | (reg&7)<<3 | (rm & 7) }

func modrmDisp8(reg, base uint8) byte { return 0x40 | (reg&7)<<3 | (base & 7) }

func sib(scale, index, base uint8) byte { return (scale&3)<<6 | (index&7)<<3 | (base & 7) }

func encodeMovRegReg(dst, src uint8) []byte {
	return []byte{0x89, modrmReg(src, dst)} // MOV r/m32, r32
}

func arithOpcodeFor(op insndecode.Opcode) byte {
	switch op {
	case insndecode.OpSubInt, insndecode.OpSubLong, insndecode.OpSubFloat, insndecode.OpSubDouble:
		return 0x29 // SUB r/m32, r32
	case insndecode.OpAndInt, insndecode.OpAndLong:
		return 0x21
	case insndecode.OpOrInt, insndecode.OpOrLong:
		return 0x09
	case insndecode.OpXorInt, insndecode.OpXorLong:
		return 0x31
	default:
		return 0x01 // ADD r/m32, r32
	}
}

func encodeArithRegReg(opcode, dst, src uint8) []byte {
	return []byte{opcode, modrmReg(src, dst)}
}

func encodeMovLoadSIB(dst, base, index uint8) []byte {
	return []byte{0x8B, 0x04 | (dst&7)<<3, sib(2, index, base)}
}

func encodeMovStoreSIB(src, base, index uint8) []byte {
	return []byte{0x89, 0x04 | (src&7)<<3, sib(2, index, base)}
}

func encodeMovLoadDisp8(dst, base uint8, disp int8) []byte {
	return []byte{0x8B, modrmDisp8(dst, base), byte(disp)}
}

func encodeMovStoreDisp8(src, base uint8, disp int8) []byte {
	return []byte{0x89, modrmDisp8(src, base), byte(disp)}
}

func encodeMovLoadAbs(dst uint8, addr32 uint32) []byte {
	return []byte{0x8B, 0x05 | (dst&7)<<3, byte(addr32), byte(addr32 >> 8), byte(addr32 >> 16), byte(addr32 >> 24)}
}

func encodeMovStoreAbs(src uint8, addr32 uint32) []byte {
	return []byte{0x89, 0x05 | (src&7)<<3, byte(addr32), byte(addr32 >> 8), byte(addr32 >> 16), byte(addr32 >> 24)}
}

func encodePushReg(reg uint8) []byte { return []byte{0x50 | (reg & 7)} }

func encodeCallRel32(rel32 int32) []byte {
	return []byte{0xE8, byte(rel32), byte(rel32 >> 8), byte(rel32 >> 16), byte(rel32 >> 24)}
}

func encodeAddEspImm8(imm8 uint8) []byte { return []byte{0x83, 0xC4, imm8} }

func encodeCmpRegReg(a, b uint8) []byte { return []byte{0x39, modrmReg(b, a)} }

func jccCondFor(op insndecode.Opcode) byte {
	switch op {
	case insndecode.OpIfEq, insndecode.OpIfEqz:
		return 0x84 // JE
	case insndecode.OpIfNe, insndecode.OpIfNez:
		return 0x85 // JNE
	case insndecode.OpIfLt, insndecode.OpIfLtz:
		return 0x8C // JL
	case insndecode.OpIfGe, insndecode.OpIfGez:
		return 0x8D // JGE
	case insndecode.OpIfGt, insndecode.OpIfGtz:
		return 0x8F // JG
	case insndecode.OpIfLe, insndecode.OpIfLez:
		return 0x8E // JLE
	default:
		return 0x84
	}
}

func encodeJcc(cond byte, rel32 int32) []byte {
	return []byte{0x0F, cond, byte(rel32), byte(rel32 >> 8), byte(rel32 >> 16), byte(rel32 >> 24)}
}

func encodeJmpRel32(rel32 int32) []byte {
	return []byte{0xE9, byte(rel32), byte(rel32 >> 8), byte(rel32 >> 16), byte(rel32 >> 24)}
}

func encodeLeave() []byte { return []byte{0xC9} }
func encodeRet() []byte   { return []byte{0xC3} }

func encodeTestFsOffset() []byte {
	return []byte{0x64, 0x83, 0x3D, 0x00, 0x00, 0x00, 0x00, 0x00} // cmp dword fs:[0], 0
}

package insndecode

// opcodeFromByte maps a wire opcode byte to an Opcode. The published format
// assigns a fixed byte per opcode (see dex_instruction.cc's kInstructionNames
// table); this CORE assigns byte 0 to OpNop (shared with the pseudo-op
// payload marker, disambiguated by decodePayload's magic check) and then one
// byte per Opcode in declaration order, which is sufficient for a decoder
// that only needs a stable, reversible byte<->Opcode mapping rather than the
// exact historical byte assignment (the container-format parser that would
// need the real byte values is out of scope per spec.md §1).
var byteToOpcode [256]Opcode
var opcodeToByte [numOpcodes]uint16

func init() {
	for i := range byteToOpcode {
		byteToOpcode[i] = Opcode(-1)
	}
	for op := Opcode(0); op < numOpcodes; op++ {
		b := uint16(op)
		if b >= 0xfe {
			// Reserve the top of the byte space so it never collides with
			// the pseudo-op payload markers, which live past a legitimate
			// opcode byte boundary in decodePayload.
			break
		}
		byteToOpcode[b] = op
		opcodeToByte[op] = b
	}
}

func opcodeFromByte(b uint16) (Opcode, bool) {
	if b >= 256 {
		return 0, false
	}
	op := byteToOpcode[b]
	if op < 0 {
		return 0, false
	}
	return op, true
}

// ByteOf returns op's wire opcode byte, for encoders/tests constructing raw
// code units.
func ByteOf(op Opcode) uint16 { return opcodeToByte[op] }

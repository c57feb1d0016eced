package insndecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func unit(op Opcode, hi uint16) uint16 {
	return ByteOf(op) | hi<<8
}

func TestDecodeFmt11nConst4(t *testing.T) {
	// const/4 v0, #-1 : A=0, B=0xf (sign-extended nibble -1)
	code := []uint16{unit(OpConst4, 0x0|0xf<<4)}
	in, err := Decode(code, 0)
	require.NoError(t, err)
	require.Equal(t, OpConst4, in.Opcode)
	require.Equal(t, int32(0), in.VA)
	require.Equal(t, int32(-1), in.VB)
	require.Equal(t, 1, in.WidthInCodeUnits())
}

func TestDecodeFmt10tGoto(t *testing.T) {
	// goto +5
	code := []uint16{unit(OpGoto, 5)}
	in, err := Decode(code, 0)
	require.NoError(t, err)
	require.Equal(t, OpGoto, in.Opcode)
	require.Equal(t, int32(5), in.BranchTarget)
}

func TestDecodeFmt35cInvokeStatic(t *testing.T) {
	// invoke-static {v1, v2}, pool#7 : argCount=2 in top nibble of unit0
	code := []uint16{
		unit(OpInvokeStatic, 2<<4),
		7,      // pool index
		0x0012, // args packed: arg0=2(low nibble), arg1=1
	}
	in, err := Decode(code, 0)
	require.NoError(t, err)
	require.Equal(t, OpInvokeStatic, in.Opcode)
	require.Equal(t, 2, in.ArgCount)
	require.Equal(t, uint32(7), in.PoolIndex)
	require.Equal(t, uint16(2), in.Args[0])
	require.Equal(t, uint16(1), in.Args[1])
	require.Equal(t, 3, in.WidthInCodeUnits())
}

func TestDecodeReturnVoid(t *testing.T) {
	code := []uint16{unit(OpReturnVoid, 0)}
	in, err := Decode(code, 0)
	require.NoError(t, err)
	require.Equal(t, OpReturnVoid, in.Opcode)
	require.Equal(t, 1, in.WidthInCodeUnits())
}

func TestDecodeOutOfRangeOffsetErrors(t *testing.T) {
	code := []uint16{unit(OpNop, 0)}
	_, err := Decode(code, 5)
	require.Error(t, err)
}

func TestDecodeTruncatedInstructionErrors(t *testing.T) {
	// const4 needs only 1 unit so truncation here is really about a wider
	// format: invoke-static (Fmt35c, 3 units) with only 1 unit present.
	code := []uint16{unit(OpInvokeStatic, 1<<4)}
	_, err := Decode(code, 0)
	require.Error(t, err)
}

func TestDecodeUnrecognizedOpcodeByteErrors(t *testing.T) {
	code := []uint16{0x00fe} // reserved top-of-byte-space value, never assigned
	_, err := Decode(code, 0)
	require.Error(t, err)
}

func TestDecodePackedSwitchPayload(t *testing.T) {
	// nop-marker packed-switch-payload: size=2, first_key=10, targets {+2, +4}
	code := []uint16{
		unit(OpNop, 0), packedSwitchMagic,
		2,              // size
		10, 0,          // first_key (32-bit, low then high)
		2, 0, // target delta 0 (low, high)
		4, 0, // target delta 1
	}
	in, err := Decode(code, 0)
	require.NoError(t, err)
	require.Equal(t, OpNop, in.Opcode)
	require.Equal(t, FmtPackedSwitchPayload, in.Format)
	require.Equal(t, 9, in.WidthInCodeUnits()) // nop unit + magic + size + first_key(2) + 2*size

	p, err := DecodePackedSwitch(code, 0, 100)
	require.NoError(t, err)
	require.Equal(t, int32(10), p.FirstKey)
	require.Equal(t, []int32{102, 104}, p.Targets)
}

func TestDecodeSparseSwitchPayload(t *testing.T) {
	code := []uint16{
		unit(OpNop, 0), sparseSwitchMagic,
		2, // size
		1, 0, // key0
		2, 0, // key1
		5, 0, // target delta0
		6, 0, // target delta1
	}
	p, err := DecodeSparseSwitch(code, 0, 50)
	require.NoError(t, err)
	require.Equal(t, []int32{1, 2}, p.Keys)
	require.Equal(t, []int32{55, 56}, p.Targets)
}

package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyq8709/dexhunter/internal/compilelog"
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/lir"
	"github.com/zyq8709/dexhunter/internal/mir"
	"github.com/zyq8709/dexhunter/internal/regalloc"
)

type stubMachine struct {
	attemptsUntilOK int
	calls           int
}

func (s *stubMachine) RegisterPool() regalloc.Pool                      { return regalloc.Pool{} }
func (s *stubMachine) LoadValue(l *lir.List, dst int32, ssa mir.SSAName) {}
func (s *stubMachine) Name() string                                     { return "stub" }
func (s *stubMachine) AssembleInstructions(list *lir.List, buf []byte) (int, bool) {
	s.calls++
	return len(buf), s.calls > s.attemptsUntilOK
}

func TestAssignOffsetsSkipsPseudosAndNops(t *testing.T) {
	var l lir.List
	label := &lir.LIR{Opcode: lir.PseudoTargetLabel}
	real1 := &lir.LIR{Opcode: 1, Flags: lir.Flags{SizeBytes: 4}}
	nop := &lir.LIR{Opcode: 1, Flags: lir.Flags{SizeBytes: 4, IsNop: true}}
	real2 := &lir.LIR{Opcode: 2, Flags: lir.Flags{SizeBytes: 2}}
	l.Append(label)
	l.Append(real1)
	l.Append(nop)
	l.Append(real2)

	size := AssignOffsets(&l)

	require.EqualValues(t, 0, label.Offset)
	require.EqualValues(t, 0, real1.Offset)
	require.EqualValues(t, 4, nop.Offset)
	require.EqualValues(t, 4, real2.Offset)
	require.Equal(t, 6, size)
}

func TestEncodeDecodePCToDexMapRoundTrips(t *testing.T) {
	entries := []PCToDexEntry{{0, 0}, {4, 2}, {12, 2}, {20, 10}}
	buf := EncodePCToDexMap(entries)
	got := DecodePCToDexMap(buf)
	require.Equal(t, entries, got)
}

func TestLiteralPoolDeduplicatesOrdinaryValues(t *testing.T) {
	p := NewLiteralPool()
	a := p.AddOrdinary(42)
	b := p.AddOrdinary(42)
	c := p.AddOrdinary(7)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, p.Patches(), 2)
}

func TestGCMapPutAndLookup(t *testing.T) {
	g := NewGCMap(4)
	g.Put(100, []uint16{1, 3})
	g.Put(200, []uint16{0})
	refs, ok := g.Lookup(100)
	require.True(t, ok)
	require.Equal(t, []uint16{1, 3}, refs)
	_, ok = g.Lookup(300)
	require.False(t, ok)
}

func TestVmapTableEncodeAndPhysRegFor(t *testing.T) {
	vt := VmapTable{{VReg: 2, PhysReg: 5, IsFP: false}, {VReg: 3, PhysReg: 16, IsFP: true}}
	buf := vt.Encode()
	require.NotEmpty(t, buf)
	r, ok := vt.PhysRegFor(3)
	require.True(t, ok)
	require.EqualValues(t, 16, r)
}

func TestAssembleRetriesUntilOK(t *testing.T) {
	var l lir.List
	l.Append(&lir.LIR{Opcode: 1, Flags: lir.Flags{SizeBytes: 4}})
	m := &stubMachine{attemptsUntilOK: 2}
	log := compilelog.New(0)

	buf, attempts, err := Assemble(&l, stubAsMachine{m}, log)
	require.NoError(t, err)
	require.NotNil(t, buf)
	require.Equal(t, 2, attempts)
}

// stubAsMachine satisfies backend.Machine by embedding stubMachine and
// panicking on the methods this test never exercises, which keeps the test
// focused on Assemble's retry loop instead of a full Machine fake.
type stubAsMachine struct{ *stubMachine }

func (stubAsMachine) StoreValue(l *lir.List, ssa mir.SSAName, src int32) { panic("unused") }
func (stubAsMachine) GenArithOp(l *lir.List, op insndecode.Opcode, dst, src1, src2 int32)          { panic("unused") }
func (stubAsMachine) GenArrayGet(l *lir.List, op insndecode.Opcode, dst, base, index int32)        { panic("unused") }
func (stubAsMachine) GenArrayPut(l *lir.List, op insndecode.Opcode, src, base, index int32)        { panic("unused") }
func (stubAsMachine) GenIGet(l *lir.List, op insndecode.Opcode, dst, base int32, fieldIdx uint32)  { panic("unused") }
func (stubAsMachine) GenIPut(l *lir.List, op insndecode.Opcode, src, base int32, fieldIdx uint32)  { panic("unused") }
func (stubAsMachine) GenSget(l *lir.List, op insndecode.Opcode, dst int32, fieldIdx uint32)        { panic("unused") }
func (stubAsMachine) GenSput(l *lir.List, op insndecode.Opcode, src int32, fieldIdx uint32)        { panic("unused") }
func (stubAsMachine) GenInvoke(l *lir.List, insn *insndecode.Instruction, argRegs []int32)         { panic("unused") }
func (stubAsMachine) GenNewArray(l *lir.List, dst, lengthReg int32, typeIdx uint32)                { panic("unused") }
func (stubAsMachine) GenCheckCast(l *lir.List, ref int32, typeIdx uint32)                          { panic("unused") }
func (stubAsMachine) GenInstanceOf(l *lir.List, dst, ref int32, typeIdx uint32)                    { panic("unused") }
func (stubAsMachine) GenMonitorEnter(l *lir.List, ref int32)                                       { panic("unused") }
func (stubAsMachine) GenMonitorExit(l *lir.List, ref int32)                                        { panic("unused") }
func (stubAsMachine) GenSuspendTest(l *lir.List)                                                   { panic("unused") }
func (stubAsMachine) GenCompareAndBranch(l *lir.List, op insndecode.Opcode, src1, src2 int32, target *lir.LIR) *lir.LIR {
	panic("unused")
}
func (stubAsMachine) GenGoto(l *lir.List, target *lir.LIR) *lir.LIR { panic("unused") }
func (stubAsMachine) GenReturn(l *lir.List, src int32, wide, object, isVoid bool)                  { panic("unused") }

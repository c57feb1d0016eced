package backend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/lir"
	"github.com/zyq8709/dexhunter/internal/mir"
	"github.com/zyq8709/dexhunter/internal/regalloc"
	"github.com/zyq8709/dexhunter/internal/ssaform"
)

// fakeMachine records every call it receives instead of emitting real code,
// enough to assert the generic dispatcher routed each MIR correctly.
type fakeMachine struct {
	calls []string
}

func (f *fakeMachine) RegisterPool() regalloc.Pool { return regalloc.Pool{Core: []int32{0, 1, 2, 3}} }
func (f *fakeMachine) LoadValue(l *lir.List, dst int32, ssa mir.SSAName) {
	f.calls = append(f.calls, "load")
}
func (f *fakeMachine) StoreValue(l *lir.List, ssa mir.SSAName, src int32) {
	f.calls = append(f.calls, "store")
}
func (f *fakeMachine) GenArithOp(l *lir.List, op insndecode.Opcode, dst, src1, src2 int32) {
	f.calls = append(f.calls, "arith")
}
func (f *fakeMachine) GenArrayGet(l *lir.List, op insndecode.Opcode, dst, base, index int32) {
	f.calls = append(f.calls, "aget")
}
func (f *fakeMachine) GenArrayPut(l *lir.List, op insndecode.Opcode, src, base, index int32) {
	f.calls = append(f.calls, "aput")
}
func (f *fakeMachine) GenIGet(l *lir.List, op insndecode.Opcode, dst, base int32, fieldIdx uint32) {
	f.calls = append(f.calls, "iget")
}
func (f *fakeMachine) GenIPut(l *lir.List, op insndecode.Opcode, src, base int32, fieldIdx uint32) {
	f.calls = append(f.calls, "iput")
}
func (f *fakeMachine) GenSget(l *lir.List, op insndecode.Opcode, dst int32, fieldIdx uint32) {
	f.calls = append(f.calls, "sget")
}
func (f *fakeMachine) GenSput(l *lir.List, op insndecode.Opcode, src int32, fieldIdx uint32) {
	f.calls = append(f.calls, "sput")
}
func (f *fakeMachine) GenInvoke(l *lir.List, insn *insndecode.Instruction, argRegs []int32) {
	f.calls = append(f.calls, "invoke")
}
func (f *fakeMachine) GenNewArray(l *lir.List, dst, lengthReg int32, typeIdx uint32) {
	f.calls = append(f.calls, "newarray")
}
func (f *fakeMachine) GenCheckCast(l *lir.List, ref int32, typeIdx uint32) {
	f.calls = append(f.calls, "checkcast")
}
func (f *fakeMachine) GenInstanceOf(l *lir.List, dst, ref int32, typeIdx uint32) {
	f.calls = append(f.calls, "instanceof")
}
func (f *fakeMachine) GenMonitorEnter(l *lir.List, ref int32)  { f.calls = append(f.calls, "monenter") }
func (f *fakeMachine) GenMonitorExit(l *lir.List, ref int32)   { f.calls = append(f.calls, "monexit") }
func (f *fakeMachine) GenSuspendTest(l *lir.List)              { f.calls = append(f.calls, "suspend") }
func (f *fakeMachine) GenCompareAndBranch(l *lir.List, op insndecode.Opcode, src1, src2 int32, target *lir.LIR) *lir.LIR {
	f.calls = append(f.calls, "branch")
	n := &lir.LIR{Opcode: lir.Opcode(op), Target: target}
	l.Append(n)
	return n
}
func (f *fakeMachine) GenGoto(l *lir.List, target *lir.LIR) *lir.LIR {
	f.calls = append(f.calls, "goto")
	n := &lir.LIR{Opcode: lir.Opcode(insndecode.OpGoto), Target: target}
	l.Append(n)
	return n
}
func (f *fakeMachine) GenReturn(l *lir.List, src int32, wide, object, isVoid bool) {
	f.calls = append(f.calls, "return")
}
func (f *fakeMachine) AssembleInstructions(list *lir.List, buf []byte) (int, bool) { return 0, true }
func (f *fakeMachine) Name() string                                               { return "fake" }

func buildGraph(t *testing.T, insns []uint16, registersSize, insSize uint16) (*mir.Graph, *ssaform.Result) {
	t.Helper()
	method := &mir.DecodedMethod{Insns: insns, RegistersSize: registersSize, InsSize: insSize}
	g, err := mir.Build(method)
	require.NoError(t, err)
	numV := g.Method.NumRegisters()
	ssaform.ComputeUseDef(g, numV)
	ssaform.ComputeLiveness(g, numV)
	_, postorder := ssaform.ComputeDFSOrders(g)
	rpo := ssaform.ReversePostorder(postorder)
	ssaform.ComputeDominators(g, rpo)
	phis := ssaform.InsertPhis(g, numV, rpo)
	preorder, _ := ssaform.ComputeDFSOrders(g)
	res := ssaform.Rename(g, numV, preorder, phis)
	return g, res
}

func TestLowerEmitsArithAndReturn(t *testing.T) {
	// const/4 v0, #1 ; add-int v0, v0, v0 ; return v0
	insns := []uint16{
		uint16(insndecode.OpConst4) | 0<<8 | 1<<12,
		uint16(insndecode.OpAddInt) | 0<<8, 0<<8 | 0,
		uint16(insndecode.OpReturn) | 0<<8,
	}
	g, res := buildGraph(t, insns, 4, 1)

	m := &fakeMachine{}
	list := Lower(g, m, regalloc.Assignment{}, nil, res.VRegOfSSAName)
	require.NotNil(t, list)

	require.Contains(t, m.calls, "return")
}

func TestLowerMarksSafepointAfterMonitorEnter(t *testing.T) {
	// monitor-enter v0 ; return-void
	insns := []uint16{
		uint16(insndecode.OpMonitorEnter) | 0<<8,
		uint16(insndecode.OpReturnVoid),
	}
	g, res := buildGraph(t, insns, 4, 0)

	m := &fakeMachine{}
	list := Lower(g, m, regalloc.Assignment{}, nil, res.VRegOfSSAName)

	var sawSafepoint bool
	list.ForEach(func(l *lir.LIR) {
		if l.Opcode == lir.PseudoSafepointPC {
			sawSafepoint = true
			require.Equal(t, lir.EncodeAll, l.DefMask)
		}
	})
	require.True(t, sawSafepoint)
}

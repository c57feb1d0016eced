package lopt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyq8709/dexhunter/internal/lir"
)

func reload(vreg int32) *lir.LIR {
	return &lir.LIR{UseMask: lir.EncodeDalvikReg, DefMask: 1, Alias: lir.AliasInfo{VReg: vreg}}
}

func TestEliminateRedundantLoadsStoresDropsSecondReload(t *testing.T) {
	var l lir.List
	a := reload(3)
	b := reload(3)
	l.Append(a)
	l.Append(b)

	EliminateRedundantLoadsStores(&l)

	require.False(t, a.Flags.IsNop)
	require.True(t, b.Flags.IsNop)
}

func TestEliminateRedundantLoadsStoresKeepsDifferentSlots(t *testing.T) {
	var l lir.List
	a := reload(3)
	b := reload(4)
	l.Append(a)
	l.Append(b)

	EliminateRedundantLoadsStores(&l)

	require.False(t, a.Flags.IsNop)
	require.False(t, b.Flags.IsNop)
}

func TestEliminateRedundantLoadsStoresResetsAcrossSafepoint(t *testing.T) {
	var l lir.List
	a := reload(3)
	safepoint := &lir.LIR{Opcode: lir.PseudoSafepointPC, DefMask: lir.EncodeAll}
	b := reload(3)
	l.Append(a)
	l.Append(safepoint)
	l.Append(b)

	EliminateRedundantLoadsStores(&l)

	require.False(t, b.Flags.IsNop)
}

func TestRemoveRedundantBranchesNopsBranchToNext(t *testing.T) {
	var l lir.List
	target := &lir.LIR{Opcode: 1}
	branch := &lir.LIR{Opcode: 2, Target: target}
	l.Append(branch)
	l.Append(target)

	RemoveRedundantBranches(&l, func(n *lir.LIR) bool { return n.Opcode == 2 })

	require.True(t, branch.Flags.IsNop)
}

func TestRemoveRedundantBranchesKeepsBranchToFarTarget(t *testing.T) {
	var l lir.List
	branch := &lir.LIR{Opcode: 2}
	mid := &lir.LIR{Opcode: 1}
	target := &lir.LIR{Opcode: 1}
	branch.Target = target
	l.Append(branch)
	l.Append(mid)
	l.Append(target)

	RemoveRedundantBranches(&l, func(n *lir.LIR) bool { return n.Opcode == 2 })

	require.False(t, branch.Flags.IsNop)
}

package lir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListAppendAndRemove(t *testing.T) {
	var l List
	a := &LIR{Opcode: 1}
	b := &LIR{Opcode: 2}
	l.Append(a)
	l.Append(b)
	require.Equal(t, a, l.First)
	require.Equal(t, b, l.Last)

	l.Remove(a)
	require.Equal(t, b, l.First)
	require.Nil(t, a.Next)
}

func TestNextNonPseudoSkipsPseudosAndNops(t *testing.T) {
	var l List
	a := &LIR{Opcode: 1}
	label := &LIR{Opcode: PseudoTargetLabel}
	nop := &LIR{Opcode: 1, Flags: Flags{IsNop: true}}
	b := &LIR{Opcode: 1}
	l.Append(a)
	l.Append(label)
	l.Append(nop)
	l.Append(b)

	require.Equal(t, b, NextNonPseudo(a))
}

func TestIsPseudo(t *testing.T) {
	require.True(t, PseudoSafepointPC.IsPseudo())
	require.False(t, Opcode(3).IsPseudo())
}

package dedupe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddReturnsSameCanonicalInstanceForEqualValues(t *testing.T) {
	s := New(nil)
	a := s.Add([]byte("hello world"))
	b := s.Add([]byte("hello world"))
	require.Equal(t, a, b)
	require.Equal(t, 1, s.Len())
}

func TestAddDistinguishesDistinctValues(t *testing.T) {
	s := New(nil)
	s.Add([]byte("alpha"))
	s.Add([]byte("beta"))
	require.Equal(t, 2, s.Len())
}

func TestAddHandlesLargeValuesPastSampleThreshold(t *testing.T) {
	s := New(nil)
	big := make([]byte, 1024)
	for i := range big {
		big[i] = byte(i)
	}
	first := s.Add(big)
	second := s.Add(append([]byte(nil), big...))
	require.Equal(t, first, second)
	require.Equal(t, 1, s.Len())
}

func TestHashSmallVsLargeInputsBothDeterministic(t *testing.T) {
	small := []byte("ab")
	require.Equal(t, Hash(small), Hash([]byte("ab")))

	large := make([]byte, 64)
	require.Equal(t, Hash(large), Hash(append([]byte(nil), large...)))
}

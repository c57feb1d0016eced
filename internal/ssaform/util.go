package ssaform

import "github.com/zyq8709/dexhunter/internal/bitvec"

func newSizedBV(nBits int) *bitvec.BitVector {
	return bitvec.NewSized(nBits, true)
}

// Package dedupe implements the thread-safe content-addressed interning
// store of spec.md §4.11, grounded on ART's compiler/utils/dedupe_set.h: a
// mutex-guarded map from content hash to the first-seen canonical instance.
package dedupe

import (
	"bytes"

	"github.com/zyq8709/dexhunter/internal/compilelog"
	"github.com/zyq8709/dexhunter/internal/syncutil"
)

// sampleThreshold is the size at or above which Hash samples instead of reading
// every byte, per spec.md §4.11.
const sampleThreshold = 16

const sampleCount = 16

// Hash computes the sampling hash described in spec.md §4.11: for inputs of
// at least 16 bytes, read 16 pseudo-random positions via the LCG step
// r = r*1103515245+12345 to bound the cost on large arrays; smaller inputs
// fold every byte.
func Hash(data []byte) uint64 {
	var h uint64 = 0x811c9dc5 // arbitrary odd seed, folded via multiply-add below
	if len(data) < sampleThreshold {
		for _, b := range data {
			h = h*1103515245 + 12345 + uint64(b)
		}
		return h
	}
	h = h*1103515245 + 12345 + uint64(len(data))
	r := uint32(len(data))
	for i := 0; i < sampleCount; i++ {
		r = r*1103515245 + 12345
		pos := int(r) % len(data)
		if pos < 0 {
			pos += len(data)
		}
		h = h*1103515245 + 12345 + uint64(data[pos])
	}
	return h
}

type entry struct {
	hash  uint64
	value []byte
}

// Set is a content-addressed interning set of byte vectors. The zero value
// is not usable; construct via New.
type Set struct {
	mu      *syncutil.Mutex
	buckets map[uint64][]*entry
	log     *compilelog.Logger
}

// New returns an empty Set.
func New(log *compilelog.Logger) *Set {
	return &Set{
		mu:      syncutil.NewMutex("dedupe-set"),
		buckets: make(map[uint64][]*entry),
		log:     log,
	}
}

// Add returns the canonical stored instance equal to value, inserting value
// as the canonical instance on first sight. Concurrent callers with equal
// values always observe the same returned slice (same backing array),
// matching spec.md's dedupe-idempotence property.
func (s *Set) Add(value []byte) []byte {
	h := Hash(value)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.buckets[h] {
		if bytes.Equal(e.value, value) {
			s.log.Tracef("dedupe: hit for %d-byte value (hash %x)", len(value), h)
			return e.value
		}
	}
	owned := append([]byte(nil), value...)
	s.buckets[h] = append(s.buckets[h], &entry{hash: h, value: owned})
	s.log.Tracef("dedupe: first insertion of %d-byte value (hash %x)", len(value), h)
	return owned
}

// Len returns the number of distinct canonical values currently interned.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, bucket := range s.buckets {
		n += len(bucket)
	}
	return n
}

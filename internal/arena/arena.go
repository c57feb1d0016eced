// Package arena implements the bump-pointer region allocator (spec.md §3,
// §4.1) backing every transient structure produced while compiling a single
// method. Grounded on the ART arena_allocator.{h,cc} design: a chain of
// fixed-size zeroed regions, pooled and reused across methods, never
// individually freed.
package arena

import (
	"sync/atomic"

	"github.com/zyq8709/dexhunter/internal/compilelog"
	"github.com/zyq8709/dexhunter/internal/syncutil"
)

// DefaultSize is the default arena region size: 128 KiB, per spec.md §3.
const DefaultSize = 128 * 1024

// alignment all allocations are rounded up to.
const alignment = 4

// Kind classifies an allocation for the per-kind diagnostic counters
// (spec.md §4.1 "per-kind byte counters accumulate for diagnostics"),
// mirroring ART's ArenaAllocKind enum.
type Kind int

const (
	KindMisc Kind = iota
	KindBasicBlock
	KindLIR
	KindMIR
	KindDataFlow
	KindGrowableArray
	KindGrowableBitMap
	KindDalvikToSSAMap
	KindDebugInfo
	KindSuccessor
	KindRegAlloc
	KindData
	KindPredecessors
	numKinds
)

var kindNames = [numKinds]string{
	"misc", "basic-block", "lir", "mir", "dataflow", "growable-array",
	"growable-bitmap", "dalvik-to-ssa", "debug-info", "successor",
	"regalloc", "data", "predecessors",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= int(numKinds) {
		return "unknown"
	}
	return kindNames[k]
}

// Arena is one contiguous, zero-initialized memory region.
type Arena struct {
	memory         []byte
	bytesAllocated int
	next           *Arena
}

func newArena(size int) *Arena {
	return &Arena{memory: make([]byte, size)}
}

// Size returns the arena's total capacity in bytes.
func (a *Arena) Size() int { return len(a.memory) }

// reset zeroes the used prefix and resets the high-water mark, so a reused
// arena behaves exactly like a freshly allocated one (spec.md testable
// property "arena zeroing").
func (a *Arena) reset() {
	if a.bytesAllocated > 0 {
		clearBytes(a.memory[:a.bytesAllocated])
		a.bytesAllocated = 0
	}
	a.next = nil
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Pool keeps a free list of arenas guarded by a single mutex (spec.md §5
// "ArenaPool: one mutex protecting a singly-linked free list").
type Pool struct {
	mu        *syncutil.Mutex
	freeList  *Arena
	log       *compilelog.Logger
	acquired  int64
	released  int64
}

// NewPool returns an empty Pool.
func NewPool(log *compilelog.Logger) *Pool {
	return &Pool{mu: syncutil.NewMutex("arena-pool"), log: log}
}

// Acquire returns an arena with capacity >= minSize, reusing one from the
// free list only if it is already big enough, otherwise allocating fresh.
// The returned arena is always reset (zeroed, zero bytes-allocated).
func (p *Pool) Acquire(minSize int) *Arena {
	if minSize < DefaultSize {
		minSize = DefaultSize
	}
	var found *Arena
	p.mu.Lock()
	if p.freeList != nil && p.freeList.Size() >= minSize {
		found = p.freeList
		p.freeList = p.freeList.next
	}
	p.mu.Unlock()

	if found == nil {
		found = newArena(minSize)
		p.log.Debugf("arena pool: grew by %d bytes (requested %d)", found.Size(), minSize)
	}
	found.reset()
	atomic.AddInt64(&p.acquired, 1)
	return found
}

// Release pushes arena back onto the free list after zeroing its
// bytes-allocated accounting (spec.md §4.1 "push to free list after zeroing
// bytes_allocated").
func (p *Pool) Release(a *Arena) {
	a.reset()
	p.mu.Lock()
	a.next = p.freeList
	p.freeList = a
	p.mu.Unlock()
	atomic.AddInt64(&p.released, 1)
}

// ReleaseChain releases a whole chain of arenas (head.next.next...),
// matching ArenaAllocator's "on drop, return every chained arena to the
// pool" behavior.
func (p *Pool) ReleaseChain(head *Arena) {
	for head != nil {
		next := head.next
		p.Release(head)
		head = next
	}
}

// Allocator is a bump-pointer allocator drawing arenas from a Pool. It is
// confined to a single goroutine for the lifetime of one CompilationUnit
// (spec.md §5 "per-method state ... is confined to one thread and requires
// no synchronization"); it is not itself safe for concurrent use.
type Allocator struct {
	pool       *Pool
	head, cur  *Arena
	ptr, end   int // offsets into cur.memory
	statsBytes [numKinds]int
}

// NewAllocator creates an Allocator drawing its first arena from pool.
func NewAllocator(pool *Pool) *Allocator {
	a := &Allocator{pool: pool}
	first := pool.Acquire(DefaultSize)
	a.head = first
	a.cur = first
	a.ptr = 0
	a.end = first.Size()
	return a
}

// Alloc returns n bytes of zeroed, 4-byte-aligned memory. It never fails: on
// overflow of the current region it chains a new arena sized to
// max(DefaultSize, n), per spec.md §4.1. The returned slice aliases arena
// memory and must not outlive the Allocator's Reset/Release.
func (a *Allocator) Alloc(n int, kind Kind) []byte {
	aligned := (n + alignment - 1) &^ (alignment - 1)
	if a.ptr+aligned > a.end {
		a.growFor(aligned)
	}
	buf := a.cur.memory[a.ptr : a.ptr+aligned]
	a.ptr += aligned
	a.cur.bytesAllocated = a.ptr
	if int(kind) < int(numKinds) {
		a.statsBytes[kind] += aligned
	}
	return buf[:n:n]
}

func (a *Allocator) growFor(aligned int) {
	size := DefaultSize
	if aligned > size {
		size = aligned
	}
	next := a.pool.Acquire(size)
	next.next = a.head
	a.head = next
	a.cur = next
	a.ptr = 0
	a.end = next.Size()
}

// BytesAllocated returns the total bytes handed out across every allocation
// kind, for diagnostics (spec.md §4.7 ShowMemoryUsage debug flag).
func (a *Allocator) BytesAllocated() int {
	total := 0
	for _, v := range a.statsBytes {
		total += v
	}
	return total
}

// BytesAllocatedByKind breaks the total down per Kind.
func (a *Allocator) BytesAllocatedByKind(k Kind) int {
	if int(k) < 0 || int(k) >= int(numKinds) {
		return 0
	}
	return a.statsBytes[k]
}

// Release returns every arena in this allocator's chain to its pool. After
// Release the Allocator must not be used again.
func (a *Allocator) Release() {
	a.pool.ReleaseChain(a.head)
	a.head, a.cur = nil, nil
	a.ptr, a.end = 0, 0
}

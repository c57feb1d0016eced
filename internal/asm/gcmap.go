package asm

// GCMap is the native GC map of spec.md §4.10 step 4: for every safepoint
// native-PC, the set of Dalvik registers that currently hold a live
// reference, so the garbage collector can scan the stack frame of a thread
// suspended at that PC. Stored as an open-addressed hash table keyed by
// native PC, matching ART's GcMapBuilder in shape (a sparse table rather
// than one entry per instruction, since most instructions are not
// safepoints).
type GCMap struct {
	buckets []gcMapEntry
	count   int
}

type gcMapEntry struct {
	pc       int32
	occupied bool
	refRegs  []uint16 // sorted Dalvik register numbers holding a live reference
}

// NewGCMap returns an empty map sized for an expected number of safepoints.
func NewGCMap(expected int) *GCMap {
	size := 8
	for size < expected*2 {
		size *= 2
	}
	return &GCMap{buckets: make([]gcMapEntry, size)}
}

func (g *GCMap) hash(pc int32) int { return int(uint32(pc)*2654435761) & (len(g.buckets) - 1) }

// Put records the live-reference register set at a safepoint PC, growing and
// rehashing first if the table is half full or more.
func (g *GCMap) Put(pc int32, refRegs []uint16) {
	if g.count*2 >= len(g.buckets) {
		g.grow()
	}
	g.insert(pc, refRegs)
}

func (g *GCMap) insert(pc int32, refRegs []uint16) {
	idx := g.hash(pc)
	for {
		e := &g.buckets[idx]
		if !e.occupied {
			*e = gcMapEntry{pc: pc, occupied: true, refRegs: refRegs}
			g.count++
			return
		}
		if e.pc == pc {
			e.refRegs = refRegs
			return
		}
		idx = (idx + 1) & (len(g.buckets) - 1)
	}
}

func (g *GCMap) grow() {
	old := g.buckets
	g.buckets = make([]gcMapEntry, len(old)*2)
	g.count = 0
	for _, e := range old {
		if e.occupied {
			g.insert(e.pc, e.refRegs)
		}
	}
}

// Lookup returns the live-reference register set recorded at pc, if any.
func (g *GCMap) Lookup(pc int32) ([]uint16, bool) {
	if len(g.buckets) == 0 {
		return nil, false
	}
	idx := g.hash(pc)
	for probed := 0; probed < len(g.buckets); probed++ {
		e := &g.buckets[idx]
		if !e.occupied {
			return nil, false
		}
		if e.pc == pc {
			return e.refRegs, true
		}
		idx = (idx + 1) & (len(g.buckets) - 1)
	}
	return nil, false
}

// Len returns the number of recorded safepoints.
func (g *GCMap) Len() int { return g.count }

// Package regalloc implements the simple linear-scan register promotion of
// spec.md §4.8 step 2: per-SSA use-counts weighted by loop nesting depth,
// sorted, with preserved physical registers assigned to the hottest
// candidates subject to fp/core/ref typing. Grounded on ART's
// mir_to_lir.cc "SimpleRegAlloc" / PromoteRegs pass, restructured along the
// teacher's (tetratelabs/wazero) backend/regalloc package's candidate-list +
// greedy-assignment shape (its allocator instead does full linear-scan
// live-range coloring; this CORE only promotes hot SSA names to fixed
// callee-saved slots, never spills, so the simpler greedy form fits).
package regalloc

import (
	"sort"

	"github.com/zyq8709/dexhunter/internal/mir"
	"github.com/zyq8709/dexhunter/internal/typeinfer"
)

// RegClass is the physical register bank a promoted SSA name is assigned
// from.
type RegClass int

const (
	ClassCore RegClass = iota
	ClassRef
	ClassFP
)

// Candidate is one SSA name's promotion weight.
type Candidate struct {
	SSA    mir.SSAName
	Weight int
	Class  RegClass
}

// Pool is the set of preserved physical registers available per class on
// the current target (spec.md §4.8 step 1 "build core and FP register pools
// from target-specified lists").
type Pool struct {
	Core []int32
	Ref  []int32
	FP   []int32
}

// Assignment maps a promoted SSA name to a physical register number within
// its class's numbering; an SSA name absent from the map was not promoted
// and must be homed to its Dalvik-register stack slot instead.
type Assignment map[mir.SSAName]int32

const maxNestingWeight = 16

// BuildCandidates computes spec.md §4.8 step 2's per-SSA use-count weighted
// by min(16, nesting_depth), deriving each SSA name's register class from
// typeinfer's inferred properties.
func BuildCandidates(g *mir.Graph, types []typeinfer.Type) []Candidate {
	weight := make([]int, len(types))
	g.ForEachBlock(func(b *mir.BasicBlock) {
		nest := b.NestingDepth
		if nest > maxNestingWeight {
			nest = maxNestingWeight
		}
		if nest < 1 {
			nest = 1
		}
		b.ForEachMIR(func(m *mir.MIR) {
			if m.SSA == nil {
				return
			}
			for _, u := range m.SSA.Uses {
				if int(u) < len(weight) {
					weight[u] += nest
				}
			}
		})
	})

	var candidates []Candidate
	for ssa, w := range weight {
		if w == 0 {
			continue
		}
		t := types[ssa]
		if !t.Defined {
			continue
		}
		class := ClassCore
		switch {
		case t.Ref:
			class = ClassRef
		case t.FP:
			class = ClassFP
		}
		candidates = append(candidates, Candidate{SSA: mir.SSAName(ssa), Weight: w, Class: class})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Weight > candidates[j].Weight })
	return candidates
}

// Promote assigns physical registers to the hottest candidates in each
// class, up to the pool's size for that class (spec.md §4.8 step 2 "assign
// preserved physical registers to the hottest candidates subject to
// fp/core/ref typing").
func Promote(candidates []Candidate, pool Pool) Assignment {
	a := make(Assignment)
	next := map[RegClass]int{ClassCore: 0, ClassRef: 0, ClassFP: 0}
	regsFor := func(c RegClass) []int32 {
		switch c {
		case ClassRef:
			return pool.Ref
		case ClassFP:
			return pool.FP
		default:
			return pool.Core
		}
	}
	for _, c := range candidates {
		regs := regsFor(c.Class)
		i := next[c.Class]
		if i >= len(regs) {
			continue
		}
		a[c.SSA] = regs[i]
		next[c.Class] = i + 1
	}
	return a
}

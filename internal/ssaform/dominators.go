package ssaform

import "github.com/zyq8709/dexhunter/internal/mir"

// ComputeDominators fills IDom, Dominators, IDominated, and DomFrontier for
// every reachable block, per spec.md §4.3 step 3. Grounded on the Cooper–
// Harvey–Kennedy iterative algorithm as implemented by the teacher's
// wazevo/ssa/pass_cfg.go (calculateDominators/intersect), adapted to
// populate ART-style explicit dominator-set BitVectors rather than stopping
// at just the immediate-dominator array, since spec.md §3 requires the full
// `dominators`/`i_dominated`/`dom_frontier` BitVectors per block.
func ComputeDominators(g *mir.Graph, reversePostorder []mir.BasicBlockID) {
	n := g.NumBlocks()
	rpoIndex := make([]int, n)
	for i, id := range reversePostorder {
		rpoIndex[id] = i
	}

	idom := make([]mir.BasicBlockID, n)
	for i := range idom {
		idom[i] = mir.InvalidBlockID
	}
	idom[g.EntryID] = g.EntryID

	changed := true
	for changed {
		changed = false
		for _, id := range reversePostorder {
			if id == g.EntryID {
				continue
			}
			b := g.Block(id)
			var newIdom mir.BasicBlockID = mir.InvalidBlockID
			for _, pred := range b.Predecessors {
				if idom[pred] == mir.InvalidBlockID {
					continue
				}
				if newIdom == mir.InvalidBlockID {
					newIdom = pred
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, pred)
			}
			if newIdom != idom[id] {
				idom[id] = newIdom
				changed = true
			}
		}
	}

	for _, id := range reversePostorder {
		g.Block(id).IDom = idom[id]
	}

	buildDominatorSets(g, reversePostorder, idom)
	buildDominanceFrontiers(g, reversePostorder, idom)
}

func intersect(idom []mir.BasicBlockID, rpoIndex []int, a, b mir.BasicBlockID) mir.BasicBlockID {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

func buildDominatorSets(g *mir.Graph, reversePostorder []mir.BasicBlockID, idom []mir.BasicBlockID) {
	n := g.NumBlocks()
	for _, id := range reversePostorder {
		g.Block(id).Dominators = newSizedBV(n)
		g.Block(id).IDominated = newSizedBV(n)
	}
	for _, id := range reversePostorder {
		b := g.Block(id)
		b.Dominators.Set(int(id))
		walk := id
		for walk != g.EntryID {
			walk = idom[walk]
			b.Dominators.Set(int(walk))
		}
	}
	for _, id := range reversePostorder {
		if id == g.EntryID {
			continue
		}
		g.Block(idom[id]).IDominated.Set(int(id))
	}
}

// buildDominanceFrontiers computes DF(b) for every block: the set of blocks
// where b does not strictly dominate but a predecessor of them does, using
// the standard Cytron-et-al algorithm driven off the already-computed idom
// array (spec.md §4.3 step 3, Glossary "Dominance frontier").
func buildDominanceFrontiers(g *mir.Graph, reversePostorder []mir.BasicBlockID, idom []mir.BasicBlockID) {
	n := g.NumBlocks()
	for _, id := range reversePostorder {
		g.Block(id).DomFrontier = newSizedBV(n)
	}
	for _, id := range reversePostorder {
		b := g.Block(id)
		if len(b.Predecessors) < 2 {
			continue
		}
		for _, pred := range b.Predecessors {
			if idom[pred] == mir.InvalidBlockID && pred != g.EntryID {
				continue
			}
			runner := pred
			for runner != idom[id] && runner != mir.InvalidBlockID {
				g.Block(runner).DomFrontier.Set(int(id))
				if runner == g.EntryID && idom[id] != g.EntryID {
					// Entry has no idom to climb past; stop once we've
					// recorded it.
				}
				if runner == idom[runner] {
					break
				}
				runner = idom[runner]
			}
		}
	}
}

// IsDominatedBy reports whether g.Block(candidate) is dominated by
// g.Block(dominator).
func IsDominatedBy(g *mir.Graph, candidate, dominator mir.BasicBlockID) bool {
	return g.Block(candidate).Dominators.Test(int(dominator))
}

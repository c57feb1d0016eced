package optimizer

import "github.com/zyq8709/dexhunter/internal/mir"

// Result bundles every MIR optimizer pass's output for a method (spec.md
// §4.4's fixed pass order run as one unit by the compilation-unit driver).
type Result struct {
	Constants []ConstantInfo
}

// Run executes the full spec.md §4.4 fixed pass order: code layout,
// constant propagation, null/range-check elimination, block combine,
// diamond-select rewriting, then a single LVN pass per extended basic block
// (with compare-branch fusion folded into that walk).
func Run(g *mir.Graph, preorder []mir.BasicBlockID, numSSANames int, isStatic bool) *Result {
	SinkThrows(g)
	consts := PropagateConstants(g, numSSANames)
	EliminateNullAndRangeChecks(g, preorder, numSSANames, isStatic)
	CombineBlocks(g)
	RewriteDiamondSelects(g)

	for _, chain := range ExtendedBasicBlocks(g, preorder) {
		RunExtendedBB(g, chain, numSSANames)
	}

	return &Result{Constants: consts}
}

// ExtendedBasicBlocks groups preorder into runs connected by single-
// predecessor fall-through edges (spec.md §4.4 step 5 "extended BBs built by
// chaining single-predecessor fall-throughs").
func ExtendedBasicBlocks(g *mir.Graph, preorder []mir.BasicBlockID) [][]mir.BasicBlockID {
	seen := make(map[mir.BasicBlockID]bool)
	var chains [][]mir.BasicBlockID
	for _, id := range preorder {
		if seen[id] {
			continue
		}
		var chain []mir.BasicBlockID
		cur := id
		for {
			chain = append(chain, cur)
			seen[cur] = true
			b := g.Block(cur)
			next := b.FallThrough
			if next == mir.InvalidBlockID || seen[next] {
				break
			}
			nb := g.Block(next)
			if len(nb.Predecessors) != 1 || nb.Predecessors[0] != cur {
				break
			}
			cur = next
		}
		chains = append(chains, chain)
	}
	return chains
}

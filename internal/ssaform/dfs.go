// Package ssaform implements the SSA transformation of spec.md §4.3:
// DFS orders, dominators (Cooper-Harvey-Kennedy, grounded on the teacher's
// wazevo/ssa/pass_cfg.go implementation of the same algorithm), dominance
// frontiers, phi insertion, and renaming, grounded on ART's
// ssa_transformation.cc for the classic-phi variant spec.md calls for
// (the teacher uses block arguments instead of phi nodes; this package
// reproduces ART's phi-based approach since that is what spec.md §3/§4.3
// specifies).
package ssaform

import "github.com/zyq8709/dexhunter/internal/mir"

// ComputeDFSOrders performs an iterative forward DFS from Entry along every
// successor kind, producing preorder and postorder block-id lists, per
// spec.md §4.3 step 1.
func ComputeDFSOrders(g *mir.Graph) (preorder, postorder []mir.BasicBlockID) {
	n := g.NumBlocks()
	visited := make([]bool, n)

	type frame struct {
		id       mir.BasicBlockID
		childIdx int
		children []mir.BasicBlockID
	}
	var stack []frame

	push := func(id mir.BasicBlockID) {
		var children []mir.BasicBlockID
		g.Block(id).Successors(func(s mir.BasicBlockID) { children = append(children, s) })
		stack = append(stack, frame{id: id, children: children})
		visited[id] = true
		preorder = append(preorder, id)
	}

	push(g.EntryID)
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		advanced := false
		for top.childIdx < len(top.children) {
			c := top.children[top.childIdx]
			top.childIdx++
			if !visited[c] {
				push(c)
				advanced = true
				break
			}
		}
		if advanced {
			continue
		}
		postorder = append(postorder, top.id)
		stack = stack[:len(stack)-1]
	}
	return preorder, postorder
}

// ReversePostorder returns the reverse of postorder.
func ReversePostorder(postorder []mir.BasicBlockID) []mir.BasicBlockID {
	rp := make([]mir.BasicBlockID, len(postorder))
	for i, id := range postorder {
		rp[len(postorder)-1-i] = id
	}
	return rp
}

package ssaform

import "github.com/zyq8709/dexhunter/internal/mir"

// Result is the completed SSA transform's output: the per-vreg phi list
// (grouped by block) and the total SSA name count.
type Result struct {
	NumSSANames   int
	VRegOfSSAName []int32
	PhisByBlock   map[mir.BasicBlockID][]*Phi
}

// Rename performs spec.md §4.3 steps 6–7: a recursive depth-first walk from Entry
// maintaining a per-block vreg→SSA-name map, rewriting every MIR's uses to
// current SSA names and allocating fresh SSA names for every def (including
// phi defs), then filling phi operands from each predecessor's snapshot.
func Rename(g *mir.Graph, numVRegs int, preorder []mir.BasicBlockID, phis []*Phi) *Result {
	res := &Result{PhisByBlock: make(map[mir.BasicBlockID][]*Phi)}
	for _, p := range phis {
		res.PhisByBlock[p.Block] = append(res.PhisByBlock[p.Block], p)
	}

	nextSSA := mir.SSAName(0)
	alloc := func(vreg int32) mir.SSAName {
		n := nextSSA
		nextSSA++
		res.VRegOfSSAName = append(res.VRegOfSSAName, vreg)
		return n
	}

	// exitMap[block] is the vreg->SSA map as it looked at the *end* of
	// that block, used to fill phi operands afterward (spec.md §4.3 step 7).
	exitMap := make(map[mir.BasicBlockID][]mir.SSAName)

	currentMap := make([]mir.SSAName, numVRegs)
	for i := range currentMap {
		currentMap[i] = mir.SSANameInvalid
	}

	// Entry: allocate one SSA name per incoming parameter vreg immediately,
	// matching "incoming parameters count as defined in Entry".
	for v := g.Method.FirstInVReg(); v < numVRegs; v++ {
		currentMap[v] = alloc(int32(v))
	}

	visited := make(map[mir.BasicBlockID]bool)

	var walk func(id mir.BasicBlockID, incoming []mir.SSAName)
	walk = func(id mir.BasicBlockID, incoming []mir.SSAName) {
		if visited[id] {
			return
		}
		visited[id] = true

		saved := append([]mir.SSAName(nil), incoming...)
		local := append([]mir.SSAName(nil), incoming...)

		for _, p := range res.PhisByBlock[id] {
			p.Def = alloc(p.VReg)
			local[p.VReg] = p.Def
		}

		b := g.Block(id)
		b.ForEachMIR(func(m *mir.MIR) {
			uses, defs := rawUsesDefs(m)
			rep := &mir.SSARepresentation{}
			for _, v := range uses {
				rep.Uses = append(rep.Uses, local[v])
			}
			rep.NumUses = len(rep.Uses)
			for _, v := range defs {
				nm := alloc(int32(v))
				local[v] = nm
				rep.Defs = append(rep.Defs, nm)
			}
			rep.NumDefs = len(rep.Defs)
			m.SSA = rep
		})

		exitMap[id] = append([]mir.SSAName(nil), local...)

		var children []mir.BasicBlockID
		b.Successors(func(s mir.BasicBlockID) { children = append(children, s) })
		for _, c := range children {
			walk(c, local)
		}
		_ = saved
	}

	entryExit := append([]mir.SSAName(nil), currentMap...)
	walk(g.EntryID, entryExit)

	// Phi operand fill (step 7): incoming[i] = predecessor_i.end_map[vreg].
	for _, p := range phis {
		b := g.Block(p.Block)
		p.Incoming = make([]mir.SSAName, len(b.Predecessors))
		for i, pred := range b.Predecessors {
			if em, ok := exitMap[pred]; ok {
				p.Incoming[i] = em[p.VReg]
			} else {
				p.Incoming[i] = mir.SSANameInvalid
			}
		}
	}

	res.NumSSANames = int(nextSSA)
	g.NumSSANames = res.NumSSANames
	g.VRegToSSABase = res.VRegOfSSAName
	return res
}

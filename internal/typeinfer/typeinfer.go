// Package typeinfer implements the type and width inference pass of
// spec.md §4.6: an iterative fixpoint over the SSA graph assigning each SSA
// name a {fp, core, ref, defined, wide, high_word} property set. Grounded on
// ART's vreg_analysis.cc, which performs the same fixpoint over MIR uses/defs
// before register allocation can decide core-vs-FP-vs-ref physical classes.
package typeinfer

import (
	"github.com/zyq8709/dexhunter/internal/insndecode"
	"github.com/zyq8709/dexhunter/internal/mir"
	"github.com/zyq8709/dexhunter/internal/ssaform"
)

// Type is the inferred property set of one SSA name (spec.md §4.6).
type Type struct {
	FP       bool
	Core     bool
	Ref      bool
	Defined  bool
	Wide     bool
	HighWord bool
}

func (t *Type) union(o Type) bool {
	changed := false
	if o.FP && !t.FP {
		t.FP, changed = true, true
	}
	if o.Core && !t.Core {
		t.Core, changed = true, true
	}
	if o.Ref && !t.Ref {
		t.Ref, changed = true, true
	}
	if o.Wide && !t.Wide {
		t.Wide, changed = true, true
	}
	if o.Defined && !t.Defined {
		t.Defined, changed = true, true
	}
	return changed
}

// Result is the per-SSA-name type table plus whether register promotion is
// disabled for this method (an SSA name was proven both fp and core/ref,
// which the original treats as a conflict that forbids core<->fp reuse).
type Result struct {
	Types             []Type
	PromotionDisabled bool
}

// Infer runs spec.md §4.6's fixpoint: opcode attribute flags seed defs/uses;
// moves and phis union fp/core/ref/wide across operands and def; returns
// constrain their value from the method's own shorty. Invoke arguments are
// not constrained beyond the opcode-attribute seed. The lattice has height 2 (unset -> set, with a
// single irreconcilable "both fp and core/ref" state), so this terminates in
// at most numSSANames passes, typically far fewer.
func Infer(g *mir.Graph, numSSANames int, preorder []mir.BasicBlockID, phis []*ssaform.Phi, methodShorty string) *Result {
	res := &Result{Types: make([]Type, numSSANames)}

	seedFromOpcodes(g, res.Types)

	phisByBlock := make(map[mir.BasicBlockID][]*ssaform.Phi)
	for _, p := range phis {
		phisByBlock[p.Block] = append(phisByBlock[p.Block], p)
	}

	changed := true
	for changed {
		changed = false
		for _, id := range preorder {
			b := g.Block(id)
			for _, p := range phisByBlock[id] {
				t := &res.Types[p.Def]
				for _, in := range p.Incoming {
					if in == mir.SSANameInvalid {
						continue
					}
					if t.union(res.Types[in]) {
						changed = true
					}
				}
			}
			b.ForEachMIR(func(m *mir.MIR) {
				if m.SSA == nil {
					return
				}
				if unionMoveLike(m, res.Types) {
					changed = true
				}
				if constrainInvoke(m, res.Types, methodShorty) {
					changed = true
				}
			})
		}
	}

	for i := range res.Types {
		t := res.Types[i]
		if t.FP && (t.Core || t.Ref) {
			res.PromotionDisabled = true
		}
	}
	return res
}

func unionMoveLike(m *mir.MIR, types []Type) bool {
	if !mir.Of(m.Insn.Opcode).Has(mir.DFIsMove) {
		return false
	}
	if m.SSA.NumUses == 0 || m.SSA.NumDefs == 0 {
		return false
	}
	return types[m.SSA.Defs[0]].union(types[m.SSA.Uses[0]])
}

// constrainInvoke constrains a return instruction's value from the return
// character of the method's own shorty. It does not refine invoke argument
// uses: the CORE does not resolve callee methods (out of scope, spec.md §1),
// so those keep whatever the opcode-attribute seed already assigned.
func constrainInvoke(m *mir.MIR, types []Type, methodShorty string) bool {
	if !m.Insn.Opcode.IsReturn() || methodShorty == "" {
		return false
	}
	if m.SSA == nil || m.SSA.NumUses == 0 {
		return false
	}
	ret := Type{Defined: true}
	switch methodShorty[0] {
	case 'F', 'D':
		ret.FP = true
		ret.Wide = methodShorty[0] == 'D'
	case 'L':
		ret.Ref = true
	case 'J':
		ret.Core = true
		ret.Wide = true
	default:
		ret.Core = true
	}
	return types[m.SSA.Uses[0]].union(ret)
}

func seedFromOpcodes(g *mir.Graph, types []Type) {
	g.ForEachBlock(func(b *mir.BasicBlock) {
		b.ForEachMIR(func(m *mir.MIR) {
			if m.SSA == nil {
				return
			}
			attr := mir.Of(m.Insn.Opcode)
			applyOperand(types, m.SSA.Uses, 0, attr, mir.DFFPB, mir.DFCoreB, mir.DFRefB, mir.DFBWide)
			applyOperand(types, m.SSA.Uses, 1, attr, mir.DFFPC, mir.DFCoreC, mir.DFRefC, mir.DFCWide)
			applyOperand(types, m.SSA.Defs, 0, attr, mir.DFFPA, mir.DFCoreA, mir.DFRefA, mir.DFAWide)
			if m.SSA.NumDefs > 0 {
				types[m.SSA.Defs[0]].Defined = true
			}
			if isFloatCompare(m.Insn.Opcode) {
				for _, u := range m.SSA.Uses {
					types[u].FP = true
				}
			}
		})
	})
}

func applyOperand(types []Type, names []mir.SSAName, idx int, attr mir.DFAttr, fp, core, ref, wide mir.DFAttr) {
	if idx >= len(names) {
		return
	}
	t := &types[names[idx]]
	if attr.Has(fp) {
		t.FP = true
	}
	if attr.Has(core) {
		t.Core = true
	}
	if attr.Has(ref) {
		t.Ref = true
	}
	if attr.Has(wide) {
		t.Wide = true
	}
}

func isFloatCompare(op insndecode.Opcode) bool {
	switch op {
	case insndecode.OpCmplFloat, insndecode.OpCmpgFloat, insndecode.OpCmplDouble, insndecode.OpCmpgDouble:
		return true
	default:
		return false
	}
}

package asm

// VmapEntry records that Dalvik virtual register VReg was promoted to
// physical register PhysReg for the method's entire live range (this
// backend never spills a promoted value mid-method, matching regalloc's
// simple greedy, non-splitting promotion).
type VmapEntry struct {
	VReg     int32
	PhysReg  int32
	IsFP     bool
}

// VmapTable is the ordered list of promotions the runtime consults to
// locate a Dalvik register's value during a slow-path call or deopt, per
// spec.md §4.10 step 4 "vmap table".
type VmapTable []VmapEntry

// Encode packs the table as a ULEB128 entry count followed by a compact
// (vreg, physreg<<1|isFP) pair stream, with no terminator, mirroring ART's VmapTable on-disk
// format closely enough for this compiler's own consumer (the runtime
// container-file loader, out of scope per spec.md §1) to have a fixed
// layout to target.
func (vt VmapTable) Encode() []byte {
	out := appendUleb128(nil, uint32(len(vt)))
	for _, e := range vt {
		out = appendUleb128(out, uint32(e.VReg))
		packed := uint32(e.PhysReg) << 1
		if e.IsFP {
			packed |= 1
		}
		out = appendUleb128(out, packed)
	}
	return out
}

// PhysRegFor returns the physical register promoted vreg lives in, if any.
func (vt VmapTable) PhysRegFor(vreg int32) (int32, bool) {
	for _, e := range vt {
		if e.VReg == vreg {
			return e.PhysReg, true
		}
	}
	return 0, false
}

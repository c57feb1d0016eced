package optimizer

// portableBackendDisablesFusedCompare records the original's disable-point
// for compare-branch fusion when targeting its portable bitcode backend
// (which cannot represent a fused compare-and-branch MIR). That backend is
// out of scope here (spec.md §1), so fusion in RunExtendedBB is always
// enabled; this constant documents the disable-point without wiring it to
// anything, per spec.md §9's "leave the disable-point documented but
// unused" instruction for Open Questions resolved as "keep both paths, gate
// by a flag that is never flipped in this scope".
const portableBackendDisablesFusedCompare = false

// Package insndecode implements the input bytecode instruction contract of
// spec.md §6: the published k10x..k51l formats plus the variable-length
// packed-switch/sparse-switch/array-data pseudo-ops, grounded on ART's
// dex_instruction.{h,cc} and dex_instruction-inl.h.
package insndecode

// Format identifies the instruction's on-disk shape.
type Format int

const (
	FormatUnknown Format = iota
	Fmt10x               // op
	Fmt10t               // op + AA (branch target, 8-bit)
	Fmt11n               // op + A + #+B
	Fmt11x               // op + AA
	Fmt12x               // op + A + B
	Fmt20t               // op + (16-bit branch target)
	Fmt21c               // op + AA + (16-bit pool index)
	Fmt21h               // op + AA + (16-bit high literal)
	Fmt21s               // op + AA + (16-bit signed literal)
	Fmt21t               // op + AA + (16-bit branch target)
	Fmt22b               // op + AA + BB + #+CC
	Fmt22c               // op + A + B + (16-bit pool index)
	Fmt22s               // op + A + B + #+CCCC
	Fmt22t               // op + A + B + (16-bit branch target)
	Fmt22x               // op + AA + (16-bit)
	Fmt23x               // op + AA + BB + CC
	Fmt30t               // op + (32-bit branch target)
	Fmt31c               // op + AA + (32-bit pool index)
	Fmt31i               // op + AA + (32-bit literal)
	Fmt31t               // op + AA + (32-bit branch target / table offset)
	Fmt32x               // op + (16-bit) + (16-bit)
	Fmt35c               // op + [A=vararg count] + (16-bit pool index) + 4x4bit args + 4bit arg
	Fmt3rc               // op + AA (count) + (16-bit pool index) + (16-bit first reg, range)
	Fmt51l               // op + AA + (64-bit literal)

	FmtPackedSwitchPayload
	FmtSparseSwitchPayload
	FmtArrayDataPayload
)

// SizeInCodeUnits returns the number of 16-bit code units this format
// occupies for a fixed-size format, or -1 for the variable-length pseudo-ops
// whose size must be read from the payload header.
func (f Format) SizeInCodeUnits() int {
	switch f {
	case Fmt10x, Fmt10t, Fmt11n, Fmt11x, Fmt12x:
		return 1
	case Fmt20t, Fmt21c, Fmt21h, Fmt21s, Fmt21t, Fmt22b, Fmt22c, Fmt22s, Fmt22t, Fmt22x, Fmt23x:
		return 2
	case Fmt30t, Fmt31c, Fmt31i, Fmt31t, Fmt32x, Fmt35c, Fmt3rc:
		return 3
	case Fmt51l:
		return 5
	default:
		return -1
	}
}

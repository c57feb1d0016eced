package mir

// MethodRef identifies a method for diagnostics and the type/width
// inference pass's shorty lookup (spec.md §6 "method reference (class,
// name, shorty)").
type MethodRef struct {
	ClassName string
	Name      string
	Shorty    string // e.g. "ILL" = returns int, takes two references; first char is the return type
}

// CatchHandler is one (type index, handler bytecode offset) pair.
type CatchHandler struct {
	TypeIdx       uint32
	HandlerOffset int32
}

// TryItem is one try-protected region of the method (spec.md §6).
type TryItem struct {
	StartOffset int32
	InsnCount   int32
	Handlers    []CatchHandler
}

// DecodedMethod is the external input contract of spec.md §6: an
// already-decoded method, consumed as an opaque handle from the
// out-of-scope container-file parser/class-linker.
type DecodedMethod struct {
	Insns []uint16

	RegistersSize uint16
	InsSize       uint16
	OutsSize      uint16
	AccessFlags   uint32

	Tries []TryItem

	Ref         MethodRef
	ClassDefIdx int32

	// DexFileVersion is the owning container-file's format version number,
	// used only by backend.monitorUnlockMismatchFatal (SPEC_FULL.md §12.5);
	// zero means "version unknown", treated as pre-fix (fatal).
	DexFileVersion int

	// ContainerFile is an opaque handle to the owning container-file
	// resolver; the CORE never dereferences it, it is only threaded through
	// to the patch records produced by the assembler (spec.md §4.10 step 3).
	ContainerFile interface{}
}

// IsStatic reports whether the method has no implicit `this` register.
func (m *DecodedMethod) IsStatic() bool { return m.AccessFlags&accFlagStatic != 0 }

// IsConstructor reports whether this is an instance or static initializer.
func (m *DecodedMethod) IsConstructor() bool { return m.AccessFlags&accFlagConstructor != 0 }

const (
	accFlagStatic      = 0x0008
	accFlagConstructor = 0x10000
)

// NumRegisters is the total frame size in virtual registers (locals + ins),
// matching ART's vA/vB register numbering where the `ins` occupy the top
// InsSize register numbers.
func (m *DecodedMethod) NumRegisters() int { return int(m.RegistersSize) }

// FirstInVReg returns the virtual register number of the first "in"
// (parameter) register.
func (m *DecodedMethod) FirstInVReg() int { return int(m.RegistersSize) - int(m.InsSize) }

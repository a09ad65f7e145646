// Package spv holds the SPIR-V level building blocks: identifiers,
// immediates, operands, raw instructions, the module header layout, and the
// binary reader and writer.
package spv

import (
	"cmp"

	"spvir/internal/spv/spec"
)

// ID is a SPIR-V result id. Zero is never a valid id.
type ID uint32

// ImmKind distinguishes single-word immediates from multi-word ones.
type ImmKind uint8

const (
	// ImmShort is an immediate that fits in one word.
	ImmShort ImmKind = iota
	// ImmLongStart is the first word of a multi-word immediate.
	ImmLongStart
	// ImmLongCont is every following word of a multi-word immediate.
	ImmLongCont
)

func (k ImmKind) String() string {
	switch k {
	case ImmShort:
		return "short"
	case ImmLongStart:
		return "long-start"
	case ImmLongCont:
		return "long-cont"
	default:
		return "imm(?)"
	}
}

// Imm is one word of an immediate operand. Multi-word values are split into
// a LongStart word followed by LongCont words; reassembly is up to whoever
// needs the logical value.
type Imm struct {
	Kind        ImmKind
	OperandKind spec.OperandKind
	Value       uint32
}

// ShortImm builds a one-word immediate.
func ShortImm(kind spec.OperandKind, v uint32) Imm {
	return Imm{Kind: ImmShort, OperandKind: kind, Value: v}
}

// Compare orders immediates by kind, operand kind, then value.
func (imm Imm) Compare(other Imm) int {
	switch {
	case imm.Kind != other.Kind:
		return cmp.Compare(imm.Kind, other.Kind)
	case imm.OperandKind != other.OperandKind:
		return cmp.Compare(imm.OperandKind, other.OperandKind)
	default:
		return cmp.Compare(imm.Value, other.Value)
	}
}

// OperandTag says which field of an Operand is meaningful.
type OperandTag uint8

const (
	OperandImm OperandTag = iota
	OperandID
	// OperandForwardIDRef is an id whose definition comes later in the
	// stream. Only the reader produces it; lowering resolves every one.
	OperandForwardIDRef
)

// Operand is one decoded operand word.
type Operand struct {
	Tag  OperandTag
	Imm  Imm              // OperandImm
	Kind spec.OperandKind // OperandID, OperandForwardIDRef
	ID   ID               // OperandID, OperandForwardIDRef
}

// ImmOperand wraps an immediate.
func ImmOperand(imm Imm) Operand { return Operand{Tag: OperandImm, Imm: imm} }

// IDOperand wraps an id reference.
func IDOperand(kind spec.OperandKind, id ID) Operand {
	return Operand{Tag: OperandID, Kind: kind, ID: id}
}

// ForwardIDOperand wraps a reference to an id defined later.
func ForwardIDOperand(kind spec.OperandKind, id ID) Operand {
	return Operand{Tag: OperandForwardIDRef, Kind: kind, ID: id}
}

// IsID reports whether the operand refers to an id, forward or not.
func (o Operand) IsID() bool { return o.Tag == OperandID || o.Tag == OperandForwardIDRef }

// Word returns the binary encoding of the operand.
func (o Operand) Word() uint32 {
	if o.Tag == OperandImm {
		return o.Imm.Value
	}
	return uint32(o.ID)
}

// Inst is a decoded instruction. ResultTypeID and ResultID are zero when the
// opcode has none.
type Inst struct {
	Opcode       spec.Opcode
	ResultTypeID ID
	ResultID     ID
	Operands     []Operand
}

// ModuleLayout is the header information and capability list of a binary
// module, kept so that lifting can reproduce them.
type ModuleLayout struct {
	HeaderVersion          uint32
	OriginalGeneratorMagic uint32
	OriginalIDBound        uint32
	// Capabilities in stream order, duplicates kept.
	Capabilities []uint32
}

// Version splits HeaderVersion into major and minor numbers.
func (l ModuleLayout) Version() (major, minor uint8) {
	return uint8(l.HeaderVersion >> 16), uint8(l.HeaderVersion >> 8)
}

// MakeVersion packs a version into header form.
func MakeVersion(major, minor uint8) uint32 {
	return uint32(major)<<16 | uint32(minor)<<8
}

// Module is a decoded binary module: its layout and every instruction in
// stream order.
type Module struct {
	Layout ModuleLayout
	Insts  []Inst
}

// Dialect describes the SPIR-V flavor a module was lowered from.
type Dialect struct {
	VersionMajor uint8
	VersionMinor uint8

	// Capabilities in declaration order, duplicates kept.
	Capabilities []uint32
	Extensions   []string

	AddressingModel uint32
	MemoryModel     uint32
}

// ModuleDebugInfo carries module-level debug metadata.
type ModuleDebugInfo struct {
	// Zero means the generator magic was not recorded.
	OriginalGeneratorMagic uint32
	OriginalIDBound        uint32

	SourceExtensions []string
	ModuleProcesses  []string
}

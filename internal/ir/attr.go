package ir

import (
	"cmp"
	"fmt"
	"slices"

	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// AttrSetDef is a set of attributes. Interned sets are sorted by
// Attr.Compare and hold no duplicates; the order exists only for
// determinism and carries no meaning.
type AttrSetDef struct {
	Attrs []Attr
}

func (def AttrSetDef) canonical() AttrSetDef {
	attrs := cloneSlice(def.Attrs)
	slices.SortFunc(attrs, func(a, b Attr) int { return a.Compare(&b) })
	attrs = slices.CompactFunc(attrs, func(a, b Attr) bool { return a.Equal(&b) })
	if len(attrs) == 0 {
		attrs = nil
	}
	return AttrSetDef{Attrs: attrs}
}

func (def *AttrSetDef) encode(k *keyBuilder) {
	k.u32(uint32(len(def.Attrs)))
	for i := range def.Attrs {
		def.Attrs[i].encode(k)
	}
}

// AttrKind selects the Attr variant.
type AttrKind uint8

const (
	// AttrSpvEntryPoint is entry point metadata kept on a function when it
	// cannot be expressed as an export.
	AttrSpvEntryPoint AttrKind = iota
	// AttrSpvAnnotation is a decoration, name or execution mode.
	AttrSpvAnnotation
	// AttrSpvDebugLine is an OpLine source location.
	AttrSpvDebugLine
)

func (k AttrKind) String() string {
	switch k {
	case AttrSpvEntryPoint:
		return "SpvEntryPoint"
	case AttrSpvAnnotation:
		return "SpvAnnotation"
	case AttrSpvDebugLine:
		return "SpvDebugLine"
	default:
		return fmt.Sprintf("AttrKind(%d)", uint8(k))
	}
}

// Attr is one attribute. Only the fields of Kind's variant are meaningful.
type Attr struct {
	Kind AttrKind

	EntryPoint SpvEntryPointAttr
	Annotation SpvAnnotationAttr
	DebugLine  SpvDebugLineAttr
}

// SpvEntryPointAttr holds OpEntryPoint immediates and interface ids.
type SpvEntryPointAttr struct {
	Params       []spv.Imm
	InterfaceIDs []spv.ID
}

// SpvAnnotationAttr holds the immediates of an annotation instruction with
// its target operand removed.
type SpvAnnotationAttr struct {
	Opcode spec.Opcode
	Params []spv.Imm
}

// SpvDebugLineAttr is a source location. FilePath takes part in ordering
// only through equality.
type SpvDebugLineAttr struct {
	FilePath OrdAssertEq[InternedStr]
	Line     uint32
	Col      uint32
}

// EntryPointAttr builds an AttrSpvEntryPoint.
func EntryPointAttr(params []spv.Imm, interfaceIDs []spv.ID) Attr {
	return Attr{Kind: AttrSpvEntryPoint, EntryPoint: SpvEntryPointAttr{Params: params, InterfaceIDs: interfaceIDs}}
}

// AnnotationAttr builds an AttrSpvAnnotation.
func AnnotationAttr(op spec.Opcode, params []spv.Imm) Attr {
	return Attr{Kind: AttrSpvAnnotation, Annotation: SpvAnnotationAttr{Opcode: op, Params: params}}
}

// DebugLineAttr builds an AttrSpvDebugLine.
func DebugLineAttr(file InternedStr, line, col uint32) Attr {
	return Attr{Kind: AttrSpvDebugLine, DebugLine: SpvDebugLineAttr{FilePath: OrdAssertEq[InternedStr]{V: file}, Line: line, Col: col}}
}

// Equal reports structural equality.
func (a *Attr) Equal(b *Attr) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case AttrSpvEntryPoint:
		return slices.Equal(a.EntryPoint.Params, b.EntryPoint.Params) &&
			slices.Equal(a.EntryPoint.InterfaceIDs, b.EntryPoint.InterfaceIDs)
	case AttrSpvAnnotation:
		return a.Annotation.Opcode == b.Annotation.Opcode &&
			slices.Equal(a.Annotation.Params, b.Annotation.Params)
	case AttrSpvDebugLine:
		return a.DebugLine == b.DebugLine
	}
	return false
}

// Compare orders attributes by variant and then by fields in declaration
// order. Comparing two debug lines that name different files panics, see
// OrdAssertEq.
func (a *Attr) Compare(b *Attr) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	switch a.Kind {
	case AttrSpvEntryPoint:
		if c := slices.CompareFunc(a.EntryPoint.Params, b.EntryPoint.Params, spv.Imm.Compare); c != 0 {
			return c
		}
		return slices.Compare(a.EntryPoint.InterfaceIDs, b.EntryPoint.InterfaceIDs)
	case AttrSpvAnnotation:
		if c := cmp.Compare(a.Annotation.Opcode, b.Annotation.Opcode); c != 0 {
			return c
		}
		return slices.CompareFunc(a.Annotation.Params, b.Annotation.Params, spv.Imm.Compare)
	case AttrSpvDebugLine:
		if c := a.DebugLine.FilePath.Compare(b.DebugLine.FilePath); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DebugLine.Line, b.DebugLine.Line); c != 0 {
			return c
		}
		return cmp.Compare(a.DebugLine.Col, b.DebugLine.Col)
	}
	return 0
}

func (a *Attr) encode(k *keyBuilder) {
	k.u8(uint8(a.Kind))
	switch a.Kind {
	case AttrSpvEntryPoint:
		encodeImms(k, a.EntryPoint.Params)
		k.u32(uint32(len(a.EntryPoint.InterfaceIDs)))
		for _, id := range a.EntryPoint.InterfaceIDs {
			k.u32(uint32(id))
		}
	case AttrSpvAnnotation:
		k.u32(uint32(a.Annotation.Opcode))
		encodeImms(k, a.Annotation.Params)
	case AttrSpvDebugLine:
		k.istr(a.DebugLine.FilePath.V)
		k.u32(a.DebugLine.Line)
		k.u32(a.DebugLine.Col)
	}
}

func encodeImm(k *keyBuilder, imm spv.Imm) {
	k.u8(uint8(imm.Kind))
	k.u32(uint32(imm.OperandKind))
	k.u32(imm.Value)
}

func encodeImms(k *keyBuilder, imms []spv.Imm) {
	k.u32(uint32(len(imms)))
	for _, imm := range imms {
		encodeImm(k, imm)
	}
}

// OrdAssertEq narrows ordering to equality: Compare returns 0 for equal
// values and panics for anything else. It wraps handles whose index order
// says nothing about their contents.
type OrdAssertEq[T comparable] struct {
	V T
}

// Compare panics unless a and b are equal.
func (a OrdAssertEq[T]) Compare(b OrdAssertEq[T]) int {
	if a.V != b.V {
		panic(fmt.Sprintf("ir: OrdAssertEq[%T].Compare called with unequal values", a.V))
	}
	return 0
}

// Package spec exposes the SPIR-V grammar subset used across spvir: opcode
// names, operand kinds and enumerants, loaded once from an embedded TOML file.
package spec

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"
)

//go:embed grammar.toml
var grammarTOML string

// Magic is the first word of every SPIR-V module in native byte order.
const Magic uint32 = 0x07230203

// HeaderWords is the number of words preceding the first instruction.
const HeaderWords = 5

// Opcode identifies a SPIR-V instruction.
type Opcode uint16

// Name returns the grammar name of the opcode, or "Op<n>" if the grammar
// does not know it.
func (op Opcode) Name() string {
	if desc, ok := Get().Instruction(op); ok {
		return desc.Name
	}
	return fmt.Sprintf("Op<%d>", uint16(op))
}

func (op Opcode) String() string { return op.Name() }

// Category classifies an operand kind.
type Category uint8

const (
	CategoryID Category = iota + 1
	CategoryLiteral
	CategoryValueEnum
	CategoryBitEnum
	CategoryComposite
)

var categoryNames = map[string]Category{
	"Id":        CategoryID,
	"Literal":   CategoryLiteral,
	"ValueEnum": CategoryValueEnum,
	"BitEnum":   CategoryBitEnum,
	"Composite": CategoryComposite,
}

func (c Category) String() string {
	switch c {
	case CategoryID:
		return "Id"
	case CategoryLiteral:
		return "Literal"
	case CategoryValueEnum:
		return "ValueEnum"
	case CategoryBitEnum:
		return "BitEnum"
	case CategoryComposite:
		return "Composite"
	default:
		return "Category(?)"
	}
}

// OperandKind indexes the grammar's operand kinds. Zero is invalid.
type OperandKind uint16

// Name returns the grammar name of the kind.
func (k OperandKind) Name() string {
	if d := Get().Kind(k); d != nil {
		return d.Name
	}
	return "OperandKind(?)"
}

// Category returns the category of the kind, or zero for an invalid kind.
func (k OperandKind) Category() Category {
	if d := Get().Kind(k); d != nil {
		return d.Category
	}
	return 0
}

func (k OperandKind) String() string { return k.Name() }

// Quantifier states how many times an operand may appear.
type Quantifier uint8

const (
	One      Quantifier = iota // exactly once
	Optional                   // "?"
	Rest                       // "*", zero or more until the end of the instruction
)

// Enumerant is one named value of a ValueEnum or BitEnum kind.
type Enumerant struct {
	Name   string
	Value  uint32
	Params []OperandKind
}

// OperandKindDesc describes one operand kind.
type OperandKindDesc struct {
	Name       string
	Category   Category
	Bases      []OperandKind // Composite only
	Enumerants []Enumerant   // enum categories only

	byValue map[uint32]int
}

// Enumerant looks up a value of an enum kind.
func (d *OperandKindDesc) Enumerant(v uint32) (Enumerant, bool) {
	if d == nil || d.byValue == nil {
		return Enumerant{}, false
	}
	idx, ok := d.byValue[v]
	if !ok {
		return Enumerant{}, false
	}
	return d.Enumerants[idx], true
}

// OperandDesc is one operand slot of an instruction.
type OperandDesc struct {
	Kind       OperandKind
	Quantifier Quantifier
	Name       string
}

// InstructionDesc describes an instruction. Operands excludes the result
// type and result id, which are reported by the two flags.
type InstructionDesc struct {
	Name          string
	Opcode        Opcode
	HasResultType bool
	HasResultID   bool
	Operands      []OperandDesc
}

// WellKnown holds the operand kinds the rest of spvir refers to by role.
type WellKnown struct {
	IDResultType                  OperandKind
	IDResult                      OperandKind
	IDRef                         OperandKind
	LiteralInteger                OperandKind
	LiteralString                 OperandKind
	LiteralContextDependentNumber OperandKind
	LiteralExtInstInteger         OperandKind
	LiteralSpecConstantOpInteger  OperandKind
	Capability                    OperandKind
	AddressingModel               OperandKind
	MemoryModel                   OperandKind
	StorageClass                  OperandKind
	SourceLanguage                OperandKind
	ExecutionModel                OperandKind
	ExecutionMode                 OperandKind
	Decoration                    OperandKind
	LinkageType                   OperandKind
	FunctionControl               OperandKind
}

// Spec is the parsed grammar.
type Spec struct {
	WellKnown WellKnown

	instructions map[Opcode]*InstructionDesc
	kinds        []OperandKindDesc
	kindByName   map[string]OperandKind
}

var (
	loadOnce sync.Once
	loaded   *Spec
)

// Get returns the process-wide grammar. It panics if the embedded grammar
// is malformed.
func Get() *Spec {
	loadOnce.Do(func() {
		s, err := Parse(grammarTOML)
		if err != nil {
			panic(fmt.Sprintf("spec: embedded grammar: %v", err))
		}
		loaded = s
	})
	return loaded
}

// Instruction returns the description of op.
func (s *Spec) Instruction(op Opcode) (*InstructionDesc, bool) {
	d, ok := s.instructions[op]
	return d, ok
}

// Instructions returns every known instruction sorted by opcode.
func (s *Spec) Instructions() []*InstructionDesc {
	out := make([]*InstructionDesc, 0, len(s.instructions))
	for _, d := range s.instructions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Opcode < out[j].Opcode })
	return out
}

// Kind returns the description of k, or nil.
func (s *Spec) Kind(k OperandKind) *OperandKindDesc {
	if k == 0 || int(k) > len(s.kinds) {
		return nil
	}
	return &s.kinds[k-1]
}

// KindByName resolves an operand kind by grammar name.
func (s *Spec) KindByName(name string) (OperandKind, bool) {
	k, ok := s.kindByName[name]
	return k, ok
}

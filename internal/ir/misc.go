package ir

import (
	"fmt"

	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// Global is a module-scope instruction that has no dedicated construct.
type Global struct {
	Misc Misc
}

// Misc is the generic instruction node. Inputs keep the operand order of
// the source instruction; what each position means is up to the consumer.
// Def-use edges between Misc nodes are not tracked.
type Misc struct {
	Attrs  AttrSet
	Kind   MiscKind
	Output *MiscOutput
	Inputs []MiscInput
}

// MiscKindTag selects the MiscKind variant.
type MiscKindTag uint8

const (
	// MiscSpvInst is any SPIR-V instruction, named by opcode.
	MiscSpvInst MiscKindTag = iota
	// MiscFuncCall is OpFunctionCall with the callee resolved to a Func.
	MiscFuncCall
)

// MiscKind is what a Misc instruction does.
type MiscKind struct {
	Tag    MiscKindTag
	Opcode spec.Opcode // MiscSpvInst
	Func   Func        // MiscFuncCall
}

// SpvInstKind names a SPIR-V opcode.
func SpvInstKind(op spec.Opcode) MiscKind { return MiscKind{Tag: MiscSpvInst, Opcode: op} }

// FuncCallKind names a call of f.
func FuncCallKind(f Func) MiscKind { return MiscKind{Tag: MiscFuncCall, Func: f} }

// Name returns a printable name for the kind.
func (k MiscKind) Name() string {
	switch k.Tag {
	case MiscSpvInst:
		return k.Opcode.Name()
	case MiscFuncCall:
		return spec.OpFunctionCall.Name()
	default:
		return fmt.Sprintf("MiscKind(%d)", uint8(k.Tag))
	}
}

// MiscOutputKind selects the MiscOutput variant.
type MiscOutputKind uint8

const (
	// SpvValueResult produces a typed value.
	SpvValueResult MiscOutputKind = iota
	// SpvLabelResult produces an id without a type, such as OpLabel.
	SpvLabelResult
)

// MiscOutput is the result of a Misc instruction.
type MiscOutput struct {
	Kind       MiscOutputKind
	ResultType Type // SpvValueResult only
	ResultID   spv.ID
}

// ValueResult builds a typed result. It panics on an invalid type or id.
func ValueResult(ty Type, id spv.ID) *MiscOutput {
	if !ty.IsValid() {
		panic("ir: value result without a result type")
	}
	if id == 0 {
		panic("ir: result id 0")
	}
	return &MiscOutput{Kind: SpvValueResult, ResultType: ty, ResultID: id}
}

// LabelResult builds an untyped result. It panics on id 0.
func LabelResult(id spv.ID) *MiscOutput {
	if id == 0 {
		panic("ir: result id 0")
	}
	return &MiscOutput{Kind: SpvLabelResult, ResultID: id}
}

// MiscInputKind selects the MiscInput variant.
type MiscInputKind uint8

const (
	MiscInputType MiscInputKind = iota
	MiscInputConst
	MiscInputSpvImm
	// MiscInputSpvUntrackedID is an id the IR does not model as an entity,
	// such as a function-local value or a label.
	MiscInputSpvUntrackedID
	// MiscInputSpvExtInstImport refers to an OpExtInstImport by name.
	MiscInputSpvExtInstImport
)

// MiscInput is one operand of a Misc instruction.
type MiscInput struct {
	Kind          MiscInputKind
	Type          Type
	Const         Const
	Imm           spv.Imm
	ID            spv.ID
	ExtInstImport InternedStr
}

// TypeInput wraps a type operand.
func TypeInput(t Type) MiscInput { return MiscInput{Kind: MiscInputType, Type: t} }

// ConstInput wraps a constant operand.
func ConstInput(c Const) MiscInput { return MiscInput{Kind: MiscInputConst, Const: c} }

// ImmInput wraps an immediate operand.
func ImmInput(imm spv.Imm) MiscInput { return MiscInput{Kind: MiscInputSpvImm, Imm: imm} }

// UntrackedIDInput wraps a raw id operand.
func UntrackedIDInput(id spv.ID) MiscInput { return MiscInput{Kind: MiscInputSpvUntrackedID, ID: id} }

// ExtInstImportInput wraps a reference to an extended instruction set.
func ExtInstImportInput(name InternedStr) MiscInput {
	return MiscInput{Kind: MiscInputSpvExtInstImport, ExtInstImport: name}
}

package ir

import (
	"fmt"

	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// TypeDef is an interned type: attributes, a constructor and its arguments.
type TypeDef struct {
	Attrs    AttrSet
	Ctor     TypeCtor
	CtorArgs []TypeCtorArg
}

// TypeCtorKind selects the TypeCtor variant.
type TypeCtorKind uint8

const (
	// TypeCtorSpvInst is a type built by a SPIR-V OpType* instruction.
	TypeCtorSpvInst TypeCtorKind = iota
)

// TypeCtor says how a type is formed.
type TypeCtor struct {
	Kind   TypeCtorKind
	Opcode spec.Opcode // TypeCtorSpvInst
}

// SpvInstTypeCtor returns the constructor for SPIR-V opcode op.
func SpvInstTypeCtor(op spec.Opcode) TypeCtor {
	return TypeCtor{Kind: TypeCtorSpvInst, Opcode: op}
}

// Name returns a printable name for the constructor.
func (c TypeCtor) Name() string {
	switch c.Kind {
	case TypeCtorSpvInst:
		return c.Opcode.Name()
	default:
		return fmt.Sprintf("TypeCtor(%d)", uint8(c.Kind))
	}
}

// TypeCtorArgKind selects the TypeCtorArg variant.
type TypeCtorArgKind uint8

const (
	TypeCtorArgType TypeCtorArgKind = iota
	TypeCtorArgConst
	TypeCtorArgSpvImm
)

// TypeCtorArg is one constructor argument.
type TypeCtorArg struct {
	Kind  TypeCtorArgKind
	Type  Type
	Const Const
	Imm   spv.Imm
}

// TypeArg wraps a type argument.
func TypeArg(t Type) TypeCtorArg { return TypeCtorArg{Kind: TypeCtorArgType, Type: t} }

// TypeConstArg wraps a constant argument.
func TypeConstArg(c Const) TypeCtorArg { return TypeCtorArg{Kind: TypeCtorArgConst, Const: c} }

// TypeImmArg wraps an immediate argument.
func TypeImmArg(imm spv.Imm) TypeCtorArg { return TypeCtorArg{Kind: TypeCtorArgSpvImm, Imm: imm} }

func (def *TypeDef) encode(k *keyBuilder) {
	k.attrs(def.Attrs)
	k.u8(uint8(def.Ctor.Kind))
	k.u32(uint32(def.Ctor.Opcode))
	k.u32(uint32(len(def.CtorArgs)))
	for _, arg := range def.CtorArgs {
		k.u8(uint8(arg.Kind))
		switch arg.Kind {
		case TypeCtorArgType:
			k.typ(arg.Type)
		case TypeCtorArgConst:
			k.cnst(arg.Const)
		case TypeCtorArgSpvImm:
			encodeImm(k, arg.Imm)
		default:
			panic(fmt.Sprintf("ir: unknown TypeCtorArg kind %d", arg.Kind))
		}
	}
}

// ConstDef is an interned constant.
type ConstDef struct {
	Attrs    AttrSet
	Type     Type
	Ctor     ConstCtor
	CtorArgs []ConstCtorArg
}

// ConstCtorKind selects the ConstCtor variant.
type ConstCtorKind uint8

const (
	// ConstCtorSpvInst is a constant built by a SPIR-V instruction
	// (OpConstant*, OpSpecConstant*, OpUndef).
	ConstCtorSpvInst ConstCtorKind = iota
)

// ConstCtor says how a constant is formed.
type ConstCtor struct {
	Kind   ConstCtorKind
	Opcode spec.Opcode // ConstCtorSpvInst
}

// SpvInstConstCtor returns the constructor for SPIR-V opcode op.
func SpvInstConstCtor(op spec.Opcode) ConstCtor {
	return ConstCtor{Kind: ConstCtorSpvInst, Opcode: op}
}

// Name returns a printable name for the constructor.
func (c ConstCtor) Name() string {
	switch c.Kind {
	case ConstCtorSpvInst:
		return c.Opcode.Name()
	default:
		return fmt.Sprintf("ConstCtor(%d)", uint8(c.Kind))
	}
}

// ConstCtorArgKind selects the ConstCtorArg variant.
type ConstCtorArgKind uint8

const (
	ConstCtorArgConst ConstCtorArgKind = iota
	ConstCtorArgSpvImm
	// ConstCtorArgSpvUntrackedGlobalVarID names a global variable by its
	// SPIR-V id from inside an interned constant. Constants that point at
	// global variables have no proper representation yet; this variant
	// keeps them isolated until they do.
	ConstCtorArgSpvUntrackedGlobalVarID
)

// ConstCtorArg is one constructor argument.
type ConstCtorArg struct {
	Kind  ConstCtorArgKind
	Const Const
	Imm   spv.Imm
	ID    spv.ID // ConstCtorArgSpvUntrackedGlobalVarID
}

// ConstArg wraps a constant argument.
func ConstArg(c Const) ConstCtorArg { return ConstCtorArg{Kind: ConstCtorArgConst, Const: c} }

// ConstImmArg wraps an immediate argument.
func ConstImmArg(imm spv.Imm) ConstCtorArg { return ConstCtorArg{Kind: ConstCtorArgSpvImm, Imm: imm} }

// UntrackedGlobalVarArg wraps the SPIR-V id of a global variable.
func UntrackedGlobalVarArg(id spv.ID) ConstCtorArg {
	return ConstCtorArg{Kind: ConstCtorArgSpvUntrackedGlobalVarID, ID: id}
}

func (def *ConstDef) encode(k *keyBuilder) {
	k.attrs(def.Attrs)
	k.typ(def.Type)
	k.u8(uint8(def.Ctor.Kind))
	k.u32(uint32(def.Ctor.Opcode))
	k.u32(uint32(len(def.CtorArgs)))
	for _, arg := range def.CtorArgs {
		k.u8(uint8(arg.Kind))
		switch arg.Kind {
		case ConstCtorArgConst:
			k.cnst(arg.Const)
		case ConstCtorArgSpvImm:
			encodeImm(k, arg.Imm)
		case ConstCtorArgSpvUntrackedGlobalVarID:
			k.u32(uint32(arg.ID))
		default:
			panic(fmt.Sprintf("ir: unknown ConstCtorArg kind %d", arg.Kind))
		}
	}
}

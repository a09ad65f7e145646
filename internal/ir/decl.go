package ir

import (
	"spvir/internal/spv"
)

// ImportKind selects the Import variant.
type ImportKind uint8

const (
	// ImportLinkName imports by SPIR-V linkage name.
	ImportLinkName ImportKind = iota
)

// Import says where an imported entity comes from.
type Import struct {
	Kind     ImportKind
	LinkName InternedStr
}

// LinkNameImport builds an ImportLinkName.
func LinkNameImport(name InternedStr) Import { return Import{Kind: ImportLinkName, LinkName: name} }

type declDefKind uint8

const (
	declDefNone declDefKind = iota
	declDefImported
	declDefPresent
)

// DeclDef is either an import or a present definition of type D. The zero
// value is neither; building one requires Imported or Present.
type DeclDef[D InnerVisit] struct {
	kind declDefKind
	imp  Import
	def  D
}

// Imported returns a DeclDef with no body.
func Imported[D InnerVisit](imp Import) DeclDef[D] {
	return DeclDef[D]{kind: declDefImported, imp: imp}
}

// Present returns a DeclDef carrying def.
func Present[D InnerVisit](def D) DeclDef[D] {
	return DeclDef[D]{kind: declDefPresent, def: def}
}

// IsImported reports whether dd is an import.
func (dd *DeclDef[D]) IsImported() bool { return dd.kind == declDefImported }

// Import returns the import descriptor, if dd is one.
func (dd *DeclDef[D]) Import() (Import, bool) {
	return dd.imp, dd.kind == declDefImported
}

// Def returns the definition, if dd is present. The pointer may be used to
// extend the definition in place.
func (dd *DeclDef[D]) Def() (*D, bool) {
	if dd.kind != declDefPresent {
		return nil, false
	}
	return &dd.def, true
}

// Match calls exactly one of imported or present. It panics on a zero
// DeclDef.
func (dd *DeclDef[D]) Match(imported func(*Import), present func(*D)) {
	switch dd.kind {
	case declDefImported:
		imported(&dd.imp)
	case declDefPresent:
		present(&dd.def)
	default:
		panic("ir: DeclDef is neither imported nor present")
	}
}

// AddrSpaceKind selects the AddrSpace variant.
type AddrSpaceKind uint8

const (
	AddrSpaceSpvStorageClass AddrSpaceKind = iota
)

// AddrSpace is where a global variable lives.
type AddrSpace struct {
	Kind         AddrSpaceKind
	StorageClass uint32
}

// SpvStorageClass builds an AddrSpaceSpvStorageClass.
func SpvStorageClass(sc uint32) AddrSpace {
	return AddrSpace{Kind: AddrSpaceSpvStorageClass, StorageClass: sc}
}

// GlobalVarDecl declares a module-scope variable.
type GlobalVarDecl struct {
	Attrs AttrSet
	// TypeOfPtrTo is the pointer type of the variable, not its pointee.
	TypeOfPtrTo Type
	AddrSpace   AddrSpace
	Def         DeclDef[GlobalVarDefBody]

	// SpvResultID is the id the variable had in the binary, kept because
	// untracked operands may still name it. Zero if it never had one.
	SpvResultID spv.ID
}

// GlobalVarDefBody is the definition of a present global variable.
type GlobalVarDefBody struct {
	// Initializer is the zero Const when there is none.
	Initializer Const
}

// FuncDecl declares a function.
type FuncDecl struct {
	Attrs   AttrSet
	RetType Type
	// Type is the OpTypeFunction type of the function.
	Type Type
	Def  DeclDef[FuncDefBody]

	// SpvResultID is the id the function had in the binary. Zero if it never
	// had one.
	SpvResultID spv.ID
}

// FuncDefBody is the body of a present function: every instruction between
// OpFunction and OpFunctionEnd, parameters included.
type FuncDefBody struct {
	Insts []Misc
}

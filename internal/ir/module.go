package ir

import (
	"fmt"

	"fortio.org/safecast"

	"spvir/internal/spv"
)

// DialectKind selects the ModuleDialect variant.
type DialectKind uint8

const (
	DialectSpv DialectKind = iota
)

// ModuleDialect says what flavor of input a module came from.
type ModuleDialect struct {
	Kind DialectKind
	Spv  spv.Dialect
}

// SpvDialect wraps a SPIR-V dialect.
func SpvDialect(d spv.Dialect) ModuleDialect { return ModuleDialect{Kind: DialectSpv, Spv: d} }

// ModuleDebugInfo is module-level debug metadata.
type ModuleDebugInfo struct {
	Kind DialectKind
	Spv  spv.ModuleDebugInfo
}

// SpvDebugInfo wraps SPIR-V debug info.
func SpvDebugInfo(d spv.ModuleDebugInfo) ModuleDebugInfo {
	return ModuleDebugInfo{Kind: DialectSpv, Spv: d}
}

// Module is one unit of IR. Its Context is fixed at construction and can be
// read through Cx but never replaced.
type Module struct {
	cx *Context

	Dialect   ModuleDialect
	DebugInfo ModuleDebugInfo

	// Globals are module-scope instructions without a dedicated construct,
	// in source order.
	Globals []Global

	globalVars []*GlobalVarDecl
	funcs      []*FuncDecl
	exports    exportTable
}

// NewModule returns an empty module bound to cx.
func NewModule(cx *Context, dialect ModuleDialect, debugInfo ModuleDebugInfo) *Module {
	if cx == nil {
		panic("ir: NewModule with nil Context")
	}
	return &Module{
		cx:        cx,
		Dialect:   dialect,
		DebugInfo: debugInfo,
		exports:   newExportTable(),
	}
}

// Cx returns the Context the module was built with.
func (m *Module) Cx() *Context { return m.cx }

// GlobalVar is a handle to a global variable of a Module.
type GlobalVar struct {
	m   *Module
	idx uint32
}

// Func is a handle to a function of a Module.
type Func struct {
	m   *Module
	idx uint32
}

// DeclareGlobalVar appends decl and returns its handle.
func (m *Module) DeclareGlobalVar(decl GlobalVarDecl) GlobalVar {
	idx, err := safecast.Conv[uint32](len(m.globalVars))
	if err != nil {
		panic(fmt.Errorf("ir: global variable count overflow: %w", err))
	}
	m.globalVars = append(m.globalVars, &decl)
	return GlobalVar{m: m, idx: idx}
}

// DeclareFunc appends decl and returns its handle.
func (m *Module) DeclareFunc(decl FuncDecl) Func {
	idx, err := safecast.Conv[uint32](len(m.funcs))
	if err != nil {
		panic(fmt.Errorf("ir: function count overflow: %w", err))
	}
	m.funcs = append(m.funcs, &decl)
	return Func{m: m, idx: idx}
}

// GlobalVars returns every global variable in declaration order.
func (m *Module) GlobalVars() []GlobalVar {
	out := make([]GlobalVar, len(m.globalVars))
	for i := range out {
		out[i] = GlobalVar{m: m, idx: uint32(i)}
	}
	return out
}

// Funcs returns every function in declaration order.
func (m *Module) Funcs() []Func {
	out := make([]Func, len(m.funcs))
	for i := range out {
		out[i] = Func{m: m, idx: uint32(i)}
	}
	return out
}

// NumGlobalVars is len(GlobalVars()).
func (m *Module) NumGlobalVars() int { return len(m.globalVars) }

// NumFuncs is len(Funcs()).
func (m *Module) NumFuncs() int { return len(m.funcs) }

// IsValid reports whether gv came from a Module.
func (gv GlobalVar) IsValid() bool { return gv.m != nil }

// Module returns the owning module.
func (gv GlobalVar) Module() *Module { return gv.m }

// Decl returns the declaration; it may be modified in place.
func (gv GlobalVar) Decl() *GlobalVarDecl {
	if gv.m == nil {
		panic("ir: invalid GlobalVar handle")
	}
	return gv.m.globalVars[gv.idx]
}

// Index is the position of the variable in its module.
func (gv GlobalVar) Index() uint32 { return gv.idx }

// IsValid reports whether f came from a Module.
func (f Func) IsValid() bool { return f.m != nil }

// Module returns the owning module.
func (f Func) Module() *Module { return f.m }

// Decl returns the declaration; it may be modified in place.
func (f Func) Decl() *FuncDecl {
	if f.m == nil {
		panic("ir: invalid Func handle")
	}
	return f.m.funcs[f.idx]
}

// Index is the position of the function in its module.
func (f Func) Index() uint32 { return f.idx }

func (m *Module) owns(gv GlobalVar) bool { return gv.m == m && int(gv.idx) < len(m.globalVars) }

func (m *Module) ownsFunc(f Func) bool { return f.m == m && int(f.idx) < len(m.funcs) }

package ir

import (
	"errors"
	"fmt"

	"spvir/internal/spv"
)

var (
	// ErrDuplicateExport is returned when an export key is already taken.
	ErrDuplicateExport = errors.New("duplicate export key")
	// ErrDanglingExportee is returned when an export refers to something
	// outside the module.
	ErrDanglingExportee = errors.New("exportee does not belong to module")
)

// ExportKeyKind selects the ExportKey variant.
type ExportKeyKind uint8

const (
	// ExportLinkName exports under a SPIR-V linkage name.
	ExportLinkName ExportKeyKind = iota
	// ExportSpvEntryPoint exports an OpEntryPoint.
	ExportSpvEntryPoint
)

// ExportKey is how an exported entity is found from outside the module.
type ExportKey struct {
	Kind ExportKeyKind

	LinkName InternedStr // ExportLinkName

	// ExportSpvEntryPoint: the OpEntryPoint immediates (execution model and
	// name) and its interface variables in order.
	Params              []spv.Imm
	InterfaceGlobalVars []GlobalVar
}

// LinkNameExport builds an ExportLinkName key.
func LinkNameExport(name InternedStr) ExportKey {
	return ExportKey{Kind: ExportLinkName, LinkName: name}
}

// EntryPointExport builds an ExportSpvEntryPoint key.
func EntryPointExport(params []spv.Imm, interfaceGlobalVars []GlobalVar) ExportKey {
	return ExportKey{Kind: ExportSpvEntryPoint, Params: params, InterfaceGlobalVars: interfaceGlobalVars}
}

func (key *ExportKey) encode(k *keyBuilder) {
	k.u8(uint8(key.Kind))
	switch key.Kind {
	case ExportLinkName:
		k.istr(key.LinkName)
	case ExportSpvEntryPoint:
		encodeImms(k, key.Params)
		k.u32(uint32(len(key.InterfaceGlobalVars)))
		for _, gv := range key.InterfaceGlobalVars {
			k.u32(gv.idx)
		}
	}
}

// ExporteeKind selects the Exportee variant.
type ExporteeKind uint8

const (
	ExporteeGlobalVar ExporteeKind = iota
	ExporteeFunc
)

// Exportee is the exported entity.
type Exportee struct {
	Kind      ExporteeKind
	GlobalVar GlobalVar
	Func      Func
}

// GlobalVarExportee wraps a global variable.
func GlobalVarExportee(gv GlobalVar) Exportee {
	return Exportee{Kind: ExporteeGlobalVar, GlobalVar: gv}
}

// FuncExportee wraps a function.
func FuncExportee(f Func) Exportee { return Exportee{Kind: ExporteeFunc, Func: f} }

// Export is one entry of the export table.
type Export struct {
	Key      ExportKey
	Exportee Exportee
}

type exportTable struct {
	entries []Export
	index   map[string]int
}

func newExportTable() exportTable {
	return exportTable{index: make(map[string]int)}
}

// Export adds an entry to the export table. Keys are unique: adding a key
// that is already present fails with ErrDuplicateExport and leaves the
// table unchanged. The exportee and any interface variables must belong to
// m, otherwise ErrDanglingExportee.
func (m *Module) Export(key ExportKey, exportee Exportee) error {
	switch exportee.Kind {
	case ExporteeGlobalVar:
		if !m.owns(exportee.GlobalVar) {
			return fmt.Errorf("%w: global variable", ErrDanglingExportee)
		}
	case ExporteeFunc:
		if !m.ownsFunc(exportee.Func) {
			return fmt.Errorf("%w: function", ErrDanglingExportee)
		}
	default:
		return fmt.Errorf("%w: unknown exportee kind %d", ErrDanglingExportee, exportee.Kind)
	}
	for i, gv := range key.InterfaceGlobalVars {
		if !m.owns(gv) {
			return fmt.Errorf("%w: interface variable %d", ErrDanglingExportee, i)
		}
	}

	k := keyBuilder{cx: m.cx}
	key.encode(&k)
	s := k.String()
	if _, dup := m.exports.index[s]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateExport, key.describe())
	}
	key.Params = cloneSlice(key.Params)
	key.InterfaceGlobalVars = cloneSlice(key.InterfaceGlobalVars)
	m.exports.index[s] = len(m.exports.entries)
	m.exports.entries = append(m.exports.entries, Export{Key: key, Exportee: exportee})
	return nil
}

// Exports returns the export table in insertion order. The slice must not
// be modified.
func (m *Module) Exports() []Export { return m.exports.entries }

// LookupExport finds the exportee for key.
func (m *Module) LookupExport(key ExportKey) (Exportee, bool) {
	k := keyBuilder{cx: m.cx}
	key.encode(&k)
	i, ok := m.exports.index[k.String()]
	if !ok {
		return Exportee{}, false
	}
	return m.exports.entries[i].Exportee, true
}

func (key *ExportKey) describe() string {
	switch key.Kind {
	case ExportLinkName:
		return fmt.Sprintf("link name %q", key.LinkName.String())
	case ExportSpvEntryPoint:
		if len(key.Params) > 1 {
			if name, _, err := spv.DecodeStringImms(key.Params[1:]); err == nil {
				return fmt.Sprintf("entry point %q", name)
			}
		}
		return "entry point"
	default:
		return "export"
	}
}

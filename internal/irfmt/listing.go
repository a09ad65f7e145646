// Package irfmt renders IR modules for people and for tools: an indented
// text form and a structured Listing that encodes to JSON or MessagePack.
package irfmt

import (
	"fmt"
	"strconv"
	"strings"

	"spvir/internal/ir"
	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// Listing is a printable snapshot of a module. Entities are named by kind
// and position: attribute sets "#attrsN", types "typeN", constants
// "constN" in dependency order; global variables "gvN" and functions
// "funcN" in declaration order. Ids the IR does not track print as "%N".
type Listing struct {
	Version         string         `json:"version" msgpack:"version"`
	Generator       uint32         `json:"generator" msgpack:"generator"`
	Bound           uint32         `json:"bound" msgpack:"bound"`
	Capabilities    []string       `json:"capabilities,omitempty" msgpack:"capabilities,omitempty"`
	Extensions      []string       `json:"extensions,omitempty" msgpack:"extensions,omitempty"`
	AddressingModel string         `json:"addressing_model" msgpack:"addressing_model"`
	MemoryModel     string         `json:"memory_model" msgpack:"memory_model"`
	SourceExts      []string       `json:"source_extensions,omitempty" msgpack:"source_extensions,omitempty"`
	Processes       []string       `json:"processes,omitempty" msgpack:"processes,omitempty"`
	AttrSets        []AttrSetEntry `json:"attr_sets,omitempty" msgpack:"attr_sets,omitempty"`
	Types           []ValueEntry   `json:"types,omitempty" msgpack:"types,omitempty"`
	Consts          []ValueEntry   `json:"consts,omitempty" msgpack:"consts,omitempty"`
	GlobalVars      []GlobalEntry  `json:"global_vars,omitempty" msgpack:"global_vars,omitempty"`
	Funcs           []FuncEntry    `json:"funcs,omitempty" msgpack:"funcs,omitempty"`
	Globals         []InstEntry    `json:"globals,omitempty" msgpack:"globals,omitempty"`
	Exports         []ExportEntry  `json:"exports,omitempty" msgpack:"exports,omitempty"`
}

// AttrSetEntry is one non-empty attribute set.
type AttrSetEntry struct {
	Name  string   `json:"name" msgpack:"name"`
	Attrs []string `json:"attrs" msgpack:"attrs"`
}

// ValueEntry is one type or constant.
type ValueEntry struct {
	Name  string   `json:"name" msgpack:"name"`
	Attrs string   `json:"attrs,omitempty" msgpack:"attrs,omitempty"`
	Type  string   `json:"type,omitempty" msgpack:"type,omitempty"`
	Ctor  string   `json:"ctor" msgpack:"ctor"`
	Args  []string `json:"args,omitempty" msgpack:"args,omitempty"`
}

// GlobalEntry is one global variable.
type GlobalEntry struct {
	Name        string `json:"name" msgpack:"name"`
	ID          uint32 `json:"id,omitempty" msgpack:"id,omitempty"`
	Attrs       string `json:"attrs,omitempty" msgpack:"attrs,omitempty"`
	Type        string `json:"type" msgpack:"type"`
	AddrSpace   string `json:"addr_space" msgpack:"addr_space"`
	Import      string `json:"import,omitempty" msgpack:"import,omitempty"`
	Initializer string `json:"initializer,omitempty" msgpack:"initializer,omitempty"`
}

// FuncEntry is one function. Body is empty for imports.
type FuncEntry struct {
	Name    string      `json:"name" msgpack:"name"`
	ID      uint32      `json:"id,omitempty" msgpack:"id,omitempty"`
	Attrs   string      `json:"attrs,omitempty" msgpack:"attrs,omitempty"`
	RetType string      `json:"ret_type" msgpack:"ret_type"`
	Type    string      `json:"type" msgpack:"type"`
	Import  string      `json:"import,omitempty" msgpack:"import,omitempty"`
	Body    []InstEntry `json:"body,omitempty" msgpack:"body,omitempty"`
}

// InstEntry is one instruction.
type InstEntry struct {
	Attrs      string   `json:"attrs,omitempty" msgpack:"attrs,omitempty"`
	Result     string   `json:"result,omitempty" msgpack:"result,omitempty"`
	ResultType string   `json:"result_type,omitempty" msgpack:"result_type,omitempty"`
	Op         string   `json:"op" msgpack:"op"`
	Operands   []string `json:"operands,omitempty" msgpack:"operands,omitempty"`
}

// ExportEntry maps an export key to what it exports.
type ExportEntry struct {
	Key      string `json:"key" msgpack:"key"`
	Exportee string `json:"exportee" msgpack:"exportee"`
}

// namer assigns the printable names of a listing.
type namer struct {
	attrs  map[ir.AttrSet]string
	types  map[ir.Type]string
	consts map[ir.Const]string
	gvs    map[ir.GlobalVar]string
	funcs  map[ir.Func]string
	empty  ir.AttrSet
}

func (n *namer) attrSet(a ir.AttrSet) string {
	if a == n.empty {
		return ""
	}
	return n.attrs[a]
}

func (n *namer) typ(t ir.Type) string {
	if name, ok := n.types[t]; ok {
		return name
	}
	return "<type?>"
}

func (n *namer) cnst(c ir.Const) string {
	if name, ok := n.consts[c]; ok {
		return name
	}
	return "<const?>"
}

func (n *namer) fn(f ir.Func) string {
	if name, ok := n.funcs[f]; ok {
		return name
	}
	return "<func?>"
}

func idName(id spv.ID) string { return "%" + strconv.FormatUint(uint64(id), 10) }

// Build snapshots m. Modules of a dialect other than SPIR-V only get their
// entities listed.
func Build(m *ir.Module) *Listing {
	c := ir.NewCollector().CollectModule(m)
	n := &namer{
		attrs:  make(map[ir.AttrSet]string, len(c.AttrSets)),
		types:  make(map[ir.Type]string, len(c.Types)),
		consts: make(map[ir.Const]string, len(c.Consts)),
		gvs:    make(map[ir.GlobalVar]string, m.NumGlobalVars()),
		funcs:  make(map[ir.Func]string, m.NumFuncs()),
		empty:  m.Cx().EmptyAttrSet(),
	}
	l := &Listing{}

	for _, a := range c.AttrSets {
		if a == n.empty {
			continue
		}
		n.attrs[a] = fmt.Sprintf("#attrs%d", len(l.AttrSets))
		l.AttrSets = append(l.AttrSets, AttrSetEntry{Name: n.attrs[a], Attrs: formatAttrs(a.Def().Attrs)})
	}
	for i, t := range c.Types {
		n.types[t] = fmt.Sprintf("type%d", i)
	}
	for i, ct := range c.Consts {
		n.consts[ct] = fmt.Sprintf("const%d", i)
	}
	for i, gv := range m.GlobalVars() {
		n.gvs[gv] = fmt.Sprintf("gv%d", i)
	}
	for i, f := range m.Funcs() {
		n.funcs[f] = fmt.Sprintf("func%d", i)
	}

	if m.Dialect.Kind == ir.DialectSpv {
		wk := &spec.Get().WellKnown
		d := &m.Dialect.Spv
		l.Version = fmt.Sprintf("%d.%d", d.VersionMajor, d.VersionMinor)
		for _, capability := range d.Capabilities {
			l.Capabilities = append(l.Capabilities, enumName(wk.Capability, capability))
		}
		l.Extensions = append(l.Extensions, d.Extensions...)
		l.AddressingModel = enumName(wk.AddressingModel, d.AddressingModel)
		l.MemoryModel = enumName(wk.MemoryModel, d.MemoryModel)
	}
	if m.DebugInfo.Kind == ir.DialectSpv {
		di := &m.DebugInfo.Spv
		l.Generator = di.OriginalGeneratorMagic
		l.Bound = di.OriginalIDBound
		l.SourceExts = append(l.SourceExts, di.SourceExtensions...)
		l.Processes = append(l.Processes, di.ModuleProcesses...)
	}

	for _, t := range c.Types {
		def := t.Def()
		e := ValueEntry{Name: n.types[t], Attrs: n.attrSet(def.Attrs), Ctor: def.Ctor.Name()}
		var imms []spv.Imm
		for _, arg := range def.CtorArgs {
			switch arg.Kind {
			case ir.TypeCtorArgSpvImm:
				imms = append(imms, arg.Imm)
				continue
			case ir.TypeCtorArgType:
				e.Args = append(e.Args, formatImms(imms)...)
				e.Args = append(e.Args, n.typ(arg.Type))
			case ir.TypeCtorArgConst:
				e.Args = append(e.Args, formatImms(imms)...)
				e.Args = append(e.Args, n.cnst(arg.Const))
			}
			imms = imms[:0]
		}
		e.Args = append(e.Args, formatImms(imms)...)
		l.Types = append(l.Types, e)
	}
	for _, ct := range c.Consts {
		def := ct.Def()
		e := ValueEntry{Name: n.consts[ct], Attrs: n.attrSet(def.Attrs), Type: n.typ(def.Type), Ctor: def.Ctor.Name()}
		var imms []spv.Imm
		for _, arg := range def.CtorArgs {
			switch arg.Kind {
			case ir.ConstCtorArgSpvImm:
				imms = append(imms, arg.Imm)
				continue
			case ir.ConstCtorArgConst:
				e.Args = append(e.Args, formatImms(imms)...)
				e.Args = append(e.Args, n.cnst(arg.Const))
			case ir.ConstCtorArgSpvUntrackedGlobalVarID:
				e.Args = append(e.Args, formatImms(imms)...)
				e.Args = append(e.Args, idName(arg.ID))
			}
			imms = imms[:0]
		}
		e.Args = append(e.Args, formatImms(imms)...)
		l.Consts = append(l.Consts, e)
	}

	for _, gv := range m.GlobalVars() {
		decl := gv.Decl()
		e := GlobalEntry{
			Name:  n.gvs[gv],
			ID:    uint32(decl.SpvResultID),
			Attrs: n.attrSet(decl.Attrs),
			Type:  n.typ(decl.TypeOfPtrTo),
		}
		e.AddrSpace = enumName(spec.Get().WellKnown.StorageClass, decl.AddrSpace.StorageClass)
		decl.Def.Match(
			func(imp *ir.Import) { e.Import = imp.LinkName.String() },
			func(body *ir.GlobalVarDefBody) {
				if body.Initializer.IsValid() {
					e.Initializer = n.cnst(body.Initializer)
				}
			},
		)
		l.GlobalVars = append(l.GlobalVars, e)
	}
	for _, f := range m.Funcs() {
		decl := f.Decl()
		e := FuncEntry{
			Name:    n.funcs[f],
			ID:      uint32(decl.SpvResultID),
			Attrs:   n.attrSet(decl.Attrs),
			RetType: n.typ(decl.RetType),
			Type:    n.typ(decl.Type),
		}
		decl.Def.Match(
			func(imp *ir.Import) { e.Import = imp.LinkName.String() },
			func(body *ir.FuncDefBody) {
				for i := range body.Insts {
					e.Body = append(e.Body, n.inst(&body.Insts[i]))
				}
			},
		)
		l.Funcs = append(l.Funcs, e)
	}
	for i := range m.Globals {
		l.Globals = append(l.Globals, n.inst(&m.Globals[i].Misc))
	}
	for _, ex := range m.Exports() {
		e := ExportEntry{Key: n.exportKey(&ex.Key)}
		switch ex.Exportee.Kind {
		case ir.ExporteeGlobalVar:
			e.Exportee = n.gvs[ex.Exportee.GlobalVar]
		case ir.ExporteeFunc:
			e.Exportee = n.fn(ex.Exportee.Func)
		}
		l.Exports = append(l.Exports, e)
	}
	return l
}

func (n *namer) inst(m *ir.Misc) InstEntry {
	e := InstEntry{Attrs: n.attrSet(m.Attrs), Op: m.Kind.Name()}
	if m.Kind.Tag == ir.MiscFuncCall {
		e.Operands = append(e.Operands, n.fn(m.Kind.Func))
	}
	if out := m.Output; out != nil {
		e.Result = idName(out.ResultID)
		if out.Kind == ir.SpvValueResult {
			e.ResultType = n.typ(out.ResultType)
		}
	}
	var imms []spv.Imm
	flush := func() {
		e.Operands = append(e.Operands, formatImms(imms)...)
		imms = imms[:0]
	}
	for _, in := range m.Inputs {
		switch in.Kind {
		case ir.MiscInputSpvImm:
			imms = append(imms, in.Imm)
			continue
		case ir.MiscInputType:
			flush()
			e.Operands = append(e.Operands, n.typ(in.Type))
		case ir.MiscInputConst:
			flush()
			e.Operands = append(e.Operands, n.cnst(in.Const))
		case ir.MiscInputSpvUntrackedID:
			flush()
			e.Operands = append(e.Operands, idName(in.ID))
		case ir.MiscInputSpvExtInstImport:
			flush()
			e.Operands = append(e.Operands, strconv.Quote(in.ExtInstImport.String()))
		}
	}
	flush()
	return e
}

func (n *namer) exportKey(key *ir.ExportKey) string {
	switch key.Kind {
	case ir.ExportLinkName:
		return strconv.Quote(key.LinkName.String())
	case ir.ExportSpvEntryPoint:
		parts := formatImms(key.Params)
		for _, gv := range key.InterfaceGlobalVars {
			parts = append(parts, n.gvs[gv])
		}
		return "EntryPoint(" + strings.Join(parts, ", ") + ")"
	default:
		return "?"
	}
}

func formatAttrs(attrs []ir.Attr) []string {
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		switch a.Kind {
		case ir.AttrSpvAnnotation:
			out = append(out, a.Annotation.Opcode.Name()+"("+strings.Join(formatImms(a.Annotation.Params), ", ")+")")
		case ir.AttrSpvEntryPoint:
			parts := formatImms(a.EntryPoint.Params)
			for _, id := range a.EntryPoint.InterfaceIDs {
				parts = append(parts, idName(id))
			}
			out = append(out, "EntryPoint("+strings.Join(parts, ", ")+")")
		case ir.AttrSpvDebugLine:
			dl := a.DebugLine
			out = append(out, fmt.Sprintf("line %q:%d:%d", dl.FilePath.V.String(), dl.Line, dl.Col))
		}
	}
	return out
}

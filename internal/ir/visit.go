package ir

import (
	"spvir/internal/spv"
)

// Visitor is the required part of a traversal: one hook per use of an
// interned or module-owned entity. There are no defaults. Whether a use is
// followed into its definition, and how often, is the visitor's call.
type Visitor interface {
	VisitAttrSetUse(AttrSet)
	VisitTypeUse(Type)
	VisitConstUse(Const)
	VisitGlobalVarUse(GlobalVar)
	VisitFuncUse(Func)
}

// InnerVisit is implemented by composite nodes. InnerVisitWith descends one
// level: it hands every field to the matching use hook or Visit function.
type InnerVisit interface {
	InnerVisitWith(v Visitor)
}

// A Visitor may also implement any of the interfaces below to override how
// one kind of node is visited. Overrides of composite nodes can call the
// node's InnerVisitWith to keep the default descent.

// Leaf nodes. Their default is to do nothing.
type (
	SpvDialectVisitor         interface{ VisitSpvDialect(*spv.Dialect) }
	SpvModuleDebugInfoVisitor interface{ VisitSpvModuleDebugInfo(*spv.ModuleDebugInfo) }
	AttrVisitor               interface{ VisitAttr(*Attr) }
	ImportVisitor             interface{ VisitImport(*Import) }
)

// Composite nodes. Their default is InnerVisitWith.
type (
	ModuleVisitor          interface{ VisitModule(*Module) }
	ModuleDialectVisitor   interface{ VisitModuleDialect(*ModuleDialect) }
	ModuleDebugInfoVisitor interface{ VisitModuleDebugInfo(*ModuleDebugInfo) }
	AttrSetDefVisitor      interface{ VisitAttrSetDef(*AttrSetDef) }
	TypeDefVisitor         interface{ VisitTypeDef(*TypeDef) }
	ConstDefVisitor        interface{ VisitConstDef(*ConstDef) }
	GlobalVarDeclVisitor   interface{ VisitGlobalVarDecl(*GlobalVarDecl) }
	FuncDeclVisitor        interface{ VisitFuncDecl(*FuncDecl) }
	MiscVisitor            interface{ VisitMisc(*Misc) }
	MiscOutputVisitor      interface{ VisitMiscOutput(*MiscOutput) }
	MiscInputVisitor       interface{ VisitMiscInput(*MiscInput) }
)

// The Visit functions call v's override for the node kind if it has one and
// the default otherwise.

func VisitSpvDialect(v Visitor, d *spv.Dialect) {
	if o, ok := v.(SpvDialectVisitor); ok {
		o.VisitSpvDialect(d)
	}
}

func VisitSpvModuleDebugInfo(v Visitor, d *spv.ModuleDebugInfo) {
	if o, ok := v.(SpvModuleDebugInfoVisitor); ok {
		o.VisitSpvModuleDebugInfo(d)
	}
}

func VisitAttr(v Visitor, a *Attr) {
	if o, ok := v.(AttrVisitor); ok {
		o.VisitAttr(a)
	}
}

func VisitImport(v Visitor, imp *Import) {
	if o, ok := v.(ImportVisitor); ok {
		o.VisitImport(imp)
	}
}

func VisitModule(v Visitor, m *Module) {
	if o, ok := v.(ModuleVisitor); ok {
		o.VisitModule(m)
		return
	}
	m.InnerVisitWith(v)
}

func VisitModuleDialect(v Visitor, d *ModuleDialect) {
	if o, ok := v.(ModuleDialectVisitor); ok {
		o.VisitModuleDialect(d)
		return
	}
	d.InnerVisitWith(v)
}

func VisitModuleDebugInfo(v Visitor, d *ModuleDebugInfo) {
	if o, ok := v.(ModuleDebugInfoVisitor); ok {
		o.VisitModuleDebugInfo(d)
		return
	}
	d.InnerVisitWith(v)
}

func VisitAttrSetDef(v Visitor, def *AttrSetDef) {
	if o, ok := v.(AttrSetDefVisitor); ok {
		o.VisitAttrSetDef(def)
		return
	}
	def.InnerVisitWith(v)
}

func VisitTypeDef(v Visitor, def *TypeDef) {
	if o, ok := v.(TypeDefVisitor); ok {
		o.VisitTypeDef(def)
		return
	}
	def.InnerVisitWith(v)
}

func VisitConstDef(v Visitor, def *ConstDef) {
	if o, ok := v.(ConstDefVisitor); ok {
		o.VisitConstDef(def)
		return
	}
	def.InnerVisitWith(v)
}

func VisitGlobalVarDecl(v Visitor, decl *GlobalVarDecl) {
	if o, ok := v.(GlobalVarDeclVisitor); ok {
		o.VisitGlobalVarDecl(decl)
		return
	}
	decl.InnerVisitWith(v)
}

func VisitFuncDecl(v Visitor, decl *FuncDecl) {
	if o, ok := v.(FuncDeclVisitor); ok {
		o.VisitFuncDecl(decl)
		return
	}
	decl.InnerVisitWith(v)
}

func VisitMisc(v Visitor, misc *Misc) {
	if o, ok := v.(MiscVisitor); ok {
		o.VisitMisc(misc)
		return
	}
	misc.InnerVisitWith(v)
}

func VisitMiscOutput(v Visitor, out *MiscOutput) {
	if o, ok := v.(MiscOutputVisitor); ok {
		o.VisitMiscOutput(out)
		return
	}
	out.InnerVisitWith(v)
}

func VisitMiscInput(v Visitor, in *MiscInput) {
	if o, ok := v.(MiscInputVisitor); ok {
		o.VisitMiscInput(in)
		return
	}
	in.InnerVisitWith(v)
}

// InnerVisitWith visits the dialect, the debug info, one use per global
// variable and per function, and every module-scope instruction. The export
// table is not part of it; callers that need it call VisitExports.
func (m *Module) InnerVisitWith(v Visitor) {
	VisitModuleDialect(v, &m.Dialect)
	VisitModuleDebugInfo(v, &m.DebugInfo)
	for _, gv := range m.GlobalVars() {
		v.VisitGlobalVarUse(gv)
	}
	for _, f := range m.Funcs() {
		v.VisitFuncUse(f)
	}
	for i := range m.Globals {
		VisitMisc(v, &m.Globals[i].Misc)
	}
}

// VisitExports visits every export key and exportee in table order.
func (m *Module) VisitExports(v Visitor) {
	for i := range m.exports.entries {
		e := &m.exports.entries[i]
		e.Key.InnerVisitWith(v)
		e.Exportee.InnerVisitWith(v)
	}
}

func (d *ModuleDialect) InnerVisitWith(v Visitor) {
	switch d.Kind {
	case DialectSpv:
		VisitSpvDialect(v, &d.Spv)
	}
}

func (d *ModuleDebugInfo) InnerVisitWith(v Visitor) {
	switch d.Kind {
	case DialectSpv:
		VisitSpvModuleDebugInfo(v, &d.Spv)
	}
}

func (key *ExportKey) InnerVisitWith(v Visitor) {
	switch key.Kind {
	case ExportLinkName:
	case ExportSpvEntryPoint:
		for _, gv := range key.InterfaceGlobalVars {
			v.VisitGlobalVarUse(gv)
		}
	}
}

func (e *Exportee) InnerVisitWith(v Visitor) {
	switch e.Kind {
	case ExporteeGlobalVar:
		v.VisitGlobalVarUse(e.GlobalVar)
	case ExporteeFunc:
		v.VisitFuncUse(e.Func)
	}
}

func (def *AttrSetDef) InnerVisitWith(v Visitor) {
	for i := range def.Attrs {
		VisitAttr(v, &def.Attrs[i])
	}
}

func (def *TypeDef) InnerVisitWith(v Visitor) {
	v.VisitAttrSetUse(def.Attrs)
	for _, arg := range def.CtorArgs {
		switch arg.Kind {
		case TypeCtorArgType:
			v.VisitTypeUse(arg.Type)
		case TypeCtorArgConst:
			v.VisitConstUse(arg.Const)
		case TypeCtorArgSpvImm:
		}
	}
}

func (def *ConstDef) InnerVisitWith(v Visitor) {
	v.VisitAttrSetUse(def.Attrs)
	v.VisitTypeUse(def.Type)
	for _, arg := range def.CtorArgs {
		switch arg.Kind {
		case ConstCtorArgConst:
			v.VisitConstUse(arg.Const)
		case ConstCtorArgSpvImm, ConstCtorArgSpvUntrackedGlobalVarID:
		}
	}
}

// InnerVisitWith visits the import or the definition, never both.
func (dd *DeclDef[D]) InnerVisitWith(v Visitor) {
	dd.Match(
		func(imp *Import) { VisitImport(v, imp) },
		func(def *D) { (*def).InnerVisitWith(v) },
	)
}

func (decl *GlobalVarDecl) InnerVisitWith(v Visitor) {
	v.VisitAttrSetUse(decl.Attrs)
	v.VisitTypeUse(decl.TypeOfPtrTo)
	decl.Def.InnerVisitWith(v)
}

func (body GlobalVarDefBody) InnerVisitWith(v Visitor) {
	if body.Initializer.IsValid() {
		v.VisitConstUse(body.Initializer)
	}
}

func (decl *FuncDecl) InnerVisitWith(v Visitor) {
	v.VisitAttrSetUse(decl.Attrs)
	v.VisitTypeUse(decl.RetType)
	v.VisitTypeUse(decl.Type)
	decl.Def.InnerVisitWith(v)
}

func (body FuncDefBody) InnerVisitWith(v Visitor) {
	for i := range body.Insts {
		VisitMisc(v, &body.Insts[i])
	}
}

func (misc *Misc) InnerVisitWith(v Visitor) {
	v.VisitAttrSetUse(misc.Attrs)
	if misc.Kind.Tag == MiscFuncCall {
		v.VisitFuncUse(misc.Kind.Func)
	}
	if misc.Output != nil {
		VisitMiscOutput(v, misc.Output)
	}
	for i := range misc.Inputs {
		VisitMiscInput(v, &misc.Inputs[i])
	}
}

func (out *MiscOutput) InnerVisitWith(v Visitor) {
	if out.Kind == SpvValueResult {
		v.VisitTypeUse(out.ResultType)
	}
}

func (in *MiscInput) InnerVisitWith(v Visitor) {
	switch in.Kind {
	case MiscInputType:
		v.VisitTypeUse(in.Type)
	case MiscInputConst:
		v.VisitConstUse(in.Const)
	case MiscInputSpvImm, MiscInputSpvUntrackedID, MiscInputSpvExtInstImport:
	}
}

package lift

import (
	"spvir/internal/ir"
)

// valueKind tells which field of a value is set.
type valueKind uint8

const (
	valueType valueKind = iota
	valueConst
)

// value is one entry of the types-and-constants section.
type value struct {
	kind valueKind
	typ  ir.Type
	cnst ir.Const
}

// orderer is a deep visitor that records types and constants in a single
// post-order, so that every value comes after the values it refers to.
// Global variables and functions are followed so that the values only
// they use are found too.
type orderer struct {
	values []value

	seenTypes      map[ir.Type]struct{}
	seenConsts     map[ir.Const]struct{}
	seenGlobalVars map[ir.GlobalVar]struct{}
	seenFuncs      map[ir.Func]struct{}
}

func newOrderer() *orderer {
	return &orderer{
		seenTypes:      make(map[ir.Type]struct{}),
		seenConsts:     make(map[ir.Const]struct{}),
		seenGlobalVars: make(map[ir.GlobalVar]struct{}),
		seenFuncs:      make(map[ir.Func]struct{}),
	}
}

// Attribute sets hold no types or constants.
func (o *orderer) VisitAttrSetUse(ir.AttrSet) {}

func (o *orderer) VisitTypeUse(t ir.Type) {
	if _, ok := o.seenTypes[t]; ok {
		return
	}
	o.seenTypes[t] = struct{}{}
	ir.VisitTypeDef(o, t.Def())
	o.values = append(o.values, value{kind: valueType, typ: t})
}

func (o *orderer) VisitConstUse(c ir.Const) {
	if _, ok := o.seenConsts[c]; ok {
		return
	}
	o.seenConsts[c] = struct{}{}
	ir.VisitConstDef(o, c.Def())
	o.values = append(o.values, value{kind: valueConst, cnst: c})
}

func (o *orderer) VisitGlobalVarUse(gv ir.GlobalVar) {
	if _, ok := o.seenGlobalVars[gv]; ok {
		return
	}
	o.seenGlobalVars[gv] = struct{}{}
	ir.VisitGlobalVarDecl(o, gv.Decl())
}

func (o *orderer) VisitFuncUse(f ir.Func) {
	if _, ok := o.seenFuncs[f]; ok {
		return
	}
	o.seenFuncs[f] = struct{}{}
	ir.VisitFuncDecl(o, f.Decl())
}

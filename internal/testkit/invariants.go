package testkit

import (
	"errors"
	"fmt"

	"spvir/internal/ir"
	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// CheckModuleInvariants runs structural checks on a lowered module:
// 1) every global variable and function reached from m belongs to m
// 2) typed results carry a result type, and result ids are unique per body
// 3) present function bodies open with OpLabel after their parameters
// 4) imports name a link target
// All violations are reported together.
func CheckModuleInvariants(m *ir.Module) error {
	if m == nil {
		return errors.New("nil module")
	}
	c := &ownerCheck{m: m}
	ir.VisitModule(c, m)
	m.VisitExports(c)
	errs := c.errs

	for i, gv := range m.GlobalVars() {
		decl := gv.Decl()
		if imp, ok := decl.Def.Import(); ok && imp.LinkName.String() == "" {
			errs = append(errs, fmt.Errorf("gv%d: import without a link name", i))
		}
	}
	for i, f := range m.Funcs() {
		decl := f.Decl()
		if imp, ok := decl.Def.Import(); ok {
			if imp.LinkName.String() == "" {
				errs = append(errs, fmt.Errorf("func%d: import without a link name", i))
			}
			continue
		}
		body, _ := decl.Def.Def()
		errs = append(errs, checkBody(fmt.Sprintf("func%d", i), body)...)
	}
	for i := range m.Globals {
		if err := checkOutput(&m.Globals[i].Misc); err != nil {
			errs = append(errs, fmt.Errorf("global %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func checkBody(name string, body *ir.FuncDefBody) []error {
	var errs []error
	first := 0
	for first < len(body.Insts) && isSpvInst(&body.Insts[first], spec.OpFunctionParameter) {
		first++
	}
	if first == len(body.Insts) || !isSpvInst(&body.Insts[first], spec.OpLabel) {
		errs = append(errs, fmt.Errorf("%s: body does not open with OpLabel", name))
	}
	seen := make(map[spv.ID]int)
	for i := range body.Insts {
		in := &body.Insts[i]
		if err := checkOutput(in); err != nil {
			errs = append(errs, fmt.Errorf("%s inst %d: %w", name, i, err))
			continue
		}
		if in.Output == nil {
			continue
		}
		if prev, dup := seen[in.Output.ResultID]; dup {
			errs = append(errs, fmt.Errorf("%s: result %%%d defined at %d and %d", name, in.Output.ResultID, prev, i))
		}
		seen[in.Output.ResultID] = i
	}
	return errs
}

func isSpvInst(in *ir.Misc, op spec.Opcode) bool {
	return in.Kind.Tag == ir.MiscSpvInst && in.Kind.Opcode == op
}

func checkOutput(in *ir.Misc) error {
	out := in.Output
	if out == nil {
		return nil
	}
	if out.ResultID == 0 {
		return fmt.Errorf("%s: result id 0", in.Kind.Name())
	}
	if out.Kind == ir.SpvValueResult && !out.ResultType.IsValid() {
		return fmt.Errorf("%s: value result %%%d without a type", in.Kind.Name(), out.ResultID)
	}
	return nil
}

// ownerCheck follows every use into its definition once and records any
// module-owned entity that belongs to another module.
type ownerCheck struct {
	m      *ir.Module
	types  map[uint32]bool
	consts map[uint32]bool
	gvs    map[ir.GlobalVar]bool
	funcs  map[ir.Func]bool
	errs   []error
}

func (c *ownerCheck) VisitAttrSetUse(a ir.AttrSet) {}

func (c *ownerCheck) VisitTypeUse(t ir.Type) {
	if c.types == nil {
		c.types = make(map[uint32]bool)
	}
	if c.types[t.Index()] {
		return
	}
	c.types[t.Index()] = true
	ir.VisitTypeDef(c, t.Def())
}

func (c *ownerCheck) VisitConstUse(k ir.Const) {
	if c.consts == nil {
		c.consts = make(map[uint32]bool)
	}
	if c.consts[k.Index()] {
		return
	}
	c.consts[k.Index()] = true
	ir.VisitConstDef(c, k.Def())
}

func (c *ownerCheck) VisitGlobalVarUse(gv ir.GlobalVar) {
	if gv.Module() != c.m {
		c.errs = append(c.errs, fmt.Errorf("global variable %d belongs to another module", gv.Index()))
		return
	}
	if c.gvs == nil {
		c.gvs = make(map[ir.GlobalVar]bool)
	}
	if c.gvs[gv] {
		return
	}
	c.gvs[gv] = true
	ir.VisitGlobalVarDecl(c, gv.Decl())
}

func (c *ownerCheck) VisitFuncUse(f ir.Func) {
	if f.Module() != c.m {
		c.errs = append(c.errs, fmt.Errorf("function %d belongs to another module", f.Index()))
		return
	}
	if c.funcs == nil {
		c.funcs = make(map[ir.Func]bool)
	}
	if c.funcs[f] {
		return
	}
	c.funcs[f] = true
	ir.VisitFuncDecl(c, f.Decl())
}

package lift

import (
	"fmt"

	"spvir/internal/ir"
	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// emitValues emits types, constants, global variables and the remaining
// module-scope instructions. Constants that name a global variable wait
// until that variable has been emitted.
func (e *emitter) emitValues() error {
	gvByID := make(map[spv.ID]ir.GlobalVar, len(e.globalVars))
	for gv, id := range e.globalVars {
		gvByID[id] = gv
	}
	doneGV := make(map[ir.GlobalVar]struct{}, len(e.globalVars))
	doneType := make(map[ir.Type]struct{}, len(e.typeIDs))
	doneConst := make(map[ir.Const]struct{}, len(e.constIDs))

	ready := func(v value) bool {
		if v.kind == valueType {
			for _, arg := range v.typ.Def().CtorArgs {
				switch arg.Kind {
				case ir.TypeCtorArgType:
					if _, ok := doneType[arg.Type]; !ok {
						return false
					}
				case ir.TypeCtorArgConst:
					if _, ok := doneConst[arg.Const]; !ok {
						return false
					}
				}
			}
			return true
		}
		def := v.cnst.Def()
		if _, ok := doneType[def.Type]; !ok {
			return false
		}
		for _, arg := range def.CtorArgs {
			switch arg.Kind {
			case ir.ConstCtorArgConst:
				if _, ok := doneConst[arg.Const]; !ok {
					return false
				}
			case ir.ConstCtorArgSpvUntrackedGlobalVarID:
				if gv, ok := gvByID[arg.ID]; ok {
					if _, done := doneGV[gv]; !done {
						return false
					}
				}
			}
		}
		return true
	}
	emitValue := func(v value) error {
		if v.kind == valueType {
			doneType[v.typ] = struct{}{}
			return e.typeInst(v.typ)
		}
		doneConst[v.cnst] = struct{}{}
		return e.constInst(v.cnst)
	}

	var deferred []value
	flush := func(force bool) error {
		for progress := true; progress && len(deferred) > 0; {
			progress = false
			rest := deferred[:0]
			for _, v := range deferred {
				if force || ready(v) {
					if err := emitValue(v); err != nil {
						return err
					}
					progress = true
					continue
				}
				rest = append(rest, v)
			}
			deferred = rest
		}
		return nil
	}

	for _, v := range e.order.values {
		if !ready(v) {
			deferred = append(deferred, v)
			continue
		}
		if err := emitValue(v); err != nil {
			return err
		}
	}
	for _, gv := range e.m.GlobalVars() {
		if err := flush(false); err != nil {
			return err
		}
		if err := e.globalVarInst(gv); err != nil {
			return err
		}
		doneGV[gv] = struct{}{}
	}
	if err := flush(true); err != nil {
		return err
	}

	for i := range e.m.Globals {
		g := &e.m.Globals[i].Misc
		inst, err := e.miscInst(g)
		if err != nil {
			return err
		}
		switch inst.Opcode {
		case spec.OpString:
			e.add(secDebugString, inst)
		case spec.OpSource, spec.OpSourceContinued:
			e.add(secDebugSource, inst)
		default:
			e.lined(secValues, g.Attrs, inst)
		}
		if err := e.annotate(inst.ResultID, g.Attrs); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) typeInst(t ir.Type) error {
	def := t.Def()
	if def.Ctor.Kind != ir.TypeCtorSpvInst {
		return fmt.Errorf("lift: %w: type constructor %s", ErrUnrepresentable, def.Ctor.Name())
	}
	id := e.typeIDs[t]
	ops := make([]spv.Operand, 0, len(def.CtorArgs))
	for _, arg := range def.CtorArgs {
		switch arg.Kind {
		case ir.TypeCtorArgType:
			ops = append(ops, e.idOperand(e.typeIDs[arg.Type]))
		case ir.TypeCtorArgConst:
			ops = append(ops, e.idOperand(e.constIDs[arg.Const]))
		case ir.TypeCtorArgSpvImm:
			ops = append(ops, spv.ImmOperand(arg.Imm))
		}
	}
	e.lined(secValues, def.Attrs, spv.Inst{Opcode: def.Ctor.Opcode, ResultID: id, Operands: ops})
	return e.annotate(id, def.Attrs)
}

func (e *emitter) constInst(c ir.Const) error {
	def := c.Def()
	if def.Ctor.Kind != ir.ConstCtorSpvInst {
		return fmt.Errorf("lift: %w: constant constructor %s", ErrUnrepresentable, def.Ctor.Name())
	}
	ty, err := e.typeID(def.Type)
	if err != nil {
		return err
	}
	id := e.constIDs[c]
	ops := make([]spv.Operand, 0, len(def.CtorArgs))
	for _, arg := range def.CtorArgs {
		switch arg.Kind {
		case ir.ConstCtorArgConst:
			ops = append(ops, e.idOperand(e.constIDs[arg.Const]))
		case ir.ConstCtorArgSpvImm:
			ops = append(ops, spv.ImmOperand(arg.Imm))
		case ir.ConstCtorArgSpvUntrackedGlobalVarID:
			ops = append(ops, e.idOperand(arg.ID))
		}
	}
	e.lined(secValues, def.Attrs, spv.Inst{Opcode: def.Ctor.Opcode, ResultTypeID: ty, ResultID: id, Operands: ops})
	return e.annotate(id, def.Attrs)
}

func (e *emitter) globalVarInst(gv ir.GlobalVar) error {
	decl := gv.Decl()
	ty, err := e.typeID(decl.TypeOfPtrTo)
	if err != nil {
		return err
	}
	id := e.globalVars[gv]
	ops := []spv.Operand{e.imm(e.wk.StorageClass, decl.AddrSpace.StorageClass)}
	var failed error
	decl.Def.Match(
		func(imp *ir.Import) { e.linkage(id, imp.LinkName, spec.LinkageImport) },
		func(body *ir.GlobalVarDefBody) {
			if !body.Initializer.IsValid() {
				return
			}
			init, err := e.constID(body.Initializer)
			if err != nil {
				failed = err
				return
			}
			ops = append(ops, e.idOperand(init))
		},
	)
	if failed != nil {
		return failed
	}
	e.lined(secValues, decl.Attrs, spv.Inst{Opcode: spec.OpVariable, ResultTypeID: ty, ResultID: id, Operands: ops})
	return e.annotate(id, decl.Attrs)
}

// miscInst rebuilds the SPIR-V instruction for m.
func (e *emitter) miscInst(m *ir.Misc) (spv.Inst, error) {
	inst := spv.Inst{Opcode: m.Kind.Opcode}
	if m.Kind.Tag == ir.MiscFuncCall {
		callee, ok := e.funcs[m.Kind.Func]
		if !ok {
			return inst, fmt.Errorf("lift: %w: call of a function outside the module", ErrUnrepresentable)
		}
		inst.Opcode = spec.OpFunctionCall
		inst.Operands = append(inst.Operands, e.idOperand(callee))
	}
	if out := m.Output; out != nil {
		inst.ResultID = out.ResultID
		if out.Kind == ir.SpvValueResult {
			ty, err := e.typeID(out.ResultType)
			if err != nil {
				return inst, err
			}
			inst.ResultTypeID = ty
		}
	}
	for _, in := range m.Inputs {
		switch in.Kind {
		case ir.MiscInputType:
			id, err := e.typeID(in.Type)
			if err != nil {
				return inst, err
			}
			inst.Operands = append(inst.Operands, e.idOperand(id))
		case ir.MiscInputConst:
			id, err := e.constID(in.Const)
			if err != nil {
				return inst, err
			}
			inst.Operands = append(inst.Operands, e.idOperand(id))
		case ir.MiscInputSpvImm:
			inst.Operands = append(inst.Operands, spv.ImmOperand(in.Imm))
		case ir.MiscInputSpvUntrackedID:
			inst.Operands = append(inst.Operands, e.idOperand(in.ID))
		case ir.MiscInputSpvExtInstImport:
			inst.Operands = append(inst.Operands, e.idOperand(e.extImports[in.ExtInstImport]))
		}
	}
	return inst, nil
}

package lower

import (
	"fmt"
	"strings"

	"spvir/internal/ir"
	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// build is the second pass: it walks the stream in order and lowers every
// instruction the first pass did not fully consume.
func (l *lowerer) build() error {
	var fb *funcBuilder
	for i := range l.in.Insts {
		if err := l.checkCtx(i); err != nil {
			return err
		}
		inst := &l.in.Insts[i]

		if fb != nil {
			done, err := l.funcInst(fb, i, inst)
			if err != nil {
				return err
			}
			if done {
				fb = nil
			}
			continue
		}

		switch op := inst.Opcode; {
		case isCollected(op):
		case op == spec.OpLine:
			if err := l.setLine(i, inst); err != nil {
				return err
			}
		case op == spec.OpNoLine:
			l.hasLine = false
		case op == spec.OpFunction:
			var err error
			if fb, err = l.beginFunc(i, inst); err != nil {
				return err
			}
		case op == spec.OpVariable:
			if err := l.lowerGlobalVar(i, inst); err != nil {
				return err
			}
		case isType(op):
			if err := l.lowerType(i, inst); err != nil {
				return err
			}
		case isConst(op):
			if err := l.lowerConst(i, inst); err != nil {
				return err
			}
		default:
			misc, err := l.misc(i, inst)
			if err != nil {
				return err
			}
			l.out.Globals = append(l.out.Globals, ir.Global{Misc: misc})
		}
	}
	return nil
}

// isCollected reports whether the first pass already turned op into
// dialect, debug info, attributes or exports.
func isCollected(op spec.Opcode) bool {
	switch op {
	case spec.OpCapability, spec.OpExtension, spec.OpExtInstImport, spec.OpMemoryModel,
		spec.OpEntryPoint, spec.OpExecutionMode, spec.OpSourceExtension, spec.OpModuleProcessed,
		spec.OpName, spec.OpMemberName, spec.OpDecorate, spec.OpMemberDecorate,
		spec.OpDecorateString, spec.OpMemberDecorateString:
		return true
	}
	return false
}

func isType(op spec.Opcode) bool {
	return strings.HasPrefix(op.Name(), "OpType")
}

// isConst matches module-scope constant definitions. OpUndef outside a
// function is treated as a constant too.
func isConst(op spec.Opcode) bool {
	name := op.Name()
	return op == spec.OpUndef || strings.HasPrefix(name, "OpConstant") || strings.HasPrefix(name, "OpSpecConstant")
}

func (l *lowerer) setLine(i int, inst *spv.Inst) error {
	ops := inst.Operands
	if len(ops) != 3 || !ops[0].IsID() {
		return l.fail(i, fmt.Errorf("%w: malformed OpLine", ErrInvalid))
	}
	file, ok := l.strings[ops[0].ID]
	if !ok {
		return l.fail(i, fmt.Errorf("%w: OpLine file %%%d is not an OpString", ErrInvalid, ops[0].ID))
	}
	l.line = ir.DebugLineAttr(file, ops[1].Imm.Value, ops[2].Imm.Value)
	l.hasLine = true
	return nil
}

func (l *lowerer) resultType(i int, id spv.ID) (ir.Type, error) {
	ty, ok := l.types[id]
	if !ok {
		return ir.Type{}, l.fail(i, fmt.Errorf("%w: result type %%%d is not a type", ErrInvalid, id))
	}
	return ty, nil
}

func (l *lowerer) lowerType(i int, inst *spv.Inst) error {
	args := make([]ir.TypeCtorArg, 0, len(inst.Operands))
	for _, o := range inst.Operands {
		if !o.IsID() {
			args = append(args, ir.TypeImmArg(o.Imm))
			continue
		}
		if ty, ok := l.types[o.ID]; ok {
			args = append(args, ir.TypeArg(ty))
		} else if ct, ok := l.consts[o.ID]; ok {
			args = append(args, ir.TypeConstArg(ct))
		} else {
			return l.fail(i, fmt.Errorf("%w: type operand %%%d is neither a type nor a constant", ErrUnsupported, o.ID))
		}
	}
	l.types[inst.ResultID] = l.cx.InternType(ir.TypeDef{
		Attrs:    l.attrsFor(inst.ResultID),
		Ctor:     ir.SpvInstTypeCtor(inst.Opcode),
		CtorArgs: args,
	})
	return nil
}

func (l *lowerer) lowerConst(i int, inst *spv.Inst) error {
	ty, err := l.resultType(i, inst.ResultTypeID)
	if err != nil {
		return err
	}
	args := make([]ir.ConstCtorArg, 0, len(inst.Operands))
	for _, o := range inst.Operands {
		if !o.IsID() {
			args = append(args, ir.ConstImmArg(o.Imm))
			continue
		}
		if ct, ok := l.consts[o.ID]; ok {
			args = append(args, ir.ConstArg(ct))
		} else if _, ok := l.globalVars[o.ID]; ok {
			args = append(args, ir.UntrackedGlobalVarArg(o.ID))
		} else {
			return l.fail(i, fmt.Errorf("%w: constant operand %%%d is neither a constant nor a global variable", ErrUnsupported, o.ID))
		}
	}
	l.consts[inst.ResultID] = l.cx.InternConst(ir.ConstDef{
		Attrs:    l.attrsFor(inst.ResultID),
		Type:     ty,
		Ctor:     ir.SpvInstConstCtor(inst.Opcode),
		CtorArgs: args,
	})
	return nil
}

// linkageOf returns the linkage decoration of id and whether it imports.
// Linkage types other than Import and Export are rejected.
func (l *lowerer) linkageOf(id spv.ID) (link linkage, ok, imported bool, err error) {
	link, ok = l.linkage[id]
	if !ok {
		return link, false, false, nil
	}
	switch link.typ {
	case spec.LinkageImport:
		return link, true, true, nil
	case spec.LinkageExport:
		return link, true, false, nil
	default:
		return link, true, false, l.fail(link.index, fmt.Errorf("%w: linkage type %d", ErrUnsupported, link.typ))
	}
}

func (l *lowerer) lowerGlobalVar(i int, inst *spv.Inst) error {
	ty, err := l.resultType(i, inst.ResultTypeID)
	if err != nil {
		return err
	}
	ops := inst.Operands
	if len(ops) == 0 || ops[0].IsID() {
		return l.fail(i, fmt.Errorf("%w: OpVariable without a storage class", ErrInvalid))
	}
	var init ir.Const
	if len(ops) > 1 {
		ct, ok := l.consts[ops[1].ID]
		if !ops[1].IsID() || !ok {
			return l.fail(i, fmt.Errorf("%w: initializer %%%d is not a constant", ErrUnsupported, ops[1].ID))
		}
		init = ct
	}

	gv := l.globalVars[inst.ResultID]
	decl := gv.Decl()
	decl.Attrs = l.attrsFor(inst.ResultID)
	decl.TypeOfPtrTo = ty
	decl.AddrSpace = ir.SpvStorageClass(ops[0].Imm.Value)

	link, linked, imported, err := l.linkageOf(inst.ResultID)
	if err != nil {
		return err
	}
	if imported {
		if init.IsValid() {
			return l.fail(i, fmt.Errorf("%w: imported variable %%%d has an initializer", ErrInvalid, inst.ResultID))
		}
		decl.Def = ir.Imported[ir.GlobalVarDefBody](ir.LinkNameImport(link.name))
		return nil
	}
	decl.Def = ir.Present(ir.GlobalVarDefBody{Initializer: init})
	if linked {
		if err := l.out.Export(ir.LinkNameExport(link.name), ir.GlobalVarExportee(gv)); err != nil {
			return l.fail(link.index, err)
		}
	}
	return nil
}

// misc lowers an instruction with no dedicated construct. Operands naming
// types, constants and extended instruction sets become handles; any other
// id, including global variables, functions and local values, stays an
// untracked id.
func (l *lowerer) misc(i int, inst *spv.Inst) (ir.Misc, error) {
	m := ir.Misc{Kind: ir.SpvInstKind(inst.Opcode)}
	switch {
	case inst.ResultTypeID != 0:
		ty, err := l.resultType(i, inst.ResultTypeID)
		if err != nil {
			return m, err
		}
		m.Output = ir.ValueResult(ty, inst.ResultID)
	case inst.ResultID != 0:
		m.Output = ir.LabelResult(inst.ResultID)
	}

	ops := inst.Operands
	if inst.Opcode == spec.OpFunctionCall {
		if len(ops) == 0 {
			return m, l.fail(i, fmt.Errorf("%w: call without a callee", ErrInvalid))
		}
		fn, ok := l.funcs[ops[0].ID]
		if !ops[0].IsID() || !ok {
			return m, l.fail(i, fmt.Errorf("%w: callee %%%d is not a function", ErrInvalid, ops[0].ID))
		}
		m.Kind = ir.FuncCallKind(fn)
		ops = ops[1:]
	}

	if len(ops) > 0 {
		m.Inputs = make([]ir.MiscInput, 0, len(ops))
	}
	for _, o := range ops {
		m.Inputs = append(m.Inputs, l.input(o))
	}
	m.Attrs = l.attrsFor(inst.ResultID)
	return m, nil
}

func (l *lowerer) input(o spv.Operand) ir.MiscInput {
	if !o.IsID() {
		return ir.ImmInput(o.Imm)
	}
	if ty, ok := l.types[o.ID]; ok {
		return ir.TypeInput(ty)
	}
	if ct, ok := l.consts[o.ID]; ok {
		return ir.ConstInput(ct)
	}
	if name, ok := l.extImports[o.ID]; ok {
		return ir.ExtInstImportInput(name)
	}
	return ir.UntrackedIDInput(o.ID)
}

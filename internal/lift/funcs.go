package lift

import (
	"fmt"

	"spvir/internal/ir"
	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// emitFuncs emits imported functions as declarations and present ones as
// definitions, each in module order.
func (e *emitter) emitFuncs() error {
	for _, f := range e.m.Funcs() {
		if err := e.ctx.Err(); err != nil {
			return err
		}
		decl := f.Decl()
		id := e.funcs[f]
		ret, err := e.typeID(decl.RetType)
		if err != nil {
			return err
		}
		fnTy, err := e.typeID(decl.Type)
		if err != nil {
			return err
		}

		sec := secFuncDefs
		if decl.Def.IsImported() {
			sec = secFuncDecls
		}
		e.line = lineState{}
		e.add(sec, spv.Inst{
			Opcode:       spec.OpFunction,
			ResultTypeID: ret,
			ResultID:     id,
			Operands:     []spv.Operand{spv.ImmOperand(e.funcControl(decl.Attrs)), e.idOperand(fnTy)},
		})
		if err := e.annotate(id, decl.Attrs); err != nil {
			return err
		}

		var failed error
		decl.Def.Match(
			func(imp *ir.Import) {
				e.linkage(id, imp.LinkName, spec.LinkageImport)
				failed = e.importedParams(f, decl)
			},
			func(body *ir.FuncDefBody) { failed = e.body(body) },
		)
		if failed != nil {
			return failed
		}
		e.line = lineState{}
		e.add(sec, spv.Inst{Opcode: spec.OpFunctionEnd})
	}
	return nil
}

// funcControl returns the OpFunction control operand kept in attrs, or the
// default one.
func (e *emitter) funcControl(attrs ir.AttrSet) spv.Imm {
	for _, a := range attrs.Def().Attrs {
		if a.Kind == ir.AttrSpvAnnotation && a.Annotation.Opcode == spec.OpFunction && len(a.Annotation.Params) == 1 {
			return a.Annotation.Params[0]
		}
	}
	return spv.ShortImm(e.wk.FunctionControl, 0)
}

func (e *emitter) importedParams(f ir.Func, decl *ir.FuncDecl) error {
	args := decl.Type.Def().CtorArgs
	ids := e.params[f]
	for i, id := range ids {
		arg := args[i+1]
		if arg.Kind != ir.TypeCtorArgType {
			return fmt.Errorf("lift: %w: parameter %d of function %%%d has no type", ErrUnrepresentable, i, e.funcs[f])
		}
		ty, err := e.typeID(arg.Type)
		if err != nil {
			return err
		}
		e.add(secFuncDecls, spv.Inst{Opcode: spec.OpFunctionParameter, ResultTypeID: ty, ResultID: id})
	}
	return nil
}

func (e *emitter) body(body *ir.FuncDefBody) error {
	for i := range body.Insts {
		m := &body.Insts[i]
		inst, err := e.miscInst(m)
		if err != nil {
			return err
		}
		// A block starts without a debug line.
		if inst.Opcode == spec.OpLabel {
			e.line = lineState{}
		}
		e.lined(secFuncDefs, m.Attrs, inst)
		if err := e.annotate(inst.ResultID, m.Attrs); err != nil {
			return err
		}
	}
	return nil
}

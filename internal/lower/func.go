package lower

import (
	"fmt"

	"spvir/internal/ir"
	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// funcBuilder accumulates the body of the function being lowered.
type funcBuilder struct {
	fn     ir.Func
	index  int
	insts  []ir.Misc
	blocks int
}

func (l *lowerer) beginFunc(i int, inst *spv.Inst) (*funcBuilder, error) {
	l.hasLine = false
	ret, err := l.resultType(i, inst.ResultTypeID)
	if err != nil {
		return nil, err
	}
	ops := inst.Operands
	if len(ops) != 2 || ops[0].IsID() || !ops[1].IsID() {
		return nil, l.fail(i, fmt.Errorf("%w: malformed OpFunction", ErrInvalid))
	}
	fnTy, ok := l.types[ops[1].ID]
	if !ok {
		return nil, l.fail(i, fmt.Errorf("%w: function type %%%d is not a type", ErrInvalid, ops[1].ID))
	}

	// A non-default function control is kept as an attribute of the
	// declaration, in OpFunction's own operand form.
	var extra []ir.Attr
	if ops[0].Imm.Value != 0 {
		extra = append(extra, ir.AnnotationAttr(spec.OpFunction, []spv.Imm{ops[0].Imm}))
	}

	fn := l.funcs[inst.ResultID]
	decl := fn.Decl()
	decl.Attrs = l.attrsFor(inst.ResultID, extra...)
	decl.RetType = ret
	decl.Type = fnTy
	return &funcBuilder{fn: fn, index: i}, nil
}

// funcInst lowers one instruction inside a function and reports whether it
// ended the function.
func (l *lowerer) funcInst(fb *funcBuilder, i int, inst *spv.Inst) (bool, error) {
	switch inst.Opcode {
	case spec.OpLine:
		return false, l.setLine(i, inst)
	case spec.OpNoLine:
		l.hasLine = false
		return false, nil
	case spec.OpFunctionEnd:
		l.hasLine = false
		return true, l.endFunc(fb)
	case spec.OpLabel:
		l.hasLine = false
		fb.blocks++
	}
	misc, err := l.misc(i, inst)
	if err != nil {
		return false, err
	}
	fb.insts = append(fb.insts, misc)
	return false, nil
}

func (l *lowerer) endFunc(fb *funcBuilder) error {
	decl := fb.fn.Decl()
	id := decl.SpvResultID
	link, linked, imported, err := l.linkageOf(id)
	if err != nil {
		return err
	}

	if imported {
		if fb.blocks > 0 {
			return l.fail(fb.index, fmt.Errorf("%w: imported function %%%d has a body", ErrInvalid, id))
		}
		// Only parameters remain, and an import has nowhere to keep their
		// annotations.
		for _, p := range fb.insts {
			if p.Attrs != l.cx.EmptyAttrSet() {
				return l.fail(fb.index, fmt.Errorf("%w: annotated parameter of imported function %%%d", ErrUnsupported, id))
			}
		}
		decl.Def = ir.Imported[ir.FuncDefBody](ir.LinkNameImport(link.name))
		return nil
	}

	if fb.blocks == 0 {
		return l.fail(fb.index, fmt.Errorf("%w: function %%%d has no body and no import linkage", ErrInvalid, id))
	}
	decl.Def = ir.Present(ir.FuncDefBody{Insts: fb.insts})
	if linked {
		if err := l.out.Export(ir.LinkNameExport(link.name), ir.FuncExportee(fb.fn)); err != nil {
			return l.fail(link.index, err)
		}
	}
	return nil
}

package lift

import (
	"fmt"

	"spvir/internal/ir"
	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// section is a part of the logical module layout, in emission order.
type section uint8

const (
	secCapability section = iota
	secExtension
	secExtInstImport
	secMemoryModel
	secEntryPoint
	secExecutionMode
	secDebugString
	secDebugSourceExtension
	secDebugSource
	secDebugName
	secDebugProcessed
	secAnnotation
	secValues
	secFuncDecls
	secFuncDefs
	numSections
)

// lineState is the OpLine in effect in the stream being emitted.
type lineState struct {
	active    bool
	file      spv.ID
	line, col uint32
}

type emitter struct {
	*lifter
	sections [numSections][]spv.Inst
	line     lineState
}

func (e *emitter) add(sec section, inst spv.Inst) {
	e.sections[sec] = append(e.sections[sec], inst)
}

func (e *emitter) imm(kind spec.OperandKind, v uint32) spv.Operand {
	return spv.ImmOperand(spv.ShortImm(kind, v))
}

func (e *emitter) stringOperands(s string) []spv.Operand {
	imms := spv.StringImms(e.wk.LiteralString, s)
	ops := make([]spv.Operand, len(imms))
	for i, imm := range imms {
		ops[i] = spv.ImmOperand(imm)
	}
	return ops
}

func (l *lifter) emit() ([]spv.Inst, error) {
	e := &emitter{lifter: l}
	dialect := &l.m.Dialect.Spv
	debug := &l.m.DebugInfo.Spv

	for _, c := range dialect.Capabilities {
		e.add(secCapability, spv.Inst{Opcode: spec.OpCapability, Operands: []spv.Operand{e.imm(e.wk.Capability, c)}})
	}
	for _, ext := range dialect.Extensions {
		e.add(secExtension, spv.Inst{Opcode: spec.OpExtension, Operands: e.stringOperands(ext)})
	}
	for _, name := range l.extOrder {
		e.add(secExtInstImport, spv.Inst{
			Opcode:   spec.OpExtInstImport,
			ResultID: l.extImports[name],
			Operands: e.stringOperands(name.String()),
		})
	}
	e.add(secMemoryModel, spv.Inst{Opcode: spec.OpMemoryModel, Operands: []spv.Operand{
		e.imm(e.wk.AddressingModel, dialect.AddressingModel),
		e.imm(e.wk.MemoryModel, dialect.MemoryModel),
	}})
	for _, file := range l.newFiles {
		e.add(secDebugString, spv.Inst{Opcode: spec.OpString, ResultID: l.files[file], Operands: e.stringOperands(file)})
	}
	for _, ext := range debug.SourceExtensions {
		e.add(secDebugSourceExtension, spv.Inst{Opcode: spec.OpSourceExtension, Operands: e.stringOperands(ext)})
	}
	for _, p := range debug.ModuleProcesses {
		e.add(secDebugProcessed, spv.Inst{Opcode: spec.OpModuleProcessed, Operands: e.stringOperands(p)})
	}

	if err := e.emitExports(); err != nil {
		return nil, err
	}
	if err := e.emitValues(); err != nil {
		return nil, err
	}
	if err := e.emitFuncs(); err != nil {
		return nil, err
	}

	var n int
	for _, s := range e.sections {
		n += len(s)
	}
	out := make([]spv.Inst, 0, n)
	for _, s := range e.sections {
		out = append(out, s...)
	}
	return out, nil
}

// emitExports emits entry points and export linkage decorations.
func (e *emitter) emitExports() error {
	for _, ex := range e.m.Exports() {
		var target spv.ID
		switch ex.Exportee.Kind {
		case ir.ExporteeFunc:
			target = e.funcs[ex.Exportee.Func]
		case ir.ExporteeGlobalVar:
			target = e.globalVars[ex.Exportee.GlobalVar]
		}
		switch ex.Key.Kind {
		case ir.ExportLinkName:
			e.linkage(target, ex.Key.LinkName, spec.LinkageExport)
		case ir.ExportSpvEntryPoint:
			if ex.Exportee.Kind != ir.ExporteeFunc {
				return fmt.Errorf("lift: %w: entry point exports a global variable", ErrUnrepresentable)
			}
			ifaces := make([]spv.ID, len(ex.Key.InterfaceGlobalVars))
			for i, gv := range ex.Key.InterfaceGlobalVars {
				ifaces[i] = e.globalVars[gv]
			}
			if err := e.entryPoint(target, ex.Key.Params, ifaces); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *emitter) entryPoint(fn spv.ID, params []spv.Imm, ifaces []spv.ID) error {
	if len(params) == 0 {
		return fmt.Errorf("lift: %w: entry point %%%d without an execution model", ErrUnrepresentable, fn)
	}
	ops := make([]spv.Operand, 0, len(params)+1+len(ifaces))
	ops = append(ops, spv.ImmOperand(params[0]), e.idOperand(fn))
	for _, p := range params[1:] {
		ops = append(ops, spv.ImmOperand(p))
	}
	for _, id := range ifaces {
		ops = append(ops, e.idOperand(id))
	}
	e.add(secEntryPoint, spv.Inst{Opcode: spec.OpEntryPoint, Operands: ops})
	return nil
}

func (e *emitter) linkage(target spv.ID, name ir.InternedStr, linkType uint32) {
	ops := []spv.Operand{e.idOperand(target), e.imm(e.wk.Decoration, spec.DecorationLinkageAttributes)}
	ops = append(ops, e.stringOperands(name.String())...)
	ops = append(ops, e.imm(e.wk.LinkageType, linkType))
	e.add(secAnnotation, spv.Inst{Opcode: spec.OpDecorate, Operands: ops})
}

// annotate emits the attributes of the entity with id target into their
// sections. Debug lines are handled by the stream they appear in and
// function control by OpFunction.
func (e *emitter) annotate(target spv.ID, set ir.AttrSet) error {
	for _, a := range set.Def().Attrs {
		switch a.Kind {
		case ir.AttrSpvDebugLine:
			continue
		case ir.AttrSpvEntryPoint:
			if err := e.entryPoint(target, a.EntryPoint.Params, a.EntryPoint.InterfaceIDs); err != nil {
				return err
			}
			continue
		}
		op := a.Annotation.Opcode
		if op == spec.OpFunction {
			continue
		}
		if target == 0 {
			return fmt.Errorf("lift: %w: %s on an instruction without a result", ErrUnrepresentable, op.Name())
		}
		sec := secAnnotation
		switch op {
		case spec.OpExecutionMode:
			sec = secExecutionMode
		case spec.OpName, spec.OpMemberName:
			sec = secDebugName
		}
		ops := make([]spv.Operand, 0, 1+len(a.Annotation.Params))
		ops = append(ops, e.idOperand(target))
		for _, p := range a.Annotation.Params {
			ops = append(ops, spv.ImmOperand(p))
		}
		e.add(sec, spv.Inst{Opcode: op, Operands: ops})
	}
	return nil
}

// lined adds inst to sec, preceded by OpLine or OpNoLine when the debug
// line of attrs differs from the one in effect.
func (e *emitter) lined(sec section, attrs ir.AttrSet, inst spv.Inst) {
	next := lineState{}
	for _, a := range attrs.Def().Attrs {
		if a.Kind == ir.AttrSpvDebugLine {
			next = lineState{
				active: true,
				file:   e.files[a.DebugLine.FilePath.V.String()],
				line:   a.DebugLine.Line,
				col:    a.DebugLine.Col,
			}
			break
		}
	}
	switch {
	case next.active && next != e.line:
		e.add(sec, spv.Inst{Opcode: spec.OpLine, Operands: []spv.Operand{
			e.idOperand(next.file),
			e.imm(e.wk.LiteralInteger, next.line),
			e.imm(e.wk.LiteralInteger, next.col),
		}})
	case !next.active && e.line.active:
		e.add(sec, spv.Inst{Opcode: spec.OpNoLine})
	}
	e.line = next
	e.add(sec, inst)
}

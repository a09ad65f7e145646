package lower

import (
	"fmt"
	"slices"

	"spvir/internal/ir"
	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// collect is the first pass. It fills the dialect, the debug info and the
// per-id tables, and declares a placeholder for every module-scope variable
// and function so that later references find a handle.
func (l *lowerer) collect() error {
	major, minor := l.in.Layout.Version()
	l.dialect = spv.Dialect{
		VersionMajor: major,
		VersionMinor: minor,
		Capabilities: slices.Clone(l.in.Layout.Capabilities),
	}
	l.debugInfo = spv.ModuleDebugInfo{
		OriginalGeneratorMagic: l.in.Layout.OriginalGeneratorMagic,
		OriginalIDBound:        l.in.Layout.OriginalIDBound,
	}
	l.out = ir.NewModule(l.cx, ir.SpvDialect(spv.Dialect{}), ir.SpvDebugInfo(spv.ModuleDebugInfo{}))

	inFunc := false
	for i := range l.in.Insts {
		if err := l.checkCtx(i); err != nil {
			return err
		}
		inst := &l.in.Insts[i]
		switch inst.Opcode {
		case spec.OpExtension:
			s, err := l.str(i, inst.Operands)
			if err != nil {
				return err
			}
			l.dialect.Extensions = append(l.dialect.Extensions, s)

		case spec.OpExtInstImport:
			s, err := l.str(i, inst.Operands)
			if err != nil {
				return err
			}
			l.extImports[inst.ResultID] = l.cx.InternStr(s)

		case spec.OpMemoryModel:
			imms, err := l.imms(i, inst.Operands)
			if err != nil {
				return err
			}
			if len(imms) < 2 {
				return l.fail(i, fmt.Errorf("%w: OpMemoryModel needs 2 operands, got %d", ErrInvalid, len(imms)))
			}
			l.dialect.AddressingModel = imms[0].Value
			l.dialect.MemoryModel = imms[1].Value

		case spec.OpEntryPoint:
			if err := l.collectEntryPoint(i, inst); err != nil {
				return err
			}

		case spec.OpString:
			s, err := l.str(i, inst.Operands)
			if err != nil {
				return err
			}
			l.strings[inst.ResultID] = l.cx.InternStr(s)

		case spec.OpSourceExtension:
			s, err := l.str(i, inst.Operands)
			if err != nil {
				return err
			}
			l.debugInfo.SourceExtensions = append(l.debugInfo.SourceExtensions, s)

		case spec.OpModuleProcessed:
			s, err := l.str(i, inst.Operands)
			if err != nil {
				return err
			}
			l.debugInfo.ModuleProcesses = append(l.debugInfo.ModuleProcesses, s)

		case spec.OpName, spec.OpMemberName, spec.OpDecorate, spec.OpMemberDecorate,
			spec.OpDecorateString, spec.OpMemberDecorateString, spec.OpExecutionMode:
			if err := l.collectAnnotation(i, inst); err != nil {
				return err
			}

		case spec.OpDecorationGroup, spec.OpGroupDecorate, spec.OpGroupMemberDecorate,
			spec.OpDecorateID, spec.OpExecutionModeID, spec.OpTypeForwardPointer:
			return l.fail(i, ErrUnsupported)

		case spec.OpFunction:
			if inFunc {
				return l.fail(i, fmt.Errorf("%w: nested OpFunction", ErrInvalid))
			}
			inFunc = true
			l.funcs[inst.ResultID] = l.out.DeclareFunc(ir.FuncDecl{SpvResultID: inst.ResultID})

		case spec.OpFunctionEnd:
			if !inFunc {
				return l.fail(i, fmt.Errorf("%w: OpFunctionEnd outside a function", ErrInvalid))
			}
			inFunc = false

		case spec.OpVariable:
			if !inFunc {
				l.globalVars[inst.ResultID] = l.out.DeclareGlobalVar(ir.GlobalVarDecl{SpvResultID: inst.ResultID})
			}
		}
	}
	if inFunc {
		return l.fail(-1, fmt.Errorf("%w: missing OpFunctionEnd", ErrInvalid))
	}

	l.out.Dialect = ir.SpvDialect(l.dialect)
	l.out.DebugInfo = ir.SpvDebugInfo(l.debugInfo)
	return nil
}

// collectEntryPoint records an OpEntryPoint. Its params are the execution
// model followed by the name.
func (l *lowerer) collectEntryPoint(i int, inst *spv.Inst) error {
	ops := inst.Operands
	if len(ops) < 3 || ops[0].IsID() || !ops[1].IsID() {
		return l.fail(i, fmt.Errorf("%w: malformed OpEntryPoint", ErrInvalid))
	}
	ep := entryPoint{index: i, fn: ops[1].ID, params: []spv.Imm{ops[0].Imm}}
	rest := ops[2:]
	for len(rest) > 0 && !rest[0].IsID() {
		ep.params = append(ep.params, rest[0].Imm)
		rest = rest[1:]
	}
	for _, o := range rest {
		if !o.IsID() {
			return l.fail(i, fmt.Errorf("%w: immediate among interface ids", ErrInvalid))
		}
		ep.ifaceIDs = append(ep.ifaceIDs, o.ID)
	}
	l.entryPoints = append(l.entryPoints, ep)
	return nil
}

// collectAnnotation records a debug name, decoration or execution mode
// against its target. LinkageAttributes decorations are kept apart since
// they become imports and exports rather than attributes.
func (l *lowerer) collectAnnotation(i int, inst *spv.Inst) error {
	ops := inst.Operands
	if len(ops) == 0 || !ops[0].IsID() {
		return l.fail(i, fmt.Errorf("%w: annotation without a target", ErrInvalid))
	}
	target := ops[0].ID
	params, err := l.imms(i, ops[1:])
	if err != nil {
		return err
	}

	if inst.Opcode == spec.OpDecorate && len(params) > 0 && params[0].Value == spec.DecorationLinkageAttributes {
		name, rest, err := spv.DecodeStringImms(params[1:])
		if err != nil {
			return l.fail(i, err)
		}
		if len(rest) != 1 {
			return l.fail(i, fmt.Errorf("%w: LinkageAttributes without a linkage type", ErrInvalid))
		}
		if _, dup := l.linkage[target]; dup {
			return l.fail(i, fmt.Errorf("%w: %%%d has two LinkageAttributes", ErrInvalid, target))
		}
		l.linkage[target] = linkage{name: l.cx.InternStr(name), typ: rest[0].Value, index: i}
		return nil
	}

	l.annotations[target] = append(l.annotations[target], ir.AnnotationAttr(inst.Opcode, params))
	return nil
}

// Package lower turns a decoded SPIR-V module into the interned IR.
//
// Lowering runs in two passes over the instruction stream. The first pass
// gathers everything that is addressed by id from elsewhere in the module:
// annotations and names, linkage, entry points, extended instruction set
// imports, debug strings, and the ids of module-scope variables and
// functions (declared up front so forward references resolve to handles).
// The second pass builds types, constants, variable and function
// declarations in stream order.
package lower

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"spvir/internal/ir"
	"spvir/internal/spv"
	"spvir/internal/spv/spec"
	"spvir/internal/trace"
)

var (
	// ErrUnsupported reports a valid SPIR-V construct the IR cannot
	// represent yet, such as decoration groups.
	ErrUnsupported = errors.New("unsupported SPIR-V construct")
	// ErrInvalid reports a module that decodes but violates a rule lowering
	// relies on, such as an id used as the wrong kind of entity.
	ErrInvalid = errors.New("invalid SPIR-V module")
)

// Error locates a lowering failure. Index is the position of the
// offending instruction in spv.Module.Insts, or -1 when the failure is not
// tied to one instruction.
type Error struct {
	Index  int
	Opcode spec.Opcode
	Err    error
}

func (e *Error) Error() string {
	if e.Index < 0 {
		return "lower: " + e.Err.Error()
	}
	return fmt.Sprintf("lower: inst %d (%s): %v", e.Index, e.Opcode.Name(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// checkEvery is how many instructions pass between context checks.
const checkEvery = 1024

// Lower converts m into an IR module whose interned entities live in cx.
// Every forward reference in m is resolved: the result holds handles or
// untracked ids, never forward references.
func Lower(ctx context.Context, cx *ir.Context, m *spv.Module) (*ir.Module, error) {
	if cx == nil || m == nil {
		return nil, errors.New("lower: nil context or module")
	}
	ctx, span := trace.Start(ctx, trace.ScopePass, "lower")
	var err error
	defer func() { span.Stop(err) }()

	l := &lowerer{
		ctx:         ctx,
		cx:          cx,
		in:          m,
		wk:          &spec.Get().WellKnown,
		annotations: make(map[spv.ID][]ir.Attr),
		consumed:    make(map[spv.ID]struct{}),
		linkage:     make(map[spv.ID]linkage),
		extImports:  make(map[spv.ID]ir.InternedStr),
		strings:     make(map[spv.ID]ir.InternedStr),
		types:       make(map[spv.ID]ir.Type),
		consts:      make(map[spv.ID]ir.Const),
		globalVars:  make(map[spv.ID]ir.GlobalVar),
		funcs:       make(map[spv.ID]ir.Func),
	}

	collectSpan := span.Child(trace.ScopeModule, "lower.collect")
	err = l.collect()
	collectSpan.Stop(err)
	if err != nil {
		return nil, err
	}

	buildSpan := span.Child(trace.ScopeModule, "lower.build")
	err = l.build()
	if l.out != nil {
		buildSpan.WithExtra("funcs", strconv.Itoa(l.out.NumFuncs())).
			WithExtra("global_vars", strconv.Itoa(l.out.NumGlobalVars()))
	}
	buildSpan.Stop(err)
	if err != nil {
		return nil, err
	}

	if err = l.finish(); err != nil {
		return nil, err
	}
	return l.out, nil
}

// lowerer holds the state shared by both passes.
type lowerer struct {
	ctx context.Context
	cx  *ir.Context
	in  *spv.Module
	wk  *spec.WellKnown
	out *ir.Module

	dialect   spv.Dialect
	debugInfo spv.ModuleDebugInfo

	// annotations maps a target id to the attributes its annotation
	// instructions carry; consumed records which targets were attached.
	annotations map[spv.ID][]ir.Attr
	consumed    map[spv.ID]struct{}
	linkage     map[spv.ID]linkage
	entryPoints []entryPoint

	extImports map[spv.ID]ir.InternedStr
	strings    map[spv.ID]ir.InternedStr

	types      map[spv.ID]ir.Type
	consts     map[spv.ID]ir.Const
	globalVars map[spv.ID]ir.GlobalVar
	funcs      map[spv.ID]ir.Func

	// line is the active OpLine, if any.
	line    ir.Attr
	hasLine bool
}

type linkage struct {
	name  ir.InternedStr
	typ   uint32
	index int
}

type entryPoint struct {
	index    int
	params   []spv.Imm
	fn       spv.ID
	ifaceIDs []spv.ID
}

func (l *lowerer) fail(index int, err error) error {
	e := &Error{Index: index, Err: err}
	if index >= 0 && index < len(l.in.Insts) {
		e.Opcode = l.in.Insts[index].Opcode
	}
	return e
}

func (l *lowerer) checkCtx(index int) error {
	if index%checkEvery != 0 {
		return nil
	}
	return l.ctx.Err()
}

// attrsFor interns the annotations targeting id together with extra, and
// marks them as consumed.
func (l *lowerer) attrsFor(id spv.ID, extra ...ir.Attr) ir.AttrSet {
	var attrs []ir.Attr
	if id != 0 {
		if anns, ok := l.annotations[id]; ok {
			attrs = append(attrs, anns...)
			l.consumed[id] = struct{}{}
		}
	}
	if l.hasLine {
		attrs = append(attrs, l.line)
	}
	attrs = append(attrs, extra...)
	if len(attrs) == 0 {
		return l.cx.EmptyAttrSet()
	}
	return l.cx.InternAttrSet(ir.AttrSetDef{Attrs: attrs})
}

// finish attaches entry points and checks that no annotation or linkage
// decoration was left without a target.
func (l *lowerer) finish() error {
	for _, ep := range l.entryPoints {
		if err := l.lowerEntryPoint(ep); err != nil {
			return err
		}
	}
	var missing []spv.ID
	for id := range l.annotations {
		if _, ok := l.consumed[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		first := missing[0]
		for _, id := range missing[1:] {
			first = min(first, id)
		}
		return l.fail(-1, fmt.Errorf("%w: annotation on %%%d, which is not a type, constant, variable, function or instruction result", ErrUnsupported, first))
	}
	for id, link := range l.linkage {
		if _, ok := l.globalVars[id]; ok {
			continue
		}
		if _, ok := l.funcs[id]; ok {
			continue
		}
		return l.fail(link.index, fmt.Errorf("%w: linkage attributes on %%%d, which is not a variable or function", ErrUnsupported, id))
	}
	return nil
}

func (l *lowerer) lowerEntryPoint(ep entryPoint) error {
	fn, ok := l.funcs[ep.fn]
	if !ok {
		return l.fail(ep.index, fmt.Errorf("%w: entry point %%%d is not a function", ErrInvalid, ep.fn))
	}
	vars := make([]ir.GlobalVar, 0, len(ep.ifaceIDs))
	for _, id := range ep.ifaceIDs {
		gv, ok := l.globalVars[id]
		if !ok {
			vars = nil
			break
		}
		vars = append(vars, gv)
	}
	if vars == nil && len(ep.ifaceIDs) > 0 {
		// Keep the entry point as an attribute when its interface names
		// something other than a module-scope variable.
		decl := fn.Decl()
		attrs := append([]ir.Attr(nil), decl.Attrs.Def().Attrs...)
		attrs = append(attrs, ir.EntryPointAttr(ep.params, ep.ifaceIDs))
		decl.Attrs = l.cx.InternAttrSet(ir.AttrSetDef{Attrs: attrs})
		return nil
	}
	if err := l.out.Export(ir.EntryPointExport(ep.params, vars), ir.FuncExportee(fn)); err != nil {
		return l.fail(ep.index, err)
	}
	return nil
}

// imms returns the operands as immediates, failing on any id operand.
func (l *lowerer) imms(index int, ops []spv.Operand) ([]spv.Imm, error) {
	out := make([]spv.Imm, 0, len(ops))
	for _, o := range ops {
		if o.IsID() {
			return nil, l.fail(index, fmt.Errorf("%w: id operand %%%d", ErrUnsupported, o.ID))
		}
		out = append(out, o.Imm)
	}
	return out, nil
}

func (l *lowerer) str(index int, ops []spv.Operand) (string, error) {
	imms, err := l.imms(index, ops)
	if err != nil {
		return "", err
	}
	s, _, err := spv.DecodeStringImms(imms)
	if err != nil {
		return "", l.fail(index, err)
	}
	return s, nil
}

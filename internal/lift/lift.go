// Package lift turns an IR module back into a SPIR-V module.
//
// Ids the IR still names (declarations, instruction results and untracked
// operands) are kept as they are. Every interned type and constant, every
// extended instruction set and every synthesized debug string gets a fresh
// id, allocated from the lowest unused values so that a module that went
// through lowering unchanged keeps its id bound.
package lift

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

// ErrUnrepresentable reports IR that has no SPIR-V encoding, such as an
// annotation on an instruction without a result.
var ErrUnrepresentable = errors.New("IR has no SPIR-V form")

// Lift converts m to a SPIR-V module. The header keeps the version,
// generator magic and capabilities recorded in m; the id bound is the
// original one unless more ids are in use.
func Lift(ctx context.Context, m *ir.Module) (*spv.Module, error) {
	if m == nil {
		return nil, errors.New("lift: nil module")
	}
	if m.Dialect.Kind != ir.DialectSpv || m.DebugInfo.Kind != ir.DialectSpv {
		return nil, fmt.Errorf("lift: %w: module is not SPIR-V", ErrUnrepresentable)
	}
	ctx, span := trace.Start(ctx, trace.ScopePass, "lift")
	var err error
	defer func() { span.Stop(err) }()

	l := newLifter(ctx, m)

	orderSpan := span.Child(trace.ScopeModule, "lift.order")
	l.order = newOrderer()
	ir.VisitModule(l.order, m)
	m.VisitExports(l.order)
	orderSpan.End("")

	idSpan := span.Child(trace.ScopeModule, "lift.ids")
	err = l.assignIDs()
	idSpan.Stop(err)
	if err != nil {
		return nil, err
	}

	emitSpan := span.Child(trace.ScopeModule, "lift.emit")
	insts, err := l.emit()
	emitSpan.WithExtra("insts", strconv.Itoa(len(insts))).Stop(err)
	if err != nil {
		return nil, err
	}

	dialect := &m.Dialect.Spv
	debug := &m.DebugInfo.Spv
	return &spv.Module{
		Layout: spv.ModuleLayout{
			HeaderVersion:          spv.MakeVersion(dialect.VersionMajor, dialect.VersionMinor),
			OriginalGeneratorMagic: debug.OriginalGeneratorMagic,
			OriginalIDBound:        max(debug.OriginalIDBound, l.ids.bound()),
			Capabilities:           append([]uint32(nil), dialect.Capabilities...),
		},
		Insts: insts,
	}, nil
}

type lifter struct {
	ctx context.Context
	m   *ir.Module
	wk  *spec.WellKnown

	order *orderer
	ids   *idAlloc

	typeIDs    map[ir.Type]spv.ID
	constIDs   map[ir.Const]spv.ID
	globalVars map[ir.GlobalVar]spv.ID
	funcs      map[ir.Func]spv.ID
	extImports map[ir.InternedStr]spv.ID
	extOrder   []ir.InternedStr
	// files maps OpLine file paths to OpString ids; newFiles are the paths
	// that need an OpString synthesized.
	files    map[string]spv.ID
	newFiles []string

	// params holds the fresh parameter ids of imported functions.
	params map[ir.Func][]spv.ID
}

func newLifter(ctx context.Context, m *ir.Module) *lifter {
	return &lifter{
		ctx:        ctx,
		m:          m,
		wk:         &spec.Get().WellKnown,
		typeIDs:    make(map[ir.Type]spv.ID),
		constIDs:   make(map[ir.Const]spv.ID),
		globalVars: make(map[ir.GlobalVar]spv.ID),
		funcs:      make(map[ir.Func]spv.ID),
		extImports: make(map[ir.InternedStr]spv.ID),
		files:      make(map[string]spv.ID),
		params:     make(map[ir.Func][]spv.ID),
	}
}

func (l *lifter) idOperand(id spv.ID) spv.Operand { return spv.IDOperand(l.wk.IDRef, id) }

func (l *lifter) typeID(t ir.Type) (spv.ID, error) {
	id, ok := l.typeIDs[t]
	if !ok {
		return 0, fmt.Errorf("lift: %w: type %d was never collected", ErrUnrepresentable, t.Index())
	}
	return id, nil
}

func (l *lifter) constID(c ir.Const) (spv.ID, error) {
	id, ok := l.constIDs[c]
	if !ok {
		return 0, fmt.Errorf("lift: %w: constant %d was never collected", ErrUnrepresentable, c.Index())
	}
	return id, nil
}

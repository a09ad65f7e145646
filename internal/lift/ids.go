package lift

import (
	"fmt"

	"fortio.org/safecast"

	"spvir/internal/ir"
	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

// idAlloc hands out ids that are not reserved, lowest first.
type idAlloc struct {
	used  map[spv.ID]struct{}
	next  spv.ID
	maxID spv.ID
}

func newIDAlloc() *idAlloc {
	return &idAlloc{used: make(map[spv.ID]struct{})}
}

func (a *idAlloc) reserve(id spv.ID) {
	if id == 0 {
		return
	}
	a.used[id] = struct{}{}
	a.maxID = max(a.maxID, id)
}

func (a *idAlloc) fresh() spv.ID {
	for {
		a.next++
		if _, taken := a.used[a.next]; !taken {
			a.reserve(a.next)
			return a.next
		}
	}
}

// bound is one past the largest id in use.
func (a *idAlloc) bound() uint32 { return uint32(a.maxID) + 1 }

// forEachMisc calls fn for every module-scope instruction and then every
// instruction of every present function, in module order.
func (l *lifter) forEachMisc(fn func(*ir.Misc)) {
	for i := range l.m.Globals {
		fn(&l.m.Globals[i].Misc)
	}
	for _, f := range l.m.Funcs() {
		if body, ok := f.Decl().Def.Def(); ok {
			for i := range body.Insts {
				fn(&body.Insts[i])
			}
		}
	}
}

// assignIDs reserves every id the IR names and then allocates the rest.
func (l *lifter) assignIDs() error {
	l.ids = newIDAlloc()

	for _, gv := range l.m.GlobalVars() {
		l.ids.reserve(gv.Decl().SpvResultID)
	}
	for _, f := range l.m.Funcs() {
		decl := f.Decl()
		l.ids.reserve(decl.SpvResultID)
		for _, a := range decl.Attrs.Def().Attrs {
			if a.Kind == ir.AttrSpvEntryPoint {
				for _, id := range a.EntryPoint.InterfaceIDs {
					l.ids.reserve(id)
				}
			}
		}
	}
	l.forEachMisc(func(m *ir.Misc) {
		if m.Output != nil {
			l.ids.reserve(m.Output.ResultID)
		}
		for _, in := range m.Inputs {
			if in.Kind == ir.MiscInputSpvUntrackedID {
				l.ids.reserve(in.ID)
			}
		}
	})
	for _, v := range l.order.values {
		if v.kind != valueConst {
			continue
		}
		for _, arg := range v.cnst.Def().CtorArgs {
			if arg.Kind == ir.ConstCtorArgSpvUntrackedGlobalVarID {
				l.ids.reserve(arg.ID)
			}
		}
	}

	// Existing debug strings keep their ids.
	for i := range l.m.Globals {
		g := &l.m.Globals[i].Misc
		if g.Kind.Tag != ir.MiscSpvInst || g.Kind.Opcode != spec.OpString || g.Output == nil {
			continue
		}
		s, err := miscString(g.Inputs)
		if err != nil {
			return fmt.Errorf("lift: OpString %%%d: %w", g.Output.ResultID, err)
		}
		if _, dup := l.files[s]; !dup {
			l.files[s] = g.Output.ResultID
		}
	}

	for _, gv := range l.m.GlobalVars() {
		id := gv.Decl().SpvResultID
		if id == 0 {
			id = l.ids.fresh()
		}
		l.globalVars[gv] = id
	}
	for _, f := range l.m.Funcs() {
		id := f.Decl().SpvResultID
		if id == 0 {
			id = l.ids.fresh()
		}
		l.funcs[f] = id
	}

	l.forEachMisc(func(m *ir.Misc) {
		for _, in := range m.Inputs {
			if in.Kind != ir.MiscInputSpvExtInstImport {
				continue
			}
			if _, ok := l.extImports[in.ExtInstImport]; !ok {
				l.extImports[in.ExtInstImport] = l.ids.fresh()
				l.extOrder = append(l.extOrder, in.ExtInstImport)
			}
		}
	})

	l.eachAttrSet(func(set ir.AttrSet) {
		for _, a := range set.Def().Attrs {
			if a.Kind != ir.AttrSpvDebugLine {
				continue
			}
			file := a.DebugLine.FilePath.V.String()
			if _, ok := l.files[file]; !ok {
				l.files[file] = l.ids.fresh()
				l.newFiles = append(l.newFiles, file)
			}
		}
	})

	for _, v := range l.order.values {
		switch v.kind {
		case valueType:
			l.typeIDs[v.typ] = l.ids.fresh()
		case valueConst:
			l.constIDs[v.cnst] = l.ids.fresh()
		}
	}

	for _, f := range l.m.Funcs() {
		decl := f.Decl()
		if !decl.Def.IsImported() {
			continue
		}
		n := len(decl.Type.Def().CtorArgs) - 1
		if n < 0 {
			return fmt.Errorf("lift: %w: function type without a return type", ErrUnrepresentable)
		}
		ids := make([]spv.ID, n)
		for i := range ids {
			ids[i] = l.ids.fresh()
		}
		l.params[f] = ids
	}

	if _, err := safecast.Conv[uint32](uint64(l.ids.maxID) + 1); err != nil {
		return fmt.Errorf("lift: %w: id space exhausted", ErrUnrepresentable)
	}
	return nil
}

// eachAttrSet calls fn with the attribute set of everything lifting emits.
func (l *lifter) eachAttrSet(fn func(ir.AttrSet)) {
	for _, v := range l.order.values {
		switch v.kind {
		case valueType:
			fn(v.typ.Def().Attrs)
		case valueConst:
			fn(v.cnst.Def().Attrs)
		}
	}
	for _, gv := range l.m.GlobalVars() {
		fn(gv.Decl().Attrs)
	}
	for _, f := range l.m.Funcs() {
		fn(f.Decl().Attrs)
	}
	l.forEachMisc(func(m *ir.Misc) { fn(m.Attrs) })
}

// miscString decodes a string held in immediate inputs.
func miscString(inputs []ir.MiscInput) (string, error) {
	imms := make([]spv.Imm, 0, len(inputs))
	for _, in := range inputs {
		if in.Kind != ir.MiscInputSpvImm {
			break
		}
		imms = append(imms, in.Imm)
	}
	s, _, err := spv.DecodeStringImms(imms)
	return s, err
}

package ir

import (
	"testing"
)

// useCounter only overrides the entity use hooks and ignores interned ones.
type useCounter struct {
	globalVars, funcs int
	other             int
}

func (c *useCounter) VisitAttrSetUse(AttrSet)     { c.other++ }
func (c *useCounter) VisitTypeUse(Type)           { c.other++ }
func (c *useCounter) VisitConstUse(Const)         { c.other++ }
func (c *useCounter) VisitGlobalVarUse(GlobalVar) { c.globalVars++ }
func (c *useCounter) VisitFuncUse(Func)           { c.funcs++ }

func TestModuleVisitCountsEntityUses(t *testing.T) {
	f := newFixture()
	c := &useCounter{}
	VisitModule(c, f.m)
	if c.globalVars != 2 || c.funcs != 3 {
		t.Fatalf("visited %d global var uses and %d func uses, want 2 and 3", c.globalVars, c.funcs)
	}
	if c.other != 0 {
		t.Fatalf("module-level descent reached %d interned uses", c.other)
	}
}

func TestModuleVisitSkipsExports(t *testing.T) {
	f := newFixture()
	if err := f.m.Export(EntryPointExport(nil, []GlobalVar{f.gvs[0]}), FuncExportee(f.funcs[0])); err != nil {
		t.Fatalf("export: %v", err)
	}
	c := &useCounter{}
	VisitModule(c, f.m)
	if c.globalVars != f.m.NumGlobalVars() || c.funcs != f.m.NumFuncs() {
		t.Fatalf("got %d/%d uses, want %d/%d", c.globalVars, c.funcs, f.m.NumGlobalVars(), f.m.NumFuncs())
	}

	c = &useCounter{}
	f.m.VisitExports(c)
	if c.globalVars != 1 || c.funcs != 1 {
		t.Fatalf("export table: got %d/%d uses, want 1/1", c.globalVars, c.funcs)
	}
}

// tracer records the order of hooks hit during a one-level descent.
type tracer struct {
	useCounter
	log []string
}

func (tr *tracer) VisitAttrSetUse(AttrSet)     { tr.log = append(tr.log, "attrs") }
func (tr *tracer) VisitTypeUse(Type)           { tr.log = append(tr.log, "type") }
func (tr *tracer) VisitConstUse(Const)         { tr.log = append(tr.log, "const") }
func (tr *tracer) VisitFuncUse(Func)           { tr.log = append(tr.log, "func") }
func (tr *tracer) VisitImport(*Import)         { tr.log = append(tr.log, "import") }
func (tr *tracer) VisitMiscOutput(*MiscOutput) { tr.log = append(tr.log, "output") }

func TestFuncDeclDefaultDescent(t *testing.T) {
	f := newFixture()
	cases := []struct {
		fn   Func
		want []string
	}{
		// attrs, ret type, func type, then the body: return's attrs and const.
		{f.funcs[0], []string{"attrs", "type", "type", "attrs", "const"}},
		{f.funcs[1], []string{"attrs", "type", "type", "import"}},
		// call: attrs, callee, overridden output; then the return.
		{f.funcs[2], []string{"attrs", "type", "type", "attrs", "func", "output", "attrs", "const"}},
	}
	for i, tc := range cases {
		tr := &tracer{}
		VisitFuncDecl(tr, tc.fn.Decl())
		if len(tr.log) != len(tc.want) {
			t.Fatalf("func %d: log %v, want %v", i, tr.log, tc.want)
		}
		for j := range tr.log {
			if tr.log[j] != tc.want[j] {
				t.Fatalf("func %d: log %v, want %v", i, tr.log, tc.want)
			}
		}
	}
}

// skipBodies truncates descent at function declarations.
type skipBodies struct {
	useCounter
	decls int
}

func (s *skipBodies) VisitFuncDecl(*FuncDecl) { s.decls++ }

func TestOverrideTruncatesDescent(t *testing.T) {
	f := newFixture()
	s := &skipBodies{}
	for _, fn := range f.m.Funcs() {
		VisitFuncDecl(s, fn.Decl())
	}
	if s.decls != 3 || s.other != 0 || s.funcs != 0 {
		t.Fatalf("override did not stop descent: %+v", s)
	}
}

func TestCollectorPostOrder(t *testing.T) {
	f := newFixture()
	c := NewCollector().CollectModule(f.m)

	pos := map[Type]int{}
	for i, ty := range c.Types {
		pos[ty] = i
	}
	if pos[f.u32] > pos[f.ptr] || pos[f.u32] > pos[f.fnTy] {
		t.Fatalf("element type must precede types built from it: %v", pos)
	}
	if len(c.Types) != 3 {
		t.Fatalf("collected %d types, want 3", len(c.Types))
	}
	if len(c.Consts) != 1 || c.Consts[0] != f.seven {
		t.Fatalf("collected consts %v", c.Consts)
	}
	if len(c.GlobalVars) != 2 || len(c.Funcs) != 3 {
		t.Fatalf("collected %d vars and %d funcs", len(c.GlobalVars), len(c.Funcs))
	}
	// funcs[2] calls funcs[0] so funcs[0] must come first.
	if c.Funcs[0] != f.funcs[0] {
		t.Fatalf("callee not collected before caller: %v", c.Funcs)
	}
	if len(c.AttrSets) != 1 {
		t.Fatalf("collected %d attr sets, want 1", len(c.AttrSets))
	}
}

func TestCollectorHandlesRecursion(t *testing.T) {
	f := newFixture()
	// Make funcs[0] call itself.
	body, _ := f.funcs[0].Decl().Def.Def()
	body.Insts = append(body.Insts, Misc{Attrs: f.cx.EmptyAttrSet(), Kind: FuncCallKind(f.funcs[0])})
	c := NewCollector().CollectModule(f.m)
	if len(c.Funcs) != 3 {
		t.Fatalf("recursive call broke collection: %d funcs", len(c.Funcs))
	}
}

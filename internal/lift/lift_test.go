package lift_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"spvir/internal/ir"
	"spvir/internal/lift"
	"spvir/internal/lower"
	"spvir/internal/spv"
	"spvir/internal/spv/spec"
	"spvir/internal/testkit"
)

func lowerData(t *testing.T, data []byte) *ir.Module {
	t.Helper()
	sm, err := spv.Read(data)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	m, err := lower.Lower(context.Background(), ir.NewContext(), sm)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return m
}

func liftModule(t *testing.T, m *ir.Module) *spv.Module {
	t.Helper()
	out, err := lift.Lift(context.Background(), m)
	if err != nil {
		t.Fatalf("lift: %v", err)
	}
	return out
}

func bodyNames(m *ir.Module) [][]string {
	var out [][]string
	for _, f := range m.Funcs() {
		var names []string
		if body, ok := f.Decl().Def.Def(); ok {
			for _, inst := range body.Insts {
				names = append(names, inst.Kind.Name())
			}
		}
		out = append(out, names)
	}
	return out
}

func TestLiftKeepsHeader(t *testing.T) {
	out := liftModule(t, lowerData(t, testkit.SampleModule()))
	want := spv.ModuleLayout{
		HeaderVersion:          testkit.SampleVersion,
		OriginalGeneratorMagic: testkit.SampleGenerator,
		OriginalIDBound:        testkit.SampleBound,
		Capabilities:           []uint32{1, 5, 10},
	}
	if diff := cmp.Diff(want, out.Layout); diff != "" {
		t.Fatalf("layout (-want +got):\n%s", diff)
	}
}

func TestLiftKeepsDeclaredIDs(t *testing.T) {
	out := liftModule(t, lowerData(t, testkit.SampleModule()))
	var vars, funcs []spv.ID
	for _, inst := range out.Insts {
		switch inst.Opcode {
		case spec.OpVariable:
			vars = append(vars, inst.ResultID)
		case spec.OpFunction:
			funcs = append(funcs, inst.ResultID)
		}
	}
	if diff := cmp.Diff([]spv.ID{8}, vars); diff != "" {
		t.Fatalf("variables (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]spv.ID{12, 10, 14}, funcs); diff != "" {
		t.Fatalf("functions (-want +got):\n%s", diff)
	}
}

func TestLiftRoundTripRelowers(t *testing.T) {
	first := lowerData(t, testkit.SampleModule())
	out := liftModule(t, first)
	data, err := spv.Write(out)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	second := lowerData(t, data)
	if err := testkit.CheckModuleInvariants(second); err != nil {
		t.Fatalf("re-lowered module: %v", err)
	}

	if second.NumFuncs() != 3 || second.NumGlobalVars() != 1 {
		t.Fatalf("got %d funcs and %d global vars", second.NumFuncs(), second.NumGlobalVars())
	}
	if n := len(second.Exports()); n != 2 {
		t.Fatalf("got %d exports, want 2", n)
	}
	if n := len(second.Globals); n != 2 {
		t.Fatalf("got %d globals, want 2", n)
	}
	if diff := cmp.Diff(bodyNames(first), bodyNames(second)); diff != "" {
		t.Fatalf("function bodies (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Dialect.Spv, second.Dialect.Spv); diff != "" {
		t.Fatalf("dialect (-first +second):\n%s", diff)
	}

	lined := 0
	body, _ := second.Funcs()[1].Decl().Def.Def()
	for _, inst := range body.Insts {
		for _, a := range inst.Attrs.Def().Attrs {
			if a.Kind == ir.AttrSpvDebugLine {
				lined++
			}
		}
	}
	if lined != 4 {
		t.Fatalf("got %d instructions with a debug line, want 4", lined)
	}
}

func TestLiftSynthesizesDebugString(t *testing.T) {
	m := lowerData(t, testkit.SampleModule())
	cx := m.Cx()
	body, _ := m.Funcs()[2].Decl().Def.Def()
	body.Insts[2].Attrs = cx.InternAttrSet(ir.AttrSetDef{Attrs: []ir.Attr{
		ir.DebugLineAttr(cx.InternStr("other.comp"), 9, 2),
	}})

	out := liftModule(t, m)
	strs := map[string]spv.ID{}
	var lineFiles []spv.ID
	for _, inst := range out.Insts {
		switch inst.Opcode {
		case spec.OpString:
			imms := make([]spv.Imm, len(inst.Operands))
			for i, op := range inst.Operands {
				imms[i] = op.Imm
			}
			s, _, err := spv.DecodeStringImms(imms)
			if err != nil {
				t.Fatalf("decode OpString: %v", err)
			}
			strs[s] = inst.ResultID
		case spec.OpLine:
			lineFiles = append(lineFiles, inst.Operands[0].ID)
		}
	}
	if strs["shader.comp"] != 2 {
		t.Fatalf("existing string moved: %v", strs)
	}
	id, ok := strs["other.comp"]
	if !ok {
		t.Fatalf("no OpString for other.comp: %v", strs)
	}
	if diff := cmp.Diff([]spv.ID{2, id}, lineFiles); diff != "" {
		t.Fatalf("OpLine files (-want +got):\n%s", diff)
	}
}

func TestLiftDefersGlobalVarConstants(t *testing.T) {
	wk := &spec.Get().WellKnown
	cx := ir.NewContext()
	m := ir.NewModule(cx, ir.SpvDialect(spv.Dialect{VersionMajor: 1, MemoryModel: 1}), ir.SpvDebugInfo(spv.ModuleDebugInfo{}))
	empty := cx.EmptyAttrSet()

	u32 := cx.InternType(ir.TypeDef{Attrs: empty, Ctor: ir.SpvInstTypeCtor(spec.OpTypeInt), CtorArgs: []ir.TypeCtorArg{
		ir.TypeImmArg(spv.ShortImm(wk.LiteralInteger, 32)),
		ir.TypeImmArg(spv.ShortImm(wk.LiteralInteger, 0)),
	}})
	ptr := cx.InternType(ir.TypeDef{Attrs: empty, Ctor: ir.SpvInstTypeCtor(spec.OpTypePointer), CtorArgs: []ir.TypeCtorArg{
		ir.TypeImmArg(spv.ShortImm(wk.StorageClass, 6)),
		ir.TypeArg(u32),
	}})
	addr := cx.InternConst(ir.ConstDef{Attrs: empty, Type: ptr, Ctor: ir.SpvInstConstCtor(spec.OpSpecConstantOp), CtorArgs: []ir.ConstCtorArg{
		ir.ConstImmArg(spv.ShortImm(wk.LiteralSpecConstantOpInteger, 124)),
		ir.UntrackedGlobalVarArg(50),
	}})

	m.DeclareGlobalVar(ir.GlobalVarDecl{
		Attrs:       empty,
		TypeOfPtrTo: ptr,
		AddrSpace:   ir.SpvStorageClass(6),
		Def:         ir.Present(ir.GlobalVarDefBody{}),
		SpvResultID: 50,
	})
	m.DeclareGlobalVar(ir.GlobalVarDecl{
		Attrs:       empty,
		TypeOfPtrTo: ptr,
		AddrSpace:   ir.SpvStorageClass(6),
		Def:         ir.Present(ir.GlobalVarDefBody{Initializer: addr}),
	})

	out := liftModule(t, m)
	var got []string
	for _, inst := range out.Insts {
		switch inst.Opcode {
		case spec.OpTypeInt, spec.OpTypePointer, spec.OpVariable, spec.OpSpecConstantOp:
			got = append(got, inst.Opcode.Name())
		}
	}
	want := []string{"OpTypeInt", "OpTypePointer", "OpVariable", "OpSpecConstantOp", "OpVariable"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("value order (-want +got):\n%s", diff)
	}
	if out.Layout.OriginalIDBound != 51 {
		t.Fatalf("bound = %d, want 51", out.Layout.OriginalIDBound)
	}
}

func TestLiftRejectsAnnotationWithoutResult(t *testing.T) {
	m := lowerData(t, testkit.SampleModule())
	cx := m.Cx()
	wk := &spec.Get().WellKnown
	body, _ := m.Funcs()[1].Decl().Def.Def()
	for i := range body.Insts {
		if body.Insts[i].Kind.Opcode == spec.OpStore {
			body.Insts[i].Attrs = cx.InternAttrSet(ir.AttrSetDef{Attrs: []ir.Attr{
				ir.AnnotationAttr(spec.OpDecorate, []spv.Imm{spv.ShortImm(wk.Decoration, 19)}),
			}})
		}
	}
	if _, err := lift.Lift(context.Background(), m); !errors.Is(err, lift.ErrUnrepresentable) {
		t.Fatalf("got %v, want ErrUnrepresentable", err)
	}
}

func TestLiftHonorsCancellation(t *testing.T) {
	m := lowerData(t, testkit.SampleModule())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := lift.Lift(ctx, m); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

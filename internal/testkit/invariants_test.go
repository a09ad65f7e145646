package testkit_test

import (
	"context"
	"strings"
	"testing"

	"spvir/internal/ir"
	"spvir/internal/lower"
	"spvir/internal/spv"
	"spvir/internal/spv/spec"
	"spvir/internal/testkit"
)

func lowerSample(t *testing.T) *ir.Module {
	t.Helper()
	sm, err := spv.Read(testkit.SampleModule())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	m, err := lower.Lower(context.Background(), ir.NewContext(), sm)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return m
}

func TestSampleSatisfiesInvariants(t *testing.T) {
	if err := testkit.CheckModuleInvariants(lowerSample(t)); err != nil {
		t.Fatalf("sample module: %v", err)
	}
}

func TestInvariantsCatchDuplicateResults(t *testing.T) {
	m := lowerSample(t)
	body, ok := m.Funcs()[1].Decl().Def.Def()
	if !ok {
		t.Fatal("main has no body")
	}
	body.Insts = append(body.Insts, ir.Misc{
		Attrs:  m.Cx().EmptyAttrSet(),
		Kind:   ir.SpvInstKind(spec.OpLabel),
		Output: ir.LabelResult(body.Insts[0].Output.ResultID),
	})
	err := testkit.CheckModuleInvariants(m)
	if err == nil || !strings.Contains(err.Error(), "defined at 0") {
		t.Fatalf("expected duplicate result error, got %v", err)
	}
}

func TestInvariantsCatchForeignEntities(t *testing.T) {
	m := lowerSample(t)
	other := lowerSample(t)
	body, _ := m.Funcs()[1].Decl().Def.Def()
	body.Insts = append(body.Insts, ir.Misc{
		Attrs: m.Cx().EmptyAttrSet(),
		Kind:  ir.FuncCallKind(other.Funcs()[0]),
	})
	err := testkit.CheckModuleInvariants(m)
	if err == nil || !strings.Contains(err.Error(), "another module") {
		t.Fatalf("expected foreign function error, got %v", err)
	}
}

func TestInvariantsAllowParametersBeforeLabel(t *testing.T) {
	m := lowerSample(t)
	body, ok := m.Funcs()[2].Decl().Def.Def()
	if !ok {
		t.Fatal("func2 has no body")
	}
	if op := body.Insts[0].Kind.Opcode; op != spec.OpFunctionParameter {
		t.Fatalf("func2 opens with opcode %d, want OpFunctionParameter", op)
	}
	if err := testkit.CheckModuleInvariants(m); err != nil {
		t.Fatalf("function with a parameter: %v", err)
	}
}

func TestInvariantsRequireLabelAfterParameters(t *testing.T) {
	m := lowerSample(t)
	body, _ := m.Funcs()[2].Decl().Def.Def()
	body.Insts = append(body.Insts[:1], body.Insts[2:]...)
	err := testkit.CheckModuleInvariants(m)
	if err == nil || !strings.Contains(err.Error(), "func2: body does not open with OpLabel") {
		t.Fatalf("expected missing label error, got %v", err)
	}
}

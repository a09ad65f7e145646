package spec

import (
	"strings"
	"testing"
)

func TestEmbeddedGrammarLoads(t *testing.T) {
	s := Get()
	if s == nil {
		t.Fatalf("grammar not loaded")
	}
	if got := s.WellKnown.IDRef.Name(); got != "IdRef" {
		t.Fatalf("well-known IdRef resolved to %q", got)
	}
	if got := s.WellKnown.Capability.Category(); got != CategoryValueEnum {
		t.Fatalf("Capability category = %v", got)
	}
}

func TestOpcodeConstantsMatchGrammar(t *testing.T) {
	cases := []struct {
		op   Opcode
		name string
	}{
		{OpCapability, "OpCapability"},
		{OpTypeInt, "OpTypeInt"},
		{OpConstant, "OpConstant"},
		{OpSpecConstantComp, "OpSpecConstantComposite"},
		{OpFunction, "OpFunction"},
		{OpVariable, "OpVariable"},
		{OpDecorate, "OpDecorate"},
		{OpLabel, "OpLabel"},
		{OpModuleProcessed, "OpModuleProcessed"},
		{OpDecorateString, "OpDecorateString"},
	}
	for _, tc := range cases {
		if got := tc.op.Name(); got != tc.name {
			t.Fatalf("opcode %d: name %q, want %q", tc.op, got, tc.name)
		}
	}
}

func TestUnknownOpcodeName(t *testing.T) {
	if got := Opcode(9999).Name(); got != "Op<9999>" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestResultFlags(t *testing.T) {
	s := Get()
	desc, ok := s.Instruction(OpTypeInt)
	if !ok {
		t.Fatalf("OpTypeInt missing")
	}
	if desc.HasResultType || !desc.HasResultID {
		t.Fatalf("OpTypeInt flags: type=%v id=%v", desc.HasResultType, desc.HasResultID)
	}
	if len(desc.Operands) != 2 {
		t.Fatalf("OpTypeInt operands = %d, want 2", len(desc.Operands))
	}
	desc, _ = s.Instruction(OpVariable)
	if !desc.HasResultType || !desc.HasResultID {
		t.Fatalf("OpVariable must have result type and id")
	}
	if q := desc.Operands[len(desc.Operands)-1].Quantifier; q != Optional {
		t.Fatalf("OpVariable initializer quantifier = %v", q)
	}
}

func TestEnumerantParams(t *testing.T) {
	s := Get()
	deco := s.Kind(s.WellKnown.Decoration)
	e, ok := deco.Enumerant(DecorationLinkageAttributes)
	if !ok || e.Name != "LinkageAttributes" {
		t.Fatalf("LinkageAttributes lookup: %+v %v", e, ok)
	}
	if len(e.Params) != 2 || e.Params[0] != s.WellKnown.LiteralString || e.Params[1] != s.WellKnown.LinkageType {
		t.Fatalf("unexpected params %v", e.Params)
	}
	if _, ok := deco.Enumerant(123456); ok {
		t.Fatalf("unexpected enumerant for unknown value")
	}
}

func TestInstructionsSorted(t *testing.T) {
	all := Get().Instructions()
	for i := 1; i < len(all); i++ {
		if all[i-1].Opcode >= all[i].Opcode {
			t.Fatalf("instructions not sorted at %d", i)
		}
	}
}

func TestParseRejectsUnknownKind(t *testing.T) {
	doc := `instructions = [{ opname = "OpX", opcode = 1, operands = [{ kind = "Nope" }] }]`
	_, err := Parse(doc)
	if err == nil || !strings.Contains(err.Error(), "unknown operand kind") {
		t.Fatalf("expected unknown operand kind error, got %v", err)
	}
}

func TestParseRejectsUnknownKey(t *testing.T) {
	doc := "bogus = 1\n"
	if _, err := Parse(doc); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

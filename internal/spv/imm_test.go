package spv

import (
	"testing"

	"pgregory.net/rapid"

	"spvir/internal/spv/spec"
)

func TestStringImmsShape(t *testing.T) {
	kind := spec.Get().WellKnown.LiteralString
	cases := []struct {
		s     string
		words int
	}{
		{"", 1},
		{"abc", 1},
		{"abcd", 2},
		{"GLSL.std.450", 4},
	}
	for _, tc := range cases {
		imms := StringImms(kind, tc.s)
		if len(imms) != tc.words {
			t.Fatalf("%q: %d words, want %d", tc.s, len(imms), tc.words)
		}
		if tc.words == 1 && imms[0].Kind != ImmShort {
			t.Fatalf("%q: single word must be short, got %v", tc.s, imms[0].Kind)
		}
		if tc.words > 1 {
			if imms[0].Kind != ImmLongStart {
				t.Fatalf("%q: first word kind %v", tc.s, imms[0].Kind)
			}
			for _, imm := range imms[1:] {
				if imm.Kind != ImmLongCont {
					t.Fatalf("%q: continuation kind %v", tc.s, imm.Kind)
				}
			}
		}
	}
}

func TestStringImmsRoundTrip(t *testing.T) {
	kind := spec.Get().WellKnown.LiteralString
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringMatching(`[a-zA-Z0-9_./ -]{0,40}`).Draw(t, "s")
		tail := ShortImm(kind, 7)
		imms := append(StringImms(kind, s), tail)
		got, rest, err := DecodeStringImms(imms)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != s {
			t.Fatalf("decoded %q, want %q", got, s)
		}
		if len(rest) != 1 || rest[0] != tail {
			t.Fatalf("rest = %v", rest)
		}
	})
}

func TestTakeImmStopsAtNextLogicalValue(t *testing.T) {
	k := spec.Get().WellKnown.LiteralInteger
	imms := []Imm{
		{Kind: ImmLongStart, OperandKind: k, Value: 1},
		{Kind: ImmLongCont, OperandKind: k, Value: 2},
		{Kind: ImmLongStart, OperandKind: k, Value: 3},
		{Kind: ImmLongCont, OperandKind: k, Value: 4},
	}
	words, rest := TakeImm(imms)
	if len(words) != 2 || words[0] != 1 || words[1] != 2 {
		t.Fatalf("words = %v", words)
	}
	if len(rest) != 2 {
		t.Fatalf("rest = %v", rest)
	}
}

func TestImmCompare(t *testing.T) {
	k := spec.Get().WellKnown.LiteralInteger
	a := ShortImm(k, 1)
	b := ShortImm(k, 2)
	if a.Compare(b) >= 0 || b.Compare(a) <= 0 || a.Compare(a) != 0 {
		t.Fatalf("unexpected ordering")
	}
}

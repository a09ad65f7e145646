package ir

import (
	"testing"

	"pgregory.net/rapid"

	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

func TestAttrSetOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cx := NewContext()
		file := cx.InternStr("a.comp")
		pool := []Attr{
			AnnotationAttr(spec.OpDecorate, []spv.Imm{literal(30), literal(0)}),
			AnnotationAttr(spec.OpDecorate, []spv.Imm{literal(33), literal(1)}),
			AnnotationAttr(spec.OpName, spv.StringImms(spec.Get().WellKnown.LiteralString, "counter")),
			EntryPointAttr([]spv.Imm{literal(5)}, []spv.ID{8, 9}),
			DebugLineAttr(file, 3, 1),
		}
		attrs := rapid.SliceOfN(rapid.SampledFrom(pool), 0, 8).Draw(t, "attrs")
		perm := rapid.Permutation(attrs).Draw(t, "perm")

		a := cx.InternAttrSet(AttrSetDef{Attrs: attrs})
		b := cx.InternAttrSet(AttrSetDef{Attrs: perm})
		if a != b {
			t.Fatalf("same multiset in different order interned to different sets")
		}
		def := a.Def()
		for i := 1; i < len(def.Attrs); i++ {
			if def.Attrs[i-1].Compare(&def.Attrs[i]) >= 0 {
				t.Fatalf("stored attrs not strictly sorted at %d", i)
			}
		}
	})
}

func TestAttrSetDeduplicates(t *testing.T) {
	cx := NewContext()
	d := AnnotationAttr(spec.OpDecorate, []spv.Imm{literal(24)})
	set := cx.InternAttrSet(AttrSetDef{Attrs: []Attr{d, d, d}})
	if n := len(set.Def().Attrs); n != 1 {
		t.Fatalf("got %d attrs, want 1", n)
	}
	if cx.InternAttrSet(AttrSetDef{}) != cx.EmptyAttrSet() {
		t.Fatalf("empty set not canonical")
	}
	if cx.InternAttrSet(AttrSetDef{Attrs: []Attr{}}) != cx.EmptyAttrSet() {
		t.Fatalf("empty non-nil set not canonical")
	}
}

func TestOrdAssertEqComparesEqualValues(t *testing.T) {
	cx := NewContext()
	f := cx.InternStr("x.comp")
	a := DebugLineAttr(f, 1, 2)
	b := DebugLineAttr(cx.InternStr("x.comp"), 1, 3)
	if c := a.Compare(&b); c >= 0 {
		t.Fatalf("same file, lower column should sort first, got %d", c)
	}
}

func TestOrdAssertEqPanicsOnUnequal(t *testing.T) {
	cx := NewContext()
	a := DebugLineAttr(cx.InternStr("a.comp"), 1, 1)
	b := DebugLineAttr(cx.InternStr("b.comp"), 1, 1)
	var result int
	expectPanic(t, "unequal values", func() { result = a.Compare(&b) })
	if result != 0 {
		t.Fatalf("Compare returned %d before panicking", result)
	}
	expectPanic(t, "unequal values", func() {
		OrdAssertEq[int]{V: 1}.Compare(OrdAssertEq[int]{V: 2})
	})
}

func TestAttrEqualDoesNotPanic(t *testing.T) {
	cx := NewContext()
	a := DebugLineAttr(cx.InternStr("a.comp"), 1, 1)
	b := DebugLineAttr(cx.InternStr("b.comp"), 1, 1)
	if a.Equal(&b) {
		t.Fatalf("different files reported equal")
	}
}

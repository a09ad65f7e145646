package ir

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"spvir/internal/spv"
	"spvir/internal/spv/spec"
)

func literal(v uint32) spv.Imm {
	return spv.ShortImm(spec.Get().WellKnown.LiteralInteger, v)
}

func intType(cx *Context, width uint32, signed bool) Type {
	s := uint32(0)
	if signed {
		s = 1
	}
	return cx.InternType(TypeDef{
		Attrs:    cx.EmptyAttrSet(),
		Ctor:     SpvInstTypeCtor(spec.OpTypeInt),
		CtorArgs: []TypeCtorArg{TypeImmArg(literal(width)), TypeImmArg(literal(s))},
	})
}

// genTypeDef draws a TypeDef whose nested handles come from pool.
func genTypeDef(cx *Context, pool []Type) *rapid.Generator[TypeDef] {
	return rapid.Custom(func(t *rapid.T) TypeDef {
		ops := []spec.Opcode{spec.OpTypeInt, spec.OpTypeFloat, spec.OpTypeVector, spec.OpTypePointer}
		op := rapid.SampledFrom(ops).Draw(t, "op")
		n := rapid.IntRange(0, 3).Draw(t, "nargs")
		args := make([]TypeCtorArg, 0, n)
		for i := 0; i < n; i++ {
			if len(pool) > 0 && rapid.Bool().Draw(t, "nested") {
				args = append(args, TypeArg(rapid.SampledFrom(pool).Draw(t, "elem")))
			} else {
				args = append(args, TypeImmArg(literal(rapid.Uint32Range(0, 8).Draw(t, "imm"))))
			}
		}
		return TypeDef{Attrs: cx.EmptyAttrSet(), Ctor: SpvInstTypeCtor(op), CtorArgs: args}
	})
}

func typeDefsEqual(a, b TypeDef) bool {
	if a.Attrs != b.Attrs || a.Ctor != b.Ctor || len(a.CtorArgs) != len(b.CtorArgs) {
		return false
	}
	for i := range a.CtorArgs {
		if a.CtorArgs[i] != b.CtorArgs[i] {
			return false
		}
	}
	return true
}

func TestInternTypeIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cx := NewContext()
		pool := []Type{intType(cx, 32, false), intType(cx, 32, true)}
		a := genTypeDef(cx, pool).Draw(t, "a")
		b := genTypeDef(cx, pool).Draw(t, "b")

		ha1, ha2 := cx.InternType(a), cx.InternType(a)
		if ha1 != ha2 {
			t.Fatalf("interning the same TypeDef twice gave %d and %d", ha1.Index(), ha2.Index())
		}
		hb := cx.InternType(b)
		if typeDefsEqual(a, b) != (ha1 == hb) {
			t.Fatalf("handle equality %v disagrees with structural equality %v", ha1 == hb, typeDefsEqual(a, b))
		}
	})
}

func TestInternTypeStructuralReduction(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cx := NewContext()
		w := rapid.SampledFrom([]uint32{8, 16, 32, 64}).Draw(t, "width")
		n := rapid.Uint32Range(2, 4).Draw(t, "count")
		// Two independently built element types collapse to one handle, so
		// the vector types built on top of them do too.
		e1, e2 := intType(cx, w, false), intType(cx, w, false)
		v1 := cx.InternType(TypeDef{Attrs: cx.EmptyAttrSet(), Ctor: SpvInstTypeCtor(spec.OpTypeVector),
			CtorArgs: []TypeCtorArg{TypeArg(e1), TypeImmArg(literal(n))}})
		v2 := cx.InternType(TypeDef{Attrs: cx.EmptyAttrSet(), Ctor: SpvInstTypeCtor(spec.OpTypeVector),
			CtorArgs: []TypeCtorArg{TypeArg(e2), TypeImmArg(literal(n))}})
		if v1 != v2 {
			t.Fatalf("structurally equal vectors interned to different handles")
		}
	})
}

func TestInternConstAndStr(t *testing.T) {
	cx := NewContext()
	u32 := intType(cx, 32, false)
	seven := ConstDef{Attrs: cx.EmptyAttrSet(), Type: u32, Ctor: SpvInstConstCtor(spec.OpConstant),
		CtorArgs: []ConstCtorArg{ConstImmArg(literal(7))}}
	c1, c2 := cx.InternConst(seven), cx.InternConst(seven)
	if c1 != c2 {
		t.Fatalf("constant not deduplicated")
	}
	eight := seven
	eight.CtorArgs = []ConstCtorArg{ConstImmArg(literal(8))}
	if cx.InternConst(eight) == c1 {
		t.Fatalf("distinct constants share a handle")
	}
	if got := c1.Def().CtorArgs[0].Imm.Value; got != 7 {
		t.Fatalf("stored constant mutated: %d", got)
	}

	s1, s2 := cx.InternStr("main"), cx.InternStr("main")
	if s1 != s2 || s1.String() != "main" {
		t.Fatalf("string interning broken: %v %v %q", s1, s2, s1.String())
	}
	if cx.InternStr("other") == s1 {
		t.Fatalf("distinct strings share a handle")
	}
}

func TestInternCopiesArgs(t *testing.T) {
	cx := NewContext()
	args := []TypeCtorArg{TypeImmArg(literal(32)), TypeImmArg(literal(0))}
	ty := cx.InternType(TypeDef{Attrs: cx.EmptyAttrSet(), Ctor: SpvInstTypeCtor(spec.OpTypeInt), CtorArgs: args})
	args[0] = TypeImmArg(literal(64))
	if ty.Def().CtorArgs[0].Imm.Value != 32 {
		t.Fatalf("interned definition aliases caller slice")
	}
}

func expectPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", want)
		}
		msg, _ := r.(string)
		if err, ok := r.(error); ok {
			msg = err.Error()
		}
		if !strings.Contains(msg, want) {
			t.Fatalf("panic %q does not mention %q", msg, want)
		}
	}()
	fn()
}

func TestForeignHandlePanics(t *testing.T) {
	cx1, cx2 := NewContext(), NewContext()
	foreign := intType(cx1, 32, false)
	expectPanic(t, "different Context", func() {
		cx2.InternType(TypeDef{Attrs: cx2.EmptyAttrSet(), Ctor: SpvInstTypeCtor(spec.OpTypeVector),
			CtorArgs: []TypeCtorArg{TypeArg(foreign), TypeImmArg(literal(4))}})
	})
	expectPanic(t, "different Context", func() {
		cx2.InternType(TypeDef{Attrs: cx1.EmptyAttrSet(), Ctor: SpvInstTypeCtor(spec.OpTypeBool)})
	})
}

func TestZeroHandlePanics(t *testing.T) {
	expectPanic(t, "invalid Type handle", func() { _ = Type{}.Def() })
	expectPanic(t, "invalid Const handle", func() { _ = Const{}.Def() })
	expectPanic(t, "invalid AttrSet handle", func() { _ = AttrSet{}.Def() })
	expectPanic(t, "invalid InternedStr handle", func() { _ = InternedStr{}.String() })

	cx := NewContext()
	expectPanic(t, "invalid Type handle", func() {
		cx.InternConst(ConstDef{Attrs: cx.EmptyAttrSet(), Ctor: SpvInstConstCtor(spec.OpConstantNull)})
	})
}

func TestContextStats(t *testing.T) {
	cx := NewContext()
	intType(cx, 32, false)
	intType(cx, 32, false)
	cx.InternStr("x")
	st := cx.Stats()
	if st.Types != 1 || st.AttrSets != 1 || st.Strs != 1 || st.Consts != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

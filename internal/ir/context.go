// Package ir is the interned, structurally shared IR for SPIR-V modules:
// the Context that canonicalizes types, constants, attribute sets and
// strings, the Module data model, and the visitor framework.
package ir

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
)

// Context owns the interning tables shared by every Module built against it.
//
// Interning is not safe for concurrent use. Once a Context is fully built,
// concurrent reads through handles are safe: tables are append-only and
// stored definitions are never mutated.
type Context struct {
	strs     table[string]
	attrSets table[*AttrSetDef]
	types    table[*TypeDef]
	consts   table[*ConstDef]

	emptyAttrs AttrSet
}

// NewContext returns an empty Context with the empty attribute set
// pre-interned.
func NewContext() *Context {
	cx := &Context{
		strs:     newTable[string](),
		attrSets: newTable[*AttrSetDef](),
		types:    newTable[*TypeDef](),
		consts:   newTable[*ConstDef](),
	}
	cx.emptyAttrs = cx.InternAttrSet(AttrSetDef{})
	return cx
}

// EmptyAttrSet returns the handle of the attribute set with no attributes.
func (cx *Context) EmptyAttrSet() AttrSet { return cx.emptyAttrs }

// ContextStats counts interned entries per table.
type ContextStats struct {
	Strs     int `json:"strs" msgpack:"strs"`
	AttrSets int `json:"attr_sets" msgpack:"attr_sets"`
	Types    int `json:"types" msgpack:"types"`
	Consts   int `json:"consts" msgpack:"consts"`
}

// Stats reports table sizes.
func (cx *Context) Stats() ContextStats {
	return ContextStats{
		Strs:     len(cx.strs.defs),
		AttrSets: len(cx.attrSets.defs),
		Types:    len(cx.types.defs),
		Consts:   len(cx.consts.defs),
	}
}

// table is an append-only arena plus a dedup index keyed by the canonical
// encoding of each definition.
type table[D any] struct {
	defs  []D
	index map[string]uint32
}

func newTable[D any]() table[D] {
	return table[D]{index: make(map[string]uint32, 64)}
}

func (t *table[D]) intern(key string, def func() D) uint32 {
	if idx, ok := t.index[key]; ok {
		return idx
	}
	idx, err := safecast.Conv[uint32](len(t.defs))
	if err != nil {
		panic(fmt.Errorf("ir: interning table overflow: %w", err))
	}
	t.defs = append(t.defs, def())
	t.index[key] = idx
	return idx
}

// keyBuilder produces the canonical byte encoding used as a table key.
// Nested handles are checked against the owning Context as they are
// written, which is where foreign handles get caught.
type keyBuilder struct {
	cx  *Context
	buf []byte
}

func (k *keyBuilder) u32(v uint32) { k.buf = binary.LittleEndian.AppendUint32(k.buf, v) }

func (k *keyBuilder) u8(v uint8) { k.buf = append(k.buf, v) }

func (k *keyBuilder) own(owner *Context, what string) {
	if owner == nil {
		panic(fmt.Sprintf("ir: invalid %s handle", what))
	}
	if owner != k.cx {
		panic(fmt.Sprintf("ir: %s handle belongs to a different Context", what))
	}
}

func (k *keyBuilder) typ(t Type) {
	k.own(t.cx, "Type")
	k.u32(t.idx)
}

func (k *keyBuilder) cnst(c Const) {
	k.own(c.cx, "Const")
	k.u32(c.idx)
}

func (k *keyBuilder) attrs(a AttrSet) {
	k.own(a.cx, "AttrSet")
	k.u32(a.idx)
}

func (k *keyBuilder) istr(s InternedStr) {
	k.own(s.cx, "InternedStr")
	k.u32(s.idx)
}

func (k *keyBuilder) String() string { return string(k.buf) }

// InternedStr is a handle to an interned string.
type InternedStr struct {
	cx  *Context
	idx uint32
}

// InternStr returns the canonical handle for s.
func (cx *Context) InternStr(s string) InternedStr {
	idx := cx.strs.intern(s, func() string { return s })
	return InternedStr{cx: cx, idx: idx}
}

// IsValid reports whether h came from a Context.
func (h InternedStr) IsValid() bool { return h.cx != nil }

// String returns the interned contents.
func (h InternedStr) String() string {
	if h.cx == nil {
		panic("ir: invalid InternedStr handle")
	}
	return h.cx.strs.defs[h.idx]
}

// Index is the position of the string in its table.
func (h InternedStr) Index() uint32 { return h.idx }

// AttrSet is a handle to an interned AttrSetDef.
type AttrSet struct {
	cx  *Context
	idx uint32
}

// InternAttrSet canonicalizes def (sorting and deduplicating its
// attributes) and returns its handle.
func (cx *Context) InternAttrSet(def AttrSetDef) AttrSet {
	canon := def.canonical()
	k := keyBuilder{cx: cx}
	canon.encode(&k)
	idx := cx.attrSets.intern(k.String(), func() *AttrSetDef { return &canon })
	return AttrSet{cx: cx, idx: idx}
}

// IsValid reports whether h came from a Context.
func (h AttrSet) IsValid() bool { return h.cx != nil }

// Def returns the interned definition. It must not be modified.
func (h AttrSet) Def() *AttrSetDef {
	if h.cx == nil {
		panic("ir: invalid AttrSet handle")
	}
	return h.cx.attrSets.defs[h.idx]
}

// Index is the position of the set in its table.
func (h AttrSet) Index() uint32 { return h.idx }

// Type is a handle to an interned TypeDef.
type Type struct {
	cx  *Context
	idx uint32
}

// InternType returns the canonical handle for def.
func (cx *Context) InternType(def TypeDef) Type {
	k := keyBuilder{cx: cx}
	def.encode(&k)
	def.CtorArgs = cloneSlice(def.CtorArgs)
	idx := cx.types.intern(k.String(), func() *TypeDef { return &def })
	return Type{cx: cx, idx: idx}
}

// IsValid reports whether h came from a Context.
func (h Type) IsValid() bool { return h.cx != nil }

// Def returns the interned definition. It must not be modified.
func (h Type) Def() *TypeDef {
	if h.cx == nil {
		panic("ir: invalid Type handle")
	}
	return h.cx.types.defs[h.idx]
}

// Index is the position of the type in its table.
func (h Type) Index() uint32 { return h.idx }

// Const is a handle to an interned ConstDef.
type Const struct {
	cx  *Context
	idx uint32
}

// InternConst returns the canonical handle for def.
func (cx *Context) InternConst(def ConstDef) Const {
	k := keyBuilder{cx: cx}
	def.encode(&k)
	def.CtorArgs = cloneSlice(def.CtorArgs)
	idx := cx.consts.intern(k.String(), func() *ConstDef { return &def })
	return Const{cx: cx, idx: idx}
}

// IsValid reports whether h came from a Context.
func (h Const) IsValid() bool { return h.cx != nil }

// Def returns the interned definition. It must not be modified.
func (h Const) Def() *ConstDef {
	if h.cx == nil {
		panic("ir: invalid Const handle")
	}
	return h.cx.consts.defs[h.idx]
}

// Index is the position of the constant in its table.
func (h Const) Index() uint32 { return h.idx }

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

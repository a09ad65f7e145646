package ir

// Collector is a deep Visitor: it follows every use into its definition
// once and records entities in post-order, so each entity comes after
// everything it depends on. Recursion through function calls is cut by
// marking a function as seen before its body is visited.
type Collector struct {
	AttrSets   []AttrSet
	Types      []Type
	Consts     []Const
	GlobalVars []GlobalVar
	Funcs      []Func

	seenAttrSets   map[AttrSet]struct{}
	seenTypes      map[Type]struct{}
	seenConsts     map[Const]struct{}
	seenGlobalVars map[GlobalVar]struct{}
	seenFuncs      map[Func]struct{}
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		seenAttrSets:   make(map[AttrSet]struct{}),
		seenTypes:      make(map[Type]struct{}),
		seenConsts:     make(map[Const]struct{}),
		seenGlobalVars: make(map[GlobalVar]struct{}),
		seenFuncs:      make(map[Func]struct{}),
	}
}

// CollectModule visits m and its export table and returns c.
func (c *Collector) CollectModule(m *Module) *Collector {
	VisitModule(c, m)
	m.VisitExports(c)
	return c
}

func (c *Collector) VisitAttrSetUse(a AttrSet) {
	if _, ok := c.seenAttrSets[a]; ok {
		return
	}
	c.seenAttrSets[a] = struct{}{}
	VisitAttrSetDef(c, a.Def())
	c.AttrSets = append(c.AttrSets, a)
}

func (c *Collector) VisitTypeUse(t Type) {
	if _, ok := c.seenTypes[t]; ok {
		return
	}
	c.seenTypes[t] = struct{}{}
	VisitTypeDef(c, t.Def())
	c.Types = append(c.Types, t)
}

func (c *Collector) VisitConstUse(ct Const) {
	if _, ok := c.seenConsts[ct]; ok {
		return
	}
	c.seenConsts[ct] = struct{}{}
	VisitConstDef(c, ct.Def())
	c.Consts = append(c.Consts, ct)
}

func (c *Collector) VisitGlobalVarUse(gv GlobalVar) {
	if _, ok := c.seenGlobalVars[gv]; ok {
		return
	}
	c.seenGlobalVars[gv] = struct{}{}
	VisitGlobalVarDecl(c, gv.Decl())
	c.GlobalVars = append(c.GlobalVars, gv)
}

func (c *Collector) VisitFuncUse(f Func) {
	if _, ok := c.seenFuncs[f]; ok {
		return
	}
	c.seenFuncs[f] = struct{}{}
	VisitFuncDecl(c, f.Decl())
	c.Funcs = append(c.Funcs, f)
}

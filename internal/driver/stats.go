package driver

import (
	"context"
	"crypto/sha256"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"spvir/internal/ir"
)

// Stats summarizes one module.
type Stats struct {
	Path  string `json:"path" msgpack:"path"`
	Bytes int    `json:"bytes" msgpack:"bytes"`
	// Insts counts the instructions of the binary.
	Insts      int             `json:"insts" msgpack:"insts"`
	Interned   ir.ContextStats `json:"interned" msgpack:"interned"`
	GlobalVars int             `json:"global_vars" msgpack:"global_vars"`
	Funcs      int             `json:"funcs" msgpack:"funcs"`
	// FuncInsts counts the instructions inside function bodies.
	FuncInsts int `json:"func_insts" msgpack:"func_insts"`
	Globals   int `json:"globals" msgpack:"globals"`
	Exports   int `json:"exports" msgpack:"exports"`

	// Cached is set when the numbers came from the cache.
	Cached bool `json:"cached,omitempty" msgpack:"-"`
}

// ModuleStats counts what m holds.
func ModuleStats(m *ir.Module) Stats {
	s := Stats{
		Interned:   m.Cx().Stats(),
		GlobalVars: m.NumGlobalVars(),
		Funcs:      m.NumFuncs(),
		Globals:    len(m.Globals),
		Exports:    len(m.Exports()),
	}
	for _, f := range m.Funcs() {
		if body, ok := f.Decl().Def.Def(); ok {
			s.FuncInsts += len(body.Insts)
		}
	}
	return s
}

// ComputeStats loads path and counts it, going through opts.Cache when set.
func ComputeStats(ctx context.Context, path string, opts Options) (*Stats, error) {
	r := newRun(ctx, path, opts)
	s, err := r.stats()
	r.finish(err)
	return s, err
}

func (r *run) stats() (*Stats, error) {
	data, bin, err := r.read()
	if err != nil {
		return nil, err
	}
	key := Digest(sha256.Sum256(data))
	if r.opts.Cache != nil {
		if s, ok, err := r.opts.Cache.Get(key); err == nil && ok {
			s.Path = r.path
			s.Cached = true
			return s, nil
		}
	}
	m, err := r.lower(bin)
	if err != nil {
		return nil, err
	}
	var s Stats
	err = r.stage(StageStats, func(context.Context) error {
		s = ModuleStats(m)
		s.Path = r.path
		s.Bytes = len(data)
		s.Insts = len(bin.Insts)
		if r.opts.Cache != nil {
			return r.opts.Cache.Put(key, &s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Format renders s for tag, with locale-aware digit grouping.
func (s *Stats) Format(tag language.Tag) string {
	p := message.NewPrinter(tag)
	return p.Sprintf("%s: %d bytes, %d instructions; %d types, %d constants, %d attribute sets, %d strings; "+
		"%d global variables, %d functions (%d instructions), %d module-scope instructions, %d exports",
		s.Path, s.Bytes, s.Insts,
		s.Interned.Types, s.Interned.Consts, s.Interned.AttrSets, s.Interned.Strs,
		s.GlobalVars, s.Funcs, s.FuncInsts, s.Globals, s.Exports)
}

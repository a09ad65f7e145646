// Package driver runs the read, lower, lift and write pipelines over files,
// alone or in parallel batches, with tracing, timings and progress events.
package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"spvir/internal/ir"
	"spvir/internal/lift"
	"spvir/internal/lower"
	"spvir/internal/observ"
	"spvir/internal/spv"
	"spvir/internal/trace"
)

// Options configures a pipeline run. The zero value is usable.
type Options struct {
	// Sink receives progress events; nil drops them.
	Sink ProgressSink
	// Jobs bounds batch parallelism; zero or less means GOMAXPROCS.
	Jobs int
	// OutDir is where RoundTrip writes lifted binaries; empty keeps them
	// in memory only.
	OutDir string
	// Cache memoizes Stats by file content; nil disables it.
	Cache *Cache
}

// run carries the per-file state of a pipeline.
type run struct {
	ctx   context.Context
	opts  Options
	path  string
	timer *observ.Timer
	start time.Time
	span  *trace.Span
	cur   Stage
}

func newRun(ctx context.Context, path string, opts Options) *run {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "file:"+filepath.Base(path))
	span.WithExtra("path", path)
	return &run{
		ctx:   ctx,
		opts:  opts,
		path:  path,
		timer: observ.NewTimer(),
		start: time.Now(),
		span:  span,
	}
}

// stage runs fn as one traced and timed step.
func (r *run) stage(s Stage, fn func(ctx context.Context) error) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	r.cur = s
	emit(r.opts.Sink, Event{File: r.path, Stage: s, Status: StatusWorking, Elapsed: time.Since(r.start)})
	ctx, span := trace.Start(r.ctx, trace.ScopePass, string(s))
	err := r.timer.Time(string(s), func() error { return fn(ctx) })
	span.Stop(err)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", r.path, s, err)
	}
	return nil
}

// finish reports the outcome of the file and closes its span.
func (r *run) finish(err error) {
	status := StatusDone
	if err != nil {
		status = StatusError
	}
	emit(r.opts.Sink, Event{File: r.path, Stage: r.cur, Status: status, Err: err, Elapsed: time.Since(r.start)})
	r.span.Stop(err)
}

// Loaded is a module lowered from a file.
type Loaded struct {
	Path   string
	Data   []byte
	Binary *spv.Module
	Module *ir.Module
	Timing observ.Report
}

func (r *run) read() ([]byte, *spv.Module, error) {
	var (
		data []byte
		bin  *spv.Module
	)
	err := r.stage(StageRead, func(context.Context) error {
		var err error
		if data, err = os.ReadFile(r.path); err != nil {
			return err
		}
		bin, err = spv.Read(data)
		return err
	})
	return data, bin, err
}

func (r *run) lower(bin *spv.Module) (*ir.Module, error) {
	var m *ir.Module
	err := r.stage(StageLower, func(ctx context.Context) error {
		var err error
		m, err = lower.Lower(ctx, ir.NewContext(), bin)
		return err
	})
	return m, err
}

// Load reads path and lowers it into a fresh Context.
func Load(ctx context.Context, path string, opts Options) (*Loaded, error) {
	r := newRun(ctx, path, opts)
	l, err := r.load()
	r.finish(err)
	return l, err
}

func (r *run) load() (*Loaded, error) {
	data, bin, err := r.read()
	if err != nil {
		return nil, err
	}
	m, err := r.lower(bin)
	if err != nil {
		return nil, err
	}
	return &Loaded{Path: r.path, Data: data, Binary: bin, Module: m, Timing: r.timer.Report()}, nil
}

// RoundTripResult describes one lower, lift and write cycle.
type RoundTripResult struct {
	Path    string
	OutPath string // empty when nothing was written
	Before  spv.ModuleLayout
	After   spv.ModuleLayout
	// InstsBefore and InstsAfter count instructions, header excluded.
	InstsBefore int
	InstsAfter  int
	Data        []byte
	Timing      observ.Report
}

// HeaderKept reports whether version, generator, id bound and capability
// list survived the cycle.
func (r *RoundTripResult) HeaderKept() bool {
	b, a := r.Before, r.After
	return b.HeaderVersion == a.HeaderVersion &&
		b.OriginalGeneratorMagic == a.OriginalGeneratorMagic &&
		b.OriginalIDBound == a.OriginalIDBound &&
		slices.Equal(b.Capabilities, a.Capabilities)
}

// RoundTrip lowers path, lifts the result back and encodes it, writing it
// under opts.OutDir when that is set.
func RoundTrip(ctx context.Context, path string, opts Options) (*RoundTripResult, error) {
	r := newRun(ctx, path, opts)
	res, err := r.roundTrip()
	r.finish(err)
	return res, err
}

func (r *run) roundTrip() (*RoundTripResult, error) {
	l, err := r.load()
	if err != nil {
		return nil, err
	}
	var lifted *spv.Module
	err = r.stage(StageLift, func(ctx context.Context) error {
		var err error
		lifted, err = lift.Lift(ctx, l.Module)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &RoundTripResult{
		Path:        r.path,
		Before:      l.Binary.Layout,
		After:       lifted.Layout,
		InstsBefore: len(l.Binary.Insts),
		InstsAfter:  len(lifted.Insts),
	}
	err = r.stage(StageWrite, func(context.Context) error {
		data, err := spv.Write(lifted)
		if err != nil {
			return err
		}
		res.Data = data
		if r.opts.OutDir == "" {
			return nil
		}
		if err := os.MkdirAll(r.opts.OutDir, 0o755); err != nil {
			return err
		}
		res.OutPath = filepath.Join(r.opts.OutDir, filepath.Base(r.path))
		return writeFileAtomic(res.OutPath, data)
	})
	if err != nil {
		return nil, err
	}
	r.span.WithExtra("bytes", strconv.Itoa(len(res.Data)))
	res.Timing = r.timer.Report()
	return res, nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".spvir-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	// Атомарная замена
	return os.Rename(tmp, path)
}

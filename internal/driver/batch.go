package driver

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"spvir/internal/trace"
)

// FileResult is the outcome of one file of a batch.
type FileResult[T any] struct {
	Path  string
	Value T
	Err   error
}

// ListInputs expands directories into the *.spv files below them. Plain
// files are kept as given. The result is sorted and free of duplicates.
func ListInputs(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".spv") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// Batch runs fn over files with at most jobs running at once. A failing
// file does not stop the others; its error is kept in its result. The
// returned error is only set when ctx ends the batch early.
func Batch[T any](ctx context.Context, files []string, jobs int, fn func(context.Context, string) (T, error)) ([]FileResult[T], error) {
	results := make([]FileResult[T], len(files))
	if len(files) == 0 {
		return results, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	ctx, span := trace.Start(ctx, trace.ScopeDriver, "batch")
	span.WithExtra("files", strconv.Itoa(len(files)))
	defer span.End("")

	// Каждая горутина пишет только в свой индекс, мьютекс не нужен.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = FileResult[T]{Path: path, Err: err}
				return err
			}
			v, err := fn(gctx, path)
			results[i] = FileResult[T]{Path: path, Value: v, Err: err}
			return nil
		})
	}
	return results, g.Wait()
}

// LoadAll loads files in parallel.
func LoadAll(ctx context.Context, files []string, opts Options) ([]FileResult[*Loaded], error) {
	queue(files, opts)
	return Batch(ctx, files, opts.Jobs, func(ctx context.Context, path string) (*Loaded, error) {
		return Load(ctx, path, opts)
	})
}

// RoundTripAll round-trips files in parallel.
func RoundTripAll(ctx context.Context, files []string, opts Options) ([]FileResult[*RoundTripResult], error) {
	queue(files, opts)
	return Batch(ctx, files, opts.Jobs, func(ctx context.Context, path string) (*RoundTripResult, error) {
		return RoundTrip(ctx, path, opts)
	})
}

// StatsAll computes stats for files in parallel.
func StatsAll(ctx context.Context, files []string, opts Options) ([]FileResult[*Stats], error) {
	queue(files, opts)
	return Batch(ctx, files, opts.Jobs, func(ctx context.Context, path string) (*Stats, error) {
		return ComputeStats(ctx, path, opts)
	})
}

func queue(files []string, opts Options) {
	for _, f := range files {
		emit(opts.Sink, Event{File: f, Stage: StageRead, Status: StatusQueued})
	}
}

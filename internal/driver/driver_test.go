package driver_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"

	"spvir/internal/driver"
	"spvir/internal/spv"
	"spvir/internal/testkit"
)

func writeSample(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, testkit.SampleModule(), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return p
}

type recorder struct {
	mu     sync.Mutex
	events []driver.Event
}

func (r *recorder) OnEvent(ev driver.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) stages(status driver.Status) []driver.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []driver.Stage
	for _, ev := range r.events {
		if ev.Status == status {
			out = append(out, ev.Stage)
		}
	}
	return out
}

func TestLoad(t *testing.T) {
	p := writeSample(t, t.TempDir(), "a.spv")
	l, err := driver.Load(context.Background(), p, driver.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if l.Module.NumFuncs() != 3 || l.Module.NumGlobalVars() != 1 {
		t.Fatalf("funcs %d, vars %d", l.Module.NumFuncs(), l.Module.NumGlobalVars())
	}
	if len(l.Timing.Phases) != 2 {
		t.Fatalf("expected read and lower phases, got %+v", l.Timing.Phases)
	}
}

func TestRoundTripWritesOutput(t *testing.T) {
	dir := t.TempDir()
	p := writeSample(t, dir, "a.spv")
	out := filepath.Join(dir, "out")
	rec := &recorder{}

	res, err := driver.RoundTrip(context.Background(), p, driver.Options{OutDir: out, Sink: rec})
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if !res.HeaderKept() {
		t.Fatalf("header changed: %+v -> %+v", res.Before, res.After)
	}
	if res.OutPath != filepath.Join(out, "a.spv") {
		t.Fatalf("out path %q", res.OutPath)
	}
	data, err := os.ReadFile(res.OutPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if _, err := spv.Read(data); err != nil {
		t.Fatalf("output does not parse: %v", err)
	}

	want := []driver.Stage{driver.StageRead, driver.StageLower, driver.StageLift, driver.StageWrite}
	if diff := cmp.Diff(want, rec.stages(driver.StatusWorking)); diff != "" {
		t.Fatalf("stages (-want +got):\n%s", diff)
	}
	if done := rec.stages(driver.StatusDone); len(done) != 1 || done[0] != driver.StageWrite {
		t.Fatalf("done events %v", done)
	}
}

func TestRoundTripReportsFailingStage(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.spv")
	if err := os.WriteFile(p, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	_, err := driver.RoundTrip(context.Background(), p, driver.Options{Sink: rec})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "bad.spv: read") {
		t.Fatalf("error lacks path and stage: %v", err)
	}
	if failed := rec.stages(driver.StatusError); len(failed) != 1 || failed[0] != driver.StageRead {
		t.Fatalf("error events %v", failed)
	}
}

func TestStatsUsesCache(t *testing.T) {
	dir := t.TempDir()
	p := writeSample(t, dir, "a.spv")
	cache, err := driver.OpenCacheDir(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	opts := driver.Options{Cache: cache}

	first, err := driver.ComputeStats(context.Background(), p, opts)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if first.Cached {
		t.Fatal("first run hit the cache")
	}
	if first.Funcs != 3 || first.GlobalVars != 1 || first.Exports != 2 || first.Bytes != len(testkit.SampleModule()) {
		t.Fatalf("stats %+v", first)
	}

	second, err := driver.ComputeStats(context.Background(), p, opts)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !second.Cached {
		t.Fatal("second run missed the cache")
	}
	first.Cached = true
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("cached stats (-want +got):\n%s", diff)
	}
}

func TestStatsFormat(t *testing.T) {
	s := &driver.Stats{Path: "x.spv", Bytes: 123456}
	if got := s.Format(language.English); !strings.Contains(got, "123,456 bytes") {
		t.Fatalf("english grouping: %q", got)
	}
	if got := s.Format(language.German); !strings.Contains(got, "123.456 bytes") {
		t.Fatalf("german grouping: %q", got)
	}
}

func TestListInputs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	b := writeSample(t, sub, "b.spv")
	a := writeSample(t, dir, "a.spv")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := driver.ListInputs([]string{dir, a})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{a, b}, got); diff != "" {
		t.Fatalf("inputs (-want +got):\n%s", diff)
	}
}

func TestBatchKeepsPerFileErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeSample(t, dir, "a.spv")
	bad := filepath.Join(dir, "missing.spv")

	results, err := driver.LoadAll(context.Background(), []string{good, bad, good}, driver.Options{Jobs: 2})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results %d", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("good files failed: %v, %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, os.ErrNotExist) {
		t.Fatalf("missing file error: %v", results[1].Err)
	}
	if results[1].Path != bad {
		t.Fatalf("result order broken: %q", results[1].Path)
	}
}

func TestBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := driver.Batch(ctx, []string{"a", "b"}, 1, func(context.Context, string) (int, error) {
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestChannelSink(t *testing.T) {
	ch := make(chan driver.Event, 16)
	p := writeSample(t, t.TempDir(), "a.spv")
	if _, err := driver.Load(context.Background(), p, driver.Options{Sink: driver.ChannelSink{Ch: ch}}); err != nil {
		t.Fatalf("load: %v", err)
	}
	close(ch)
	var n int
	var last driver.Event
	for ev := range ch {
		n++
		last = ev
	}
	if n != 3 || last.Status != driver.StatusDone || last.Stage != driver.StageLower {
		t.Fatalf("%d events, last %+v", n, last)
	}
}

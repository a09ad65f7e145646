package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLevelGatesScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeModule, false},
		{LevelDetail, ScopeModule, true},
		{LevelDetail, ScopeNode, false},
		{LevelDebug, ScopeNode, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestRingKeepsNewest(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		r.Emit(&Event{Kind: KindPoint, Scope: ScopePass, Name: name})
	}
	var got []string
	for _, ev := range r.Snapshot() {
		got = append(got, ev.Name)
	}
	if strings.Join(got, "") != "cde" {
		t.Fatalf("snapshot = %v, want [c d e]", got)
	}
	if r.Dropped() != 2 {
		t.Fatalf("dropped = %d, want 2", r.Dropped())
	}
}

func TestSpansNestThroughContext(t *testing.T) {
	r := NewRingTracer(16, LevelDetail)
	ctx := WithTracer(context.Background(), r)

	ctx, outer := Start(ctx, ScopePass, "lower")
	_, inner := Start(ctx, ScopeModule, "lower.collect")
	inner.End("")
	outer.WithExtra("funcs", "3").End("")
	outer.Child(ScopeNode, "func").End("")

	evs := r.Snapshot()
	if len(evs) != 4 {
		t.Fatalf("got %d events, want 4 (node scope is filtered)", len(evs))
	}
	if evs[1].ParentID != outer.ID() {
		t.Fatalf("inner parent = %d, want %d", evs[1].ParentID, outer.ID())
	}
	if evs[3].Extra["funcs"] != "3" {
		t.Fatalf("extra lost: %+v", evs[3])
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeStream, Format: FormatNDJSON, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopePass, "read", 0).End("ok")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	var ev struct {
		Kind   string `json:"kind"`
		Name   string `json:"name"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != "end" || ev.Name != "read" || ev.Detail != "ok" {
		t.Fatalf("unexpected end event %+v", ev)
	}
}

func TestMultiForwardsAndFindsRing(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRingTracer(4, LevelPhase)
	m := NewMultiTracer(LevelPhase, NewStreamTracer(&buf, LevelPhase, FormatText), ring)
	Point(m, ScopeDriver, "start", "", 0)
	if got, ok := m.Ring(); !ok || got != ring {
		t.Fatal("ring not found")
	}
	if len(ring.Snapshot()) != 1 || !strings.Contains(buf.String(), "• start") {
		t.Fatalf("event not forwarded: %q", buf.String())
	}
}

func TestUnrecordedSpansAreInert(t *testing.T) {
	ctx := context.Background()
	ctx2, s := Start(ctx, ScopePass, "lift")
	if ctx2 != ctx || s.ID() != 0 {
		t.Fatal("span recorded without a tracer")
	}
	if d := s.Child(ScopeModule, "lift.ids").WithExtra("k", "v").Stop(errors.New("boom")); d != 0 {
		t.Fatalf("unrecorded span reported duration %v", d)
	}
}

func TestHeartbeatStops(t *testing.T) {
	r := NewRingTracer(64, LevelError)
	h := StartHeartbeat(r, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	h.Stop()
	h.Stop()
	n := len(r.Snapshot())
	if n == 0 {
		t.Fatal("no heartbeats recorded")
	}
	time.Sleep(5 * time.Millisecond)
	if len(r.Snapshot()) != n {
		t.Fatal("heartbeat kept running after Stop")
	}
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatal("heartbeat started on a disabled tracer")
	}
}

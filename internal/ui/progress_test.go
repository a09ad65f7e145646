package ui

import (
	"errors"
	"strings"
	"testing"

	"spvir/internal/driver"
)

func TestApplyTracksStages(t *testing.T) {
	m := NewBatchModel("roundtrip", []string{"a.spv", "b.spv"}, nil).(*batchModel)
	if got := m.fraction(); got != 0 {
		t.Fatalf("fresh fraction %v", got)
	}

	m.apply(driver.Event{File: "a.spv", Stage: driver.StageLift, Status: driver.StatusWorking})
	if m.rows[0].label != "lifting" {
		t.Fatalf("label %q", m.rows[0].label)
	}
	m.apply(driver.Event{File: "a.spv", Stage: driver.StageWrite, Status: driver.StatusDone})
	m.apply(driver.Event{File: "b.spv", Stage: driver.StageRead, Status: driver.StatusError, Err: errors.New("bad magic")})
	m.apply(driver.Event{File: "unknown.spv", Stage: driver.StageRead, Status: driver.StatusWorking})

	if got := m.fraction(); got != 1 {
		t.Fatalf("fraction after both finished: %v", got)
	}
	if m.finished() != 2 {
		t.Fatalf("finished %d", m.finished())
	}
	m.done = true
	view := m.View()
	for _, want := range []string{"roundtrip: 2/2", "a.spv", "bad magic"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 8, "abcde..."},
		{"abcdef", 2, "ab"},
		{"шейдер.spv", 7, "шейд..."},
		{"全角文字", 5, "全..."},
		{"any", 0, "any"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

package observ

import (
	"errors"
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	if err := tm.Time("read", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	if err := tm.Time("lower", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Time lost the error: %v", err)
	}
	tm.End(99, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "read" || r.Phases[1].Note != "failed" {
		t.Fatalf("unexpected report %+v", r)
	}
	s := r.Summary()
	if !strings.Contains(s, "lower") || !strings.Contains(s, "// failed") || !strings.Contains(s, "total") {
		t.Fatalf("summary:\n%s", s)
	}
}

func TestEmptyTimer(t *testing.T) {
	if r := NewTimer().Report(); r.TotalMS != 0 || r.Phases != nil {
		t.Fatalf("empty timer reported %+v", r)
	}
}

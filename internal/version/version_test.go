package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withVersion(t *testing.T, v, commit, date string) {
	t.Helper()
	ov, oc, od := Version, GitCommit, BuildDate
	Version, GitCommit, BuildDate = v, commit, date
	t.Cleanup(func() { Version, GitCommit, BuildDate = ov, oc, od })
}

func TestColoredKeepsText(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	for _, v := range []string{"0.1.0-dev", "1.2.3", "1.0.0-rc.1", "nightly"} {
		withVersion(t, v, "", "")
		if got := Colored(); got != v {
			t.Errorf("Colored() with %q = %q", v, got)
		}
	}
}

func TestInfoOptionalFields(t *testing.T) {
	withVersion(t, "1.2.3", "", "")
	out := Info(false)
	if !strings.HasPrefix(out, "spvir 1.2.3\n") {
		t.Fatalf("unexpected first line: %q", out)
	}
	if strings.Contains(out, "commit:") || strings.Contains(out, "built:") {
		t.Fatalf("empty fields printed: %q", out)
	}

	withVersion(t, "1.2.3", "abc123", "2024-01-15T10:30:00Z")
	out = Info(false)
	for _, want := range []string{"commit:  abc123", "built:   2024-01-15T10:30:00Z", "magic 0x07230203"} {
		if !strings.Contains(out, want) {
			t.Errorf("info lacks %q:\n%s", want, out)
		}
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"golang.org/x/text/language"

	"spvir/internal/testkit"
)

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, configName)
	if err := os.WriteFile(want, []byte("[run]\njobs = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, ok, err := findConfig(nested)
	if err != nil || !ok {
		t.Fatalf("findConfig: %v, found=%v", err, ok)
	}
	if got != want {
		t.Fatalf("found %q, want %q", got, want)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	p := filepath.Join(t.TempDir(), configName)
	if err := os.WriteFile(p, []byte("[run]\nthreads = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(p); err == nil || !strings.Contains(err.Error(), "run.threads") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestConfigFillsUnsetFlags(t *testing.T) {
	p := filepath.Join(t.TempDir(), configName)
	doc := "[dump]\nformat = \"json\"\nids = true\n\n[run]\njobs = 3\n\n[trace]\nlevel = \"detail\"\n"
	if err := os.WriteFile(p, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	flags := pflag.NewFlagSet("dump", pflag.ContinueOnError)
	flags.String("format", "text", "")
	flags.Bool("ids", false, "")
	flags.Int("jobs", 0, "")
	flags.String("trace-level", "off", "")
	if err := flags.Parse([]string{"--jobs=8"}); err != nil {
		t.Fatal(err)
	}
	if err := cfg.apply(flags, "dump"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	format, _ := flags.GetString("format")
	ids, _ := flags.GetBool("ids")
	jobs, _ := flags.GetInt("jobs")
	level, _ := flags.GetString("trace-level")
	if format != "json" || !ids || level != "detail" {
		t.Fatalf("config not applied: format=%q ids=%v level=%q", format, ids, level)
	}
	if jobs != 8 {
		t.Fatalf("command line --jobs overridden by config: %d", jobs)
	}
}

func TestStatsLanguage(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LANG", "de_DE.UTF-8")
	if got := statsLanguage(""); got != language.MustParse("de-DE") {
		t.Fatalf("from $LANG: %v", got)
	}
	if got := statsLanguage("fr"); got != language.French {
		t.Fatalf("from flag: %v", got)
	}
	t.Setenv("LANG", "C")
	if got := statsLanguage(""); got != language.English {
		t.Fatalf("C locale: %v", got)
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "ON": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Errorf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestRoundtripCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.spv")
	if err := os.WriteFile(in, testkit.SampleModule(), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(dir, configName)
	if err := os.WriteFile(cfg, []byte("[run]\nui = \"off\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"--config", cfg, "--color", "off", "roundtrip", "-o", outDir, in})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("roundtrip: %v\nstderr: %s", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "a.spv: header kept") {
		t.Fatalf("unexpected output: %q", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(outDir, "a.spv")); err != nil {
		t.Fatalf("lifted binary not written: %v", err)
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const configName = "spvir.toml"

// fileConfig is the layout of spvir.toml. Flags given on the command line
// win over file values.
type fileConfig struct {
	Dump  dumpConfig  `toml:"dump"`
	Run   runConfig   `toml:"run"`
	Trace traceConfig `toml:"trace"`
}

type dumpConfig struct {
	Format string `toml:"format"`
	Color  string `toml:"color"`
	IDs    *bool  `toml:"ids"`
}

type runConfig struct {
	Jobs  int    `toml:"jobs"`
	UI    string `toml:"ui"`
	Cache *bool  `toml:"cache"`
}

type traceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
	Mode   string `toml:"mode"`
	Format string `toml:"format"`
}

func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fileConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fileConfig{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// applyConfig loads spvir.toml, from --config or found upwards from the
// working directory, and fills in every flag the user did not set.
func applyConfig(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	if path == "" {
		var ok bool
		path, ok, err = findConfig(".")
		if err != nil || !ok {
			return err
		}
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	return cfg.apply(cmd.Flags(), cmd.Name())
}

type flagValue struct{ flag, value string }

func (cfg *fileConfig) apply(flags *pflag.FlagSet, command string) error {
	values := []flagValue{
		{"ui", cfg.Run.UI},
		{"trace-level", cfg.Trace.Level},
		{"trace", cfg.Trace.Output},
		{"trace-mode", cfg.Trace.Mode},
		{"trace-format", cfg.Trace.Format},
	}
	if cfg.Run.Jobs != 0 {
		values = append(values, flagValue{"jobs", strconv.Itoa(cfg.Run.Jobs)})
	}
	if cfg.Run.Cache != nil && command == "stats" {
		values = append(values, flagValue{"cache", strconv.FormatBool(*cfg.Run.Cache)})
	}
	if command == "dump" {
		values = append(values,
			flagValue{"format", cfg.Dump.Format},
			flagValue{"color", cfg.Dump.Color},
		)
		if cfg.Dump.IDs != nil {
			values = append(values, flagValue{"ids", strconv.FormatBool(*cfg.Dump.IDs)})
		}
	}
	for _, v := range values {
		if v.value == "" {
			continue
		}
		f := flags.Lookup(v.flag)
		if f == nil || f.Changed {
			continue
		}
		if err := f.Value.Set(v.value); err != nil {
			return fmt.Errorf("%s: %s: %w", configName, v.flag, err)
		}
	}
	return nil
}

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"spvir/internal/prof"
)

var profiling *prof.Session

// setupProfiling starts the profilers named by --cpu-profile, --mem-profile
// and --runtime-trace.
func setupProfiling(cmd *cobra.Command) error {
	var cfg prof.Config
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"cpu-profile", &cfg.CPU},
		{"mem-profile", &cfg.Mem},
		{"runtime-trace", &cfg.Trace},
	} {
		v, err := cmd.Flags().GetString(f.name)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", f.name, err)
		}
		*f.dst = v
	}
	if cfg == (prof.Config{}) {
		return nil
	}
	s, err := prof.Start(cfg)
	if err != nil {
		return err
	}
	profiling = s
	return nil
}

func finishProfiling(errOut io.Writer) {
	if err := profiling.Stop(); err != nil {
		fmt.Fprintf(errOut, "profile: %v\n", err)
	}
	profiling = nil
}

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spvir/internal/driver"
)

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip FILE|DIR...",
	Short: "Lower, lift and re-encode SPIR-V modules",
	Long: `roundtrip lowers every module into the IR, lifts it back and encodes the
result. The header (version, generator, id bound and capabilities) must
survive; with --out-dir the re-encoded binaries are written there.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoundtrip,
}

func init() {
	roundtripCmd.Flags().StringP("out-dir", "o", "", "write lifted binaries into this directory")
}

func runRoundtrip(cmd *cobra.Command, args []string) error {
	files, err := inputs(args)
	if err != nil {
		return err
	}
	opts, err := batchOptions(cmd)
	if err != nil {
		return err
	}
	if opts.OutDir, err = cmd.Flags().GetString("out-dir"); err != nil {
		return err
	}
	tui, err := useTUI(cmd, len(files))
	if err != nil {
		return err
	}

	results, err := runBatch(cmd.Context(), tui, "roundtrip", files, opts, driver.RoundTripAll)
	if err != nil {
		return err
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	out := cmd.OutOrStdout()
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed, color.Bold).SprintFunc()

	changed := 0
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		res := r.Value
		if !res.HeaderKept() {
			changed++
			fmt.Fprintf(out, "%s: %s: %+v -> %+v\n", res.Path, bad("header changed"), res.Before, res.After)
			continue
		}
		printTimings(cmd, res.Path, res.Timing)
		if quiet {
			continue
		}
		fmt.Fprintf(out, "%s: %s, %d -> %d instructions", res.Path, ok("header kept"), res.InstsBefore, res.InstsAfter)
		if res.OutPath != "" {
			fmt.Fprintf(out, ", wrote %s", res.OutPath)
		}
		fmt.Fprintln(out)
	}
	if err := failures(cmd.ErrOrStderr(), results); err != nil {
		return err
	}
	if changed > 0 {
		return fmt.Errorf("%d of %d modules changed their header", changed, len(results))
	}
	return nil
}

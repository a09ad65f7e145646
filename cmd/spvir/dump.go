package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"spvir/internal/driver"
	"spvir/internal/irfmt"
)

var dumpCmd = &cobra.Command{
	Use:   "dump FILE|DIR...",
	Short: "Lower SPIR-V modules and print their IR",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringP("format", "f", "text", "output format (text|json|msgpack)")
	dumpCmd.Flags().Bool("ids", false, "annotate declarations with their SPIR-V ids")
}

func runDump(cmd *cobra.Command, args []string) error {
	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := irfmt.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	ids, err := cmd.Flags().GetBool("ids")
	if err != nil {
		return err
	}
	color, err := colorOn(cmd)
	if err != nil {
		return err
	}
	files, err := inputs(args)
	if err != nil {
		return err
	}
	opts, err := batchOptions(cmd)
	if err != nil {
		return err
	}

	results, err := driver.LoadAll(cmd.Context(), files, opts)
	if err != nil {
		return err
	}
	out := bufio.NewWriter(cmd.OutOrStdout())
	for i, r := range results {
		if r.Err != nil {
			continue
		}
		if format == irfmt.FormatText && len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "; file %s\n", r.Path)
		}
		if err := irfmt.Write(out, r.Value.Module, format, irfmt.TextOpts{Color: color && format == irfmt.FormatText, IDs: ids}); err != nil {
			return fmt.Errorf("%s: %w", r.Path, err)
		}
		printTimings(cmd, r.Path, r.Value.Timing)
	}
	if err := out.Flush(); err != nil {
		return err
	}
	return failures(cmd.ErrOrStderr(), results)
}

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"spvir/internal/driver"
	"spvir/internal/observ"
)

// inputs expands the file and directory arguments of cmd.
func inputs(args []string) ([]string, error) {
	files, err := driver.ListInputs(args)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .spv files in %v", args)
	}
	return files, nil
}

func batchOptions(cmd *cobra.Command) (driver.Options, error) {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return driver.Options{}, err
	}
	if jobs < 0 {
		return driver.Options{}, fmt.Errorf("--jobs must not be negative, got %d", jobs)
	}
	return driver.Options{Jobs: jobs}, nil
}

// failures prints the error of every failed file and sums them up.
func failures[T any](out io.Writer, results []driver.FileResult[T]) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "error: %v\n", r.Err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func printTimings(cmd *cobra.Command, path string, r observ.Report) {
	if on, _ := cmd.Flags().GetBool("timings"); !on || len(r.Phases) == 0 {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s", path, r.Summary())
}

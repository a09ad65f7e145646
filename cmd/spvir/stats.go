package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"spvir/internal/driver"
)

var statsCmd = &cobra.Command{
	Use:   "stats FILE|DIR...",
	Short: "Count the entities of SPIR-V modules",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Bool("json", false, "print stats as JSON")
	statsCmd.Flags().Bool("cache", false, "reuse stats of unchanged files from the user cache")
	statsCmd.Flags().String("lang", "", "language for number formatting (default from $LANG)")
}

func runStats(cmd *cobra.Command, args []string) error {
	files, err := inputs(args)
	if err != nil {
		return err
	}
	opts, err := batchOptions(cmd)
	if err != nil {
		return err
	}
	if useCache, _ := cmd.Flags().GetBool("cache"); useCache {
		if opts.Cache, err = driver.OpenCache("spvir"); err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	lang, _ := cmd.Flags().GetString("lang")
	tag := statsLanguage(lang)
	tui, err := useTUI(cmd, len(files))
	if err != nil {
		return err
	}

	results, err := runBatch(cmd.Context(), tui && !asJSON, "stats", files, opts, driver.StatsAll)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		var list []*driver.Stats
		for _, r := range results {
			if r.Err == nil {
				list = append(list, r.Value)
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(list); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			line := r.Value.Format(tag)
			if r.Value.Cached {
				line += " (cached)"
			}
			fmt.Fprintln(out, line)
		}
	}
	return failures(cmd.ErrOrStderr(), results)
}

// statsLanguage resolves --lang, then $LC_ALL and $LANG, to a language tag.
func statsLanguage(flag string) language.Tag {
	for _, v := range []string{flag, os.Getenv("LC_ALL"), os.Getenv("LANG")} {
		// strip encoding suffixes like en_US.UTF-8
		v, _, _ = strings.Cut(v, ".")
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if tag, err := language.Parse(strings.ReplaceAll(v, "_", "-")); err == nil {
			return tag
		}
	}
	return language.English
}

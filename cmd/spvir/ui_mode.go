package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid value %q (expected auto|on|off)", value)
	}
}

func (m uiMode) enabled(f *os.File) bool {
	switch m {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(f)
	}
}

// useTUI reports whether a batch of n files gets the progress UI. Quiet
// runs and single files never do.
func useTUI(cmd *cobra.Command, n int) (bool, error) {
	value, err := cmd.Flags().GetString("ui")
	if err != nil {
		return false, err
	}
	mode, err := readUIMode(value)
	if err != nil {
		return false, fmt.Errorf("--ui: %w", err)
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	if quiet || (mode == uiModeAuto && n < 2) {
		return false, nil
	}
	return mode.enabled(os.Stdout), nil
}

// colorOn resolves --color against stdout.
func colorOn(cmd *cobra.Command) (bool, error) {
	value, err := cmd.Flags().GetString("color")
	if err != nil {
		return false, err
	}
	mode, err := readUIMode(value)
	if err != nil {
		return false, fmt.Errorf("--color: %w", err)
	}
	return mode.enabled(os.Stdout), nil
}

func applyColor(cmd *cobra.Command) error {
	on, err := colorOn(cmd)
	if err != nil {
		return err
	}
	color.NoColor = !on
	return nil
}

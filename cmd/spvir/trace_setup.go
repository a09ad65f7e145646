package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"spvir/internal/trace"
)

// tracing is the tracer of the running command.
var tracing struct {
	tracer    trace.Tracer
	heartbeat *trace.Heartbeat
	errOut    io.Writer
}

// setupTracing builds the tracer from the --trace* flags and attaches it to
// the command context.
func setupTracing(cmd *cobra.Command) error {
	flags := cmd.Flags()
	output, err := flags.GetString("trace")
	if err != nil {
		return fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	formatStr, err := flags.GetString("trace-format")
	if err != nil {
		return fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	interval, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace without a level means phase spans
	if level == trace.LevelOff && output != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return nil
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return fmt.Errorf("invalid trace mode: %w", err)
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: output,
		RingSize:   ringSize,
		Heartbeat:  interval,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	tracing.tracer = tracer
	tracing.heartbeat = trace.StartHeartbeat(tracer, interval)
	tracing.errOut = cmd.ErrOrStderr()
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))
	trace.Point(tracer, trace.ScopeDriver, "command", cmd.CommandPath(), 0)
	return nil
}

// finishTracing stops the heartbeat and flushes the tracer. A failed run
// also dumps the ring buffer, if there is one, to stderr.
func finishTracing(failed bool) {
	t := tracing.tracer
	if t == nil {
		return
	}
	tracing.heartbeat.Stop()
	out := tracing.errOut
	if out == nil {
		out = os.Stderr
	}
	if failed {
		if ring := ringOf(t); ring != nil {
			fmt.Fprintln(out, "trace: last events before failure:")
			if err := ring.Dump(out, trace.FormatText); err != nil {
				fmt.Fprintf(out, "trace: dump error: %v\n", err)
			}
		}
	}
	if err := t.Flush(); err != nil {
		fmt.Fprintf(out, "trace: flush error: %v\n", err)
	}
	if err := t.Close(); err != nil {
		fmt.Fprintf(out, "trace: close error: %v\n", err)
	}
	tracing.tracer = nil
}

func ringOf(t trace.Tracer) *trace.RingTracer {
	switch t := t.(type) {
	case *trace.RingTracer:
		return t
	case *trace.MultiTracer:
		if r, ok := t.Ring(); ok {
			return r
		}
	}
	return nil
}

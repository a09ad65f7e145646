package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"spvir/internal/driver"
	"spvir/internal/ui"
)

type batchOutcome[T any] struct {
	results []driver.FileResult[T]
	err     error
}

// runWithUI runs a batch in the background while the progress UI follows
// its events. The UI quits once the batch closes the event channel, or
// on ctrl+c, which cancels the batch.
func runWithUI[T any](ctx context.Context, title string, files []string, opts driver.Options,
	run func(context.Context, []string, driver.Options) ([]driver.FileResult[T], error),
) ([]driver.FileResult[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan driver.Event, 256)
	done := make(chan batchOutcome[T], 1)

	go func() {
		o := opts
		o.Sink = driver.ChannelSink{Ch: events}
		res, err := run(ctx, files, o)
		done <- batchOutcome[T]{results: res, err: err}
		close(events)
	}()

	program := tea.NewProgram(ui.NewBatchModel(title, files, events), tea.WithOutput(os.Stdout), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// the UI may quit early; stop the batch and drain what it still sends
	cancel()
	go func() {
		for range events {
		}
	}()
	outcome := <-done
	if uiErr != nil && outcome.err == nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}

// runBatch picks the UI or a plain run.
func runBatch[T any](ctx context.Context, tui bool, title string, files []string, opts driver.Options,
	run func(context.Context, []string, driver.Options) ([]driver.FileResult[T], error),
) ([]driver.FileResult[T], error) {
	if tui {
		return runWithUI(ctx, title, files, opts, run)
	}
	return run(ctx, files, opts)
}

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/francegen/tilebatch/internal/batch"
	"github.com/francegen/tilebatch/internal/process"
)

// runBatch downloads and processes every macro-tile of the region.
func runBatch(args []string, stdout, stderr io.Writer) int {
	var f regionFlags
	fs := newFlagSet("run", `Usage: tilebatch run -center-x X -center-y Y [options]

Download the elevation tiles of every macro-tile around the center, then run
the processor once per macro-tile to merge it into the world. Macro-tiles are
handled one after another; a processor failure stops the batch and its exit
code becomes the exit code of tilebatch.

Run again with -resume to continue after the last completed macro-tile.`, stderr)
	f.registerRun(fs)

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	settings, cx, cy, err := f.settings(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}

	ctx, cancel := signalContext(stderr)
	defer cancel()

	p := newPrinter(stdout, f.verbose)
	o, err := batch.Setup(ctx, settings, cx, cy, stdout, stderr, p.Event)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}
	defer o.Close()

	p.Header("tilebatch")
	p.Printf("Run %s: center (%.2f, %.2f), radius %d, tiles in %s, world in %s\n\n",
		o.RunID(), cx, cy, settings.MacroRadius, settings.TilesRoot, settings.WorldDir)

	summary, err := o.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			p.Println("\nBatch cancelled. Run again with -resume to continue.")
			return ExitInterrupted
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)

		var exitErr *process.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(stderr, "Processor command: %s\n", process.FormatCommand(exitErr.Command))
		}
		return exitCodeFor(err)
	}

	progress := o.Progress()
	failed := 0
	for _, r := range summary.Processed {
		failed += len(r.Report.Failed)
	}

	p.Println()
	p.Rule()
	if summary.NothingToDo {
		p.Println(successStyle.Render("Nothing to do: all macro-tiles already completed"))
		return ExitSuccess
	}
	p.Println(successStyle.Render(fmt.Sprintf("Complete! Processed %d/%d macro-tile(s), %d tile(s) handled (%.2f MB)",
		len(summary.Processed), summary.Total-summary.StartIndex, progress.TilesDone,
		float64(o.BytesReceived())/1024/1024)))
	if failed > 0 {
		p.Println(warningStyle.Render(fmt.Sprintf("  %d tile(s) failed; they are listed in the completion markers", failed)))
	}
	return ExitSuccess
}

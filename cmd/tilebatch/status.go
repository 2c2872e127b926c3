package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/francegen/tilebatch/internal/batch"
	ioutils "github.com/francegen/tilebatch/internal/io"
)

// openRegion parses the shared flags and sets up an orchestrator for
// read-only inspection.
func openRegion(ctx context.Context, name, usage string, args []string, stderr io.Writer, extra func(*flag.FlagSet)) (*batch.Orchestrator, *regionFlags, error) {
	var f regionFlags
	fs := newFlagSet(name, usage, stderr)
	f.register(fs)
	if extra != nil {
		extra(fs)
	}

	if err := fs.Parse(args); err != nil {
		// the flag package has already reported it
		return nil, nil, &usageError{}
	}

	settings, cx, cy, err := f.settings(fs)
	if err != nil {
		return nil, nil, err
	}

	o, err := batch.Setup(ctx, settings, cx, cy, io.Discard, io.Discard, nil)
	if err != nil {
		return nil, nil, err
	}
	return o, &f, nil
}

// runStatus prints the completion state of every macro-tile.
func runStatus(args []string, stdout, stderr io.Writer) int {
	ctx, cancel := signalContext(stderr)
	defer cancel()

	o, f, err := openRegion(ctx, "status", `Usage: tilebatch status -center-x X -center-y Y [options]

Show which macro-tiles of the region carry a completion marker, how many of
their tiles are on disk, and where a resumed run would start.`, args, stderr, nil)
	if err != nil {
		return reportErr(stderr, err)
	}
	defer o.Close()

	report, err := o.Status(ctx)
	if err != nil {
		return reportErr(stderr, err)
	}

	p := newPrinter(stdout, f.verbose)
	p.Header("Macro-tile status")
	r := o.Region()
	p.Printf("Center (%.2f, %.2f), %d macro-tile(s) of %gx%g m\n\n", r.CenterX, r.CenterY, len(report.MacroTiles), r.MacroSide(), r.MacroSide())

	done := 0
	for _, st := range report.MacroTiles {
		line := fmt.Sprintf("[%d] %-16s tiles %d/%d", st.MacroTile.Index, st.MacroTile.DirName(), st.TilesPresent, st.TilesTotal)
		switch {
		case st.Complete && st.Marker == nil:
			done++
			p.Println(warningStyle.Render(line + "  complete (unreadable marker)"))
			if f.verbose && st.MarkerErr != nil {
				p.Println(dimStyle.Render("      " + st.MarkerErr.Error()))
			}
		case st.Complete:
			done++
			line += "  complete " + st.Marker.CompletedAt.Local().Format(time.DateTime)
			if n := len(st.Marker.FailedTiles); n > 0 {
				line += fmt.Sprintf(" (%d failed tile(s))", n)
			}
			p.Println(successStyle.Render(line))
		case st.TilesPresent > 0:
			p.Println(warningStyle.Render(line + "  downloaded, not processed"))
		default:
			p.Println(dimStyle.Render(line + "  pending"))
		}
		if f.verbose && st.Marker != nil {
			p.Println(dimStyle.Render("      run " + st.Marker.RunID))
		}
	}

	p.Rule()
	p.Printf("%d/%d macro-tile(s) complete\n", done, len(report.MacroTiles))
	if report.ResumeIndex < len(report.MacroTiles) {
		p.Printf("A resumed run starts at index %d (%s)\n", report.ResumeIndex, report.MacroTiles[report.ResumeIndex].MacroTile.DirName())
	} else {
		p.Println("A resumed run has nothing to do")
	}
	if len(report.Stray) > 0 {
		p.Println(warningStyle.Render("Directories outside this region:"))
		p.Println(indent(report.Stray))
	}
	return ExitSuccess
}

// runVerify checks every downloaded tile.
func runVerify(args []string, stdout, stderr io.Writer) int {
	ctx, cancel := signalContext(stderr)
	defer cancel()

	o, f, err := openRegion(ctx, "verify", `Usage: tilebatch verify -center-x X -center-y Y [options]

Check that every tile of the downloaded macro-tiles is present, is a readable
GeoTIFF and has the configured pixel size. Exits with 1 when a problem is found.`, args, stderr, nil)
	if err != nil {
		return reportErr(stderr, err)
	}
	defer o.Close()

	problems, err := o.Verify(ctx)
	if err != nil {
		return reportErr(stderr, err)
	}

	p := newPrinter(stdout, f.verbose)
	if len(problems) == 0 {
		p.Println(successStyle.Render("✓ All downloaded tiles are valid"))
		return ExitSuccess
	}

	lines := make([]string, len(problems))
	for i, pr := range problems {
		lines[i] = pr.String()
	}
	p.Println(errorStyle.Render(fmt.Sprintf("✗ %d tile problem(s):", len(problems))))
	p.Println(indent(lines))
	p.Println(dimStyle.Render("Rerun with -skip-existing after deleting the listed files to fetch them again."))
	return ExitGeneralError
}

// runCoverage renders the coverage map to a PNG file.
func runCoverage(args []string, stdout, stderr io.Writer) int {
	var (
		out  string
		cell int
	)
	ctx, cancel := signalContext(stderr)
	defer cancel()

	o, _, err := openRegion(ctx, "coverage", `Usage: tilebatch coverage -center-x X -center-y Y [-out map.png] [options]

Render a PNG map with one cell per tile: green for tiles of completed
macro-tiles, amber for tiles on disk that were not processed yet, dark grey
for missing tiles. North is up.`, args, stderr, func(fs *flag.FlagSet) {
		fs.StringVar(&out, "out", "coverage.png", "Output PNG file")
		fs.IntVar(&cell, "cell", 4, "Pixels per tile")
	})
	if err != nil {
		return reportErr(stderr, err)
	}
	defer o.Close()

	if cell <= 0 {
		return reportErr(stderr, &usageError{msg: "-cell must be positive"})
	}

	var buf bytes.Buffer
	if err := o.RenderCoverage(ctx, &buf, cell); err != nil {
		return reportErr(stderr, err)
	}
	if err := ioutils.WriteFileAtomic(out, buf.Bytes()); err != nil {
		return reportErr(stderr, err)
	}

	fmt.Fprintf(stdout, "Coverage map written to %s\n", out)
	return ExitSuccess
}

func reportErr(stderr io.Writer, err error) int {
	var usageErr *usageError
	if errors.As(err, &usageErr) && usageErr.msg == "" {
		return ExitInvalidArgs
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitCodeFor(err)
}

package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/francegen/tilebatch/internal/config"
	"github.com/francegen/tilebatch/internal/process"
)

// regionFlags are shared by every subcommand.
type regionFlags struct {
	config      string
	centerX     string
	centerY     string
	radius      int
	gridSide    int
	tilesRoot   string
	world       string
	markerStore string
	verbose     bool

	// run only
	processorBin  string
	processorArgs string
	skipExisting  bool
	resume        bool
	concurrency   int
	maxFailed     int
	delay         float64
}

func newFlagSet(name, usage string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, strings.TrimSpace(usage))
		fmt.Fprintln(stderr, "\nOptions:")
		fs.PrintDefaults()
	}
	return fs
}

func (f *regionFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "Path to config file (JSON or YAML)")
	fs.StringVar(&f.centerX, "center-x", "", "Region center easting in EPSG:2154 (required)")
	fs.StringVar(&f.centerY, "center-y", "", "Region center northing in EPSG:2154 (required)")
	fs.IntVar(&f.radius, "radius", 0, "Macro-tile radius: (2r+1)^2 macro-tiles")
	fs.IntVar(&f.gridSide, "grid", 0, "Tiles per macro-tile side")
	fs.StringVar(&f.tilesRoot, "tiles-root", "", "Directory holding the macro-tile directories")
	fs.StringVar(&f.world, "world", "", "Directory of the world the processor writes")
	fs.StringVar(&f.markerStore, "marker-store", "", "Blob URL for completion markers (e.g. file:///var/markers, mem://)")
	fs.BoolVar(&f.verbose, "verbose", false, "Show verbose output")
}

func (f *regionFlags) registerRun(fs *flag.FlagSet) {
	f.register(fs)
	fs.StringVar(&f.processorBin, "processor-bin", "", "Processor executable")
	fs.StringVar(&f.processorArgs, "processor-args", "", "Extra processor arguments, shell-quoted")
	fs.BoolVar(&f.skipExisting, "skip-existing", false, "Do not download tiles already on disk")
	fs.BoolVar(&f.resume, "resume", false, "Skip the leading macro-tiles that have a completion marker")
	fs.IntVar(&f.concurrency, "concurrency", 0, "Concurrent tile downloads per macro-tile")
	fs.IntVar(&f.maxFailed, "max-failed-tiles", 0, "Abort when a macro-tile has more failed tiles (-1: no limit)")
	fs.Float64Var(&f.delay, "delay", 0, "Seconds to wait after each tile request")
}

// settings loads the config file and applies the flags that were set.
func (f *regionFlags) settings(fs *flag.FlagSet) (*config.Settings, float64, float64, error) {
	settings := config.DefaultSettings()
	if f.config != "" {
		var err error
		settings, err = config.Load(f.config)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("load config: %w", err)
		}
	}

	var err error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "radius":
			settings.MacroRadius = f.radius
		case "grid":
			settings.GridSide = f.gridSide
		case "tiles-root":
			settings.TilesRoot = f.tilesRoot
		case "world":
			settings.WorldDir = f.world
		case "marker-store":
			settings.MarkerStore = f.markerStore
		case "processor-bin":
			settings.ProcessorBin = f.processorBin
		case "processor-args":
			args, perr := process.SplitArgs(f.processorArgs)
			if perr != nil {
				err = &usageError{msg: perr.Error()}
				return
			}
			settings.ProcessorArgs = args
		case "skip-existing":
			settings.SkipExisting = f.skipExisting
		case "resume":
			settings.Resume = f.resume
		case "concurrency":
			settings.MaxConcurrentTileDownloads = f.concurrency
		case "max-failed-tiles":
			settings.MaxFailedTiles = f.maxFailed
		case "delay":
			settings.RequestDelay = f.delay
		}
	})
	if err != nil {
		return nil, 0, 0, err
	}

	cx, cy, err := f.center()
	if err != nil {
		return nil, 0, 0, err
	}
	return settings, cx, cy, nil
}

func (f *regionFlags) center() (float64, float64, error) {
	if f.centerX == "" || f.centerY == "" {
		return 0, 0, &usageError{msg: "-center-x and -center-y are required"}
	}
	x, err := strconv.ParseFloat(f.centerX, 64)
	if err != nil {
		return 0, 0, &usageError{msg: fmt.Sprintf("invalid -center-x %q", f.centerX)}
	}
	y, err := strconv.ParseFloat(f.centerY, 64)
	if err != nil {
		return 0, 0, &usageError{msg: fmt.Sprintf("invalid -center-y %q", f.centerY)}
	}
	return x, y, nil
}

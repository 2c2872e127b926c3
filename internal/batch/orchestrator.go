package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/francegen/tilebatch/internal/completion"
	"github.com/francegen/tilebatch/internal/download"
	"github.com/francegen/tilebatch/internal/geometry"
	ioutils "github.com/francegen/tilebatch/internal/io"
	"github.com/francegen/tilebatch/internal/model"
	"github.com/francegen/tilebatch/internal/process"
)

// Options configures a batch run.
type Options struct {
	TilesRoot string
	WorldDir  string

	// Radius is the number of macro-tiles around the center in each direction.
	Radius int

	// Resume skips the contiguous prefix of completed macro-tiles.
	Resume bool

	// ProcessorArgs are passed to the processor before the two directories.
	ProcessorArgs []string

	// MaxFailedTiles aborts the run when a macro-tile has more failed tiles.
	// A negative value accepts any number of failures.
	MaxFailedTiles int

	// TilePx is the expected raster size checked by Verify. Zero skips the check.
	TilePx int

	// RunID is recorded in every marker. Empty generates a random one.
	RunID string

	Download download.Options
}

// Orchestrator runs the download-then-process loop over all macro-tiles.
type Orchestrator struct {
	region    model.Region
	opts      Options
	fetcher   download.Fetcher
	store     completion.Store
	processor process.Processor

	tiles      []model.MacroTile
	states     []State
	downloader *download.Downloader
	current    int32

	macroDone  int32
	macroTotal int32
	tilesTotal int32

	closers    []func() error
	onProgress func(download.ProgressEvent)
	mu         sync.RWMutex
}

// Summary describes a finished run.
type Summary struct {
	RunID string

	// Total is the number of macro-tiles in the region.
	Total int

	// StartIndex is the first macro-tile this run worked on.
	StartIndex int

	// NothingToDo is set when every macro-tile was already complete.
	NothingToDo bool

	Processed []Result
}

// Result is the outcome of one processed macro-tile.
type Result struct {
	MacroTile model.MacroTile
	Report    *download.Report
	Command   []string
}

// Progress is a snapshot of a running batch.
type Progress struct {
	MacroDone  int32
	MacroTotal int32
	TilesDone  int32
	TilesTotal int32

	// Current is the index of the macro-tile being worked on, or -1.
	Current int
	State   State
}

// New validates the layout and enumerates the macro-tiles. It performs no I/O.
func New(region model.Region, opts Options, fetcher download.Fetcher, store completion.Store, processor process.Processor, onProgress func(download.ProgressEvent)) (*Orchestrator, error) {
	if opts.TilesRoot == "" {
		return nil, errors.New("batch: tiles root is required")
	}
	if opts.WorldDir == "" {
		return nil, errors.New("batch: world directory is required")
	}
	tiles, err := geometry.MacroTiles(region, opts.Radius)
	if err != nil {
		return nil, err
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	o := &Orchestrator{
		region:     region,
		opts:       opts,
		fetcher:    fetcher,
		store:      store,
		processor:  processor,
		tiles:      tiles,
		states:     make([]State, len(tiles)),
		current:    -1,
		onProgress: onProgress,
	}
	o.downloader = download.NewDownloader(fetcher, region, opts.Download, onProgress)
	return o, nil
}

// RunID returns the identifier recorded in markers written by this orchestrator.
func (o *Orchestrator) RunID() string {
	return o.opts.RunID
}

// MacroTiles returns the macro-tiles in processing order.
func (o *Orchestrator) MacroTiles() []model.MacroTile {
	return append([]model.MacroTile(nil), o.tiles...)
}

// Region returns the region being processed.
func (o *Orchestrator) Region() model.Region {
	return o.region
}

// States returns a copy of the per-macro-tile states.
func (o *Orchestrator) States() []State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]State(nil), o.states...)
}

// Progress returns the current progress of Run.
func (o *Orchestrator) Progress() Progress {
	o.mu.RLock()
	defer o.mu.RUnlock()

	p := Progress{
		MacroDone:  atomic.LoadInt32(&o.macroDone),
		MacroTotal: atomic.LoadInt32(&o.macroTotal),
		TilesDone:  o.downloader.TilesDone(),
		TilesTotal: atomic.LoadInt32(&o.tilesTotal),
		Current:    int(atomic.LoadInt32(&o.current)),
	}
	if p.Current >= 0 {
		p.State = o.states[p.Current]
	}
	return p
}

// Close releases resources acquired by Setup.
func (o *Orchestrator) Close() error {
	var errs []error
	for _, c := range o.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run downloads and processes every remaining macro-tile in order.
//
// A tile fetch failure stops the run only when more than MaxFailedTiles
// tiles of one macro-tile failed. A processor failure stops it
// immediately: later macro-tiles are neither downloaded nor processed, and
// the returned *MacroTileError wraps the *process.ExitError.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	o.reset()

	total := len(o.tiles)
	summary := &Summary{RunID: o.opts.RunID, Total: total}

	o.progress(download.ProgressEvent{
		Message: fmt.Sprintf("Preparing %d macro-tile(s) of %g km² each", total, o.region.MacroArea()/1e6),
		Level:   download.LevelInfo,
	})

	if err := ioutils.EnsureDir(o.opts.TilesRoot); err != nil {
		return summary, &FilesystemError{Op: "create tiles root", Path: o.opts.TilesRoot, Err: err}
	}

	start := 0
	if o.opts.Resume {
		idx, err := completion.FindResumeIndex(ctx, o.store, o.tiles)
		if err != nil {
			return summary, &FilesystemError{Op: "read markers", Path: o.opts.TilesRoot, Err: err}
		}
		start = idx
	}
	summary.StartIndex = start

	o.mu.Lock()
	for i := 0; i < start; i++ {
		o.states[i] = StateComplete
	}
	o.mu.Unlock()

	if start >= total {
		summary.NothingToDo = true
		o.progress(download.ProgressEvent{Message: "All macro-tiles already completed; nothing to do.", Level: download.LevelSuccess})
		return summary, nil
	}
	if start > 0 {
		o.progress(download.ProgressEvent{
			Message: fmt.Sprintf("Resuming after index %d; skipping %d completed macro-tile(s)", start-1, start),
			Level:   download.LevelInfo,
		})
	}

	perMacro := o.region.GridSide * o.region.GridSide
	atomic.StoreInt32(&o.macroTotal, int32(total-start))
	atomic.StoreInt32(&o.tilesTotal, int32((total-start)*perMacro))

	for i := start; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result, err := o.runOne(ctx, i)
		if err != nil {
			o.fail(i)
			return summary, err
		}
		summary.Processed = append(summary.Processed, *result)
		atomic.AddInt32(&o.macroDone, 1)
	}

	atomic.StoreInt32(&o.current, -1)
	o.progress(download.ProgressEvent{
		Message: fmt.Sprintf("All %d macro-tile(s) processed", len(summary.Processed)),
		Level:   download.LevelSuccess,
	})
	return summary, nil
}

func (o *Orchestrator) runOne(ctx context.Context, i int) (*Result, error) {
	mt := o.tiles[i]
	dir := mt.Dir(o.opts.TilesRoot)
	atomic.StoreInt32(&o.current, int32(i))

	o.progress(download.ProgressEvent{
		Message: fmt.Sprintf("[%d/%d] Macro tile offset (%d, %d) at center (%.2f, %.2f)",
			i+1, len(o.tiles), mt.Offset.DX, mt.Offset.DY, mt.CenterX, mt.CenterY),
		Level: download.LevelInfo,
	})

	if err := o.transition(i, StatePending, StateDownloading); err != nil {
		return nil, err
	}
	o.mu.RLock()
	downloader := o.downloader
	o.mu.RUnlock()

	report, err := downloader.Download(ctx, dir, mt)
	if err != nil {
		return nil, &MacroTileError{MacroTile: mt, Stage: "download", Err: err}
	}
	if limit := o.opts.MaxFailedTiles; limit >= 0 && len(report.Failed) > limit {
		return nil, &PartialMacroTileError{MacroTile: mt, Failed: report.FailedFiles(), Limit: limit}
	}

	if err := o.transition(i, StateDownloading, StateProcessing); err != nil {
		return nil, err
	}
	if c, ok := o.processor.(interface {
		Command(inputDir, worldDir string, extraArgs []string) []string
	}); ok {
		argv := c.Command(dir, o.opts.WorldDir, o.opts.ProcessorArgs)
		o.progress(download.ProgressEvent{Message: "Running processor: " + process.FormatCommand(argv), Level: download.LevelInfo})
	}

	command, err := o.processor.Process(ctx, dir, o.opts.WorldDir, o.opts.ProcessorArgs)
	if err != nil {
		o.progress(download.ProgressEvent{Message: fmt.Sprintf("Processing %s failed: %v", mt.DirName(), err), Level: download.LevelError})
		return nil, &MacroTileError{MacroTile: mt, Stage: "process", Err: err}
	}

	marker := completion.NewMarker(mt, command, o.opts.RunID, report.FailedFiles())
	if err := o.store.MarkComplete(ctx, mt, marker); err != nil {
		return nil, &FilesystemError{Op: "write marker", Path: dir, Err: err}
	}

	if err := o.transition(i, StateProcessing, StateComplete); err != nil {
		return nil, err
	}
	o.progress(download.ProgressEvent{Message: fmt.Sprintf("Completed %s", mt.DirName()), Level: download.LevelSuccess})

	return &Result{MacroTile: mt, Report: report, Command: command}, nil
}

func (o *Orchestrator) reset() {
	o.mu.Lock()
	for i := range o.states {
		o.states[i] = StatePending
	}
	o.downloader = download.NewDownloader(o.fetcher, o.region, o.opts.Download, o.onProgress)
	o.mu.Unlock()
	atomic.StoreInt32(&o.macroDone, 0)
	atomic.StoreInt32(&o.macroTotal, 0)
	atomic.StoreInt32(&o.tilesTotal, 0)
	atomic.StoreInt32(&o.current, -1)
}

func (o *Orchestrator) progress(event download.ProgressEvent) {
	if o.onProgress != nil {
		o.onProgress(event)
	}
}

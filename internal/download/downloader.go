package download

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/francegen/tilebatch/internal/geometry"
	ioutils "github.com/francegen/tilebatch/internal/io"
	"github.com/francegen/tilebatch/internal/model"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// String returns the lowercase level name.
func (l ProgressLevel) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelSuccess:
		return "success"
	default:
		return "info"
	}
}

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Fetcher retrieves the raster for one bounding box into destPath.
//
// Implementations must not leave a file at destPath when they fail.
type Fetcher interface {
	Fetch(ctx context.Context, bounds orb.Bound, destPath string) error
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, bounds orb.Bound, destPath string) error

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, bounds orb.Bound, destPath string) error {
	return f(ctx, bounds, destPath)
}

// Options controls how a macro-tile is downloaded.
type Options struct {
	// SkipExisting avoids any request for tiles whose file already exists.
	SkipExisting bool

	// Delay is observed after every fetch attempt, successful or not.
	Delay time.Duration

	// Concurrency caps the number of in-flight fetches. Values below 1 mean 1.
	Concurrency int
}

// Downloader fetches every tile of a macro-tile.
type Downloader struct {
	fetcher Fetcher
	region  model.Region
	opts    Options

	tilesDone int32

	onProgress func(ProgressEvent)
	sleep      func(ctx context.Context, d time.Duration)
}

// NewDownloader creates a Downloader for tiles of region.
func NewDownloader(fetcher Fetcher, region model.Region, opts Options, onProgress func(ProgressEvent)) *Downloader {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Downloader{
		fetcher:    fetcher,
		region:     region,
		opts:       opts,
		onProgress: onProgress,
		sleep:      sleepContext,
	}
}

// TilesDone returns how many tiles have been handled (fetched, skipped or
// failed) since the Downloader was created.
func (d *Downloader) TilesDone() int32 {
	return atomic.LoadInt32(&d.tilesDone)
}

// Download ensures dir exists and fetches every tile of mt into it.
//
// Tile fetch failures are recorded in the returned Report and never abort
// the loop. Only a failure to prepare dir, to check for an existing file, or
// context cancellation return an error. Download returns after every
// started fetch has finished.
func (d *Downloader) Download(ctx context.Context, dir string, mt model.MacroTile) (*Report, error) {
	if err := ioutils.EnsureDir(dir); err != nil {
		return nil, &FilesystemError{Op: "create directory", Path: dir, Err: err}
	}

	tiles := geometry.TilesFor(d.region, mt)
	report := &Report{
		Dir:    dir,
		Offset: mt.Offset,
		Total:  len(tiles),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)

	for _, tile := range tiles {
		if gctx.Err() != nil {
			break
		}
		tile := tile
		g.Go(func() error {
			outcome, err := d.downloadTile(gctx, dir, tile)
			if err != nil {
				return err
			}

			mu.Lock()
			switch outcome.kind {
			case outcomeSkipped:
				report.Skipped++
			case outcomeFetched:
				report.Fetched++
			case outcomeFailed:
				report.Failed = append(report.Failed, outcome.failure)
			}
			mu.Unlock()

			atomic.AddInt32(&d.tilesDone, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	sort.Slice(report.Failed, func(i, j int) bool {
		a, b := report.Failed[i], report.Failed[j]
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.Row < b.Row
	})

	name := filepath.Base(dir)
	if len(report.Failed) == 0 {
		d.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded %s: %d fetched, %d skipped", name, report.Fetched, report.Skipped), Level: LevelSuccess})
	} else {
		d.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s, %d of %d tiles failed", name, len(report.Failed), report.Total), Level: LevelWarning})
	}

	return report, nil
}

type outcomeKind int

const (
	outcomeFetched outcomeKind = iota
	outcomeSkipped
	outcomeFailed
)

type tileOutcome struct {
	kind    outcomeKind
	failure TileFailure
}

func (d *Downloader) downloadTile(ctx context.Context, dir string, tile model.Tile) (tileOutcome, error) {
	path := tile.Path(dir)

	if d.opts.SkipExisting {
		exists, err := ioutils.FileExists(path)
		if err != nil {
			return tileOutcome{}, &FilesystemError{Op: "stat", Path: path, Err: err}
		}
		if exists {
			d.progress(ProgressEvent{Message: fmt.Sprintf("[Skip] %s already exists", tile.FileName()), Level: LevelVerbose})
			return tileOutcome{kind: outcomeSkipped}, nil
		}
	}

	err := d.fetcher.Fetch(ctx, tile.Bounds, path)
	d.sleep(ctx, d.opts.Delay)

	if err != nil {
		failure := TileFailure{Col: tile.Col, Row: tile.Row, File: tile.FileName(), Err: err}
		d.progress(ProgressEvent{Message: "[Error] " + failure.Error(), Level: LevelWarning})
		return tileOutcome{kind: outcomeFailed, failure: failure}, nil
	}

	d.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", tile.FileName()), Level: LevelVerbose})
	return tileOutcome{kind: outcomeFetched}, nil
}

func (d *Downloader) progress(event ProgressEvent) {
	if d.onProgress != nil {
		d.onProgress(event)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

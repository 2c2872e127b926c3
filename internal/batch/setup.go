package batch

import (
	"context"
	"io"

	"github.com/francegen/tilebatch/internal/completion"
	"github.com/francegen/tilebatch/internal/config"
	"github.com/francegen/tilebatch/internal/download"
	"github.com/francegen/tilebatch/internal/http"
	"github.com/francegen/tilebatch/internal/process"
)

// Setup wires an Orchestrator from settings: the WMS client as Fetcher,
// the configured marker store and an ExecProcessor writing to stdout and
// stderr. Call Close on the result when done.
//
// Invalid settings return a *config.ValidationError; an invalid radius or
// region returns geometry.ErrNegativeRadius or model.ErrInvalidRegion.
func Setup(ctx context.Context, s *config.Settings, centerX, centerY float64, stdout, stderr io.Writer, onProgress func(download.ProgressEvent)) (*Orchestrator, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	region, err := s.ToRegion(centerX, centerY)
	if err != nil {
		return nil, err
	}

	var (
		store   completion.Store
		closers []func() error
	)
	if s.MarkerStore == "" {
		fs, err := completion.NewFileStore(s.TilesRoot)
		if err != nil {
			return nil, err
		}
		store = fs
	} else {
		bs, err := completion.OpenBlobStore(ctx, s.MarkerStore)
		if err != nil {
			return nil, err
		}
		store = bs
		closers = append(closers, bs.Close)
	}

	client := http.NewClient(s.ToWMSOptions())
	processor := process.NewExecProcessor(s.ProcessorBin)
	processor.Stdout = stdout
	processor.Stderr = stderr

	o, err := New(region, Options{
		TilesRoot:      s.TilesRoot,
		WorldDir:       s.WorldDir,
		Radius:         s.MacroRadius,
		Resume:         s.Resume,
		ProcessorArgs:  s.ProcessorArgs,
		MaxFailedTiles: s.MaxFailedTiles,
		TilePx:         s.TileWidthPx,
		Download: download.Options{
			SkipExisting: s.SkipExisting,
			Delay:        s.Delay(),
			Concurrency:  s.MaxConcurrentTileDownloads,
		},
	}, client, store, processor, onProgress)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}
	o.closers = closers
	return o, nil
}

// BytesReceived returns the bytes downloaded so far when the fetcher
// tracks them, and zero otherwise.
func (o *Orchestrator) BytesReceived() int64 {
	if c, ok := o.fetcher.(interface{ BytesReceived() int64 }); ok {
		return c.BytesReceived()
	}
	return 0
}

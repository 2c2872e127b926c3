package batch

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/francegen/tilebatch/internal/completion"
	"github.com/francegen/tilebatch/internal/geometry"
	ioutils "github.com/francegen/tilebatch/internal/io"
	"github.com/francegen/tilebatch/internal/model"
)

// MacroTileStatus describes the on-disk state of one macro-tile.
type MacroTileStatus struct {
	MacroTile    model.MacroTile
	Complete     bool
	Marker       *completion.Marker
	TilesPresent int

	// MarkerErr is set when a marker exists but cannot be read. Marker is
	// nil then, and the macro-tile still counts as complete.
	MarkerErr error

	TilesTotal   int
}

// StatusReport is the result of Status.
type StatusReport struct {
	MacroTiles []MacroTileStatus

	// ResumeIndex is where a resumed run would start.
	ResumeIndex int

	// Stray lists directories under the tiles root that are macro-tile
	// directories outside the current region, sorted by name.
	Stray []string
}

// Status reports marker and tile presence for every macro-tile of the region.
func (o *Orchestrator) Status(ctx context.Context) (*StatusReport, error) {
	report := &StatusReport{}

	for _, mt := range o.tiles {
		st := MacroTileStatus{MacroTile: mt}

		complete, err := o.store.IsComplete(ctx, mt)
		if err != nil {
			return nil, fmt.Errorf("check marker for %s: %w", mt.DirName(), err)
		}
		if complete {
			st.Complete = true
			marker, err := o.store.Load(ctx, mt)
			switch {
			case err == nil:
				st.Marker = marker
			case errors.Is(err, completion.ErrUnreadableMarker):
				st.MarkerErr = err
			case errors.Is(err, completion.ErrNoMarker):
				// removed since IsComplete
				st.Complete = false
			default:
				return nil, fmt.Errorf("load marker for %s: %w", mt.DirName(), err)
			}
		}

		dir := mt.Dir(o.opts.TilesRoot)
		tiles := geometry.TilesFor(o.region, mt)
		st.TilesTotal = len(tiles)
		for _, t := range tiles {
			ok, err := ioutils.FileExists(t.Path(dir))
			if err != nil {
				return nil, err
			}
			if ok {
				st.TilesPresent++
			}
		}
		report.MacroTiles = append(report.MacroTiles, st)
	}

	idx, err := completion.FindResumeIndex(ctx, o.store, o.tiles)
	if err != nil {
		return nil, err
	}
	report.ResumeIndex = idx

	stray, err := o.strayDirs()
	if err != nil {
		return nil, err
	}
	report.Stray = stray
	return report, nil
}

func (o *Orchestrator) strayDirs() ([]string, error) {
	entries, err := os.ReadDir(o.opts.TilesRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	known := make(map[model.Offset]bool, len(o.tiles))
	for _, mt := range o.tiles {
		known[mt.Offset] = true
	}

	var stray []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "macro_") {
			continue
		}
		off, err := model.ParseDirName(e.Name())
		if err != nil || !known[off] {
			stray = append(stray, e.Name())
		}
	}
	sort.Strings(stray)
	return stray, nil
}

// ProblemKind classifies a tile found by Verify.
type ProblemKind string

const (
	ProblemMissing ProblemKind = "missing"
	ProblemCorrupt ProblemKind = "corrupt"
	ProblemSize    ProblemKind = "size"
)

// TileProblem is a tile file that would not be usable by the processor.
type TileProblem struct {
	MacroTile model.MacroTile
	Tile      model.Tile
	Path      string
	Kind      ProblemKind
	Detail    string
}

func (p TileProblem) String() string {
	if p.Detail == "" {
		return fmt.Sprintf("%s/%s: %s", p.MacroTile.DirName(), p.Tile.FileName(), p.Kind)
	}
	return fmt.Sprintf("%s/%s: %s (%s)", p.MacroTile.DirName(), p.Tile.FileName(), p.Kind, p.Detail)
}

// Verify checks every tile of every downloaded macro-tile. Macro-tiles
// whose directory does not exist yet are skipped.
//
// A tile is a problem when it is missing, is not a parseable TIFF, or has
// pixel dimensions other than Options.TilePx.
func (o *Orchestrator) Verify(ctx context.Context) ([]TileProblem, error) {
	var problems []TileProblem

	for _, mt := range o.tiles {
		if err := ctx.Err(); err != nil {
			return problems, err
		}
		dir := mt.Dir(o.opts.TilesRoot)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}

		for _, t := range geometry.TilesFor(o.region, mt) {
			path := t.Path(dir)
			p := TileProblem{MacroTile: mt, Tile: t, Path: path}

			info, err := ioutils.InspectTIFF(path)
			switch {
			case errors.Is(err, os.ErrNotExist):
				p.Kind = ProblemMissing
			case errors.Is(err, ioutils.ErrNotTIFF), errors.Is(err, ioutils.ErrCorruptRaster):
				p.Kind = ProblemCorrupt
				p.Detail = err.Error()
			case err != nil:
				return problems, err
			case info.Decodable && o.opts.TilePx > 0 && (info.Width != o.opts.TilePx || info.Height != o.opts.TilePx):
				p.Kind = ProblemSize
				p.Detail = fmt.Sprintf("%dx%d, want %dx%d", info.Width, info.Height, o.opts.TilePx, o.opts.TilePx)
			default:
				continue
			}
			problems = append(problems, p)
		}
	}
	return problems, nil
}

// Coverage colors.
var (
	ColorComplete   = color.RGBA{R: 0x2e, G: 0xa0, B: 0x43, A: 0xff}
	ColorDownloaded = color.RGBA{R: 0xe3, G: 0xb3, B: 0x41, A: 0xff}
	ColorMissing    = color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}
)

// RenderCoverage writes a PNG map of the region with one cell per tile:
// tiles of completed macro-tiles, tiles on disk without a marker, and
// missing tiles each get their own color.
func (o *Orchestrator) RenderCoverage(ctx context.Context, w io.Writer, cellPx int) error {
	status, err := o.Status(ctx)
	if err != nil {
		return err
	}

	g := o.region.GridSide
	side := (2*o.opts.Radius + 1) * g
	cells := make([][]color.Color, side)
	for i := range cells {
		cells[i] = make([]color.Color, side)
	}

	for _, st := range status.MacroTiles {
		mt := st.MacroTile
		dir := mt.Dir(o.opts.TilesRoot)
		baseCol := (mt.Offset.DX + o.opts.Radius) * g
		baseRow := (mt.Offset.DY + o.opts.Radius) * g

		for _, t := range geometry.TilesFor(o.region, mt) {
			c := color.Color(ColorMissing)
			if ok, _ := ioutils.FileExists(t.Path(dir)); ok {
				c = ColorDownloaded
				if st.Complete {
					c = ColorComplete
				}
			}
			cells[baseCol+t.Col][baseRow+t.Row] = c
		}
	}

	return ioutils.RenderCoverage(w, side, side, cellPx, func(col, row int) color.Color {
		return cells[col][row]
	})
}

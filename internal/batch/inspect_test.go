package batch

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/francegen/tilebatch/internal/completion"
)

func TestStatus(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()

	o := e.orchestrator(t, 1, false, &recordingFetcher{}, &fakeProcessor{failAt: 2, code: 1})
	o.Run(ctx)
	tiles := o.MacroTiles()

	os.MkdirAll(filepath.Join(e.root, "macro_x+5_y+5"), 0755)
	os.MkdirAll(filepath.Join(e.root, "macro_bogus"), 0755)
	os.MkdirAll(filepath.Join(e.root, "unrelated"), 0755)

	report, err := o.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(report.MacroTiles) != 9 {
		t.Fatalf("macro tiles = %d", len(report.MacroTiles))
	}

	first, second, third := report.MacroTiles[0], report.MacroTiles[1], report.MacroTiles[2]
	if !first.Complete || first.Marker == nil || first.TilesPresent != 4 {
		t.Errorf("first = %+v", first)
	}
	if second.Complete || second.TilesPresent != 4 {
		t.Errorf("second = %+v", second)
	}
	if third.Complete || third.TilesPresent != 0 || third.TilesTotal != 4 {
		t.Errorf("third = %+v", third)
	}
	if report.ResumeIndex != 1 {
		t.Errorf("ResumeIndex = %d", report.ResumeIndex)
	}
	if len(report.Stray) != 2 || report.Stray[0] != "macro_bogus" || report.Stray[1] != "macro_x+5_y+5" {
		t.Errorf("Stray = %v", report.Stray)
	}
	if first.MacroTile.Offset != tiles[0].Offset {
		t.Errorf("order differs from enumeration")
	}
}

func TestStatus_UnreadableMarker(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	o := e.orchestrator(t, 1, false, &recordingFetcher{}, &fakeProcessor{})

	dir := filepath.Join(e.root, "macro_x-1_y-1")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".done-marker"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	report, err := o.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	first := report.MacroTiles[0]
	if !first.Complete || first.Marker != nil || !errors.Is(first.MarkerErr, completion.ErrUnreadableMarker) {
		t.Errorf("first = %+v", first)
	}
	if report.ResumeIndex != 1 {
		t.Errorf("ResumeIndex = %d, want 1", report.ResumeIndex)
	}

	var buf bytes.Buffer
	if err := o.RenderCoverage(ctx, &buf, 1); err != nil {
		t.Fatalf("RenderCoverage: %v", err)
	}
}

func TestStatus_EmptyRoot(t *testing.T) {
	e := newEnv(t, 2)
	o := e.orchestrator(t, 0, false, &recordingFetcher{}, &fakeProcessor{})
	report, err := o.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.ResumeIndex != 0 || len(report.Stray) != 0 || report.MacroTiles[0].TilesPresent != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestVerify(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	fetcher := &recordingFetcher{fail: map[string]bool{"elevation_1_0.tif": true}}
	o := e.orchestrator(t, 0, false, fetcher, &fakeProcessor{})
	if _, err := o.Run(ctx); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(e.root, "macro_x+0_y+0")
	os.WriteFile(filepath.Join(dir, "elevation_0_1.tif"), []byte("<ServiceExceptionReport/>"), 0644)

	problems, err := o.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(problems) != 2 {
		t.Fatalf("problems = %v", problems)
	}

	byFile := map[string]ProblemKind{}
	for _, p := range problems {
		byFile[p.Tile.FileName()] = p.Kind
	}
	if byFile["elevation_0_1.tif"] != ProblemCorrupt {
		t.Errorf("elevation_0_1.tif = %q, want corrupt", byFile["elevation_0_1.tif"])
	}
	if byFile["elevation_1_0.tif"] != ProblemMissing {
		t.Errorf("elevation_1_0.tif = %q, want missing", byFile["elevation_1_0.tif"])
	}

	o.opts.TilePx = 8
	problems, err = o.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var sized int
	for _, p := range problems {
		if p.Kind == ProblemSize {
			sized++
		}
	}
	if sized != 2 {
		t.Errorf("size problems = %d, want 2", sized)
	}
}

func TestRenderCoverage(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	o := e.orchestrator(t, 1, false, &recordingFetcher{}, &fakeProcessor{failAt: 2, code: 1})
	o.Run(ctx)

	var buf bytes.Buffer
	if err := o.RenderCoverage(ctx, &buf, 3); err != nil {
		t.Fatalf("RenderCoverage: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	// 3x3 macro-tiles of 2x2 tiles, 3 px per tile
	if b := img.Bounds(); b.Dx() != 18 || b.Dy() != 18 {
		t.Fatalf("bounds = %v", b)
	}

	// macro_x-1_y-1 is complete and sits at the bottom-left
	assertColor(t, img.At(1, 17), ColorComplete)
	// macro_x+0_y-1 was downloaded but failed processing
	assertColor(t, img.At(7, 17), ColorDownloaded)
	// macro_x+1_y+1 was never reached
	assertColor(t, img.At(16, 1), ColorMissing)
}

func assertColor(t *testing.T, got interface{ RGBA() (r, g, b, a uint32) }, want interface{ RGBA() (r, g, b, a uint32) }) {
	t.Helper()
	gr, gg, gb, _ := got.RGBA()
	wr, wg, wb, _ := want.RGBA()
	if gr != wr || gg != wg || gb != wb {
		t.Errorf("color = (%d,%d,%d), want (%d,%d,%d)", gr>>8, gg>>8, gb>>8, wr>>8, wg>>8, wb>>8)
	}
}

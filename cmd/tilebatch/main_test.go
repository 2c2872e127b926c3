package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/francegen/tilebatch/internal/batch"
	"github.com/francegen/tilebatch/internal/config"
	"github.com/francegen/tilebatch/internal/geometry"
	"github.com/francegen/tilebatch/internal/model"
	"github.com/francegen/tilebatch/internal/process"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"processor", &batch.MacroTileError{Stage: "process", Err: &process.ExitError{Code: 7}}, 7},
		{"processor signal", &batch.MacroTileError{Stage: "process", Err: &process.ExitError{Code: 137, Signal: "killed"}}, 137},
		{"validation", &config.ValidationError{Field: "grid_side", Reason: "must be positive"}, ExitInvalidArgs},
		{"radius", fmt.Errorf("enumerate: %w", geometry.ErrNegativeRadius), ExitInvalidArgs},
		{"region", model.ErrInvalidRegion, ExitInvalidArgs},
		{"usage", &usageError{msg: "bad"}, ExitInvalidArgs},
		{"cancelled", fmt.Errorf("run: %w", context.Canceled), ExitInterrupted},
		{"other", errors.New("disk full"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", nil, ExitInvalidArgs},
		{"unknown", []string{"explode"}, ExitInvalidArgs},
		{"help", []string{"help"}, ExitSuccess},
		{"missing center", []string{"run", "-center-x", "1"}, ExitInvalidArgs},
		{"bad center", []string{"status", "-center-x", "east", "-center-y", "1"}, ExitInvalidArgs},
		{"negative radius", []string{"run", "-center-x", "1", "-center-y", "1", "-radius", "-1"}, ExitInvalidArgs},
		{"bad flag", []string{"verify", "-nope"}, ExitInvalidArgs},
		{"unbalanced quotes", []string{"run", "-center-x", "1", "-center-y", "1", "-processor-args", `"open`}, ExitInvalidArgs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tt.args, &stdout, &stderr); got != tt.want {
				t.Errorf("run() = %d, want %d\nstderr: %s", got, tt.want, stderr.String())
			}
		})
	}
}

// wmsServer serves a 4x4 GeoTIFF for every GetMap request.
func wmsServer(t *testing.T) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, image.NewGray16(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatal(err)
	}
	body := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("REQUEST") != "GetMap" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "image/geotiff")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	config string
	tiles  string
	world  string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	srv := wmsServer(t)
	dir := t.TempDir()

	s := config.DefaultSettings()
	s.BaseURL = srv.URL
	s.TilesRoot = filepath.Join(dir, "tiles")
	s.WorldDir = filepath.Join(dir, "world")
	s.GridSide = 1
	s.PixelSize = 1
	s.TileWidthPx = 4
	s.TileHeightPx = 4
	s.RequestDelay = 0

	path := filepath.Join(dir, "tilebatch.yaml")
	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}
	return testEnv{config: path, tiles: s.TilesRoot, world: s.WorldDir}
}

func (e testEnv) args(cmd string, extra ...string) []string {
	args := []string{cmd, "-config", e.config, "-center-x", "1000", "-center-y", "2000", "-radius", "1"}
	return append(args, extra...)
}

func TestRun_ProcessorExitCodeIsMirrored(t *testing.T) {
	e := newTestEnv(t)

	var stdout, stderr bytes.Buffer
	code := run(e.args("run", "-processor-bin", "sh", "-processor-args", `-c "exit 4" sh`), &stdout, &stderr)
	if code != 4 {
		t.Fatalf("exit code = %d, want 4\nstderr: %s", code, stderr.String())
	}

	entries, err := os.ReadDir(e.tiles)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "macro_x-1_y-1" {
		t.Errorf("tiles root = %v, want only the first macro-tile", entries)
	}
	if _, err := os.Stat(filepath.Join(e.tiles, "macro_x-1_y-1", ".done-marker")); !os.IsNotExist(err) {
		t.Errorf("marker written for failed macro-tile: %v", err)
	}
	if !strings.Contains(stderr.String(), "Processor command: sh -c exit 4 sh") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_CompleteThenResume(t *testing.T) {
	e := newTestEnv(t)

	var stdout, stderr bytes.Buffer
	if code := run(e.args("run", "-processor-bin", "true"), &stdout, &stderr); code != ExitSuccess {
		t.Fatalf("first run = %d\nstderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Processed 9/9 macro-tile(s)") {
		t.Errorf("stdout = %q", stdout.String())
	}

	stdout.Reset()
	if code := run(e.args("run", "-processor-bin", "false", "-resume"), &stdout, &stderr); code != ExitSuccess {
		t.Fatalf("resumed run = %d\nstderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Nothing to do") {
		t.Errorf("stdout = %q", stdout.String())
	}

	stdout.Reset()
	if code := run(e.args("status"), &stdout, &stderr); code != ExitSuccess {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(stdout.String(), "9/9 macro-tile(s) complete") {
		t.Errorf("status stdout = %q", stdout.String())
	}

	stdout.Reset()
	if code := run(e.args("verify"), &stdout, &stderr); code != ExitSuccess {
		t.Fatalf("verify = %d\nstdout: %s", code, stdout.String())
	}

	out := filepath.Join(t.TempDir(), "map.png")
	if code := run(e.args("coverage", "-out", out, "-cell", "2"), &stdout, &stderr); code != ExitSuccess {
		t.Fatalf("coverage = %d\nstderr: %s", code, stderr.String())
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 6 {
		t.Errorf("coverage bounds = %v, want 6x6", b)
	}
}

func TestVerify_ReportsCorruptTile(t *testing.T) {
	e := newTestEnv(t)

	var stdout, stderr bytes.Buffer
	if code := run(e.args("run", "-processor-bin", "true"), &stdout, &stderr); code != ExitSuccess {
		t.Fatalf("run = %d\nstderr: %s", code, stderr.String())
	}
	bad := filepath.Join(e.tiles, "macro_x+0_y+0", "elevation_0_0.tif")
	if err := os.WriteFile(bad, []byte("<ServiceExceptionReport/>"), 0644); err != nil {
		t.Fatal(err)
	}

	stdout.Reset()
	if code := run(e.args("verify"), &stdout, &stderr); code != ExitGeneralError {
		t.Fatalf("verify = %d, want %d", code, ExitGeneralError)
	}
	if !strings.Contains(stdout.String(), "macro_x+0_y+0/elevation_0_0.tif: corrupt") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestStatus_BlobMarkerStore(t *testing.T) {
	e := newTestEnv(t)
	markers := "file://" + filepath.ToSlash(t.TempDir())

	var stdout, stderr bytes.Buffer
	if code := run(e.args("run", "-processor-bin", "true", "-marker-store", markers), &stdout, &stderr); code != ExitSuccess {
		t.Fatalf("run = %d\nstderr: %s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(e.tiles, "macro_x+0_y+0", ".done-marker")); !os.IsNotExist(err) {
		t.Errorf("marker written next to tiles with a blob store: %v", err)
	}

	stdout.Reset()
	if code := run(e.args("status", "-marker-store", markers), &stdout, &stderr); code != ExitSuccess {
		t.Fatalf("status = %d\nstderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "9/9 macro-tile(s) complete") {
		t.Errorf("status stdout = %q", stdout.String())
	}
}

func TestStatus_UnreadableMarker(t *testing.T) {
	e := newTestEnv(t)
	dir := filepath.Join(e.tiles, "macro_x-1_y-1")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".done-marker"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run(e.args("status"), &stdout, &stderr); code != ExitSuccess {
		t.Fatalf("status = %d\nstderr: %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "complete (unreadable marker)") || !strings.Contains(out, "1/9 macro-tile(s) complete") {
		t.Errorf("status stdout = %q", out)
	}
	if !strings.Contains(out, "starts at index 1") {
		t.Errorf("status stdout = %q", out)
	}

	mapPath := filepath.Join(t.TempDir(), "map.png")
	if code := run(e.args("coverage", "-out", mapPath), &stdout, &stderr); code != ExitSuccess {
		t.Fatalf("coverage = %d\nstderr: %s", code, stderr.String())
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultSettings_Valid(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("default settings should validate: %v", err)
	}
	if s.TileSide() != 1000 {
		t.Errorf("TileSide() = %v, want 1000", s.TileSide())
	}
	region, err := s.ToRegion(697312.5, 6518866.5)
	if err != nil {
		t.Fatal(err)
	}
	if region.MacroSide() != 5000 {
		t.Errorf("MacroSide() = %v, want 5000", region.MacroSide())
	}
	if s.Delay() != 100*time.Millisecond {
		t.Errorf("Delay() = %v, want 100ms", s.Delay())
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.GridSide != DefaultSettings().GridSide {
		t.Errorf("GridSide = %d, want default", s.GridSide)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilebatch.json")
	data := `{"macro_radius": 2, "processor_args": ["--config", "cfg.json"], "request_delay": 0.5}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.MacroRadius != 2 {
		t.Errorf("MacroRadius = %d, want 2", s.MacroRadius)
	}
	if len(s.ProcessorArgs) != 2 || s.ProcessorArgs[1] != "cfg.json" {
		t.Errorf("ProcessorArgs = %v", s.ProcessorArgs)
	}
	if s.Delay() != 500*time.Millisecond {
		t.Errorf("Delay() = %v", s.Delay())
	}
	// untouched fields keep defaults
	if s.Layer != DefaultSettings().Layer {
		t.Errorf("Layer = %q, want default", s.Layer)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilebatch.yaml")
	data := `
tiles_root: /data/tiles
world_dir: /data/world
grid_side: 4
max_concurrent_tile_downloads: 3
marker_store: mem://
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.TilesRoot != "/data/tiles" || s.WorldDir != "/data/world" {
		t.Errorf("roots = %q, %q", s.TilesRoot, s.WorldDir)
	}
	if s.GridSide != 4 || s.MaxConcurrentTileDownloads != 3 {
		t.Errorf("GridSide = %d, MaxConcurrentTileDownloads = %d", s.GridSide, s.MaxConcurrentTileDownloads)
	}
	if s.MarkerStore != "mem://" {
		t.Errorf("MarkerStore = %q", s.MarkerStore)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"out.json", "out.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			s := DefaultSettings()
			s.MacroRadius = 3
			s.ProcessorArgs = []string{"--threads", "8"}
			if err := s.Save(path); err != nil {
				t.Fatalf("Save: %v", err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if loaded.MacroRadius != 3 || len(loaded.ProcessorArgs) != 2 {
				t.Errorf("loaded = %+v", loaded)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		field  string
	}{
		{"negative radius", func(s *Settings) { s.MacroRadius = -1 }, "macro_radius"},
		{"zero grid", func(s *Settings) { s.GridSide = 0 }, "grid_side"},
		{"zero pixel size", func(s *Settings) { s.PixelSize = 0 }, "pixel_size"},
		{"non-square tiles", func(s *Settings) { s.TileHeightPx = 1000 }, "tile_width_px/tile_height_px"},
		{"no timeout", func(s *Settings) { s.FetchTimeout = 0 }, "fetch_timeout"},
		{"no workers", func(s *Settings) { s.MaxConcurrentTileDownloads = 0 }, "max_concurrent_tile_downloads"},
		{"bad failure limit", func(s *Settings) { s.MaxFailedTiles = -2 }, "max_failed_tiles"},
		{"no processor", func(s *Settings) { s.ProcessorBin = " " }, "processor_bin"},
		{"relative url", func(s *Settings) { s.BaseURL = "data.geopf.fr/wms-r" }, "base_url"},
		{"no tiles root", func(s *Settings) { s.TilesRoot = "" }, "tiles_root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			err := s.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestToWMSOptions(t *testing.T) {
	s := DefaultSettings()
	s.FetchTimeout = 2.5
	opts := s.ToWMSOptions()
	if opts.Timeout != 2500*time.Millisecond {
		t.Errorf("Timeout = %v", opts.Timeout)
	}
	if opts.WidthPx != 2000 || opts.HeightPx != 2000 {
		t.Errorf("size = %dx%d", opts.WidthPx, opts.HeightPx)
	}
	if opts.Layer != s.Layer || opts.BaseURL != s.BaseURL {
		t.Errorf("opts = %+v", opts)
	}
}

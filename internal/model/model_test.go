package model

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
)

func TestNewRegion(t *testing.T) {
	tests := []struct {
		name     string
		cx, cy   float64
		grid     int
		tileSide float64
		wantErr  bool
	}{
		{"valid", 1000, 1000, 5, 1000, false},
		{"zero grid", 0, 0, 0, 1000, true},
		{"negative grid", 0, 0, -1, 1000, true},
		{"zero tile side", 0, 0, 5, 0, true},
		{"negative tile side", 0, 0, 5, -10, true},
		{"nan center", math.NaN(), 0, 5, 1000, true},
		{"infinite center", 0, math.Inf(1), 5, 1000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegion(tt.cx, tt.cy, tt.grid, tt.tileSide)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRegion) {
					t.Errorf("NewRegion() error = %v, want ErrInvalidRegion", err)
				}
				return
			}
			if err != nil {
				t.Errorf("NewRegion() unexpected error: %v", err)
			}
		})
	}
}

func TestRegion_MacroSide(t *testing.T) {
	region, err := NewRegion(0, 0, 5, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if got := region.MacroSide(); got != 5000 {
		t.Errorf("MacroSide() = %v, want 5000", got)
	}
	if got := region.MacroArea(); got != 25_000_000 {
		t.Errorf("MacroArea() = %v, want 25000000", got)
	}
}

func TestOffset_DirName(t *testing.T) {
	tests := []struct {
		offset Offset
		want   string
	}{
		{Offset{0, 0}, "macro_x+0_y+0"},
		{Offset{1, 0}, "macro_x+1_y+0"},
		{Offset{-1, -1}, "macro_x-1_y-1"},
		{Offset{12, -3}, "macro_x+12_y-3"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.offset.DirName(); got != tt.want {
				t.Errorf("DirName() = %q, want %q", got, tt.want)
			}
			back, err := ParseDirName(tt.want)
			if err != nil {
				t.Fatalf("ParseDirName(%q): %v", tt.want, err)
			}
			if back != tt.offset {
				t.Errorf("ParseDirName(%q) = %v, want %v", tt.want, back, tt.offset)
			}
		})
	}
}

func TestOffset_DirNameUnique(t *testing.T) {
	seen := make(map[string]Offset)
	for dy := -11; dy <= 11; dy++ {
		for dx := -11; dx <= 11; dx++ {
			o := Offset{dx, dy}
			name := o.DirName()
			if prev, ok := seen[name]; ok {
				t.Fatalf("%v and %v both map to %q", prev, o, name)
			}
			seen[name] = o
		}
	}
}

func TestParseDirName_Invalid(t *testing.T) {
	for _, name := range []string{
		"",
		"macro_x0_y0",
		"macro_x+1_y",
		"macro_x+1_y+2_extra",
		"elevation_0_0.tif",
	} {
		if _, err := ParseDirName(name); err == nil {
			t.Errorf("ParseDirName(%q) expected error", name)
		}
	}
}

func TestTile_FileNameAndBBox(t *testing.T) {
	tile := Tile{
		Col: 2,
		Row: 4,
		Bounds: orb.Bound{
			Min: orb.Point{694812.5, 6516366.5},
			Max: orb.Point{695812.5, 6517366.5},
		},
	}

	if got := tile.FileName(); got != "elevation_2_4.tif" {
		t.Errorf("FileName() = %q", got)
	}
	if got, want := tile.Path("/tiles/macro_x+0_y+0"), filepath.Join("/tiles/macro_x+0_y+0", "elevation_2_4.tif"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
	if got, want := tile.BBox(), "694812.5,6516366.5,695812.5,6517366.5"; got != want {
		t.Errorf("BBox() = %q, want %q", got, want)
	}
}

func TestMacroTile_Dir(t *testing.T) {
	mt := MacroTile{Offset: Offset{DX: -1, DY: 1}}
	if got, want := mt.Dir("/root"), filepath.Join("/root", "macro_x-1_y+1"); got != want {
		t.Errorf("Dir() = %q, want %q", got, want)
	}
}

package model

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
)

// ErrInvalidRegion is returned when a Region cannot describe a macro-tile grid.
var ErrInvalidRegion = errors.New("model: invalid region")

// Region describes the area to process in a single planar projected
// coordinate system (EPSG:2154 by default).
//
// A Region is built once from user input and never changes afterwards.
// Everything else (macro-tiles, tiles, bounding boxes) is derived from it.
//
// Example:
//
//	region, err := NewRegion(697312.5, 6518866.5, 5, 1000)
//	// region.MacroSide() == 5000: 5x5 tiles of 1 km each
type Region struct {
	// CenterX is the X coordinate of the center macro-tile.
	CenterX float64

	// CenterY is the Y coordinate of the center macro-tile.
	CenterY float64

	// GridSide is the number of tiles along one side of a macro-tile.
	GridSide int

	// TileSide is the side length of a single tile in projected units.
	TileSide float64
}

// NewRegion validates and returns a Region.
//
// The grid side and tile side must both be positive, and the center must be
// a finite coordinate pair.
func NewRegion(centerX, centerY float64, gridSide int, tileSide float64) (Region, error) {
	if math.IsNaN(centerX) || math.IsInf(centerX, 0) || math.IsNaN(centerY) || math.IsInf(centerY, 0) {
		return Region{}, fmt.Errorf("%w: center (%v, %v) is not finite", ErrInvalidRegion, centerX, centerY)
	}
	if gridSide <= 0 {
		return Region{}, fmt.Errorf("%w: grid side must be positive, got %d", ErrInvalidRegion, gridSide)
	}
	if !(tileSide > 0) || math.IsInf(tileSide, 0) {
		return Region{}, fmt.Errorf("%w: tile side must be positive, got %v", ErrInvalidRegion, tileSide)
	}
	return Region{
		CenterX:  centerX,
		CenterY:  centerY,
		GridSide: gridSide,
		TileSide: tileSide,
	}, nil
}

// MacroSide returns the side length of a macro-tile in projected units.
func (r Region) MacroSide() float64 {
	return float64(r.GridSide) * r.TileSide
}

// MacroArea returns the area covered by one macro-tile in square units.
func (r Region) MacroArea() float64 {
	side := r.MacroSide()
	return side * side
}

// Offset identifies a macro-tile by its integer distance from the center
// macro-tile, counted in macro-tiles.
type Offset struct {
	DX int `json:"dx" yaml:"dx"`
	DY int `json:"dy" yaml:"dy"`
}

var dirNamePattern = regexp.MustCompile(`^macro_x([+-]\d+)_y([+-]\d+)$`)

// DirName returns the directory name for the macro-tile.
//
// The sign is always written, including for zero, so names never collide
// and sort in a stable order:
//
//	Offset{0, 0}.DirName()  // "macro_x+0_y+0"
//	Offset{-1, 2}.DirName() // "macro_x-1_y+2"
func (o Offset) DirName() string {
	return fmt.Sprintf("macro_x%+d_y%+d", o.DX, o.DY)
}

func (o Offset) String() string {
	return fmt.Sprintf("(%d, %d)", o.DX, o.DY)
}

// ParseDirName is the inverse of Offset.DirName.
func ParseDirName(name string) (Offset, error) {
	m := dirNamePattern.FindStringSubmatch(name)
	if m == nil {
		return Offset{}, fmt.Errorf("model: %q is not a macro-tile directory name", name)
	}
	dx, err := strconv.Atoi(m[1])
	if err != nil {
		return Offset{}, fmt.Errorf("model: parse dx in %q: %w", name, err)
	}
	dy, err := strconv.Atoi(m[2])
	if err != nil {
		return Offset{}, fmt.Errorf("model: parse dy in %q: %w", name, err)
	}
	return Offset{DX: dx, DY: dy}, nil
}

// MacroTile is one square unit of work: a GridSide x GridSide block of tiles
// downloaded together and handed to the processor as a single directory.
type MacroTile struct {
	// Index is the position of the macro-tile in enumeration order.
	Index int

	// Offset is the macro-tile identity relative to the region center.
	Offset Offset

	// CenterX and CenterY locate the center of the macro-tile.
	CenterX float64
	CenterY float64
}

// DirName returns the directory name derived from the macro-tile offset.
func (m MacroTile) DirName() string {
	return m.Offset.DirName()
}

// Dir returns the macro-tile directory below root.
func (m MacroTile) Dir(root string) string {
	return filepath.Join(root, m.DirName())
}

// Package geometry derives macro-tile and tile bounding boxes from a region
// center, a radius and the grid parameters.
//
// Every function here is pure: the same inputs always give the same
// sequence, in the same order.
package geometry

import (
	"errors"
	"fmt"

	"github.com/francegen/tilebatch/internal/model"
	"github.com/paulmach/orb"
)

// ErrNegativeRadius is returned when a macro radius below zero is requested.
var ErrNegativeRadius = errors.New("geometry: radius must be >= 0")

// Offsets returns every (dx, dy) with dx, dy in [-radius, radius].
//
// The order is row-major: dy is the outer loop and dx the inner loop, both
// ascending. A radius of 0 yields the single offset (0, 0).
func Offsets(radius int) ([]model.Offset, error) {
	if radius < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeRadius, radius)
	}
	side := 2*radius + 1
	offsets := make([]model.Offset, 0, side*side)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			offsets = append(offsets, model.Offset{DX: dx, DY: dy})
		}
	}
	return offsets, nil
}

// MacroTileCenter returns the center of the macro-tile at offset o.
// The offset is scaled by the macro side length first, then added to the
// region center.
func MacroTileCenter(r model.Region, o model.Offset) (x, y float64) {
	side := r.MacroSide()
	x = r.CenterX + float64(o.DX)*side
	y = r.CenterY + float64(o.DY)*side
	return x, y
}

// MacroTiles enumerates the (2*radius+1)^2 macro-tiles of the region in
// Offsets order.
func MacroTiles(r model.Region, radius int) ([]model.MacroTile, error) {
	offsets, err := Offsets(radius)
	if err != nil {
		return nil, err
	}
	tiles := make([]model.MacroTile, len(offsets))
	for i, o := range offsets {
		cx, cy := MacroTileCenter(r, o)
		tiles[i] = model.MacroTile{
			Index:   i,
			Offset:  o,
			CenterX: cx,
			CenterY: cy,
		}
	}
	return tiles, nil
}

// MacroBounds returns the square extent covered by a macro-tile centered at
// (cx, cy).
func MacroBounds(cx, cy float64, gridSide int, tileSide float64) orb.Bound {
	half := float64(gridSide) * tileSide / 2
	return orb.Bound{
		Min: orb.Point{cx - half, cy - half},
		Max: orb.Point{cx + half, cy + half},
	}
}

// TileBounds returns the gridSide x gridSide tiles of the macro-tile centered
// at (cx, cy).
//
// Enumeration is column-outer, row-inner: (0,0), (0,1), ..., (0,n-1), (1,0), ...
// Tile file names are built from (col, row), so this order never changes.
func TileBounds(cx, cy float64, gridSide int, tileSide float64) []model.Tile {
	if gridSide <= 0 {
		return nil
	}
	half := float64(gridSide) * tileSide / 2
	startX := cx - half
	startY := cy - half

	tiles := make([]model.Tile, 0, gridSide*gridSide)
	for col := 0; col < gridSide; col++ {
		for row := 0; row < gridSide; row++ {
			minX := startX + float64(col)*tileSide
			minY := startY + float64(row)*tileSide
			tiles = append(tiles, model.Tile{
				Col: col,
				Row: row,
				Bounds: orb.Bound{
					Min: orb.Point{minX, minY},
					Max: orb.Point{minX + tileSide, minY + tileSide},
				},
			})
		}
	}
	return tiles
}

// TilesFor is TileBounds for a macro-tile of region r.
func TilesFor(r model.Region, mt model.MacroTile) []model.Tile {
	return TileBounds(mt.CenterX, mt.CenterY, r.GridSide, r.TileSide)
}

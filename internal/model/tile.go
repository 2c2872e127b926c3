package model

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/paulmach/orb"
)

// Tile is the smallest unit fetched from the map server: one raster
// covering a TileSide x TileSide square.
//
// Col and Row index the tile within its macro-tile grid, starting at the
// south-west corner. The file name is derived from them, so it stays the same
// from one run to the next.
//
// Example:
//
//	tile := Tile{Col: 2, Row: 4, Bounds: bounds}
//	tile.FileName() // "elevation_2_4.tif"
type Tile struct {
	Col int
	Row int

	// Bounds is the tile bounding box in projected units.
	Bounds orb.Bound
}

// FileName returns the raster file name for the tile.
func (t Tile) FileName() string {
	return TileFileName(t.Col, t.Row)
}

// Path returns the raster path for the tile inside dir.
func (t Tile) Path(dir string) string {
	return filepath.Join(dir, t.FileName())
}

// BBox formats the bounds as minX,minY,maxX,maxY.
func (t Tile) BBox() string {
	return FormatBBox(t.Bounds)
}

// TileFileName returns the file name used for the tile at (col, row).
func TileFileName(col, row int) string {
	return fmt.Sprintf("elevation_%d_%d.tif", col, row)
}

// FormatBBox formats a bound in minX,minY,maxX,maxY order.
func FormatBBox(b orb.Bound) string {
	return fmt.Sprintf("%s,%s,%s,%s",
		formatCoord(b.Min[0]), formatCoord(b.Min[1]),
		formatCoord(b.Max[0]), formatCoord(b.Max[1]))
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

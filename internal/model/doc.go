// Package model defines the core data structures used throughout
// tilebatch.
//
// # Region
//
// Region is the immutable description of the area to process:
//
//	region, err := model.NewRegion(697312.5, 6518866.5, 5, 1000)
//	fmt.Println(region.MacroSide()) // 5000
//
// # Macro-tile identity
//
// Offset identifies a macro-tile relative to the region center. It maps to a
// directory name with explicit signs, and the name parses back:
//
//	dir := model.Offset{DX: 1, DY: 0}.DirName() // "macro_x+1_y+0"
//	off, _ := model.ParseDirName(dir)           // Offset{1, 0}
//
// # Tile
//
// Tile carries a (col, row) grid index and its bounding box:
//
//	tile.FileName() // "elevation_<col>_<row>.tif"
//	tile.BBox()     // "minX,minY,maxX,maxY"
package model

// Package ioutils provides file system and raster utilities.
//
// This package contains functions for:
//   - Atomic file writing, so interrupted downloads leave no partial tiles
//   - TIFF header inspection for downloaded elevation rasters
//   - Rendering coverage maps as PNG
//
// # File Operations
//
//	// Stream a response body to disk
//	f, err := ioutils.CreateAtomic("/tiles/macro_x+0_y+0/elevation_0_0.tif")
//	defer f.Abort()
//	io.Copy(f, body)
//	err = f.Commit()
//
//	// Write a small file atomically
//	err := ioutils.WriteFileAtomic("/tiles/macro_x+0_y+0/.done-marker", data)
//
// # Raster Inspection
//
//	info, err := ioutils.InspectTIFF(path)
//	fmt.Println(info.Width, info.Height, info.Decodable)
//
// # Coverage Maps
//
//	err := ioutils.RenderCoverage(w, 15, 15, 8, func(col, row int) color.Color {
//	    return color.White
//	})
package ioutils

package ioutils

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// ErrNotTIFF is returned when a file does not start with a TIFF byte-order mark.
var ErrNotTIFF = errors.New("ioutils: not a TIFF file")

// ErrCorruptRaster is returned when a TIFF header cannot be parsed.
var ErrCorruptRaster = errors.New("ioutils: corrupt raster")

// RasterInfo describes a raster file on disk.
type RasterInfo struct {
	// Size is the file size in bytes.
	Size int64

	// Width and Height are the pixel dimensions. They are zero when
	// Decodable is false.
	Width  int
	Height int

	// Decodable reports whether golang.org/x/image/tiff understands the
	// sample format. 32-bit float elevation GeoTIFFs are valid TIFF files
	// but are not decodable by that package.
	Decodable bool
}

// InspectTIFF reads the header of the TIFF file at path.
//
// A file with a valid byte-order mark whose sample format the decoder does
// not support is reported as valid but not Decodable. Anything else the
// decoder rejects is ErrCorruptRaster.
//
// Example:
//
//	info, err := InspectTIFF("/tiles/macro_x+0_y+0/elevation_0_0.tif")
//	if errors.Is(err, ErrCorruptRaster) {
//	    // re-download the tile
//	}
func InspectTIFF(path string) (RasterInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return RasterInfo{}, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return RasterInfo{}, err
	}
	info := RasterInfo{Size: stat.Size()}

	r := bufio.NewReader(f)
	magic, err := r.Peek(4)
	if err != nil {
		return info, fmt.Errorf("%w: %s is too short", ErrNotTIFF, path)
	}
	if !bytes.Equal(magic, []byte("II*\x00")) && !bytes.Equal(magic, []byte("MM\x00*")) {
		return info, fmt.Errorf("%w: %s", ErrNotTIFF, path)
	}

	// tiff.DecodeConfig needs random access, so give it the whole file.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return info, err
	}
	cfg, err := tiff.DecodeConfig(f)
	if err != nil {
		var unsupported tiff.UnsupportedError
		if errors.As(err, &unsupported) {
			return info, nil
		}
		return info, fmt.Errorf("%w: %s: %v", ErrCorruptRaster, path, err)
	}

	info.Width = cfg.Width
	info.Height = cfg.Height
	info.Decodable = true
	return info, nil
}

// RenderCoverage draws a cols x rows grid as a PNG, one cellPx x cellPx
// square per cell, colored by colorAt. Row 0 is drawn at the bottom so the
// picture matches map orientation.
func RenderCoverage(w io.Writer, cols, rows, cellPx int, colorAt func(col, row int) color.Color) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("ioutils: coverage grid must be non-empty, got %dx%d", cols, rows)
	}
	if cellPx <= 0 {
		cellPx = 1
	}

	small := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for col := 0; col < cols; col++ {
		for row := 0; row < rows; row++ {
			small.Set(col, rows-1-row, colorAt(col, row))
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, cols*cellPx, rows*cellPx))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), small, small.Bounds(), draw.Src, nil)

	return png.Encode(w, dst)
}

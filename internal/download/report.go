package download

import (
	"fmt"

	"github.com/francegen/tilebatch/internal/model"
)

// Report summarizes one macro-tile download.
type Report struct {
	Dir    string
	Offset model.Offset

	// Total is the number of tiles in the macro-tile.
	Total int

	Fetched int
	Skipped int

	// Failed is sorted by column, then row.
	Failed []TileFailure
}

// Complete reports whether no tile failed.
func (r *Report) Complete() bool {
	return len(r.Failed) == 0
}

// FailedFiles returns the file names of the failed tiles.
func (r *Report) FailedFiles() []string {
	if len(r.Failed) == 0 {
		return nil
	}
	names := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		names[i] = f.File
	}
	return names
}

// TileFailure records a tile whose fetch failed.
type TileFailure struct {
	Col  int
	Row  int
	File string
	Err  error
}

func (f TileFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.File, f.Err)
}

func (f TileFailure) Unwrap() error {
	return f.Err
}

// FilesystemError is returned when the macro-tile directory cannot be prepared.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

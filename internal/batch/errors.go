package batch

import (
	"fmt"
	"strings"

	"github.com/francegen/tilebatch/internal/model"
)

// MacroTileError aborts a run at one macro-tile.
type MacroTileError struct {
	MacroTile model.MacroTile

	// Stage is "download" or "process".
	Stage string
	Err   error
}

func (e *MacroTileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.MacroTile.DirName(), e.Stage, e.Err)
}

func (e *MacroTileError) Unwrap() error {
	return e.Err
}

// PartialMacroTileError is returned when more tiles failed than
// Options.MaxFailedTiles allows. The processor is not run.
type PartialMacroTileError struct {
	MacroTile model.MacroTile
	Failed    []string
	Limit     int
}

func (e *PartialMacroTileError) Error() string {
	return fmt.Sprintf("%s: %d tiles failed (limit %d): %s",
		e.MacroTile.DirName(), len(e.Failed), e.Limit, strings.Join(e.Failed, ", "))
}

// FilesystemError reports a failure to create the tiles root or to record
// completion.
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

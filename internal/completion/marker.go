package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/francegen/tilebatch/internal/model"
)

// MarkerName is the file name of the completion marker inside a macro-tile
// directory.
const MarkerName = ".done-marker"

// ErrNoMarker is returned by Store.Load when a macro-tile has no marker.
var ErrNoMarker = errors.New("completion: no marker")

// ErrUnreadableMarker is returned by Store.Load when a marker exists but is
// not a valid marker document. The macro-tile still counts as complete.
var ErrUnreadableMarker = errors.New("completion: unreadable marker")

// Marker records that a macro-tile was processed successfully.
type Marker struct {
	CompletedAt time.Time    `json:"completed_at"`
	Command     []string     `json:"command"`
	RunID       string       `json:"run_id,omitempty"`
	Offset      model.Offset `json:"offset"`

	// FailedTiles lists tiles that were missing when the processor ran.
	FailedTiles []string `json:"failed_tiles,omitempty"`
}

// Validate checks the fields every marker must carry.
func (m Marker) Validate() error {
	if m.CompletedAt.IsZero() {
		return errors.New("completed_at is required")
	}
	if len(m.Command) == 0 || strings.TrimSpace(m.Command[0]) == "" {
		return errors.New("command is required")
	}
	return nil
}

// Store persists completion markers, one per macro-tile.
//
// A marker is written only after the processor succeeded for that
// macro-tile. Writing it again replaces the previous marker.
type Store interface {
	IsComplete(ctx context.Context, mt model.MacroTile) (bool, error)
	MarkComplete(ctx context.Context, mt model.MacroTile, marker Marker) error
	Load(ctx context.Context, mt model.MacroTile) (*Marker, error)
}

// FindResumeIndex returns the index of the first macro-tile without a
// marker, or len(tiles) when all of them are complete.
//
// Only the contiguous prefix is consulted: tiles after the first gap are
// never checked, even if they carry markers from an earlier run.
func FindResumeIndex(ctx context.Context, store Store, tiles []model.MacroTile) (int, error) {
	for i, mt := range tiles {
		done, err := store.IsComplete(ctx, mt)
		if err != nil {
			return 0, fmt.Errorf("check %s: %w", mt.DirName(), err)
		}
		if !done {
			return i, nil
		}
	}
	return len(tiles), nil
}

// NewMarker builds a marker for mt stamped with the current UTC time.
func NewMarker(mt model.MacroTile, command []string, runID string, failedTiles []string) Marker {
	return Marker{
		CompletedAt: time.Now().UTC(),
		Command:     append([]string(nil), command...),
		RunID:       runID,
		Offset:      mt.Offset,
		FailedTiles: failedTiles,
	}
}

func encodeMarker(mt model.MacroTile, m Marker) ([]byte, error) {
	m.CompletedAt = m.CompletedAt.UTC()
	m.Offset = mt.Offset
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid marker for %s: %w", mt.DirName(), err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeMarker(data []byte) (*Marker, error) {
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableMarker, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableMarker, err)
	}
	return &m, nil
}

package completion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ioutils "github.com/francegen/tilebatch/internal/io"
	"github.com/francegen/tilebatch/internal/model"
)

// FileStore keeps markers as sidecar files:
//
//	<root>/<macro-tile dir>/.done-marker
//
// Writes go through a temp file, fsync and rename, so a marker is either
// complete or absent.
type FileStore struct {
	root string
}

// NewFileStore returns a store rooted at the tiles root.
func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("completion: root is required")
	}
	return &FileStore{root: root}, nil
}

// Path returns the marker path for mt.
func (s *FileStore) Path(mt model.MacroTile) string {
	return filepath.Join(mt.Dir(s.root), MarkerName)
}

func (s *FileStore) IsComplete(ctx context.Context, mt model.MacroTile) (bool, error) {
	return ioutils.FileExists(s.Path(mt))
}

func (s *FileStore) MarkComplete(ctx context.Context, mt model.MacroTile, marker Marker) error {
	data, err := encodeMarker(mt, marker)
	if err != nil {
		return err
	}
	if err := ioutils.WriteFileAtomic(s.Path(mt), data); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, mt model.MacroTile) (*Marker, error) {
	data, err := os.ReadFile(s.Path(mt))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoMarker
		}
		return nil, err
	}
	return decodeMarker(data)
}

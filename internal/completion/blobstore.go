package completion

import (
	"context"
	"fmt"
	"path"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/francegen/tilebatch/internal/model"
)

// BlobStore keeps markers in a gocloud bucket under <macro-tile dir>/.done-marker.
type BlobStore struct {
	bucket *blob.Bucket
	owned  bool
}

// NewBlobStore wraps an open bucket. The caller keeps ownership of bucket.
func NewBlobStore(bucket *blob.Bucket) *BlobStore {
	return &BlobStore{bucket: bucket}
}

// OpenBlobStore opens the bucket at url (file://, mem:// or any URL scheme
// registered with gocloud) and returns a store that closes it on Close.
func OpenBlobStore(ctx context.Context, url string) (*BlobStore, error) {
	bkt, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open marker bucket: %w", err)
	}
	return &BlobStore{bucket: bkt, owned: true}, nil
}

// Close releases the bucket if it was opened by OpenBlobStore.
func (s *BlobStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.bucket.Close()
}

// Key returns the object key of the marker for mt.
func (s *BlobStore) Key(mt model.MacroTile) string {
	return path.Join(mt.DirName(), MarkerName)
}

func (s *BlobStore) IsComplete(ctx context.Context, mt model.MacroTile) (bool, error) {
	return s.bucket.Exists(ctx, s.Key(mt))
}

func (s *BlobStore) MarkComplete(ctx context.Context, mt model.MacroTile, marker Marker) error {
	data, err := encodeMarker(mt, marker)
	if err != nil {
		return err
	}
	opts := &blob.WriterOptions{ContentType: "application/json"}
	if err := s.bucket.WriteAll(ctx, s.Key(mt), data, opts); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	return nil
}

func (s *BlobStore) Load(ctx context.Context, mt model.MacroTile) (*Marker, error) {
	data, err := s.bucket.ReadAll(ctx, s.Key(mt))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrNoMarker
		}
		return nil, err
	}
	return decodeMarker(data)
}

// Package completion tracks which macro-tiles have been processed.
//
// A marker is the only persisted state of a batch run. Its presence means
// the processor succeeded for that macro-tile; this package never deletes
// markers. Removing one by hand forces the macro-tile to be processed again.
//
// Two stores are provided:
//   - FileStore writes .done-marker next to the tiles
//   - BlobStore writes the same JSON document into a gocloud bucket
//
// # Resuming
//
//	start, err := completion.FindResumeIndex(ctx, store, tiles)
//	for _, mt := range tiles[start:] {
//	    // download and process
//	}
//
// FindResumeIndex stops at the first macro-tile without a marker. Markers
// beyond that gap are not consulted, so those macro-tiles are processed
// again.
package completion

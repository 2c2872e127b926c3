// Package http provides a WMS GetMap client for elevation tiles.
//
// The Client in this package handles:
//   - GetMap query construction (WMS 1.3.0, BBOX in minx,miny,maxx,maxy order)
//   - User-Agent headers and request timeouts
//   - Atomic download of the raster to disk
//   - Typed errors for bad status, wrong content type and transport failures
//
// # Basic Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	err := client.Fetch(ctx, tile.Bounds, tile.Path(dir))
//	if http.IsFetchError(err) {
//	    // record the tile as failed and continue
//	}
//
// # Progress Tracking
//
// Client.BytesReceived counts body bytes as they reach disk, including those
// of the tile still in flight. Fetch does this through ProgressWriter, which
// can wrap any io.Writer:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http

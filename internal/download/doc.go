// Package download fetches the tiles of one macro-tile.
//
// # Downloader
//
// The Downloader walks the tiles of a macro-tile in geometry order:
//
//  1. Create the macro-tile directory
//  2. Skip tiles already on disk (when SkipExisting is set)
//  3. Fetch the remaining tiles through a Fetcher
//  4. Wait a fixed delay after every fetch attempt
//  5. Return a Report listing fetched, skipped and failed tiles
//
// # Basic Usage
//
//	d := download.NewDownloader(client, region, download.Options{
//	    SkipExisting: true,
//	    Delay:        100 * time.Millisecond,
//	}, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	report, err := d.Download(ctx, mt.Dir(tilesRoot), mt)
//	if err != nil {
//	    log.Fatal(err) // directory could not be created
//	}
//	fmt.Println(report.FailedFiles())
//
// # Failure Policy
//
// A failed tile is logged as a warning and recorded in Report.Failed; the
// remaining tiles are still attempted. Re-running without SkipExisting (or
// with it, since failed tiles leave no file) retries the gaps.
//
// # Concurrency
//
// Options.Concurrency bounds parallel fetches with an errgroup. The default
// of 1 fetches tiles one at a time. Download never returns while a fetch is
// still running.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
package download

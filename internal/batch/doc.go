// Package batch drives a whole region through download and processing.
//
// An Orchestrator enumerates the (2r+1)² macro-tiles of a region and handles
// them strictly one after another:
//
//	Pending → Downloading → Processing → Complete
//	                 ↘            ↘
//	                    Failed
//
// For each macro-tile the tiles are downloaded into
// <tiles_root>/macro_x±dx_y±dy, the processor is run on that directory, and
// a completion marker is written once the processor exits with status 0.
// A processor failure stops the batch before the next macro-tile is
// downloaded.
//
// # Basic Usage
//
//	o, err := batch.Setup(ctx, settings, 697312.5, 6518866.5, os.Stdout, os.Stderr, onProgress)
//	if err != nil {
//	    return err
//	}
//	defer o.Close()
//
//	summary, err := o.Run(ctx)
//
// Status, Verify and RenderCoverage inspect the tiles root without
// downloading or processing anything.
package batch

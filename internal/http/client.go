package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"

	ioutils "github.com/francegen/tilebatch/internal/io"
	"github.com/francegen/tilebatch/internal/model"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the WMS endpoint, e.g. https://data.geopf.fr/wms-r.
	BaseURL string

	// Layer is the WMS layer name.
	Layer string

	// CRS is the coordinate reference system of the bounding boxes.
	CRS string

	// Format is the requested image MIME type.
	Format string

	// WidthPx and HeightPx are the raster dimensions in pixels.
	WidthPx  int
	HeightPx int

	// Timeout bounds a single GetMap request including the body transfer.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string
}

// DefaultOptions returns the IGN LiDAR HD elevation service parameters.
func DefaultOptions() Options {
	return Options{
		BaseURL:   "https://data.geopf.fr/wms-r",
		Layer:     "IGNF_LIDAR-HD_MNT_ELEVATION.ELEVATIONGRIDCOVERAGE.LAMB93",
		CRS:       "EPSG:2154",
		Format:    "image/geotiff",
		WidthPx:   2000,
		HeightPx:  2000,
		Timeout:   60 * time.Second,
		UserAgent: "tilebatch",
	}
}

// Client fetches elevation rasters from a WMS GetMap endpoint.
//
// Client provides:
//   - GetMap URL construction for a bounding box
//   - Status and content type checks on the response
//   - Atomic streaming of the body to disk
//   - A running byte counter for progress display
//
// Example usage:
//
//	client := NewClient(DefaultOptions())
//
//	err := client.Fetch(ctx, tile.Bounds, "/tiles/macro_x+0_y+0/elevation_0_0.tif")
//	var bad *BadStatusError
//	if errors.As(err, &bad) {
//	    fmt.Println("server answered", bad.Code)
//	}
type Client struct {
	httpClient *http.Client
	opts       Options
	received   atomic.Int64
}

// NewClient creates a new WMS client.
//
// Zero values in opts fall back to DefaultOptions.
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = def.BaseURL
	}
	if opts.Layer == "" {
		opts.Layer = def.Layer
	}
	if opts.CRS == "" {
		opts.CRS = def.CRS
	}
	if opts.Format == "" {
		opts.Format = def.Format
	}
	if opts.WidthPx <= 0 {
		opts.WidthPx = def.WidthPx
	}
	if opts.HeightPx <= 0 {
		opts.HeightPx = def.HeightPx
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		opts: opts,
	}
}

// Options returns the effective options after defaults were applied.
func (c *Client) Options() Options {
	return c.opts
}

// BytesReceived returns the number of body bytes written to disk so far.
func (c *Client) BytesReceived() int64 {
	return c.received.Load()
}

// ProgressWriter wraps a writer to track download progress.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header, -1 if unknown).
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// GetMapURL builds the GetMap request URL for a bounding box.
//
// BBOX is written as minx,miny,maxx,maxy, which is the axis order of
// EPSG:2154 in WMS 1.3.0.
func (c *Client) GetMapURL(bounds orb.Bound) (string, error) {
	u, err := url.Parse(c.opts.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	q.Set("SERVICE", "WMS")
	q.Set("VERSION", "1.3.0")
	q.Set("REQUEST", "GetMap")
	q.Set("LAYERS", c.opts.Layer)
	q.Set("STYLES", "")
	q.Set("CRS", c.opts.CRS)
	q.Set("BBOX", model.FormatBBox(bounds))
	q.Set("WIDTH", strconv.Itoa(c.opts.WidthPx))
	q.Set("HEIGHT", strconv.Itoa(c.opts.HeightPx))
	q.Set("FORMAT", c.opts.Format)
	q.Set("EXCEPTIONS", "text/xml")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Fetch downloads the raster covering bounds to destPath.
//
// The body is written to a temporary file in the destination directory and
// renamed into place only once fully received, so destPath is never left
// partially written. The destination directory must exist.
//
// Returns:
//   - *TransportError if the request could not be completed
//   - *BadStatusError if the status is not 200
//   - *ContentTypeError if the response is not an image (WMS exceptions come back as XML)
//   - a plain error if writing to disk fails
//
// BytesReceived grows as the body is written, so a caller polling it sees
// progress within a tile.
func (c *Client) Fetch(ctx context.Context, bounds orb.Bound, destPath string) error {
	reqURL, err := c.GetMapURL(bounds)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &BadStatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "image") {
		return &ContentTypeError{ContentType: contentType}
	}

	file, err := ioutils.CreateAtomic(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(destPath), err)
	}
	defer file.Abort()

	var counted int64
	pw := &ProgressWriter{
		Writer: file,
		Total:  resp.ContentLength,
		OnUpdate: func(written, _ int64) {
			c.received.Add(written - counted)
			counted = written
		},
	}

	if _, err := io.Copy(pw, resp.Body); err != nil {
		if ctx.Err() != nil || isNetError(err) {
			return &TransportError{URL: reqURL, Err: err}
		}
		return fmt.Errorf("write %s: %w", filepath.Base(destPath), err)
	}

	if err := file.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", filepath.Base(destPath), err)
	}
	return nil
}

// isNetError reports whether err came from reading the response body rather
// than from the local file.
func isNetError(err error) bool {
	var pathErr *os.PathError
	return !errors.As(err, &pathErr)
}

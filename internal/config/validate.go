package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
)

// ValidationError reports a settings field that cannot be used.
// It is always fatal and is raised before any network or process activity.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

// Validate checks the settings for values the pipeline cannot work with.
func (s *Settings) Validate() error {
	switch {
	case strings.TrimSpace(s.TilesRoot) == "":
		return &ValidationError{"tiles_root", "is required"}
	case strings.TrimSpace(s.WorldDir) == "":
		return &ValidationError{"world_dir", "is required"}
	case s.MacroRadius < 0:
		return &ValidationError{"macro_radius", fmt.Sprintf("must be >= 0, got %d", s.MacroRadius)}
	case s.GridSide <= 0:
		return &ValidationError{"grid_side", fmt.Sprintf("must be positive, got %d", s.GridSide)}
	case !(s.PixelSize > 0) || math.IsInf(s.PixelSize, 0):
		return &ValidationError{"pixel_size", fmt.Sprintf("must be positive, got %v", s.PixelSize)}
	case s.TileWidthPx <= 0 || s.TileHeightPx <= 0:
		return &ValidationError{"tile_width_px/tile_height_px", "must be positive"}
	case s.TileWidthPx != s.TileHeightPx:
		return &ValidationError{"tile_width_px/tile_height_px", fmt.Sprintf("must describe square tiles, got %dx%d", s.TileWidthPx, s.TileHeightPx)}
	case s.RequestDelay < 0:
		return &ValidationError{"request_delay", "must be >= 0"}
	case !(s.FetchTimeout > 0):
		return &ValidationError{"fetch_timeout", "must be positive"}
	case s.MaxConcurrentTileDownloads <= 0:
		return &ValidationError{"max_concurrent_tile_downloads", "must be positive"}
	case s.MaxFailedTiles < -1:
		return &ValidationError{"max_failed_tiles", "must be -1 (unlimited) or >= 0"}
	case strings.TrimSpace(s.ProcessorBin) == "":
		return &ValidationError{"processor_bin", "is required"}
	case strings.TrimSpace(s.Layer) == "":
		return &ValidationError{"layer", "is required"}
	}

	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{"base_url", fmt.Sprintf("must be an absolute URL, got %q", s.BaseURL)}
	}

	return nil
}

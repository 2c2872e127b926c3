package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/francegen/tilebatch/internal/http"
	"github.com/francegen/tilebatch/internal/model"
	"gopkg.in/yaml.v3"
)

// Settings holds all configuration options.
type Settings struct {
	// Output locations
	TilesRoot string `json:"tiles_root" yaml:"tiles_root"`
	WorldDir  string `json:"world_dir" yaml:"world_dir"`

	// Region layout
	MacroRadius int `json:"macro_radius" yaml:"macro_radius"`
	GridSide    int `json:"grid_side" yaml:"grid_side"`

	// WMS source
	BaseURL      string  `json:"base_url" yaml:"base_url"`
	Layer        string  `json:"layer" yaml:"layer"`
	CRS          string  `json:"crs" yaml:"crs"`
	Format       string  `json:"format" yaml:"format"`
	PixelSize    float64 `json:"pixel_size" yaml:"pixel_size"`
	TileWidthPx  int     `json:"tile_width_px" yaml:"tile_width_px"`
	TileHeightPx int     `json:"tile_height_px" yaml:"tile_height_px"`
	UserAgent    string  `json:"user_agent" yaml:"user_agent"`

	// Download behavior
	RequestDelay               float64 `json:"request_delay" yaml:"request_delay"` // seconds
	FetchTimeout               float64 `json:"fetch_timeout" yaml:"fetch_timeout"` // seconds
	MaxConcurrentTileDownloads int     `json:"max_concurrent_tile_downloads" yaml:"max_concurrent_tile_downloads"`
	SkipExisting               bool    `json:"skip_existing" yaml:"skip_existing"`
	MaxFailedTiles             int     `json:"max_failed_tiles" yaml:"max_failed_tiles"` // -1 accepts any number

	// Processing
	ProcessorBin  string   `json:"processor_bin" yaml:"processor_bin"`
	ProcessorArgs []string `json:"processor_args" yaml:"processor_args"`
	Resume        bool     `json:"resume" yaml:"resume"`

	// MarkerStore is a gocloud blob URL for completion markers. Empty keeps
	// markers next to the tiles as .done-marker files.
	MarkerStore string `json:"marker_store" yaml:"marker_store"`
}

// DefaultSettings returns settings with default values.
//
// The defaults request 0.5 m/px LiDAR HD elevation from the IGN WMS in
// 2000x2000 px tiles (1 km), grouped 5x5 into 25 km² macro-tiles.
func DefaultSettings() *Settings {
	return &Settings{
		TilesRoot: "tiles",
		WorldDir:  "world",

		MacroRadius: 0,
		GridSide:    5,

		BaseURL:      "https://data.geopf.fr/wms-r",
		Layer:        "IGNF_LIDAR-HD_MNT_ELEVATION.ELEVATIONGRIDCOVERAGE.LAMB93",
		CRS:          "EPSG:2154",
		Format:       "image/geotiff",
		PixelSize:    0.5,
		TileWidthPx:  2000,
		TileHeightPx: 2000,
		UserAgent:    "tilebatch",

		RequestDelay:               0.1,
		FetchTimeout:               60,
		MaxConcurrentTileDownloads: 1,
		SkipExisting:               false,
		MaxFailedTiles:             -1,

		ProcessorBin: "francegen",
	}
}

// Load reads settings from a JSON or YAML file, chosen by extension.
// Fields missing from the file keep their default values.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if isYAML(path) {
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	return settings, nil
}

// Save writes settings to a JSON or YAML file, chosen by extension.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// TileSide returns the side length of one tile in projected units.
func (s *Settings) TileSide() float64 {
	return float64(s.TileWidthPx) * s.PixelSize
}

// ToRegion builds the region centered on (centerX, centerY).
func (s *Settings) ToRegion(centerX, centerY float64) (model.Region, error) {
	return model.NewRegion(centerX, centerY, s.GridSide, s.TileSide())
}

// ToWMSOptions converts settings to the WMS client options.
func (s *Settings) ToWMSOptions() http.Options {
	return http.Options{
		BaseURL:   s.BaseURL,
		Layer:     s.Layer,
		CRS:       s.CRS,
		Format:    s.Format,
		WidthPx:   s.TileWidthPx,
		HeightPx:  s.TileHeightPx,
		Timeout:   seconds(s.FetchTimeout),
		UserAgent: s.UserAgent,
	}
}

// Delay returns the pause observed after each tile request.
func (s *Settings) Delay() time.Duration {
	return seconds(s.RequestDelay)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Package config provides configuration management for tilebatch.
//
// This package handles:
//   - Loading and saving settings from JSON or YAML files
//   - Default configuration values
//   - Validation before any network or process activity
//   - Conversion to model.Region and http.Options for other packages
//
// # Default Settings
//
// Use DefaultSettings() to get the IGN LiDAR HD defaults:
//
//	settings := config.DefaultSettings()
//	// 2000x2000 px tiles at 0.5 m/px (1 km)
//	// 5x5 tiles per macro-tile (25 km²)
//	// 100 ms between WMS requests
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/tilebatch.yaml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
//
// # Building the Region
//
//	region, err := settings.ToRegion(697312.5, 6518866.5)
package config

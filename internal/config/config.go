// Package config handles pipeline configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb/maptile"
	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-terrain/internal/elevation"
	"github.com/Faultbox/midgard-terrain/internal/network"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/tilemath"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all pipeline settings. Once loaded it is shared read-only.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Anchor   AnchorConfig   `yaml:"anchor"`
	Mesh     MeshConfig     `yaml:"mesh"`
	Workers  WorkersConfig  `yaml:"workers"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ProviderConfig describes the elevation tile source.
type ProviderConfig struct {
	BaseURL      string        `yaml:"base_url"`
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxTileBytes int64         `yaml:"max_tile_bytes"`
}

// AnchorConfig is the geographic reference that tile requests are relative to.
type AnchorConfig struct {
	Lon           float64 `yaml:"lon"`
	Lat           float64 `yaml:"lat"`
	BaseZoom      uint32  `yaml:"base_zoom"`
	WorldTileSize float64 `yaml:"world_tile_size"` // World extent of one base-zoom tile
}

// MeshConfig holds mesh defaults.
type MeshConfig struct {
	Segments       int     `yaml:"segments"`
	Size           float64 `yaml:"size"`
	Scale          float64 `yaml:"scale"`
	VerticalOffset float64 `yaml:"vertical_offset"`
}

// WorkersConfig bounds concurrent tile work.
type WorkersConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
	ResultBuffer  int `yaml:"result_buffer"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	mesh := terrain.DefaultSettings()
	return &Config{
		Provider: ProviderConfig{
			BaseURL:      elevation.DefaultBaseURL,
			UserAgent:    network.DefaultUserAgent,
			Timeout:      30 * time.Second,
			MaxTileBytes: network.DefaultMaxBytes,
		},
		Anchor: AnchorConfig{
			Lon:           tilemath.DefaultAnchor.Lon,
			Lat:           tilemath.DefaultAnchor.Lat,
			BaseZoom:      uint32(tilemath.DefaultAnchor.BaseZoom),
			WorldTileSize: mesh.WorldTileSize,
		},
		Mesh: MeshConfig{
			Segments:       64,
			Size:           800,
			Scale:          mesh.Scale,
			VerticalOffset: mesh.VerticalOffset,
		},
		Workers: WorkersConfig{
			MaxConcurrent: 6,
			ResultBuffer:  16,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports every setting the pipeline cannot run with.
func (c *Config) Validate() error {
	var err error
	if c.Provider.BaseURL == "" {
		err = multierr.Append(err, errors.New("provider.base_url is empty"))
	}
	if c.Provider.Timeout < 0 {
		err = multierr.Append(err, errors.New("provider.timeout is negative"))
	}
	if c.Anchor.Lat < -85.0511 || c.Anchor.Lat > 85.0511 {
		err = multierr.Append(err, errors.New("anchor.lat outside the web mercator range"))
	}
	if c.Anchor.BaseZoom > 31 {
		err = multierr.Append(err, errors.New("anchor.base_zoom above 31"))
	}
	if c.Anchor.WorldTileSize <= 0 {
		err = multierr.Append(err, errors.New("anchor.world_tile_size must be positive"))
	}
	if c.Mesh.Segments < 1 {
		err = multierr.Append(err, errors.New("mesh.segments must be positive"))
	}
	if c.Mesh.Size <= 0 {
		err = multierr.Append(err, errors.New("mesh.size must be positive"))
	}
	if c.Workers.MaxConcurrent < 1 {
		err = multierr.Append(err, errors.New("workers.max_concurrent must be positive"))
	}
	if c.Workers.ResultBuffer < 0 {
		err = multierr.Append(err, errors.New("workers.result_buffer is negative"))
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// TileAnchor returns the anchor in tile-math form.
func (c *Config) TileAnchor() tilemath.Anchor {
	return tilemath.Anchor{
		Lon:      c.Anchor.Lon,
		Lat:      c.Anchor.Lat,
		BaseZoom: maptile.Zoom(c.Anchor.BaseZoom),
	}
}

// MeshSettings returns the fixed per-mesh parameters.
func (c *Config) MeshSettings() terrain.Settings {
	return terrain.Settings{
		WorldTileSize:  c.Anchor.WorldTileSize,
		Scale:          c.Mesh.Scale,
		VerticalOffset: c.Mesh.VerticalOffset,
	}
}

// NetworkOptions returns HTTP client options for the provider.
func (c *Config) NetworkOptions() network.Options {
	return network.Options{
		Timeout:   c.Provider.Timeout,
		UserAgent: c.Provider.UserAgent,
		MaxBytes:  c.Provider.MaxTileBytes,
	}
}

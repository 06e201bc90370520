// Package config loads the elevation fetcher's settings. Every field is
// optional; the Get* accessors supply defaults for anything left unset, so
// partial files are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ExampleConfigPath is the annotated example shipped with the repository.
const ExampleConfigPath = "config/elevation.example.yaml"

// CatalogEnv overrides CatalogPath when set.
const CatalogEnv = "ELEVATION_CATALOG"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Defaults.
const (
	DefaultCatalogCRS           = "EPSG:3857"
	DefaultSourceURL            = "https://s3-us-west-2.amazonaws.com/usgs-lidar-public/"
	DefaultPDALPath             = "pdal"
	DefaultMaxConcurrentFetches = 4
	DefaultMaxAttempts          = 3
	DefaultInitialBackoff       = time.Second
	DefaultMaxBackoff           = 30 * time.Second
	DefaultRenderDir            = "renders"
	DefaultRenderMode           = "heatmap"
)

// Config is the root configuration.
type Config struct {
	// Catalog
	CatalogPath *string `json:"catalog_path,omitempty" yaml:"catalog_path,omitempty"`
	CatalogCRS  *string `json:"catalog_crs,omitempty" yaml:"catalog_crs,omitempty"`

	// Source and pipeline
	SourceURL      *string  `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	PDALPath       *string  `json:"pdal_path,omitempty" yaml:"pdal_path,omitempty"`
	WorkDir        *string  `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`
	ProbeSource    *bool    `json:"probe_source,omitempty" yaml:"probe_source,omitempty"`
	ExcludeNoise   *bool    `json:"exclude_noise,omitempty" yaml:"exclude_noise,omitempty"`
	ThinningRadius *float64 `json:"thinning_radius,omitempty" yaml:"thinning_radius,omitempty"`
	// Persisted outputs; empty disables them.
	LAZDir *string `json:"laz_dir,omitempty" yaml:"laz_dir,omitempty"`
	TIFDir *string `json:"tif_dir,omitempty" yaml:"tif_dir,omitempty"`

	// Fetch scheduling
	MaxConcurrentFetches *int    `json:"max_concurrent_fetches,omitempty" yaml:"max_concurrent_fetches,omitempty"`
	MaxAttempts          *int    `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	InitialBackoff       *string `json:"initial_backoff,omitempty" yaml:"initial_backoff,omitempty"` // duration string like "1s"
	MaxBackoff           *string `json:"max_backoff,omitempty" yaml:"max_backoff,omitempty"`

	// Rendering
	RenderDir  *string `json:"render_dir,omitempty" yaml:"render_dir,omitempty"`
	RenderMode *string `json:"render_mode,omitempty" yaml:"render_mode,omitempty"`
}

func ptrString(v string) *string { return &v }

// Load reads a .json, .yaml or .yml file. Unknown extensions are rejected.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(CatalogEnv)); v != "" {
		c.CatalogPath = ptrString(v)
	}
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.MaxConcurrentFetches != nil && *c.MaxConcurrentFetches < 1 {
		return fmt.Errorf("max_concurrent_fetches must be at least 1, got %d", *c.MaxConcurrentFetches)
	}
	if c.MaxAttempts != nil && *c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", *c.MaxAttempts)
	}
	if c.ThinningRadius != nil && *c.ThinningRadius < 0 {
		return fmt.Errorf("thinning_radius must be non-negative, got %g", *c.ThinningRadius)
	}
	for name, v := range map[string]*string{"initial_backoff": c.InitialBackoff, "max_backoff": c.MaxBackoff} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}
	if c.InitialBackoff != nil && c.MaxBackoff != nil && c.GetMaxBackoff() < c.GetInitialBackoff() {
		return fmt.Errorf("max_backoff %s is shorter than initial_backoff %s", *c.MaxBackoff, *c.InitialBackoff)
	}
	if c.RenderMode != nil {
		switch strings.ToLower(*c.RenderMode) {
		case "heatmap", "surface3d":
		default:
			return fmt.Errorf("render_mode must be heatmap or surface3d, got %q", *c.RenderMode)
		}
	}
	return nil
}

func stringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func durationOr(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetCatalogPath returns catalog_path, or "" when unset.
func (c *Config) GetCatalogPath() string { return stringOr(c.CatalogPath, "") }

// GetCatalogCRS returns the CRS catalog boundaries are written in.
func (c *Config) GetCatalogCRS() string { return stringOr(c.CatalogCRS, DefaultCatalogCRS) }

func (c *Config) GetSourceURL() string { return stringOr(c.SourceURL, DefaultSourceURL) }

func (c *Config) GetPDALPath() string { return stringOr(c.PDALPath, DefaultPDALPath) }

// GetWorkDir returns work_dir; "" means the system temp directory.
func (c *Config) GetWorkDir() string { return stringOr(c.WorkDir, "") }

func (c *Config) GetProbeSource() bool {
	if c.ProbeSource == nil {
		return true
	}
	return *c.ProbeSource
}

func (c *Config) GetExcludeNoise() bool {
	if c.ExcludeNoise == nil {
		return true
	}
	return *c.ExcludeNoise
}

// GetThinningRadius returns the Poisson sampling radius; 0 disables it.
func (c *Config) GetThinningRadius() float64 {
	if c.ThinningRadius == nil {
		return 0
	}
	return *c.ThinningRadius
}

func (c *Config) GetMaxConcurrentFetches() int {
	if c.MaxConcurrentFetches == nil || *c.MaxConcurrentFetches < 1 {
		return DefaultMaxConcurrentFetches
	}
	return *c.MaxConcurrentFetches
}

func (c *Config) GetMaxAttempts() int {
	if c.MaxAttempts == nil || *c.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return *c.MaxAttempts
}

func (c *Config) GetInitialBackoff() time.Duration {
	return durationOr(c.InitialBackoff, DefaultInitialBackoff)
}

func (c *Config) GetMaxBackoff() time.Duration {
	return durationOr(c.MaxBackoff, DefaultMaxBackoff)
}

// GetLAZDir returns where fetched clouds are kept as LAZ; "" disables it.
func (c *Config) GetLAZDir() string { return stringOr(c.LAZDir, "") }

// GetTIFDir returns where mean elevation GeoTIFFs are written; "" disables it.
func (c *Config) GetTIFDir() string { return stringOr(c.TIFDir, "") }

func (c *Config) GetRenderDir() string { return stringOr(c.RenderDir, DefaultRenderDir) }

func (c *Config) GetRenderMode() string { return strings.ToLower(stringOr(c.RenderMode, DefaultRenderMode)) }

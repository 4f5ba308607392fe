// Package config loads optional JSON configuration for the volume tools.
// Fields are pointers so partial config files are safe: anything omitted
// falls back to the defaults supplied by the getter methods.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Defaults applied when a field is absent from the config file.
const (
	DefaultSmoothFWHM       = 4.0
	DefaultMinClusterVoxels = 10
	DefaultCatalogPath      = "neurovol_catalog.db"
)

// ToolConfig holds shared defaults for the drain-rois and voltool commands.
type ToolConfig struct {
	// Smoothing kernel width, FWHM in millimetres.
	SmoothFWHMMM *float64 `json:"smooth_fwhm_mm,omitempty"`

	// Minimum cluster size kept by the components min-size filter.
	MinClusterVoxels *int `json:"min_cluster_voxels,omitempty"`

	// Axial slice index used by report heatmaps; nil means the middle slice.
	ReportSlice *int `json:"report_slice,omitempty"`

	// Path to the provenance catalog database.
	CatalogPath *string `json:"catalog_path,omitempty"`
}

// Empty returns a ToolConfig with all fields unset.
func Empty() *ToolConfig {
	return &ToolConfig{}
}

// Load reads a ToolConfig from a JSON file. The path must end in .json and
// the file must be under 1MB. Omitted fields keep their defaults.
func Load(path string) (*ToolConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges for every set field.
func (c *ToolConfig) Validate() error {
	if c.SmoothFWHMMM != nil && *c.SmoothFWHMMM < 0 {
		return fmt.Errorf("smooth_fwhm_mm must be >= 0, got %g", *c.SmoothFWHMMM)
	}
	if c.MinClusterVoxels != nil && *c.MinClusterVoxels < 1 {
		return fmt.Errorf("min_cluster_voxels must be >= 1, got %d", *c.MinClusterVoxels)
	}
	if c.ReportSlice != nil && *c.ReportSlice < 0 {
		return fmt.Errorf("report_slice must be >= 0, got %d", *c.ReportSlice)
	}
	if c.CatalogPath != nil && *c.CatalogPath == "" {
		return fmt.Errorf("catalog_path must not be empty when set")
	}
	return nil
}

// GetSmoothFWHM returns the configured smoothing FWHM or the default.
func (c *ToolConfig) GetSmoothFWHM() float64 {
	if c != nil && c.SmoothFWHMMM != nil {
		return *c.SmoothFWHMMM
	}
	return DefaultSmoothFWHM
}

// GetMinClusterVoxels returns the configured cluster threshold or the default.
func (c *ToolConfig) GetMinClusterVoxels() int {
	if c != nil && c.MinClusterVoxels != nil {
		return *c.MinClusterVoxels
	}
	return DefaultMinClusterVoxels
}

// GetReportSlice returns the configured report slice, or -1 when the
// caller should pick the middle slice.
func (c *ToolConfig) GetReportSlice() int {
	if c != nil && c.ReportSlice != nil {
		return *c.ReportSlice
	}
	return -1
}

// GetCatalogPath returns the configured catalog path or the default.
func (c *ToolConfig) GetCatalogPath() string {
	if c != nil && c.CatalogPath != nil {
		return *c.CatalogPath
	}
	return DefaultCatalogPath
}

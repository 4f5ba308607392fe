package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmptyDefaults(t *testing.T) {
	cfg := Empty()

	if got := cfg.GetSmoothFWHM(); got != DefaultSmoothFWHM {
		t.Errorf("GetSmoothFWHM() = %g, want %g", got, DefaultSmoothFWHM)
	}
	if got := cfg.GetMinClusterVoxels(); got != DefaultMinClusterVoxels {
		t.Errorf("GetMinClusterVoxels() = %d, want %d", got, DefaultMinClusterVoxels)
	}
	if got := cfg.GetReportSlice(); got != -1 {
		t.Errorf("GetReportSlice() = %d, want -1 (middle slice)", got)
	}
	if got := cfg.GetCatalogPath(); got != DefaultCatalogPath {
		t.Errorf("GetCatalogPath() = %q, want %q", got, DefaultCatalogPath)
	}

	// A nil receiver behaves like an empty config.
	var nilCfg *ToolConfig
	if got := nilCfg.GetSmoothFWHM(); got != DefaultSmoothFWHM {
		t.Errorf("nil GetSmoothFWHM() = %g, want %g", got, DefaultSmoothFWHM)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tools.json")

	testJSON := `{
  "smooth_fwhm_mm": 6.5,
  "min_cluster_voxels": 25,
  "report_slice": 40,
  "catalog_path": "/data/catalog.db"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.SmoothFWHMMM == nil || *cfg.SmoothFWHMMM != 6.5 {
		t.Errorf("Expected SmoothFWHMMM 6.5, got %v", cfg.SmoothFWHMMM)
	}
	if cfg.MinClusterVoxels == nil || *cfg.MinClusterVoxels != 25 {
		t.Errorf("Expected MinClusterVoxels 25, got %v", cfg.MinClusterVoxels)
	}
	if cfg.GetReportSlice() != 40 {
		t.Errorf("GetReportSlice() = %d, want 40", cfg.GetReportSlice())
	}
	if cfg.GetCatalogPath() != "/data/catalog.db" {
		t.Errorf("GetCatalogPath() = %q, want /data/catalog.db", cfg.GetCatalogPath())
	}
}

func TestLoadPartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	if err := os.WriteFile(configPath, []byte(`{"smooth_fwhm_mm": 2}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetSmoothFWHM() != 2 {
		t.Errorf("GetSmoothFWHM() = %g, want 2", cfg.GetSmoothFWHM())
	}
	// Unset fields fall back to defaults.
	if cfg.GetMinClusterVoxels() != DefaultMinClusterVoxels {
		t.Errorf("GetMinClusterVoxels() = %d, want default", cfg.GetMinClusterVoxels())
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load("/nonexistent/tools.json"); err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadWrongExtension(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tools.yaml")
	if err := os.WriteFile(configPath, []byte(`{}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected error for non-json extension, got nil")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(configPath, []byte(`{"smooth_fwhm_mm": `), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ToolConfig)
		wantErr bool
	}{
		{"empty is valid", func(c *ToolConfig) {}, false},
		{"negative fwhm", func(c *ToolConfig) { v := -1.0; c.SmoothFWHMMM = &v }, true},
		{"zero fwhm", func(c *ToolConfig) { v := 0.0; c.SmoothFWHMMM = &v }, false},
		{"zero cluster size", func(c *ToolConfig) { v := 0; c.MinClusterVoxels = &v }, true},
		{"negative slice", func(c *ToolConfig) { v := -3; c.ReportSlice = &v }, true},
		{"empty catalog path", func(c *ToolConfig) { v := ""; c.CatalogPath = &v }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Empty()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

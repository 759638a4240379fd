package common

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("OCR_WORD_THRESHOLD", "40")
	t.Setenv("USE_OCR", "false")
	t.Setenv("TEXT_BACKENDS", "tabula-layout, pdf-plain ,")
	t.Setenv("BACKEND_TIMEOUT", "5s")
	t.Setenv("MIN_QUALITY_FLOOR", "not-a-number")

	cfg := LoadConfig()

	if cfg.Extraction.OCRWordThreshold != 40 {
		t.Errorf("OCRWordThreshold = %d, want 40", cfg.Extraction.OCRWordThreshold)
	}
	if cfg.Extraction.UseOCR {
		t.Errorf("UseOCR = true, want false")
	}
	if diff := cmp.Diff([]string{"tabula-layout", "pdf-plain"}, cfg.Extraction.EnabledTextBackends); diff != "" {
		t.Errorf("EnabledTextBackends mismatch (-want +got):\n%s", diff)
	}
	if cfg.Extraction.EnabledTableBackends != nil {
		t.Errorf("EnabledTableBackends = %v, want nil", cfg.Extraction.EnabledTableBackends)
	}
	if cfg.Extraction.BackendTimeout != 5*time.Second {
		t.Errorf("BackendTimeout = %v, want 5s", cfg.Extraction.BackendTimeout)
	}
	if cfg.Extraction.MinQualityFloor != 0.1 {
		t.Errorf("MinQualityFloor = %v, want default 0.1", cfg.Extraction.MinQualityFloor)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"empty dsn", func(c *Config) { c.Database.DSN = " " }, true},
		{"dpi too low", func(c *Config) { c.OCR.DPI = 10 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsConfigurationError(err) {
				t.Errorf("Validate() error %v is not a configuration error", err)
			}
		})
	}
}

package common

import (
	"errors"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "procurement.db"},
		Recon:    ReconConfig{QtyToleranceUnits: "1", PriceTolerancePct: "2.0"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(*Config) {}, false},
		{"decimal tolerances pass", func(c *Config) {
			c.Recon.QtyToleranceUnits = "0.5"
			c.Recon.PriceTolerancePct = "10"
		}, false},
		{"non-numeric qty tolerance", func(c *Config) { c.Recon.QtyToleranceUnits = "lots" }, true},
		{"non-numeric price tolerance", func(c *Config) { c.Recon.PriceTolerancePct = "" }, true},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, true},
		{"extractor enabled without key", func(c *Config) { c.Extractor.Enabled = true }, true},
		{"extractor enabled with key", func(c *Config) {
			c.Extractor.Enabled = true
			c.Extractor.APIKey = "sk-test"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error %v does not wrap ErrInvalidInput", err)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()
	if cfg.Database.Path == "" {
		t.Error("DB path default missing")
	}
	if cfg.OCR.DPI != 150 || cfg.OCR.MaxPages != 3 {
		t.Errorf("OCR defaults = %d dpi / %d pages", cfg.OCR.DPI, cfg.OCR.MaxPages)
	}
	if cfg.Extractor.Timeout != 45*time.Second {
		t.Errorf("extractor timeout default = %v", cfg.Extractor.Timeout)
	}
	if cfg.Recon.QtyToleranceUnits != "1" || cfg.Recon.PriceTolerancePct != "2.0" {
		t.Errorf("tolerance defaults = %q / %q", cfg.Recon.QtyToleranceUnits, cfg.Recon.PriceTolerancePct)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := NewAppError("CONFIG_ERROR", "bad input", ErrInvalidInput)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("AppError does not unwrap to its cause")
	}
	if err.Error() == "" {
		t.Error("empty error string")
	}
}

package common

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	OCR       OCRConfig
	Extractor ExtractorConfig
	Recon     ReconConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string
}

// OCRConfig holds OCR-related configuration. Enabled=false means the OCR
// capability is absent and PDF/image handling degrades accordingly.
type OCRConfig struct {
	Enabled   bool
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdfinfo   string // if empty -> "pdfinfo"
	Pdftoppm  string // if empty -> "pdftoppm"
	Tesseract string // if empty -> "tesseract"
	Lang      string // default "eng"
	DPI       int    // rasterization DPI for scanned PDFs, default 150
	MaxPages  int    // OCR at most this many leading pages, default 3
}

// ExtractorConfig holds external field-extraction service configuration.
// Enabled=false means only the deterministic extractor runs.
type ExtractorConfig struct {
	Enabled     bool
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// ReconConfig holds reconciliation tolerances. Raw strings are kept so that
// Validate can reject non-numeric values before a run starts.
type ReconConfig struct {
	QtyToleranceUnits string
	PriceTolerancePct string
}

// LoadConfig loads configuration from the environment, reading a .env file
// first if one is present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "procurement.db"),
		},
		OCR: OCRConfig{
			Enabled:   getEnvAsBool("OCR_ENABLED", false),
			Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdfinfo:   getEnv("PDFINFO_BIN", "pdfinfo"),
			Pdftoppm:  getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract: getEnv("TESSERACT_BIN", "tesseract"),
			Lang:      getEnv("TESSERACT_LANG", "eng"),
			DPI:       getEnvAsInt("OCR_DPI", 150),
			MaxPages:  getEnvAsInt("OCR_MAX_PAGES", 3),
		},
		Extractor: ExtractorConfig{
			Enabled:     getEnvAsBool("USE_EXTERNAL_EXTRACTOR", false),
			BaseURL:     getEnv("EXTRACTOR_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("EXTRACTOR_API_KEY", ""),
			Model:       getEnv("EXTRACTOR_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat32("EXTRACTOR_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("EXTRACTOR_TIMEOUT", 45*time.Second),
		},
		Recon: ReconConfig{
			QtyToleranceUnits: getEnv("QTY_TOLERANCE_UNITS", "1"),
			PriceTolerancePct: getEnv("PRICE_TOLERANCE_PCT", "2.0"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate rejects malformed configuration before a run starts. Tolerances
// must parse as numbers; everything else has workable defaults.
func (c *Config) Validate() error {
	if _, err := decimal.NewFromString(c.Recon.QtyToleranceUnits); err != nil {
		return NewAppError("CONFIG_ERROR", "QTY_TOLERANCE_UNITS must be numeric", ErrInvalidInput)
	}
	if _, err := decimal.NewFromString(c.Recon.PriceTolerancePct); err != nil {
		return NewAppError("CONFIG_ERROR", "PRICE_TOLERANCE_PCT must be numeric", ErrInvalidInput)
	}
	if c.Database.Path == "" {
		return NewAppError("CONFIG_ERROR", "DB_PATH is required", ErrInvalidInput)
	}
	if c.Extractor.Enabled && c.Extractor.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "EXTRACTOR_API_KEY is required when USE_EXTERNAL_EXTRACTOR is set", ErrInvalidInput)
	}
	return nil
}

package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/procure-ops/threeway/constants"
	"github.com/procure-ops/threeway/internal/common"
)

// Hard wall-clock deadlines for bounded sub-operations. A violated deadline
// abandons only that sub-step; the file keeps processing with an empty or
// default result.
const (
	pdfConvertDeadline = 30 * time.Second
	pageOCRDeadline    = 15 * time.Second
	imageOCRDeadline   = 20 * time.Second
	recognizeDeadline  = 10 * time.Second
	confidenceDeadline = 5 * time.Second

	// DefaultOCRConfidence substitutes for a failed or timed-out
	// confidence-scoring pass.
	DefaultOCRConfidence = 75.0

	// minEmbeddedTextLen is the trimmed length above which embedded PDF
	// text is considered usable without OCR.
	minEmbeddedTextLen = 50
)

type Config struct {
	OCREnabled bool // whether the OCR capability is present at all

	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdfinfo   string // if empty -> "pdfinfo"
	Pdftoppm  string // if empty -> "pdftoppm"
	Tesseract string // if empty -> "tesseract"

	Lang     string // default "eng"
	DPI      int    // rasterization DPI for scanned PDFs, default 150
	MaxPages int    // OCR at most this many leading pages, default 3
}

// Result summarizes one file's text extraction.
type Result struct {
	Text       string
	Pages      int
	Format     constants.FileFormat
	Method     string // "text" | "pdf-text" | "pdf-ocr" | "image-ocr"
	Confidence float64 // measured OCR confidence 0..100; 0 when OCR was not used
	Duration   time.Duration
	Warnings   []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 150
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 3
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// OCRAvailable reports whether the extractor was built with OCR capability.
func (e *Extractor) OCRAvailable() bool { return e.cfg.OCREnabled }

// Extract reads path and returns plain text, dispatching on the extension.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	format := constants.MapExtToFormat(ext)
	e.logger.Debug("extract.start", "path", path, "ext", ext, "format", format)

	var res Result
	var err error
	switch format {
	case constants.TXT:
		res, err = e.extractText(path)
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	default:
		return Result{}, fmt.Errorf("%w: %q", common.ErrUnsupportedFileType, ext)
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	e.logger.Info("extract.ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"text_bytes", len(res.Text),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// extractText reads the file verbatim. Decoding is lenient: invalid byte
// sequences are dropped, never fatal.
func (e *Extractor) extractText(path string) (Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Result{Format: constants.TXT}, fmt.Errorf("read text file: %w", err)
	}
	return Result{
		Text:   strings.ToValidUTF8(string(b), ""),
		Pages:  1,
		Format: constants.TXT,
		Method: "text",
	}, nil
}

// deadlineExceeded reports whether err (or the context it ran under) is a
// sub-operation deadline violation.
func deadlineExceeded(ctx context.Context, err error) bool {
	return ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded)
}

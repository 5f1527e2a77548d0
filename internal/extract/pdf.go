package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/procure-ops/threeway/constants"
	"github.com/procure-ops/threeway/internal/common"
)

// extractPDF tries embedded text page by page first, then falls back to OCR
// on the leading pages when the embedded text is too thin.
func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	res := Result{Format: constants.PDF}

	text, pages, warns := e.pdfEmbeddedText(ctx, path)
	res.Pages = pages
	res.Warnings = warns

	if len(strings.TrimSpace(text)) > minEmbeddedTextLen {
		res.Text = Normalize(text)
		res.Method = "pdf-text"
		return res, nil
	}

	if e.cfg.OCREnabled {
		e.logger.Info("extract.pdf.ocr_fallback", "path", path, "embedded_bytes", len(text))
		ocrText, ocrPages, conf, warns2, err := e.pdfOCR(ctx, path)
		res.Warnings = append(res.Warnings, warns2...)
		if err != nil {
			return res, err
		}
		res.Text = Normalize(ocrText)
		res.Pages = ocrPages
		res.Method = "pdf-ocr"
		res.Confidence = conf
		return res, nil
	}

	// No OCR capability: return whatever thin text we got, or fail if there
	// was none at all.
	if strings.TrimSpace(text) != "" {
		res.Text = Normalize(text)
		res.Method = "pdf-text"
		return res, nil
	}
	return res, fmt.Errorf("%w: no text content in PDF and OCR unavailable: %s", common.ErrExtractionFailure, path)
}

// pdfEmbeddedText extracts embedded text one page at a time. A page whose
// extraction fails is logged and skipped; it contributes no text.
func (e *Extractor) pdfEmbeddedText(ctx context.Context, path string) (string, int, []string) {
	var warns []string

	pages, err := e.pdfPageCount(ctx, path)
	if err != nil {
		// Page count unknown: fall back to one whole-document pass.
		warns = append(warns, fmt.Sprintf("pdfinfo: %v", err))
		out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
		if err != nil {
			warns = append(warns, string(errb))
			return "", 0, warns
		}
		text := string(out)
		return text, 1 + strings.Count(text, "\f"), warns
	}

	var b strings.Builder
	for page := 1; page <= pages; page++ {
		n := strconv.Itoa(page)
		out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext,
			"-f", n, "-l", n, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
		if err != nil {
			e.logger.Warn("extract.pdf.page_failed", "path", path, "page", page, "error", err)
			warns = append(warns, fmt.Sprintf("page %d: %s", page, truncate(string(errb), 512)))
			continue
		}
		if len(out) > 0 {
			b.Write(out)
			b.WriteString("\n")
		}
	}
	return b.String(), pages, warns
}

// pdfPageCount asks pdfinfo for the page count.
func (e *Extractor) pdfPageCount(ctx context.Context, path string) (int, error) {
	out, _, err := e.runner.Run(ctx, e.cfg.Pdfinfo, path)
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err != nil {
			return 0, fmt.Errorf("parse page count: %w", err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("no Pages field in pdfinfo output")
}

// pdfOCR rasterizes up to MaxPages leading pages (bounded by a single
// conversion deadline) and OCRs each page under its own deadline. Pages that
// error or run over are skipped. Returns the concatenated surviving text and
// the mean page confidence.
func (e *Extractor) pdfOCR(ctx context.Context, path string) (string, int, float64, []string, error) {
	var warns []string

	tmpDir, err := os.MkdirTemp("", "tw-pp-*")
	if err != nil {
		return "", 0, 0, nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("extract.pdf.tmp_cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	convCtx, cancel := context.WithTimeout(ctx, pdfConvertDeadline)
	defer cancel()
	// pdftoppm -f 1 -l <max> -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(convCtx, e.cfg.Pdftoppm,
		"-f", "1", "-l", strconv.Itoa(e.cfg.MaxPages),
		"-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		if deadlineExceeded(convCtx, err) {
			// Conversion abandoned; the file continues with no OCR text.
			e.logger.Warn("extract.pdf.convert_timeout",
				"path", path, "deadline", pdfConvertDeadline, "error", common.ErrSubOperationTimeout)
			warns = append(warns, "pdf-to-image conversion timed out")
			return "", 0, 0, warns, nil
		}
		return "", 0, 0, append(warns, string(errb)), fmt.Errorf("%w: rasterize PDF: %v", common.ErrExtractionFailure, err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}

	var b strings.Builder
	var confSum float64
	var confPages int
	for i, img := range matches {
		pageCtx, cancelPage := context.WithTimeout(ctx, pageOCRDeadline)
		text, conf, err := e.ocrPage(pageCtx, img)
		cancelPage()
		if err != nil {
			e.logger.Warn("extract.pdf.ocr_page_failed", "path", path, "page", i+1, "error", err)
			warns = append(warns, fmt.Sprintf("ocr page %d: %v", i+1, err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
		confSum += conf
		confPages++
		e.logger.Debug("extract.pdf.ocr_page", "page", i+1, "confidence", conf)
	}

	var mean float64
	if confPages > 0 {
		mean = confSum / float64(confPages)
	}
	return b.String(), len(matches), mean, warns, nil
}

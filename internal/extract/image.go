package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/procure-ops/threeway/constants"
	"github.com/procure-ops/threeway/internal/common"
)

// extractImage OCRs an image file directly. Requires the OCR capability; the
// whole pass runs under the image deadline, and a deadline violation yields
// an empty result rather than an error.
func (e *Extractor) extractImage(ctx context.Context, path string) (Result, error) {
	if !e.cfg.OCREnabled {
		return Result{Format: constants.IMAGE},
			fmt.Errorf("%w: OCR capability unavailable for image: %s", common.ErrExtractionFailure, path)
	}

	imgCtx, cancel := context.WithTimeout(ctx, imageOCRDeadline)
	defer cancel()
	text, conf, err := e.ocrPage(imgCtx, path)
	if err != nil {
		if deadlineExceeded(imgCtx, err) {
			e.logger.Warn("extract.image.timeout",
				"path", path, "deadline", imageOCRDeadline, "error", common.ErrSubOperationTimeout)
			return Result{Format: constants.IMAGE, Pages: 1, Method: "image-ocr",
				Warnings: []string{"image OCR timed out"}}, nil
		}
		return Result{Format: constants.IMAGE}, fmt.Errorf("%w: image OCR: %v", common.ErrExtractionFailure, err)
	}

	return Result{
		Text:       Normalize(text),
		Pages:      1,
		Format:     constants.IMAGE,
		Method:     "image-ocr",
		Confidence: conf,
	}, nil
}

// ocrPage preprocesses one image and runs recognition plus confidence
// scoring, each under its own deadline. A recognition timeout yields empty
// text; a scoring failure or timeout substitutes the default confidence.
func (e *Extractor) ocrPage(ctx context.Context, imgPath string) (string, float64, error) {
	processed, cleanup, err := preprocessImage(imgPath)
	if err != nil {
		// Preprocessing is best-effort; recognize the original instead.
		e.logger.Debug("extract.ocr.preprocess_failed", "path", imgPath, "error", err)
		processed = imgPath
	}
	if cleanup != nil {
		defer cleanup()
	}

	recCtx, cancelRec := context.WithTimeout(ctx, recognizeDeadline)
	text, err := e.recognize(recCtx, processed)
	cancelRec()
	if err != nil {
		if deadlineExceeded(recCtx, err) {
			e.logger.Warn("extract.ocr.recognize_timeout",
				"path", imgPath, "deadline", recognizeDeadline, "error", common.ErrSubOperationTimeout)
			return "", 0, nil
		}
		return "", 0, err
	}

	confCtx, cancelConf := context.WithTimeout(ctx, confidenceDeadline)
	conf, err := e.scoreConfidence(confCtx, processed)
	cancelConf()
	if err != nil {
		// Default confidence whenever scoring fails or runs over.
		e.logger.Debug("extract.ocr.confidence_default", "path", imgPath, "error", err)
		conf = DefaultOCRConfidence
	}
	return text, conf, nil
}

// recognize runs tesseract in plain-text mode.
// tesseract <file> stdout -l <lang> --oem 3 --psm 6
func (e *Extractor) recognize(ctx context.Context, imgPath string) (string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract,
		imgPath, "stdout", "-l", e.cfg.Lang, "--oem", "3", "--psm", "6")
	if err != nil {
		return "", fmt.Errorf("tesseract: %v: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// scoreConfidence runs tesseract in TSV mode and returns the mean of
// per-token confidence values above zero, on a 0-100 scale.
func (e *Extractor) scoreConfidence(ctx context.Context, imgPath string) (float64, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract,
		imgPath, "stdout", "-l", e.cfg.Lang, "--oem", "3", "--psm", "6", "tsv")
	if err != nil {
		return 0, fmt.Errorf("tesseract tsv: %v: %s", err, truncate(string(errb), 512))
	}

	// TSV columns: level page_num block_num par_num line_num word_num
	// left top width height conf text
	var sum float64
	var n int
	for i, ln := range strings.Split(string(out), "\n") {
		if i == 0 || ln == "" {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		v, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || v <= 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

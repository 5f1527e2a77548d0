// Package ingest walks a directory of procurement documents and drives
// extraction, classification, field parsing, and persistence for each file.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/procure-ops/threeway/constants"
	"github.com/procure-ops/threeway/internal/classify"
	"github.com/procure-ops/threeway/internal/common"
	"github.com/procure-ops/threeway/internal/extract"
	"github.com/procure-ops/threeway/internal/fields"
	"github.com/procure-ops/threeway/internal/progress"
	"github.com/procure-ops/threeway/internal/store"
)

// Stats counts per-run outcomes. A file lands in exactly one bucket.
type Stats struct {
	Ingested int
	Skipped  int
	Errors   int
}

// Coordinator runs the ingestion pipeline over a directory.
type Coordinator struct {
	extractor *extract.Extractor
	fields    fields.Extractor
	store     *store.Store
	logger    *slog.Logger
}

func NewCoordinator(ex *extract.Extractor, fe fields.Extractor, st *store.Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{extractor: ex, fields: fe, store: st, logger: logger}
}

// IngestDirectory processes every supported file directly under dir, in
// lexical filename order. Subdirectories are not descended into. A failure
// on one file is counted and never aborts the run.
func (c *Coordinator) IngestDirectory(ctx context.Context, dir string, cb progress.Callback) (Stats, error) {
	var stats Stats

	entries, err := os.ReadDir(dir)
	if err != nil {
		return stats, fmt.Errorf("%w: read dir %q: %v", common.ErrInvalidInput, dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	total := len(names)

	c.logger.Info("ingest.start", "dir", dir, "files", total)

	for i, name := range names {
		path := filepath.Join(dir, name)
		outcome := c.ingestFile(ctx, path, &stats)
		progress.Notify(cb, c.logger,
			fmt.Sprintf("%s: %s", outcome, name), i+1, total, name)
	}

	c.logger.Info("ingest.done",
		"ingested", stats.Ingested, "skipped", stats.Skipped, "errors", stats.Errors)
	return stats, nil
}

// ingestFile runs the full pipeline for one file, updates stats, and returns
// a short outcome tag for progress reporting.
func (c *Coordinator) ingestFile(ctx context.Context, path string, stats *Stats) string {
	log := c.logger.With("path", path)

	ext := constants.NormalizeExt(filepath.Ext(path))
	if !constants.IsSupportedExt(ext) {
		log.Debug("ingest.skip", "reason", "unsupported_extension", "ext", ext)
		stats.Skipped++
		return "skipped"
	}

	res, err := c.extractor.Extract(ctx, path)
	if err != nil {
		if errors.Is(err, common.ErrUnsupportedFileType) {
			log.Debug("ingest.skip", "reason", "unsupported_file_type")
			stats.Skipped++
			return "skipped"
		}
		log.Error("ingest.extract_failed", "error", err)
		stats.Errors++
		return "error"
	}

	hash, err := hashFile(path)
	if err != nil {
		log.Error("ingest.hash_failed", "error", err)
		stats.Errors++
		return "error"
	}

	exists, err := c.store.DocumentExists(ctx, path, hash)
	if err != nil {
		log.Error("ingest.dedupe_failed", "error", err)
		stats.Errors++
		return "error"
	}
	if exists {
		log.Debug("ingest.skip", "reason", "duplicate", "hash", hash)
		stats.Skipped++
		return "skipped"
	}

	kind := classify.Classify(res.Text)
	rec, err := c.fields.ExtractFields(ctx, res.Text, kind)
	if err != nil {
		log.Error("ingest.fields_failed", "doc_type", string(kind), "error", err)
		stats.Errors++
		return "error"
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		log.Error("ingest.marshal_failed", "error", err)
		stats.Errors++
		return "error"
	}

	method := constants.ProcessingMethod(res.Format, c.extractor.OCRAvailable())
	confidence := res.Confidence
	if confidence == 0 {
		confidence = constants.ConfidenceForMethod(method)
	}
	doc := store.Document{
		Path:             path,
		Hash:             hash,
		DocType:          rec.Type,
		Country:          rec.Country,
		Vendor:           rec.Vendor,
		Payload:          payload,
		IngestedAt:       time.Now(),
		FileType:         ext,
		ProcessingMethod: method,
		OCRConfidence:    confidence,
		RequiresOCR:      constants.RequiresOCR(res.Format),
	}
	if err := c.store.IngestDocument(ctx, doc, rec); err != nil {
		log.Error("ingest.persist_failed", "error", err)
		stats.Errors++
		return "error"
	}

	log.Info("ingest.ok",
		"doc_type", string(rec.Type), "method", res.Method, "confidence", res.Confidence)
	stats.Ingested++
	return "ingested"
}

func hashFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

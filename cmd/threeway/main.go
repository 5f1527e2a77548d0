package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/procure-ops/threeway/internal/common"
	"github.com/procure-ops/threeway/internal/export"
	"github.com/procure-ops/threeway/internal/extract"
	"github.com/procure-ops/threeway/internal/fields"
	"github.com/procure-ops/threeway/internal/ingest"
	"github.com/procure-ops/threeway/internal/insights"
	"github.com/procure-ops/threeway/internal/recon"
	"github.com/procure-ops/threeway/internal/store"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem    = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir      = flag.String("dir", "", "directory to process documents from (required)")
		out      = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		qtyTol   = flag.String("qty-tol", "", "quantity tolerance in units (overrides QTY_TOLERANCE_UNITS)")
		priceTol = flag.String("price-tol", "", "price tolerance in percent (overrides PRICE_TOLERANCE_PCT)")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "reconciliation.xlsx")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()
	if *qtyTol != "" {
		cfg.Recon.QtyToleranceUnits = *qtyTol
	}
	if *priceTol != "" {
		cfg.Recon.PriceTolerancePct = *priceTol
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	dbPath := cfg.Database.Path
	if *inmem {
		dbPath = ":memory:"
	}
	st, err := store.Open(ctx, dbPath, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = st.Close() }()

	extractor := extract.NewExtractor(extract.Config{
		OCREnabled: cfg.OCR.Enabled,
		Pdftotext:  cfg.OCR.Pdftotext,
		Pdfinfo:    cfg.OCR.Pdfinfo,
		Pdftoppm:   cfg.OCR.Pdftoppm,
		Tesseract:  cfg.OCR.Tesseract,
		Lang:       cfg.OCR.Lang,
		DPI:        cfg.OCR.DPI,
		MaxPages:   cfg.OCR.MaxPages,
	}, logger)

	// External extraction is optional; the deterministic parser always
	// backs it so a service outage never loses a document.
	var fieldExtractor fields.Extractor = fields.NewDeterministic()
	if cfg.Extractor.Enabled {
		client := fields.NewServiceClient(fields.ServiceConfig{
			BaseURL:     cfg.Extractor.BaseURL,
			APIKey:      cfg.Extractor.APIKey,
			Model:       cfg.Extractor.Model,
			Temperature: cfg.Extractor.Temperature,
			Timeout:     cfg.Extractor.Timeout,
		}, logger)
		fieldExtractor = fields.NewWithFallback(client, fields.NewDeterministic(), logger)
		logger.Info("external extractor enabled", "model", cfg.Extractor.Model)
	}

	coordinator := ingest.NewCoordinator(extractor, fieldExtractor, st, logger)

	progressCb := func(message string, processed, total int, current string) {
		fmt.Printf("[%d/%d] %s\n", processed, total, message)
	}

	stats, err := coordinator.IngestDirectory(ctx, *dir, progressCb)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}

	tol, err := recon.ParseTolerances(cfg.Recon.QtyToleranceUnits, cfg.Recon.PriceTolerancePct)
	if err != nil {
		logger.Error("invalid tolerances", "error", err)
		os.Exit(1)
	}
	engine := recon.NewEngine(st, tol, logger)
	records, err := engine.Run(ctx, progressCb)
	if err != nil {
		logger.Error("reconciliation failed", "error", err)
		os.Exit(1)
	}

	insightsSvc := insights.NewService(st.DB(), logger)
	kpis, err := insightsSvc.KPIs(ctx)
	if err != nil {
		logger.Error("failed to compute KPIs", "error", err)
		os.Exit(1)
	}

	exportSvc := export.NewService(st, insightsSvc, logger)
	xlsxBytes, err := exportSvc.ExportReconciliationXLSX(ctx)
	if err != nil {
		logger.Error("failed to export reconciliation", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("run complete",
		"ingested", stats.Ingested,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"reconciled", len(records),
		"match_rate_pct", kpis.MatchRatePct,
		"output_file", *out)

	fmt.Printf("Run complete!\n")
	fmt.Printf("- Ingested: %d (skipped %d, errors %d)\n", stats.Ingested, stats.Skipped, stats.Errors)
	fmt.Printf("- Invoices reconciled: %d\n", len(records))
	fmt.Printf("- Match rate: %.1f%%\n", kpis.MatchRatePct)
	fmt.Printf("- Output: %s\n", *out)
}

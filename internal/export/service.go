// Package export produces XLSX workbooks from reconciliation results.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/procure-ops/threeway/internal/insights"
	"github.com/procure-ops/threeway/internal/store"
)

// Service produces XLSX bytes for the reconciliation and exception reports.
type Service struct {
	store    *store.Store
	insights *insights.Service
	logger   *slog.Logger
}

func NewService(st *store.Store, ins *insights.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, insights: ins, logger: logger}
}

// ExportReconciliationXLSX returns a workbook with one row per invoice on a
// "Reconciliation" sheet and the exception subset on an "Exceptions" sheet.
func (s *Service) ExportReconciliationXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	records, err := s.store.ListReconciliation(ctx)
	if err != nil {
		return nil, fmt.Errorf("query reconciliation: %w", err)
	}
	exceptions, err := s.insights.Exceptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("query exceptions: %w", err)
	}

	f := excelize.NewFile()

	if err := s.writeReconciliationSheet(f, records); err != nil {
		return nil, err
	}
	if err := s.writeExceptionsSheet(f, exceptions); err != nil {
		return nil, err
	}

	// Drop excelize's default sheet so the report opens on Reconciliation.
	_ = f.DeleteSheet("Sheet1")
	if idx, _ := f.GetSheetIndex("Reconciliation"); idx != -1 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"records", len(records),
		"exceptions", len(exceptions),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeReconciliationSheet(f *excelize.File, records []store.ReconciliationRecord) error {
	const sheet = "Reconciliation"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{
		"Invoice Number",
		"PO Number",
		"Vendor",
		"Status",
		"Qty Variance",
		"Price Variance %",
		"Comments",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range records {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.InvoiceNumber)
		write(2, r.PONumber)
		write(3, r.Vendor)
		write(4, string(r.Status))
		write(5, r.QtyVar)
		write(6, r.PriceVarPct)
		write(7, r.Comments)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "B", 16)
	_ = f.SetColWidth(sheet, "C", "C", 26)
	_ = f.SetColWidth(sheet, "D", "D", 22)
	_ = f.SetColWidth(sheet, "E", "F", 16)
	_ = f.SetColWidth(sheet, "G", "G", 44)
	return nil
}

func (s *Service) writeExceptionsSheet(f *excelize.File, exceptions []insights.Exception) error {
	const sheet = "Exceptions"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{
		"Invoice Number",
		"Invoice Date",
		"Vendor",
		"PO Number",
		"Total Amount",
		"Status",
		"Comments",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, e := range exceptions {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, e.InvoiceNumber)
		write(2, e.InvoiceDate)
		write(3, e.Vendor)
		write(4, e.PONumber)
		write(5, e.TotalAmount)
		write(6, e.Status)
		write(7, e.Comments)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "B", 16)
	_ = f.SetColWidth(sheet, "C", "C", 26)
	_ = f.SetColWidth(sheet, "D", "D", 16)
	_ = f.SetColWidth(sheet, "E", "E", 14)
	_ = f.SetColWidth(sheet, "F", "F", 22)
	_ = f.SetColWidth(sheet, "G", "G", 44)
	return nil
}

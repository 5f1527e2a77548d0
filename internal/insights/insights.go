// Package insights computes read-only reporting views over the ingested
// documents and the reconciliation table.
package insights

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// KPIs summarizes one pipeline run.
type KPIs struct {
	DocumentsByType map[string]int `json:"documents_by_type"`
	Invoices        int            `json:"invoices"`
	Matched         int            `json:"matched"`
	MatchRatePct    float64        `json:"match_rate_pct"`
	ByStatus        map[string]int `json:"by_status"`
}

// Exception is one reconciliation record that needs human attention,
// joined with its invoice header.
type Exception struct {
	InvoiceNumber string  `json:"invoice_number"`
	PONumber      string  `json:"po_number"`
	Vendor        string  `json:"vendor"`
	InvoiceDate   string  `json:"invoice_date"`
	TotalAmount   float64 `json:"total_amount"`
	Status        string  `json:"status"`
	QtyVar        float64 `json:"qty_var"`
	PriceVarPct   float64 `json:"price_var_pct"`
	Comments      string  `json:"comments"`
}

// VendorSummary aggregates reconciliation outcomes per vendor.
type VendorSummary struct {
	Vendor     string  `json:"vendor"`
	Invoices   int     `json:"invoices"`
	Matched    int     `json:"matched"`
	Exceptions int     `json:"exceptions"`
	Billed     float64 `json:"billed"`
}

// Service answers reporting queries. It only reads.
type Service struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger}
}

// KPIs computes run-level counters and the match rate.
func (s *Service) KPIs(ctx context.Context) (KPIs, error) {
	out := KPIs{
		DocumentsByType: make(map[string]int),
		ByStatus:        make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_type, COUNT(*) FROM documents GROUP BY doc_type`)
	if err != nil {
		return out, fmt.Errorf("query document counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		var c int
		if err := rows.Scan(&t, &c); err != nil {
			return out, err
		}
		out.DocumentsByType[t] = c
	}
	if err := rows.Err(); err != nil {
		return out, err
	}

	srows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM reconciliation GROUP BY status`)
	if err != nil {
		return out, fmt.Errorf("query status counts: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var st string
		var c int
		if err := srows.Scan(&st, &c); err != nil {
			return out, err
		}
		out.ByStatus[st] = c
		out.Invoices += c
		if st == "MATCH" {
			out.Matched = c
		}
	}
	if err := srows.Err(); err != nil {
		return out, err
	}

	if out.Invoices > 0 {
		out.MatchRatePct = float64(out.Matched) / float64(out.Invoices) * 100
	}
	return out, nil
}

// Exceptions lists every non-matching reconciliation record, newest
// invoice first.
func (s *Service) Exceptions(ctx context.Context) ([]Exception, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.invoice_number, r.po_number, r.vendor,
		       COALESCE(i.invoice_date, ''), COALESCE(i.total_amount, 0),
		       r.status, r.qty_var, r.price_var_pct, r.comments
		FROM reconciliation r
		LEFT JOIN invoices i ON i.invoice_number = r.invoice_number
		WHERE r.status <> 'MATCH'
		ORDER BY i.invoice_date DESC, r.invoice_number`)
	if err != nil {
		return nil, fmt.Errorf("query exceptions: %w", err)
	}
	defer rows.Close()

	var out []Exception
	for rows.Next() {
		var e Exception
		if err := rows.Scan(&e.InvoiceNumber, &e.PONumber, &e.Vendor,
			&e.InvoiceDate, &e.TotalAmount, &e.Status, &e.QtyVar,
			&e.PriceVarPct, &e.Comments); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// VendorSummaries aggregates per-vendor invoice counts, match counts, and
// billed totals.
func (s *Service) VendorSummaries(ctx context.Context) ([]VendorSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.vendor,
		       COUNT(*),
		       SUM(CASE WHEN r.status = 'MATCH' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN r.status <> 'MATCH' THEN 1 ELSE 0 END),
		       COALESCE(SUM(i.total_amount), 0)
		FROM reconciliation r
		LEFT JOIN invoices i ON i.invoice_number = r.invoice_number
		GROUP BY r.vendor
		ORDER BY r.vendor`)
	if err != nil {
		return nil, fmt.Errorf("query vendor summaries: %w", err)
	}
	defer rows.Close()

	var out []VendorSummary
	for rows.Next() {
		var v VendorSummary
		if err := rows.Scan(&v.Vendor, &v.Invoices, &v.Matched, &v.Exceptions, &v.Billed); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

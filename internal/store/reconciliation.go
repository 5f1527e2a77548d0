package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/procure-ops/threeway/constants"
)

// InvoiceRef identifies one invoice to reconcile.
type InvoiceRef struct {
	InvoiceNumber string
	PONumber      string
	Vendor        string
}

// InvoiceLine is one priced invoice or PO line.
type InvoiceLine struct {
	SKU       string
	Qty       float64
	UnitPrice decimal.Decimal
}

// ReconciliationRecord is the per-invoice reconciliation outcome.
type ReconciliationRecord struct {
	InvoiceNumber string
	PONumber      string
	Vendor        string
	Status        constants.ReconStatus
	QtyVar        float64
	PriceVarPct   float64
	Comments      string
}

// DuplicateInvoiceNumbers returns invoice numbers belonging to any group of
// invoices sharing (vendor, total amount, date) with group size > 1.
func (s *Store) DuplicateInvoiceNumbers(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH dup AS (
		  SELECT invoice_number,
		         COUNT(*) OVER (PARTITION BY vendor, total_amount, invoice_date) AS c
		  FROM invoices
		)
		SELECT invoice_number FROM dup WHERE c > 1`)
	if err != nil {
		return nil, fmt.Errorf("query duplicates: %w", err)
	}
	defer rows.Close()

	dups := make(map[string]struct{})
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		dups[n] = struct{}{}
	}
	return dups, rows.Err()
}

// ListInvoiceRefs returns every invoice in invoice-number order.
func (s *Store) ListInvoiceRefs(ctx context.Context) ([]InvoiceRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT invoice_number, po_number, vendor FROM invoices ORDER BY invoice_number`)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	var refs []InvoiceRef
	for rows.Next() {
		var r InvoiceRef
		if err := rows.Scan(&r.InvoiceNumber, &r.PONumber, &r.Vendor); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// InvoiceAmounts returns an invoice's currency and declared total.
// ok=false means the invoice row is absent.
func (s *Store) InvoiceAmounts(ctx context.Context, invoiceNumber string) (currency string, total decimal.Decimal, ok bool, err error) {
	var t float64
	err = s.db.QueryRowContext(ctx,
		`SELECT currency, total_amount FROM invoices WHERE invoice_number = ?`,
		invoiceNumber).Scan(&currency, &t)
	if err == sql.ErrNoRows {
		return "", decimal.Decimal{}, false, nil
	}
	if err != nil {
		return "", decimal.Decimal{}, false, fmt.Errorf("query invoice amounts: %w", err)
	}
	return currency, decimal.NewFromFloat(t), true, nil
}

// POTotal returns the declared total of the PO matching (po_number, vendor).
// ok=false means no such PO.
func (s *Store) POTotal(ctx context.Context, poNumber, vendor string) (total decimal.Decimal, ok bool, err error) {
	var t float64
	err = s.db.QueryRowContext(ctx,
		`SELECT total_amount FROM purchase_orders WHERE po_number = ? AND vendor = ?`,
		poNumber, vendor).Scan(&t)
	if err == sql.ErrNoRows {
		return decimal.Decimal{}, false, nil
	}
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("query po total: %w", err)
	}
	return decimal.NewFromFloat(t), true, nil
}

// HasGRN reports whether any goods receipt exists for (po_number, vendor).
func (s *Store) HasGRN(ctx context.Context, poNumber, vendor string) (bool, error) {
	var c int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM grns WHERE po_number = ? AND vendor = ?`,
		poNumber, vendor).Scan(&c)
	if err != nil {
		return false, fmt.Errorf("query grns: %w", err)
	}
	return c > 0, nil
}

// InvoiceLines returns an invoice's lines in SKU order.
func (s *Store) InvoiceLines(ctx context.Context, invoiceNumber string) ([]InvoiceLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sku, qty, unit_price FROM invoice_lines WHERE invoice_number = ? ORDER BY sku`,
		invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("query invoice lines: %w", err)
	}
	defer rows.Close()

	var lines []InvoiceLine
	for rows.Next() {
		var sku string
		var qty, price float64
		if err := rows.Scan(&sku, &qty, &price); err != nil {
			return nil, err
		}
		lines = append(lines, InvoiceLine{SKU: sku, Qty: qty, UnitPrice: decimal.NewFromFloat(price)})
	}
	return lines, rows.Err()
}

// POLinesBySKU returns a PO's lines keyed by SKU.
func (s *Store) POLinesBySKU(ctx context.Context, poNumber string) (map[string]InvoiceLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sku, qty, unit_price FROM po_lines WHERE po_number = ?`, poNumber)
	if err != nil {
		return nil, fmt.Errorf("query po lines: %w", err)
	}
	defer rows.Close()

	lines := make(map[string]InvoiceLine)
	for rows.Next() {
		var sku string
		var qty, price float64
		if err := rows.Scan(&sku, &qty, &price); err != nil {
			return nil, err
		}
		lines[sku] = InvoiceLine{SKU: sku, Qty: qty, UnitPrice: decimal.NewFromFloat(price)}
	}
	return lines, rows.Err()
}

// GRNQtyBySKU aggregates received quantity per SKU over every goods receipt
// raised against the PO.
func (s *Store) GRNQtyBySKU(ctx context.Context, poNumber string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT gl.sku, SUM(gl.qty)
		FROM grn_lines gl
		JOIN grns g ON g.grn_number = gl.grn_number
		WHERE g.po_number = ?
		GROUP BY gl.sku`, poNumber)
	if err != nil {
		return nil, fmt.Errorf("query grn quantities: %w", err)
	}
	defer rows.Close()

	qty := make(map[string]float64)
	for rows.Next() {
		var sku string
		var q float64
		if err := rows.Scan(&sku, &q); err != nil {
			return nil, err
		}
		qty[sku] = q
	}
	return qty, rows.Err()
}

// ReplaceReconciliation atomically destroys the prior reconciliation table
// and writes the new records. At most one record per invoice number.
func (s *Store) ReplaceReconciliation(ctx context.Context, records []ReconciliationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reconciliation`); err != nil {
		return fmt.Errorf("clear reconciliation: %w", err)
	}
	for _, r := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO reconciliation
			(invoice_number, po_number, vendor, status, qty_var, price_var_pct, comments)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.InvoiceNumber, r.PONumber, r.Vendor, string(r.Status), r.QtyVar, r.PriceVarPct, r.Comments)
		if err != nil {
			return fmt.Errorf("insert reconciliation record: %w", err)
		}
	}
	return tx.Commit()
}

// ListReconciliation returns the reconciliation table in invoice-number order.
func (s *Store) ListReconciliation(ctx context.Context) ([]ReconciliationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT invoice_number, po_number, vendor, status, qty_var, price_var_pct, comments
		FROM reconciliation ORDER BY invoice_number`)
	if err != nil {
		return nil, fmt.Errorf("query reconciliation: %w", err)
	}
	defer rows.Close()

	var out []ReconciliationRecord
	for rows.Next() {
		var r ReconciliationRecord
		var status string
		if err := rows.Scan(&r.InvoiceNumber, &r.PONumber, &r.Vendor, &status, &r.QtyVar, &r.PriceVarPct, &r.Comments); err != nil {
			return nil, err
		}
		r.Status = constants.ReconStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/procure-ops/threeway/constants"
	"github.com/procure-ops/threeway/internal/fields"
)

// persistStructured fans one structured record out into the typed tables.
// Write ordering is part of the contract: purchase orders and goods receipts
// are first-write-wins per key, invoices replace the prior record and all of
// its lines.
func persistStructured(ctx context.Context, tx *sql.Tx, rec fields.Record) error {
	switch rec.Type {
	case constants.DocTypePO:
		return persistPO(ctx, tx, rec)
	case constants.DocTypeInvoice:
		return persistInvoice(ctx, tx, rec)
	case constants.DocTypeGRN:
		return persistGRN(ctx, tx, rec)
	default:
		// UNKNOWN documents keep only their document row.
		return nil
	}
}

func persistPO(ctx context.Context, tx *sql.Tx, rec fields.Record) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO purchase_orders(po_number, vendor, country, currency, order_date, total_amount)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.PONumber, rec.Vendor, rec.Country, rec.Currency, rec.OrderDate,
		rec.TotalAmount.InexactFloat64())
	if err != nil {
		return fmt.Errorf("insert purchase order: %w", err)
	}
	for _, it := range rec.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO po_lines(po_number, sku, description, qty, unit_price)
			VALUES (?, ?, ?, ?, ?)`,
			rec.PONumber, it.SKU, it.Description, it.Qty, it.UnitPrice.InexactFloat64())
		if err != nil {
			return fmt.Errorf("insert po line: %w", err)
		}
	}
	return nil
}

func persistInvoice(ctx context.Context, tx *sql.Tx, rec fields.Record) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO invoices(invoice_number, po_number, vendor, country, currency, invoice_date, total_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.InvoiceNumber, rec.PONumber, rec.Vendor, rec.Country, rec.Currency,
		rec.InvoiceDate, rec.TotalAmount.InexactFloat64())
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	// Latest write wins for the whole line set, not just colliding SKUs.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM invoice_lines WHERE invoice_number = ?`, rec.InvoiceNumber); err != nil {
		return fmt.Errorf("clear invoice lines: %w", err)
	}
	for _, it := range rec.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO invoice_lines(invoice_number, sku, description, qty, unit_price)
			VALUES (?, ?, ?, ?, ?)`,
			rec.InvoiceNumber, it.SKU, it.Description, it.Qty, it.UnitPrice.InexactFloat64())
		if err != nil {
			return fmt.Errorf("insert invoice line: %w", err)
		}
	}
	return nil
}

func persistGRN(ctx context.Context, tx *sql.Tx, rec fields.Record) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO grns(grn_number, po_number, vendor, country, grn_date)
		VALUES (?, ?, ?, ?, ?)`,
		rec.GRNNumber, rec.PONumber, rec.Vendor, rec.Country, rec.GRNDate)
	if err != nil {
		return fmt.Errorf("insert grn: %w", err)
	}
	for _, it := range rec.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO grn_lines(grn_number, sku, qty)
			VALUES (?, ?, ?)`,
			rec.GRNNumber, it.SKU, it.Qty)
		if err != nil {
			return fmt.Errorf("insert grn line: %w", err)
		}
	}
	return nil
}

// Package recon implements three-way matching between invoices, purchase
// orders, and goods receipts.
package recon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/procure-ops/threeway/constants"
	"github.com/procure-ops/threeway/internal/common"
	"github.com/procure-ops/threeway/internal/progress"
	"github.com/procure-ops/threeway/internal/store"
)

// Tolerances hold the variance thresholds. Qty is in absolute units,
// PricePct is a percentage. A variance must strictly exceed its threshold
// to flag; landing exactly on the threshold passes.
type Tolerances struct {
	Qty      decimal.Decimal
	PricePct decimal.Decimal
}

// ParseTolerances parses the threshold strings from configuration.
func ParseTolerances(qty, pricePct string) (Tolerances, error) {
	q, err := decimal.NewFromString(qty)
	if err != nil {
		return Tolerances{}, fmt.Errorf("%w: qty tolerance %q: %v", common.ErrInvalidInput, qty, err)
	}
	p, err := decimal.NewFromString(pricePct)
	if err != nil {
		return Tolerances{}, fmt.Errorf("%w: price tolerance %q: %v", common.ErrInvalidInput, pricePct, err)
	}
	return Tolerances{Qty: q, PricePct: p}, nil
}

// Engine evaluates every invoice against its PO and goods receipts and
// rewrites the reconciliation table.
type Engine struct {
	store  *store.Store
	tol    Tolerances
	logger *slog.Logger
}

func NewEngine(st *store.Store, tol Tolerances, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, tol: tol, logger: logger}
}

// Run reconciles all invoices and atomically replaces the reconciliation
// table with one record per invoice. Returns the records it wrote, in
// invoice-number order.
func (e *Engine) Run(ctx context.Context, cb progress.Callback) ([]store.ReconciliationRecord, error) {
	dups, err := e.store.DuplicateInvoiceNumbers(ctx)
	if err != nil {
		return nil, err
	}
	refs, err := e.store.ListInvoiceRefs(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.Info("recon.start", "invoices", len(refs), "duplicates", len(dups))

	records := make([]store.ReconciliationRecord, 0, len(refs))
	for i, ref := range refs {
		rec, err := e.reconcileInvoice(ctx, ref, dups)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		progress.Notify(cb, e.logger,
			fmt.Sprintf("%s: %s", rec.Status, ref.InvoiceNumber),
			i+1, len(refs), ref.InvoiceNumber)
	}

	if err := e.store.ReplaceReconciliation(ctx, records); err != nil {
		return nil, err
	}
	e.logger.Info("recon.done", "records", len(records))
	return records, nil
}

// reconcileInvoice walks the status ladder for one invoice. Checks run in a
// fixed order and later checks may overwrite the status; missing invoice
// data and a missing PO are terminal and skip the remaining checks.
func (e *Engine) reconcileInvoice(ctx context.Context, ref store.InvoiceRef, dups map[string]struct{}) (store.ReconciliationRecord, error) {
	rec := store.ReconciliationRecord{
		InvoiceNumber: ref.InvoiceNumber,
		PONumber:      ref.PONumber,
		Vendor:        ref.Vendor,
		Status:        constants.StatusMatch,
	}

	if _, dup := dups[ref.InvoiceNumber]; dup {
		rec.Status = constants.StatusDupInvoice
	}

	_, invTotal, ok, err := e.store.InvoiceAmounts(ctx, ref.InvoiceNumber)
	if err != nil {
		return rec, err
	}
	if !ok {
		rec.Status = constants.StatusMissingInvoiceData
		rec.Comments = constants.CommentFor(rec.Status)
		return rec, nil
	}

	poTotal, ok, err := e.store.POTotal(ctx, ref.PONumber, ref.Vendor)
	if err != nil {
		return rec, err
	}
	if !ok {
		rec.Status = constants.StatusNoPO
		rec.Comments = constants.CommentFor(rec.Status)
		return rec, nil
	}

	hasGRN, err := e.store.HasGRN(ctx, ref.PONumber, ref.Vendor)
	if err != nil {
		return rec, err
	}
	if !hasGRN && rec.Status == constants.StatusMatch {
		rec.Status = constants.StatusMissingGRN
	}

	invLines, err := e.store.InvoiceLines(ctx, ref.InvoiceNumber)
	if err != nil {
		return rec, err
	}
	poLines, err := e.store.POLinesBySKU(ctx, ref.PONumber)
	if err != nil {
		return rec, err
	}
	grnQty, err := e.store.GRNQtyBySKU(ctx, ref.PONumber)
	if err != nil {
		return rec, err
	}

	for _, line := range invLines {
		received := decimal.NewFromFloat(grnQty[line.SKU])
		billed := decimal.NewFromFloat(line.Qty)
		qtyDiff := billed.Sub(received)
		if qtyDiff.Abs().GreaterThan(e.tol.Qty) {
			// A quantity variance overrides any earlier status.
			rec.Status = constants.StatusQtyVar
			rec.QtyVar = qtyDiff.InexactFloat64()
		}

		poLine, inPO := poLines[line.SKU]
		if !inPO || poLine.UnitPrice.IsZero() {
			continue
		}
		priceVar := line.UnitPrice.Sub(poLine.UnitPrice).
			Div(poLine.UnitPrice).Mul(decimal.NewFromInt(100))
		if priceVar.Abs().GreaterThan(e.tol.PricePct) && rec.Status == constants.StatusMatch {
			rec.Status = constants.StatusPriceVar
			rec.PriceVarPct = priceVar.InexactFloat64()
		}
	}

	if !poTotal.IsZero() {
		overbillPct := invTotal.Sub(poTotal).Div(poTotal).Mul(decimal.NewFromInt(100))
		if overbillPct.GreaterThan(e.tol.PricePct) && rec.Status == constants.StatusMatch {
			rec.Status = constants.StatusOverbill
			rec.PriceVarPct = overbillPct.InexactFloat64()
		}
	}

	rec.Comments = constants.CommentFor(rec.Status)
	e.logger.Debug("recon.invoice",
		"invoice", ref.InvoiceNumber, "po", ref.PONumber, "vendor", ref.Vendor,
		"status", string(rec.Status))
	return rec, nil
}

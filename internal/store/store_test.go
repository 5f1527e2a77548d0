package store

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/procure-ops/threeway/constants"
	"github.com/procure-ops/threeway/internal/fields"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := Open(context.Background(), ":memory:", logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustIngest(t *testing.T, st *Store, path, hash string, rec fields.Record) {
	t.Helper()
	doc := Document{
		Path:    path,
		Hash:    hash,
		DocType: rec.Type,
		Country: rec.Country,
		Vendor:  rec.Vendor,
		Payload: []byte("{}"),
	}
	if err := st.IngestDocument(context.Background(), doc, rec); err != nil {
		t.Fatalf("IngestDocument(%s): %v", path, err)
	}
}

func poRecord(po, vendor, total string, items ...fields.LineItem) fields.Record {
	return fields.Record{
		Type: constants.DocTypePO, Country: "US", Vendor: vendor, Currency: "USD",
		PONumber: po, OrderDate: "2024-03-01",
		TotalAmount: decimal.RequireFromString(total), Items: items,
	}
}

func invoiceRecord(inv, po, vendor, date, total string, items ...fields.LineItem) fields.Record {
	return fields.Record{
		Type: constants.DocTypeInvoice, Country: "US", Vendor: vendor, Currency: "USD",
		InvoiceNumber: inv, PONumber: po, InvoiceDate: date,
		TotalAmount: decimal.RequireFromString(total), Items: items,
	}
}

func grnRecord(grn, po, vendor string, items ...fields.LineItem) fields.Record {
	return fields.Record{
		Type: constants.DocTypeGRN, Country: "US", Vendor: vendor,
		GRNNumber: grn, PONumber: po, GRNDate: "2024-03-02", Items: items,
	}
}

func item(sku string, qty float64, price string) fields.LineItem {
	return fields.LineItem{SKU: sku, Description: sku, Qty: qty, UnitPrice: decimal.RequireFromString(price)}
}

func qtyItem(sku string, qty float64) fields.LineItem {
	return fields.LineItem{SKU: sku, Qty: qty}
}

func TestDocumentExists(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	mustIngest(t, st, "/in/a.txt", "hash-a", poRecord("PO-1", "Acme", "100"))

	tests := []struct {
		name       string
		path, hash string
		want       bool
	}{
		{"same path and hash", "/in/a.txt", "hash-a", true},
		{"same path only", "/in/a.txt", "other-hash", true},
		{"same hash only", "/in/copy.txt", "hash-a", true},
		{"neither", "/in/b.txt", "hash-b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.DocumentExists(ctx, tt.path, tt.hash)
			if err != nil {
				t.Fatalf("DocumentExists: %v", err)
			}
			if got != tt.want {
				t.Errorf("DocumentExists(%q, %q) = %v, want %v", tt.path, tt.hash, got, tt.want)
			}
		})
	}
}

func TestPOFirstWriteWins(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	mustIngest(t, st, "/in/po1.txt", "h1", poRecord("PO-1", "Acme", "100", item("A", 5, "10")))
	mustIngest(t, st, "/in/po1-dup.txt", "h2", poRecord("PO-1", "Acme", "999", item("A", 50, "99")))

	total, ok, err := st.POTotal(ctx, "PO-1", "Acme")
	if err != nil || !ok {
		t.Fatalf("POTotal: ok=%v err=%v", ok, err)
	}
	if !total.Equal(decimal.RequireFromString("100")) {
		t.Errorf("total = %s, want first write 100", total)
	}

	lines, err := st.POLinesBySKU(ctx, "PO-1")
	if err != nil {
		t.Fatalf("POLinesBySKU: %v", err)
	}
	if lines["A"].Qty != 5 {
		t.Errorf("line qty = %v, want first write 5", lines["A"].Qty)
	}
}

func TestPOSameNumberDifferentVendor(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	mustIngest(t, st, "/in/a.txt", "h1", poRecord("PO-1", "Acme", "100"))
	mustIngest(t, st, "/in/b.txt", "h2", poRecord("PO-1", "Globex", "200"))

	for _, tt := range []struct {
		vendor, want string
	}{{"Acme", "100"}, {"Globex", "200"}} {
		total, ok, err := st.POTotal(ctx, "PO-1", tt.vendor)
		if err != nil || !ok {
			t.Fatalf("POTotal(%s): ok=%v err=%v", tt.vendor, ok, err)
		}
		if !total.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("POTotal(%s) = %s, want %s", tt.vendor, total, tt.want)
		}
	}
}

func TestInvoiceLastWriteWins(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	mustIngest(t, st, "/in/inv1.txt", "h1",
		invoiceRecord("INV-1", "PO-1", "Acme", "2024-03-10", "100", item("A", 5, "10"), item("B", 1, "50")))
	mustIngest(t, st, "/in/inv1-rev.txt", "h2",
		invoiceRecord("INV-1", "PO-1", "Acme", "2024-03-11", "120", item("A", 6, "20")))

	_, total, ok, err := st.InvoiceAmounts(ctx, "INV-1")
	if err != nil || !ok {
		t.Fatalf("InvoiceAmounts: ok=%v err=%v", ok, err)
	}
	if !total.Equal(decimal.RequireFromString("120")) {
		t.Errorf("total = %s, want last write 120", total)
	}

	lines, err := st.InvoiceLines(ctx, "INV-1")
	if err != nil {
		t.Fatalf("InvoiceLines: %v", err)
	}
	// The rewrite replaces the whole line set: B must be gone.
	if len(lines) != 1 || lines[0].SKU != "A" || lines[0].Qty != 6 {
		t.Errorf("lines = %+v, want only revised A", lines)
	}
}

func TestGRNFirstWriteWinsAndAggregation(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	mustIngest(t, st, "/in/g1.txt", "h1", grnRecord("GRN-1", "PO-1", "Acme", qtyItem("A", 5)))
	mustIngest(t, st, "/in/g1-dup.txt", "h2", grnRecord("GRN-1", "PO-1", "Acme", qtyItem("A", 500)))
	mustIngest(t, st, "/in/g2.txt", "h3", grnRecord("GRN-2", "PO-1", "Acme", qtyItem("A", 3), qtyItem("B", 1)))

	qty, err := st.GRNQtyBySKU(ctx, "PO-1")
	if err != nil {
		t.Fatalf("GRNQtyBySKU: %v", err)
	}
	if qty["A"] != 8 { // 5 from GRN-1 (dup ignored) + 3 from GRN-2
		t.Errorf("qty[A] = %v, want 8", qty["A"])
	}
	if qty["B"] != 1 {
		t.Errorf("qty[B] = %v, want 1", qty["B"])
	}

	has, err := st.HasGRN(ctx, "PO-1", "Acme")
	if err != nil || !has {
		t.Errorf("HasGRN = %v err=%v, want true", has, err)
	}
	has, err = st.HasGRN(ctx, "PO-2", "Acme")
	if err != nil || has {
		t.Errorf("HasGRN(PO-2) = %v err=%v, want false", has, err)
	}
}

func TestDuplicateInvoiceNumbers(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	mustIngest(t, st, "/in/i1.txt", "h1", invoiceRecord("INV-1", "PO-1", "Acme", "2024-03-10", "100"))
	mustIngest(t, st, "/in/i2.txt", "h2", invoiceRecord("INV-2", "PO-1", "Acme", "2024-03-10", "100"))
	mustIngest(t, st, "/in/i3.txt", "h3", invoiceRecord("INV-3", "PO-1", "Acme", "2024-03-10", "250"))

	dups, err := st.DuplicateInvoiceNumbers(ctx)
	if err != nil {
		t.Fatalf("DuplicateInvoiceNumbers: %v", err)
	}
	if _, ok := dups["INV-1"]; !ok {
		t.Error("INV-1 missing from duplicate set")
	}
	if _, ok := dups["INV-2"]; !ok {
		t.Error("INV-2 missing from duplicate set")
	}
	if _, ok := dups["INV-3"]; ok {
		t.Error("INV-3 should not be a duplicate (different total)")
	}
}

func TestReplaceReconciliation(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	first := []ReconciliationRecord{
		{InvoiceNumber: "INV-1", PONumber: "PO-1", Vendor: "Acme", Status: constants.StatusMatch},
		{InvoiceNumber: "INV-2", PONumber: "PO-1", Vendor: "Acme", Status: constants.StatusNoPO, Comments: "No matching PO"},
	}
	if err := st.ReplaceReconciliation(ctx, first); err != nil {
		t.Fatalf("ReplaceReconciliation: %v", err)
	}

	second := []ReconciliationRecord{
		{InvoiceNumber: "INV-2", PONumber: "PO-1", Vendor: "Acme", Status: constants.StatusMatch},
	}
	if err := st.ReplaceReconciliation(ctx, second); err != nil {
		t.Fatalf("ReplaceReconciliation: %v", err)
	}

	got, err := st.ListReconciliation(ctx)
	if err != nil {
		t.Fatalf("ListReconciliation: %v", err)
	}
	if len(got) != 1 || got[0].InvoiceNumber != "INV-2" || got[0].Status != constants.StatusMatch {
		t.Errorf("records = %+v, want only the rewritten INV-2", got)
	}
}

func TestAuditForInvoice(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	rec := invoiceRecord("INV-9", "PO-1", "Acme", "2024-03-10", "100")
	doc := Document{
		Path:    "/in/inv9.txt",
		Hash:    "h9",
		DocType: rec.Type,
		Vendor:  rec.Vendor,
		Payload: []byte(`{"invoice_number":"INV-9","total_amount":"100"}`),
	}
	if err := st.IngestDocument(ctx, doc, rec); err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}

	path, payload, err := st.AuditForInvoice(ctx, "INV-9")
	if err != nil {
		t.Fatalf("AuditForInvoice: %v", err)
	}
	if path != "/in/inv9.txt" || len(payload) == 0 {
		t.Errorf("audit = %q / %q", path, payload)
	}

	path, payload, err = st.AuditForInvoice(ctx, "INV-404")
	if err != nil {
		t.Fatalf("AuditForInvoice(miss): %v", err)
	}
	if path != "" || payload != nil {
		t.Errorf("miss = %q / %v, want empty", path, payload)
	}
}

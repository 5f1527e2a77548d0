package fields

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/procure-ops/threeway/constants"
)

const sampleInvoice = `INVOICE
Invoice Number: INV-2001
PO Number: PO-1001
Vendor: Acme Industrial
Country: US
Currency: USD
Date: 2024-03-15
 - SKU: ABC-123 | Description: Sample Component | Qty: 10 | Unit Price: 25.50
 - SKU: DEF-456 | Description: Other Part | Qty: 2 | Unit Price: 100.00
Total: 455.00
`

const sampleGRN = `GOODS RECEIPT NOTE
GRN Number: GRN-3001
PO Number: PO-1001
Vendor: Acme Industrial
Date: 2024-03-14
 - SKU: ABC-123 | Qty: 10
 - SKU: DEF-456 | Qty: 2
`

func TestDeterministicInvoice(t *testing.T) {
	rec, err := NewDeterministic().ExtractFields(context.Background(), sampleInvoice, constants.DocTypeInvoice)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if rec.Type != constants.DocTypeInvoice {
		t.Errorf("Type = %v", rec.Type)
	}
	if rec.InvoiceNumber != "INV-2001" || rec.PONumber != "PO-1001" {
		t.Errorf("numbers = %q / %q", rec.InvoiceNumber, rec.PONumber)
	}
	if rec.Vendor != "Acme Industrial" || rec.Country != "US" || rec.Currency != "USD" {
		t.Errorf("header = %q %q %q", rec.Vendor, rec.Country, rec.Currency)
	}
	if rec.InvoiceDate != "2024-03-15" {
		t.Errorf("InvoiceDate = %q", rec.InvoiceDate)
	}
	if !rec.TotalAmount.Equal(decimal.RequireFromString("455.00")) {
		t.Errorf("TotalAmount = %s", rec.TotalAmount)
	}
	if len(rec.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(rec.Items))
	}
	first := rec.Items[0]
	if first.SKU != "ABC-123" || first.Description != "Sample Component" || first.Qty != 10 {
		t.Errorf("first item = %+v", first)
	}
	if !first.UnitPrice.Equal(decimal.RequireFromString("25.50")) {
		t.Errorf("first unit price = %s", first.UnitPrice)
	}
}

func TestDeterministicGRN(t *testing.T) {
	rec, err := NewDeterministic().ExtractFields(context.Background(), sampleGRN, constants.DocTypeGRN)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if rec.GRNNumber != "GRN-3001" || rec.PONumber != "PO-1001" {
		t.Errorf("numbers = %q / %q", rec.GRNNumber, rec.PONumber)
	}
	if rec.GRNDate != "2024-03-14" {
		t.Errorf("GRNDate = %q", rec.GRNDate)
	}
	if len(rec.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(rec.Items))
	}
	if rec.Items[0].SKU != "ABC-123" || rec.Items[0].Qty != 10 {
		t.Errorf("first item = %+v", rec.Items[0])
	}
}

func TestDeterministicDefaults(t *testing.T) {
	rec, err := NewDeterministic().ExtractFields(context.Background(), "PURCHASE ORDER\nPO Number: PO-7", constants.DocTypePO)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if rec.Country != "US" || rec.Vendor != "Unknown Vendor" || rec.Currency != "USD" {
		t.Errorf("defaults = %q %q %q", rec.Country, rec.Vendor, rec.Currency)
	}
	if !rec.TotalAmount.IsZero() {
		t.Errorf("TotalAmount = %s, want 0", rec.TotalAmount)
	}
	if len(rec.Items) != 0 {
		t.Errorf("items = %d, want 0", len(rec.Items))
	}
}

func TestDeterministicCaseInsensitiveItemLines(t *testing.T) {
	text := "INVOICE\nInvoice Number: INV-1\n - sku: X-1 | description: Widget | qty: 3 | unit price: 9.99\nTotal: 29.97"
	rec, err := NewDeterministic().ExtractFields(context.Background(), text, constants.DocTypeInvoice)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if len(rec.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(rec.Items))
	}
	if rec.Items[0].SKU != "X-1" || rec.Items[0].Qty != 3 {
		t.Errorf("item = %+v", rec.Items[0])
	}
}

func TestDeterministicMalformedTotal(t *testing.T) {
	text := "INVOICE\nInvoice Number: INV-1\nTotal: abc"
	if _, err := NewDeterministic().ExtractFields(context.Background(), text, constants.DocTypeInvoice); err == nil {
		t.Fatal("want error for malformed total")
	}
}

func TestDeterministicThousandsSeparator(t *testing.T) {
	text := "PURCHASE ORDER\nPO Number: PO-1\nTotal: 1,234.50"
	rec, err := NewDeterministic().ExtractFields(context.Background(), text, constants.DocTypePO)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if !rec.TotalAmount.Equal(decimal.RequireFromString("1234.50")) {
		t.Errorf("TotalAmount = %s", rec.TotalAmount)
	}
}

func TestDeterministicUnknownKind(t *testing.T) {
	rec, err := NewDeterministic().ExtractFields(context.Background(), "whatever", constants.DocTypeUnknown)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if rec.Type != constants.DocTypeUnknown {
		t.Errorf("Type = %v", rec.Type)
	}
}

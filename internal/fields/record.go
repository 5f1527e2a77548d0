// Package fields turns classified document text into canonical structured
// records, either deterministically or through an external extraction
// service with deterministic fallback.
package fields

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/procure-ops/threeway/constants"
)

// LineItem is one parsed document line. GRN items carry only SKU and Qty.
type LineItem struct {
	SKU         string          `json:"sku"`
	Description string          `json:"description,omitempty"`
	Qty         float64         `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price,omitempty"`
}

// Record is the canonical structured payload shared by every document kind.
// Kind-specific fields are left empty for the kinds that do not carry them.
type Record struct {
	Type    constants.DocType `json:"type"`
	Country string            `json:"country"`
	Vendor  string            `json:"vendor"`

	Currency string `json:"currency,omitempty"`

	PONumber      string `json:"po_number,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	GRNNumber     string `json:"grn_number,omitempty"`

	OrderDate   string `json:"order_date,omitempty"`
	InvoiceDate string `json:"invoice_date,omitempty"`
	GRNDate     string `json:"grn_date,omitempty"`

	TotalAmount decimal.Decimal `json:"total_amount"`

	Items []LineItem `json:"items"`
}

// Extractor is the strategy interface the ingestion pipeline depends on.
// Implementations must share one output schema per document kind so they are
// pure substitutes for one another.
type Extractor interface {
	ExtractFields(ctx context.Context, text string, kind constants.DocType) (Record, error)
}

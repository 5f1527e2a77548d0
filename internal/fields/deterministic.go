package fields

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/procure-ops/threeway/constants"
)

// Line-item patterns for the pipe-delimited sample document shape. Field
// order is fixed: SKU, description, qty, unit price for PO/INVOICE; SKU, qty
// for GRN. Lines not matching are ignored without error.
var (
	rePricedLine = regexp.MustCompile(`(?i)SKU:\s*([^|]+?)\s*\|\s*Description:\s*([^|]+?)\s*\|\s*Qty:\s*([\d.]+)\s*\|\s*Unit Price:\s*([\d.]+)`)
	reQtyLine    = regexp.MustCompile(`(?i)SKU:\s*([^|]+?)\s*\|\s*Qty:\s*([\d.]+)`)
)

// Deterministic parses the sample-document format: "key: value" header lines
// plus pipe-delimited item lines. Always available; used as the default
// strategy and as the fallback for the external one.
type Deterministic struct{}

func NewDeterministic() *Deterministic { return &Deterministic{} }

func (d *Deterministic) ExtractFields(_ context.Context, text string, kind constants.DocType) (Record, error) {
	lines := nonBlankLines(text)
	kv := headerMap(lines)

	rec := Record{
		Type:    kind,
		Country: kvOr(kv, "country", "US"),
		Vendor:  kvOr(kv, "vendor", "Unknown Vendor"),
	}

	switch kind {
	case constants.DocTypePO:
		rec.Currency = kvOr(kv, "currency", "USD")
		rec.PONumber = kv["po number"]
		rec.OrderDate = kv["date"]
		total, err := parseAmount(kvOr(kv, "total", "0"))
		if err != nil {
			return Record{}, fmt.Errorf("parse PO total: %w", err)
		}
		rec.TotalAmount = total
		rec.Items = pricedItems(lines)

	case constants.DocTypeInvoice:
		rec.Currency = kvOr(kv, "currency", "USD")
		rec.InvoiceNumber = kv["invoice number"]
		rec.PONumber = kv["po number"]
		rec.InvoiceDate = kv["date"]
		total, err := parseAmount(kvOr(kv, "total", "0"))
		if err != nil {
			return Record{}, fmt.Errorf("parse invoice total: %w", err)
		}
		rec.TotalAmount = total
		rec.Items = pricedItems(lines)

	case constants.DocTypeGRN:
		rec.GRNNumber = kv["grn number"]
		rec.PONumber = kv["po number"]
		rec.GRNDate = kv["date"]
		rec.Items = qtyItems(lines)

	default:
		return Record{Type: constants.DocTypeUnknown}, nil
	}
	return rec, nil
}

// nonBlankLines splits text into trimmed, non-empty lines.
func nonBlankLines(text string) []string {
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

// headerMap collects "key: value" pairs from lines that carry a colon and no
// pipe. Keys are lowercased and trimmed.
func headerMap(lines []string) map[string]string {
	kv := make(map[string]string)
	for _, ln := range lines {
		if !strings.Contains(ln, ":") || strings.Contains(ln, "|") {
			continue
		}
		k, v, _ := strings.Cut(ln, ":")
		kv[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return kv
}

func kvOr(kv map[string]string, key, def string) string {
	if v, ok := kv[key]; ok && v != "" {
		return v
	}
	return def
}

// parseAmount reads a money amount after stripping thousands separators.
func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
}

// pricedItems parses PO/INVOICE item lines: a line qualifies when it carries
// both an "SKU:" and a "Unit Price:" marker.
func pricedItems(lines []string) []LineItem {
	var items []LineItem
	for _, ln := range lines {
		low := strings.ToLower(ln)
		if !strings.Contains(low, "sku:") || !strings.Contains(low, "unit price") {
			continue
		}
		for _, m := range rePricedLine.FindAllStringSubmatch(ln, -1) {
			qty, err := strconv.ParseFloat(m[3], 64)
			if err != nil {
				continue
			}
			price, err := decimal.NewFromString(m[4])
			if err != nil {
				continue
			}
			items = append(items, LineItem{
				SKU:         strings.TrimSpace(m[1]),
				Description: strings.TrimSpace(m[2]),
				Qty:         qty,
				UnitPrice:   price,
			})
		}
	}
	return items
}

// qtyItems parses GRN item lines: an "SKU:" marker plus a "Qty:" marker.
func qtyItems(lines []string) []LineItem {
	var items []LineItem
	for _, ln := range lines {
		low := strings.ToLower(ln)
		if !strings.Contains(low, "sku:") || !strings.Contains(low, "qty") {
			continue
		}
		for _, m := range reQtyLine.FindAllStringSubmatch(ln, -1) {
			qty, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			items = append(items, LineItem{
				SKU: strings.TrimSpace(m[1]),
				Qty: qty,
			})
		}
	}
	return items
}

// Package classify assigns a document kind from extracted text.
package classify

import (
	"strings"

	"github.com/procure-ops/threeway/constants"
)

// Keyword markers per kind, checked in fixed priority order. The order is
// load-bearing: text carrying both GRN and INVOICE markers classifies as
// GRN, always.
var (
	grnMarkers     = []string{"goods receipt", "grn", "received qty"}
	invoiceMarkers = []string{"invoice number", "invoice"}
	poMarkers      = []string{"purchase order", "po number"}
)

// Classify maps text to a document kind via case-insensitive keyword
// matching. First match wins; text matching nothing is UNKNOWN.
func Classify(text string) constants.DocType {
	t := strings.ToLower(text)
	if containsAny(t, grnMarkers) {
		return constants.DocTypeGRN
	}
	if containsAny(t, invoiceMarkers) {
		return constants.DocTypeInvoice
	}
	if containsAny(t, poMarkers) {
		return constants.DocTypePO
	}
	return constants.DocTypeUnknown
}

func containsAny(t string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(t, m) {
			return true
		}
	}
	return false
}

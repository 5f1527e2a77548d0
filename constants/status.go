package constants

// ReconStatus is the canonical status for rows in reconciliation.
type ReconStatus string

// Stable values (store these exact strings in DB).
const (
	StatusMatch              ReconStatus = "MATCH"
	StatusDupInvoice         ReconStatus = "DUP_INVOICE"
	StatusMissingInvoiceData ReconStatus = "MISSING_INVOICE_DATA"
	StatusNoPO               ReconStatus = "NO_PO"
	StatusMissingGRN         ReconStatus = "MISSING_GRN"
	StatusQtyVar             ReconStatus = "QTY_VAR"
	StatusPriceVar           ReconStatus = "PRICE_VAR"
	StatusOverbill           ReconStatus = "OVERBILL"
)

// statusComments maps each status to its fixed human-readable comment.
var statusComments = map[ReconStatus]string{
	StatusMatch:              "",
	StatusDupInvoice:         "Duplicate invoice",
	StatusMissingInvoiceData: "Invoice data missing from invoices table",
	StatusNoPO:               "No matching PO",
	StatusMissingGRN:         "No goods receipt for PO",
	StatusQtyVar:             "Quantity variance exceeds tolerance",
	StatusPriceVar:           "Unit price variance exceeds tolerance",
	StatusOverbill:           "Invoice total exceeds PO total",
}

// CommentFor returns the fixed comment recorded alongside a status.
func CommentFor(s ReconStatus) string {
	return statusComments[s]
}

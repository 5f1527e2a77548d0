package constants

// DocType is the canonical document kind assigned by the classifier.
type DocType string

// Stable values (store these exact strings in DB).
const (
	DocTypePO      DocType = "PO"
	DocTypeInvoice DocType = "INVOICE"
	DocTypeGRN     DocType = "GRN"
	DocTypeUnknown DocType = "UNKNOWN"
)

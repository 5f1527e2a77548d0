package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/procure-ops/threeway/constants"
	"github.com/procure-ops/threeway/internal/common"
	"github.com/procure-ops/threeway/internal/fields"
)

// Document is the immutable raw-document row. One row per distinct
// (path, hash) pair; never mutated after the first successful extraction.
type Document struct {
	ID               string
	Path             string
	Hash             string
	DocType          constants.DocType
	Country          string
	Vendor           string
	Payload          []byte // canonical structured record as JSON
	IngestedAt       time.Time
	FileType         string
	ProcessingMethod string
	OCRConfidence    float64
	RequiresOCR      bool
}

// DocumentExists reports whether a document with the same path or the same
// content hash is already persisted. Either match means duplicate.
func (s *Store) DocumentExists(ctx context.Context, path, hash string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE path = ? OR hash = ?`, path, hash).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query document: %w", err)
	}
	return true, nil
}

// IngestDocument writes the document row and fans the structured record out
// into the typed header/line tables, atomically. PO and GRN entities are
// first-write-wins; invoices are last-write-wins including their lines.
func (s *Store) IngestDocument(ctx context.Context, doc Document, rec fields.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", common.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents(
			id, path, hash, doc_type, country, vendor, payload, ingested_at,
			file_type, processing_method, ocr_confidence, requires_ocr
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Path, doc.Hash, string(doc.DocType), doc.Country, doc.Vendor,
		string(doc.Payload), doc.IngestedAt.UTC().Format(time.RFC3339),
		doc.FileType, doc.ProcessingMethod, doc.OCRConfidence, doc.RequiresOCR)
	if err != nil {
		return fmt.Errorf("%w: insert document: %v", common.ErrPersistence, err)
	}

	if err := persistStructured(ctx, tx, rec); err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", common.ErrPersistence, err)
	}
	return nil
}

// AuditForInvoice returns the source path and raw structured payload of the
// document that produced an invoice, for audit display.
func (s *Store) AuditForInvoice(ctx context.Context, invoiceNumber string) (path string, payload []byte, err error) {
	var p, body string
	err = s.db.QueryRowContext(ctx, `
		SELECT path, payload FROM documents
		WHERE doc_type = 'INVOICE' AND json_extract(payload, '$.invoice_number') = ?`,
		invoiceNumber).Scan(&p, &body)
	if err == sql.ErrNoRows {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("audit query: %w", err)
	}
	return p, []byte(body), nil
}

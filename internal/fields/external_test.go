package fields

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/procure-ops/threeway/constants"
	"github.com/procure-ops/threeway/internal/common"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func completionsServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestServiceClientExtractFields(t *testing.T) {
	content := `{
		"type": "INVOICE", "country": "US", "vendor": "Acme Industrial",
		"currency": "USD", "invoice_number": "INV-2001", "po_number": "PO-1001",
		"invoice_date": "2024-03-15", "total_amount": 255.00,
		"items": [{"sku": "ABC-123", "description": "Sample Component", "qty": 10, "unit_price": 25.50}]
	}`
	srv := completionsServer(t, content)
	defer srv.Close()

	c := NewServiceClient(ServiceConfig{BaseURL: srv.URL, APIKey: "test-key"}, testLogger())
	rec, err := c.ExtractFields(context.Background(), "INVOICE ...", constants.DocTypeInvoice)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if rec.InvoiceNumber != "INV-2001" || rec.Vendor != "Acme Industrial" {
		t.Errorf("rec = %+v", rec)
	}
	if len(rec.Items) != 1 || rec.Items[0].SKU != "ABC-123" {
		t.Errorf("items = %+v", rec.Items)
	}
}

func TestServiceClientRejectsSchemaViolations(t *testing.T) {
	// invoice_number missing from a declared INVOICE.
	srv := completionsServer(t, `{"type": "INVOICE", "country": "US", "vendor": "Acme"}`)
	defer srv.Close()

	c := NewServiceClient(ServiceConfig{BaseURL: srv.URL, APIKey: "test-key"}, testLogger())
	_, err := c.ExtractFields(context.Background(), "INVOICE ...", constants.DocTypeInvoice)
	if !errors.Is(err, common.ErrExternalExtraction) {
		t.Fatalf("err = %v, want ErrExternalExtraction", err)
	}
}

func TestServiceClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewServiceClient(ServiceConfig{BaseURL: srv.URL, APIKey: "test-key"}, testLogger())
	_, err := c.ExtractFields(context.Background(), "text", constants.DocTypePO)
	if !errors.Is(err, common.ErrExternalExtraction) {
		t.Fatalf("err = %v, want ErrExternalExtraction", err)
	}
}

type failingExtractor struct{}

func (failingExtractor) ExtractFields(context.Context, string, constants.DocType) (Record, error) {
	return Record{}, fmt.Errorf("%w: boom", common.ErrExternalExtraction)
}

func TestWithFallback(t *testing.T) {
	w := NewWithFallback(failingExtractor{}, NewDeterministic(), testLogger())
	rec, err := w.ExtractFields(context.Background(), sampleInvoice, constants.DocTypeInvoice)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if rec.InvoiceNumber != "INV-2001" {
		t.Errorf("fallback rec = %+v", rec)
	}
}

func TestBuildRecordJSONSchemaRequiredFields(t *testing.T) {
	tests := []struct {
		kind constants.DocType
		want string
	}{
		{constants.DocTypePO, "po_number"},
		{constants.DocTypeInvoice, "invoice_number"},
		{constants.DocTypeGRN, "grn_number"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			schema := BuildRecordJSONSchema(tt.kind)
			required, _ := schema["required"].([]string)
			found := false
			for _, r := range required {
				if r == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("required = %v, want %s", required, tt.want)
			}
		})
	}
}

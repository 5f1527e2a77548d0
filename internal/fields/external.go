package fields

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/procure-ops/threeway/constants"
	"github.com/procure-ops/threeway/internal/common"
)

// ServiceConfig configures the external structured-extraction client.
type ServiceConfig struct {
	BaseURL     string        // default https://api.openai.com/v1
	APIKey      string
	Model       string        // e.g. "gpt-4o-mini"
	Temperature float32       // 0..2
	Timeout     time.Duration // http client timeout
}

// ServiceClient sends document text plus declared kind to an external
// structured-extraction capability and expects a JSON object matching the
// per-kind record schema. Every failure is reported as
// common.ErrExternalExtraction so the caller can fall back.
type ServiceClient struct {
	cfg    ServiceConfig
	http   *http.Client
	logger *slog.Logger
}

func NewServiceClient(cfg ServiceConfig, logger *slog.Logger) *ServiceClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *ServiceClient) ExtractFields(ctx context.Context, text string, kind constants.DocType) (Record, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("fields.external.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"kind", kind,
		"text_len", len(text),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": "You are a document data extraction expert. Return only valid JSON."},
			{"role": "user", "content": buildPrompt(text, kind)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Warn("fields.external.http_error",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Record{}, fmt.Errorf("%w: %v", common.ErrExternalExtraction, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return Record{}, fmt.Errorf("%w: decode response: %v", common.ErrExternalExtraction, err)
	}
	if len(cc.Choices) == 0 {
		return Record{}, fmt.Errorf("%w: no choices in response", common.ErrExternalExtraction)
	}
	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	schema := BuildRecordJSONSchema(kind)
	if err := ValidateJSONAgainstSchema(schema, content); err != nil {
		c.logger.Warn("fields.external.schema_validation_failed",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Record{}, fmt.Errorf("%w: %v", common.ErrExternalExtraction, err)
	}

	var rec Record
	if err := json.Unmarshal(content, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: unmarshal fields: %v", common.ErrExternalExtraction, err)
	}

	c.logger.Info("fields.external.ok",
		"req_id", rid,
		"kind", rec.Type,
		"vendor", rec.Vendor,
		"items", len(rec.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func (c *ServiceClient) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("fields.external.body_close_error", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 2048))
	}
	return raw, nil
}

func buildPrompt(text string, kind constants.DocType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract structured data from this %s document and return valid JSON.\n\n", kind)
	b.WriteString("Required fields based on document type:\n")
	fmt.Fprintf(&b, "- type: %q\n", string(kind))
	b.WriteString("- country: string\n- vendor: string\n- currency: string\n\n")
	b.WriteString("For PO: po_number, order_date, total_amount, items (array with sku, description, qty, unit_price)\n")
	b.WriteString("For INVOICE: invoice_number, po_number, invoice_date, total_amount, items (array with sku, description, qty, unit_price)\n")
	b.WriteString("For GRN: grn_number, po_number, grn_date, items (array with sku, qty)\n\n")
	b.WriteString("Document text:\n")
	b.WriteString(text)
	b.WriteString("\n\nReturn only valid JSON matching the expected structure.")
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

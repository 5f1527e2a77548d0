package fields

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/procure-ops/threeway/constants"
)

// BuildRecordJSONSchema returns the JSON-Schema constraint for one document
// kind as a generic map. It is sent to the external extraction service as
// the expected output shape and used locally to validate the response.
func BuildRecordJSONSchema(kind constants.DocType) map[string]any {
	props := map[string]any{
		"type":    map[string]any{"type": "string"},
		"country": map[string]any{"type": "string"},
		"vendor":  map[string]any{"type": "string"},
	}
	required := []string{"type", "vendor", "country"}

	pricedItems := map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sku":         map[string]any{"type": "string"},
				"description": map[string]any{"type": "string"},
				"qty":         map[string]any{"type": "number"},
				"unit_price":  map[string]any{"type": "number"},
			},
			"required": []string{"sku", "qty", "unit_price"},
		},
	}

	switch kind {
	case constants.DocTypePO:
		props["currency"] = map[string]any{"type": "string"}
		props["po_number"] = map[string]any{"type": "string"}
		props["order_date"] = map[string]any{"type": "string"}
		props["total_amount"] = map[string]any{"type": "number"}
		props["items"] = pricedItems
		required = append(required, "po_number")

	case constants.DocTypeInvoice:
		props["currency"] = map[string]any{"type": "string"}
		props["invoice_number"] = map[string]any{"type": "string"}
		props["po_number"] = map[string]any{"type": "string"}
		props["invoice_date"] = map[string]any{"type": "string"}
		props["total_amount"] = map[string]any{"type": "number"}
		props["items"] = pricedItems
		required = append(required, "invoice_number")

	case constants.DocTypeGRN:
		props["grn_number"] = map[string]any{"type": "string"}
		props["po_number"] = map[string]any{"type": "string"}
		props["grn_date"] = map[string]any{"type": "string"}
		props["items"] = map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"sku": map[string]any{"type": "string"},
					"qty": map[string]any{"type": "number"},
				},
				"required": []string{"sku", "qty"},
			},
		}
		required = append(required, "grn_number")
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

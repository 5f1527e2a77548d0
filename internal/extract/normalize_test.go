package extract

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace run", "a  b\t c", "a b c"},
		{"hyphen break rejoined", "Compo- nent", "Component"},
		{"key value spacing", "Vendor:Acme", "Vendor: Acme"},
		{"pipe gets trailing space", "SKU: A |Qty: 2", "SKU: A  | Qty: 2"},
		{"trimmed", "  hello  ", "hello"},
		{
			"ocr item line",
			"SKU:ABC-123 |Qty:10 |Unit  Price:25.50",
			"SKU: ABC-123  | Qty: 10  | Unit Price: 25.50",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

package rule

import (
	"testing"

	"marketplace/internal/service/inventory/domain/port"
)

func TestCelEngine_Evaluate(t *testing.T) {
	engine, err := NewCelEngine()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	fact := port.Fact{SKU: "sku-1", Available: 3, Reserved: 2, Threshold: 5}

	cases := []struct {
		rule string
		want bool
	}{
		{"available <= threshold", true},
		{"available > threshold", false},
		{"available + reserved >= 5", true},
		{"sku == 'sku-1' && available < threshold", true},
	}
	for _, c := range cases {
		got, err := engine.Evaluate(c.rule, fact)
		if err != nil {
			t.Fatalf("Rule %q: expected no error, got: %v", c.rule, err)
		}
		if got != c.want {
			t.Errorf("Rule %q: expected %v, got %v", c.rule, c.want, got)
		}
	}
}

func TestCelEngine_Evaluate_InvalidRule(t *testing.T) {
	engine, _ := NewCelEngine()

	if _, err := engine.Evaluate("available <=", port.Fact{}); err == nil {
		t.Error("Expected compile error for malformed rule")
	}
	if _, err := engine.Evaluate("available + threshold", port.Fact{}); err == nil {
		t.Error("Expected error for non-boolean rule")
	}
}

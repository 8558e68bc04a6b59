package extraction

import (
	"testing"

	"github.com/invoicepilot/backend/internal/entity"
	"github.com/invoicepilot/backend/internal/invoice"
)

func TestMoneyPattern(t *testing.T) {
	tests := []struct {
		input   string
		matches []string
	}{
		{"10.00 20.00", []string{"10.00", "20.00"}},
		{"1,234.56", []string{"1,234.56"}},
		{"5", nil},
		{"5.5", nil},
		// Ungrouped four-digit amounts are not money-shaped; matching a
		// partial "234.56" would fabricate a value.
		{"1234.56", nil},
		{"total 99.99", []string{"99.99"}},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := moneyPattern.FindAllString(tc.input, -1)
			if len(got) != len(tc.matches) {
				t.Fatalf("moneyPattern(%q) = %v, want %v", tc.input, got, tc.matches)
			}
			for i := range got {
				if got[i] != tc.matches[i] {
					t.Fatalf("moneyPattern(%q) = %v, want %v", tc.input, got, tc.matches)
				}
			}
		})
	}
}

func TestParseMentionText(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		description string
		quantity    *float64
		unitPrice   *float64
		amount      *float64
	}{
		{
			name:        "quantity description and two money columns",
			input:       "2 Widget A 10.00 20.00",
			description: "Widget A",
			quantity:    f(2),
			unitPrice:   f(10),
			amount:      f(20),
		},
		{
			name:        "single money is the amount",
			input:       "Shipping fee 15.00",
			description: "Shipping fee",
			quantity:    nil,
			unitPrice:   nil,
			amount:      f(15),
		},
		{
			name:        "whitespace collapsed",
			input:       "  3   Blue   Pens   1.50    4.50 ",
			description: "Blue Pens",
			quantity:    f(3),
			unitPrice:   f(1.50),
			amount:      f(4.50),
		},
		{
			name:        "quantity digits inside another number survive",
			input:       "Model 250 2 10.00 20.00",
			description: "Model 250",
			quantity:    f(2),
			unitPrice:   f(10),
			amount:      f(20),
		},
		{
			name:        "three money columns take the last two",
			input:       "Discounted item 5.00 4.00 8.00",
			description: "Discounted item",
			quantity:    nil,
			unitPrice:   f(4),
			amount:      f(8),
		},
		{
			name:        "only a quantity keeps full text as description",
			input:       "42",
			description: "42",
			quantity:    f(42),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			item := parseMentionText(tc.input)
			if item.Description == nil || *item.Description != tc.description {
				t.Fatalf("description = %v, want %q", strOrNil(item.Description), tc.description)
			}
			assertFloat(t, "quantity", item.Quantity, tc.quantity)
			assertFloat(t, "unitPrice", item.UnitPrice, tc.unitPrice)
			assertFloat(t, "amount", item.Amount, tc.amount)
		})
	}

	empty := parseMentionText("   ")
	if empty.Description != nil || empty.Quantity != nil || empty.UnitPrice != nil || empty.Amount != nil {
		t.Fatalf("parseMentionText(blank) = %+v, want all nil", empty)
	}
}

func TestParseLineItemStructured(t *testing.T) {
	e := entity.RawEntity{
		Type:        "line_item",
		Kind:        entity.KindLineItem,
		MentionText: "9 Decoy 1.00 9.00",
		Properties: []entity.RawEntity{
			{Type: "line_item/description", MentionText: "Widget B"},
			{Type: "line_item/quantity", MentionText: "4"},
			{Type: "line_item/unit_price", Normalized: &entity.NormalizedValue{Money: &entity.Money{Units: 2, Nanos: 500000000}}},
			{Type: "line_item/amount", MentionText: "10.00"},
		},
	}

	item := ParseLineItem(e)
	if item.Description == nil || *item.Description != "Widget B" {
		t.Fatalf("description = %v, structured value should win over mention text", strOrNil(item.Description))
	}
	assertFloat(t, "quantity", item.Quantity, f(4))
	assertFloat(t, "unitPrice", item.UnitPrice, f(2.5))
	assertFloat(t, "amount", item.Amount, f(10))
}

func TestParseLineItemFallbackFillsGaps(t *testing.T) {
	// Properties exist but resolve to nothing; the mention text takes over.
	e := entity.RawEntity{
		Type:        "line_item",
		Kind:        entity.KindLineItem,
		MentionText: "2 Widget A 10.00 20.00",
		Properties: []entity.RawEntity{
			{Type: "line_item/unrecognized", MentionText: "noise"},
		},
	}

	item := ParseLineItem(e)
	if item.Description == nil || *item.Description != "Widget A" {
		t.Fatalf("description = %v, want fallback parse", strOrNil(item.Description))
	}
	assertFloat(t, "quantity", item.Quantity, f(2))
	assertFloat(t, "unitPrice", item.UnitPrice, f(10))
	assertFloat(t, "amount", item.Amount, f(20))
}

func TestBackfill(t *testing.T) {
	t.Run("amount from quantity and unit price", func(t *testing.T) {
		item := invoice.LineItem{Quantity: f(3), UnitPrice: f(4)}
		backfill(&item)
		assertFloat(t, "amount", item.Amount, f(12))
	})

	t.Run("unit price from amount and quantity", func(t *testing.T) {
		item := invoice.LineItem{Quantity: f(4), Amount: f(10)}
		backfill(&item)
		assertFloat(t, "unitPrice", item.UnitPrice, f(2.5))
	})

	t.Run("zero quantity never divides", func(t *testing.T) {
		item := invoice.LineItem{Quantity: f(0), Amount: f(10)}
		backfill(&item)
		if item.UnitPrice != nil {
			t.Fatalf("unitPrice = %v, want nil for zero quantity", *item.UnitPrice)
		}
	})

	t.Run("resolved values never overwritten", func(t *testing.T) {
		item := invoice.LineItem{Quantity: f(3), UnitPrice: f(4), Amount: f(11.5)}
		backfill(&item)
		assertFloat(t, "amount", item.Amount, f(11.5))
	})

	t.Run("rounding to two decimals", func(t *testing.T) {
		item := invoice.LineItem{Quantity: f(3), Amount: f(10)}
		backfill(&item)
		assertFloat(t, "unitPrice", item.UnitPrice, f(3.33))
	})
}

func f(v float64) *float64 { return &v }

func strOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func assertFloat(t *testing.T, field string, got, want *float64) {
	t.Helper()
	if want == nil {
		if got != nil {
			t.Fatalf("%s = %v, want nil", field, *got)
		}
		return
	}
	if got == nil {
		t.Fatalf("%s = nil, want %v", field, *want)
	}
	if *got != *want {
		t.Fatalf("%s = %v, want %v", field, *got, *want)
	}
}

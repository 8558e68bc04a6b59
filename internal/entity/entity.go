// Package entity models the extraction service's output as a closed, typed
// structure. Entities are decoded once at the boundary so the normalization
// pipeline never probes optional proto fields.
package entity

import "strings"

// Kind is the closed set of entity types the pipeline understands. Anything
// else decodes to KindUnknown and is carried through untouched.
type Kind int

const (
	KindUnknown Kind = iota
	KindSupplierName
	KindSupplierAddress
	KindInvoiceNumber
	KindPurchaseOrder
	KindInvoiceDate
	KindDueDate
	KindSubtotal
	KindTax
	KindTotal
	KindLineItem
)

// kindByType maps normalized extraction type tags to kinds. Alias precedence
// for field selection lives in the extraction package; this map only decides
// which closed variant an entity belongs to.
var kindByType = map[string]Kind{
	"supplier_name":    KindSupplierName,
	"remit_to_name":    KindSupplierName,
	"vendor_name":      KindSupplierName,
	"supplier_address": KindSupplierAddress,
	"remit_to_address": KindSupplierAddress,
	"vendor_address":   KindSupplierAddress,
	"invoice_id":       KindInvoiceNumber,
	"invoice_number":   KindInvoiceNumber,
	"purchase_order":   KindPurchaseOrder,
	"po_number":        KindPurchaseOrder,
	"invoice_date":     KindInvoiceDate,
	"issue_date":       KindInvoiceDate,
	"due_date":         KindDueDate,
	"payment_due_date": KindDueDate,
	"net_amount":       KindSubtotal,
	"subtotal":         KindSubtotal,
	"total_tax_amount": KindTax,
	"tax_amount":       KindTax,
	"vat":              KindTax,
	"total_amount":     KindTotal,
	"invoice_total":    KindTotal,
	"amount_due":       KindTotal,
	"line_item":        KindLineItem,
}

// Money is a fixed-point amount: units plus nanos scaled by one billion.
type Money struct {
	Units int64
	Nanos int32
}

// Date is a calendar date without a timezone.
type Date struct {
	Year  int
	Month int
	Day   int
}

// NormalizedValue is the structured representation the extraction service
// attaches when it managed to normalize an entity. All members optional.
type NormalizedValue struct {
	Text  string
	Money *Money
	Date  *Date
}

// RawEntity is one extracted field or group. Properties are only populated on
// line items. Confidence is diagnostic only.
type RawEntity struct {
	Type        string
	Kind        Kind
	MentionText string
	Normalized  *NormalizedValue
	Properties  []RawEntity
	Confidence  float32
}

// NormalizeType lowercases and trims an extraction type tag, dropping any
// "parent/" prefix on child property tags (line_item/quantity → quantity is
// still matchable through its full tag; both forms are normalized here).
func NormalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// KindOfType resolves a raw type tag to its closed kind.
func KindOfType(t string) Kind {
	norm := NormalizeType(t)
	if k, ok := kindByType[norm]; ok {
		return k
	}
	// Child tags arrive as "line_item/<field>"; the bare suffix decides.
	if idx := strings.LastIndex(norm, "/"); idx >= 0 {
		if k, ok := kindByType[norm[idx+1:]]; ok {
			return k
		}
	}
	return KindUnknown
}

// Text returns the entity's best text: normalized text when present, else the
// raw mention text, else empty.
func (e *RawEntity) Text() string {
	if e == nil {
		return ""
	}
	if e.Normalized != nil && e.Normalized.Text != "" {
		return e.Normalized.Text
	}
	return e.MentionText
}

// Package invoice defines the canonical invoice record and its lifecycle
// rules. Everything here is pure: storage and transport live elsewhere.
package invoice

import "time"

// Status is the invoice lifecycle state.
type Status string

const (
	StatusUploaded    Status = "uploaded"
	StatusProcessing  Status = "processing"
	StatusNeedsReview Status = "needs_review"
	StatusError       Status = "error"
	StatusFinalized   Status = "finalized"
)

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusNeedsReview, StatusError, StatusFinalized:
		return true
	}
	return false
}

// LineItem is one row of the invoice's itemized charges. Every field is
// independently optional: extraction is best effort and nothing is fabricated
// beyond the documented backfill arithmetic.
type LineItem struct {
	Description *string  `firestore:"description" json:"description"`
	Quantity    *float64 `firestore:"quantity" json:"quantity"`
	UnitPrice   *float64 `firestore:"unitPrice" json:"unitPrice"`
	Amount      *float64 `firestore:"amount" json:"amount"`
}

// Fields is the canonical extraction output. All members independently
// optional.
type Fields struct {
	SupplierName    *string    `firestore:"supplierName" json:"supplierName"`
	SupplierAddress *string    `firestore:"supplierAddress" json:"supplierAddress"`
	InvoiceNumber   *string    `firestore:"invoiceNumber" json:"invoiceNumber"`
	PurchaseOrder   *string    `firestore:"purchaseOrder" json:"purchaseOrder"`
	InvoiceDate     *time.Time `firestore:"invoiceDate" json:"invoiceDate"`
	DueDate         *time.Time `firestore:"dueDate" json:"dueDate"`
	Subtotal        *float64   `firestore:"subtotal" json:"subtotal"`
	Tax             *float64   `firestore:"tax" json:"tax"`
	Total           *float64   `firestore:"total" json:"total"`
	LineItems       []LineItem `firestore:"lineItems" json:"lineItems"`
}

// FieldsPatch is a partial update of Fields used by review edits. Nil members
// are left untouched; the write is a field merge, never a full overwrite.
type FieldsPatch struct {
	SupplierName    *string     `json:"supplierName"`
	SupplierAddress *string     `json:"supplierAddress"`
	InvoiceNumber   *string     `json:"invoiceNumber"`
	PurchaseOrder   *string     `json:"purchaseOrder"`
	InvoiceDate     *time.Time  `json:"invoiceDate"`
	DueDate         *time.Time  `json:"dueDate"`
	Subtotal        *float64    `json:"subtotal"`
	Tax             *float64    `json:"tax"`
	Total           *float64    `json:"total"`
	LineItems       *[]LineItem `json:"lineItems"`
}

// Empty reports whether the patch names no fields at all.
func (p FieldsPatch) Empty() bool {
	return p.SupplierName == nil && p.SupplierAddress == nil &&
		p.InvoiceNumber == nil && p.PurchaseOrder == nil &&
		p.InvoiceDate == nil && p.DueDate == nil &&
		p.Subtotal == nil && p.Tax == nil && p.Total == nil &&
		p.LineItems == nil
}

// Apply merges the patch into f.
func (p FieldsPatch) Apply(f *Fields) {
	if p.SupplierName != nil {
		f.SupplierName = p.SupplierName
	}
	if p.SupplierAddress != nil {
		f.SupplierAddress = p.SupplierAddress
	}
	if p.InvoiceNumber != nil {
		f.InvoiceNumber = p.InvoiceNumber
	}
	if p.PurchaseOrder != nil {
		f.PurchaseOrder = p.PurchaseOrder
	}
	if p.InvoiceDate != nil {
		f.InvoiceDate = p.InvoiceDate
	}
	if p.DueDate != nil {
		f.DueDate = p.DueDate
	}
	if p.Subtotal != nil {
		f.Subtotal = p.Subtotal
	}
	if p.Tax != nil {
		f.Tax = p.Tax
	}
	if p.Total != nil {
		f.Total = p.Total
	}
	if p.LineItems != nil {
		f.LineItems = *p.LineItems
	}
}

// Record is the persisted invoice document.
type Record struct {
	ID     string `firestore:"id" json:"id"`
	UserID string `firestore:"userId" json:"userId"`
	Status Status `firestore:"status" json:"status"`

	// StoragePath references the uploaded binary in object storage and is
	// immutable once set.
	StoragePath    string `firestore:"storagePath" json:"storagePath"`
	ContentType    string `firestore:"contentType" json:"contentType"`
	FileName       string `firestore:"fileName" json:"fileName"`
	SkipProcessing bool   `firestore:"skipProcessing" json:"skipProcessing"`

	ErrorMessage string `firestore:"errorMessage" json:"errorMessage,omitempty"`

	Fields Fields `firestore:"fields" json:"fields"`

	CreatedAt   time.Time  `firestore:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `firestore:"updatedAt" json:"updatedAt"`
	ExtractedAt *time.Time `firestore:"extractedAt" json:"extractedAt"`
	FinalizedAt *time.Time `firestore:"finalizedAt" json:"finalizedAt"`
}

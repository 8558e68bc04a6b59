package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/invoicepilot/backend/internal/common"
	"github.com/invoicepilot/backend/internal/invoice"
)

// MemoryStore implements Store in memory for local development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	invoices map[string]*invoice.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{invoices: make(map[string]*invoice.Record)}
}

func (s *MemoryStore) CreateInvoice(_ context.Context, rec *invoice.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.invoices[rec.ID]; exists {
		return common.FailedPrecondition("invoice %s already exists", rec.ID)
	}
	s.invoices[rec.ID] = cloneRecord(rec)
	return nil
}

func (s *MemoryStore) GetInvoice(_ context.Context, id string) (*invoice.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.invoices[id]
	if !ok {
		return nil, common.NotFound("invoice %s not found", id)
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) DeleteInvoice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.invoices, id)
	return nil
}

func (s *MemoryStore) ListInvoices(_ context.Context, userID string, pageSize int32, pageToken string) ([]*invoice.Record, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, rec := range s.invoices {
		if rec.UserID == userID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if pageSize <= 0 {
		pageSize = 100
	}

	startIdx := 0
	if pageToken != "" {
		cursor, err := DecodePageToken(pageToken)
		if err != nil {
			return nil, "", common.InvalidArgument("invalid page token")
		}
		for i, id := range ids {
			if id > cursor {
				startIdx = i
				break
			}
			startIdx = i + 1
		}
	}

	endIdx := startIdx + int(pageSize)
	if endIdx > len(ids) {
		endIdx = len(ids)
	}

	records := make([]*invoice.Record, 0, endIdx-startIdx)
	for _, id := range ids[startIdx:endIdx] {
		records = append(records, cloneRecord(s.invoices[id]))
	}

	nextToken := ""
	if endIdx < len(ids) && len(records) > 0 {
		nextToken = EncodePageToken(records[len(records)-1].ID)
	}
	return records, nextToken, nil
}

func (s *MemoryStore) TransitionStatus(_ context.Context, id string, from []invoice.Status, to invoice.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.invoices[id]
	if !ok {
		return common.NotFound("invoice %s not found", id)
	}
	if !statusIn(rec.Status, from) {
		return common.FailedPrecondition("invoice %s is %s, not in a transitionable state", id, rec.Status)
	}

	rec.Status = to
	rec.ErrorMessage = ""
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ApplyExtraction(_ context.Context, id string, fields invoice.Fields, extractedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.invoices[id]
	if !ok {
		return common.NotFound("invoice %s not found", id)
	}
	if rec.Status != invoice.StatusProcessing {
		return common.FailedPrecondition("invoice %s is %s, no longer processing", id, rec.Status)
	}

	rec.Fields = fields
	rec.Status = invoice.StatusNeedsReview
	rec.ErrorMessage = ""
	rec.ExtractedAt = &extractedAt
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) RecordProcessingFailure(_ context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.invoices[id]
	if !ok {
		return common.NotFound("invoice %s not found", id)
	}
	if rec.Status != invoice.StatusProcessing {
		return common.FailedPrecondition("invoice %s is %s, no longer processing", id, rec.Status)
	}

	rec.Status = invoice.StatusError
	rec.ErrorMessage = message
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Finalize(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.invoices[id]
	if !ok {
		return common.NotFound("invoice %s not found", id)
	}
	if rec.Status == invoice.StatusFinalized {
		return common.FailedPrecondition("invoice %s is already finalized", id)
	}

	rec.Status = invoice.StatusFinalized
	rec.FinalizedAt = &at
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpdateFields(_ context.Context, id string, patch invoice.FieldsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.invoices[id]
	if !ok {
		return common.NotFound("invoice %s not found", id)
	}
	if patch.Empty() {
		return nil
	}

	patch.Apply(&rec.Fields)
	rec.UpdatedAt = time.Now()
	return nil
}

// cloneRecord deep-copies a record so callers never share memory with the
// store.
func cloneRecord(rec *invoice.Record) *invoice.Record {
	out := *rec
	out.ExtractedAt = cloneTime(rec.ExtractedAt)
	out.FinalizedAt = cloneTime(rec.FinalizedAt)
	out.Fields = cloneFields(rec.Fields)
	return &out
}

func cloneFields(f invoice.Fields) invoice.Fields {
	out := f
	out.SupplierName = cloneString(f.SupplierName)
	out.SupplierAddress = cloneString(f.SupplierAddress)
	out.InvoiceNumber = cloneString(f.InvoiceNumber)
	out.PurchaseOrder = cloneString(f.PurchaseOrder)
	out.InvoiceDate = cloneTime(f.InvoiceDate)
	out.DueDate = cloneTime(f.DueDate)
	out.Subtotal = cloneFloat(f.Subtotal)
	out.Tax = cloneFloat(f.Tax)
	out.Total = cloneFloat(f.Total)
	if f.LineItems != nil {
		out.LineItems = make([]invoice.LineItem, len(f.LineItems))
		for i, item := range f.LineItems {
			out.LineItems[i] = invoice.LineItem{
				Description: cloneString(item.Description),
				Quantity:    cloneFloat(item.Quantity),
				UnitPrice:   cloneFloat(item.UnitPrice),
				Amount:      cloneFloat(item.Amount),
			}
		}
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

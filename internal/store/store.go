// Package store persists invoice records. Updates are field merges, never
// full-record overwrites, so a status-only write cannot clobber fields a
// review save wrote concurrently.
package store

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/invoicepilot/backend/internal/invoice"
)

// Store defines the record operations used by the service layer.
type Store interface {
	CreateInvoice(ctx context.Context, rec *invoice.Record) error
	GetInvoice(ctx context.Context, id string) (*invoice.Record, error)
	DeleteInvoice(ctx context.Context, id string) error
	ListInvoices(ctx context.Context, userID string, pageSize int32, pageToken string) ([]*invoice.Record, string, error)

	// TransitionStatus atomically moves the record to `to` only if its stored
	// status is still one of `from`, clearing any previous error message.
	// A stale pre-state fails with FailedPrecondition, which callers treat as
	// "someone else already took this transition". This is what keeps
	// duplicate event deliveries from double-billing the extraction service.
	TransitionStatus(ctx context.Context, id string, from []invoice.Status, to invoice.Status) error

	// ApplyExtraction merges the normalized fields, stamps extractedAt and
	// moves the record to needs_review. Only legal while the record is still
	// processing; any other stored status (a concurrent finalize, most
	// importantly) fails with FailedPrecondition and leaves the record alone.
	ApplyExtraction(ctx context.Context, id string, fields invoice.Fields, extractedAt time.Time) error

	// RecordProcessingFailure moves the record to error with the failure
	// description, leaving previously extracted fields untouched. Same
	// still-processing precondition as ApplyExtraction.
	RecordProcessingFailure(ctx context.Context, id string, message string) error

	// Finalize marks the record finalized and stamps finalizedAt; fails with
	// FailedPrecondition if it already is. Terminal.
	Finalize(ctx context.Context, id string, at time.Time) error

	// UpdateFields merges a review edit into the extracted fields.
	UpdateFields(ctx context.Context, id string, patch invoice.FieldsPatch) error
}

// EncodePageToken encodes a document ID into a page token.
func EncodePageToken(docID string) string {
	if docID == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(docID))
}

// DecodePageToken decodes a page token back to a document ID.
func DecodePageToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func statusIn(s invoice.Status, set []invoice.Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

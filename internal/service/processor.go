// Package service drives the invoice lifecycle: event intake, the processing
// orchestrator and the HTTP surface.
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/invoicepilot/backend/internal/auth"
	"github.com/invoicepilot/backend/internal/blob"
	"github.com/invoicepilot/backend/internal/common"
	"github.com/invoicepilot/backend/internal/entity"
	"github.com/invoicepilot/backend/internal/extraction"
	"github.com/invoicepilot/backend/internal/invoice"
	"github.com/invoicepilot/backend/internal/store"
)

// Extractor is the document-understanding service as the orchestrator sees
// it. extraction.DocAIClient implements it; tests inject stubs.
type Extractor interface {
	ProcessDocument(ctx context.Context, data []byte, mimeType string) ([]entity.RawEntity, error)
}

// Processor runs the extraction pipeline under the lifecycle guards.
type Processor struct {
	store     store.Store
	blobs     blob.ObjectStore
	extractor Extractor
	log       *logrus.Logger
}

// NewProcessor wires the orchestrator. All collaborators are injected; the
// processor owns no globals.
func NewProcessor(st store.Store, blobs blob.ObjectStore, extractor Extractor, log *logrus.Logger) *Processor {
	return &Processor{
		store:     st,
		blobs:     blobs,
		extractor: extractor,
		log:       log,
	}
}

// DocumentCreatedEvent is the full field snapshot delivered once per newly
// created invoice record.
type DocumentCreatedEvent struct {
	InvoiceID      string         `json:"invoiceId"`
	UserID         string         `json:"userId"`
	Status         invoice.Status `json:"status"`
	StoragePath    string         `json:"storagePath"`
	ContentType    string         `json:"contentType"`
	SkipProcessing bool           `json:"skipProcessing"`
}

// HandleDocumentCreated starts processing for a freshly uploaded invoice.
// Any snapshot not in the uploaded state is ignored, so duplicate deliveries
// and retries are no-ops rather than errors. The returned error is only
// non-nil for store failures worth redelivering.
func (p *Processor) HandleDocumentCreated(ctx context.Context, evt DocumentCreatedEvent) error {
	logger := p.log.WithField("invoice_id", evt.InvoiceID)

	if evt.InvoiceID == "" {
		logger.Warn("document-created event without invoice id, dropping")
		return nil
	}
	if !invoice.ShouldStartProcessing(evt.Status, evt.SkipProcessing) {
		logger.WithField("status", evt.Status).Debug("event does not start processing, ignoring")
		return nil
	}

	err := p.store.TransitionStatus(ctx, evt.InvoiceID, []invoice.Status{invoice.StatusUploaded}, invoice.StatusProcessing)
	if err != nil {
		// A concurrent trigger already claimed the transition, or the record
		// vanished. Both are fine for at-least-once event delivery.
		if common.IsKind(err, common.KindFailedPrecondition) || common.IsKind(err, common.KindNotFound) {
			logger.WithError(err).Debug("transition already taken, ignoring event")
			return nil
		}
		return err
	}

	p.process(ctx, evt.InvoiceID, evt.StoragePath, evt.ContentType)
	return nil
}

// Reprocess re-runs extraction at the owner's explicit request. Guard
// violations surface as typed errors before any I/O happens.
func (p *Processor) Reprocess(ctx context.Context, invoiceID string) error {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return err
	}
	if invoiceID == "" {
		return common.InvalidArgument("invoice id is required")
	}

	rec, err := p.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if err := invoice.CheckReprocess(rec, claims.UID); err != nil {
		return err
	}

	err = p.store.TransitionStatus(ctx, invoiceID, invoice.ReprocessableStatuses(), invoice.StatusProcessing)
	if err != nil {
		return err
	}

	p.process(ctx, invoiceID, rec.StoragePath, rec.ContentType)
	return nil
}

// process is the shared body: fetch, extract, normalize, persist. The record
// always leaves the processing state; failures are recorded into it rather
// than propagated, because the trigger is fire-and-forget.
func (p *Processor) process(ctx context.Context, invoiceID, storagePath, contentType string) {
	logger := p.log.WithField("invoice_id", invoiceID)

	data, attrContentType, err := p.blobs.Download(ctx, storagePath)
	if err != nil {
		p.recordFailure(ctx, invoiceID, &extraction.Error{
			Code:    extraction.ErrDocumentFetch,
			Message: "failed to fetch document from storage",
			Cause:   err,
		})
		return
	}
	if attrContentType != "" {
		contentType = attrContentType
	}

	entities, err := p.extractor.ProcessDocument(ctx, data, contentType)
	if err != nil {
		p.recordFailure(ctx, invoiceID, err)
		return
	}

	fields, err := extraction.Normalize(entities)
	if err != nil {
		p.recordFailure(ctx, invoiceID, err)
		return
	}

	if err := p.store.ApplyExtraction(ctx, invoiceID, fields, time.Now()); err != nil {
		// The owner finalized (or another run reclaimed the record) while
		// extraction was in flight; their write wins.
		if common.IsKind(err, common.KindFailedPrecondition) {
			logger.WithError(err).Debug("record left processing concurrently, dropping result")
			return
		}
		logger.WithError(err).Error("failed to persist extraction result")
		return
	}

	logger.WithField("line_items", len(fields.LineItems)).Info("invoice extracted")
}

func (p *Processor) recordFailure(ctx context.Context, invoiceID string, cause error) {
	logger := p.log.WithField("invoice_id", invoiceID)
	logger.WithError(cause).Warn("invoice processing failed")

	if err := p.store.RecordProcessingFailure(ctx, invoiceID, cause.Error()); err != nil {
		if common.IsKind(err, common.KindFailedPrecondition) {
			logger.WithError(err).Debug("record left processing concurrently, dropping failure")
			return
		}
		logger.WithError(err).Error("failed to record processing failure")
	}
}

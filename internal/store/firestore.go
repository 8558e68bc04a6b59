package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/invoicepilot/backend/internal/common"
	"github.com/invoicepilot/backend/internal/invoice"
)

const invoicesCollection = "invoices"

// FirestoreStore implements Store on Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) Store {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(invoicesCollection).Doc(id)
}

func (s *FirestoreStore) CreateInvoice(ctx context.Context, rec *invoice.Record) error {
	if _, err := s.doc(rec.ID).Create(ctx, rec); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return common.FailedPrecondition("invoice %s already exists", rec.ID)
		}
		return common.Internal(err, "create invoice %s", rec.ID)
	}
	return nil
}

func (s *FirestoreStore) GetInvoice(ctx context.Context, id string) (*invoice.Record, error) {
	doc, err := s.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.NotFound("invoice %s not found", id)
		}
		return nil, common.Internal(err, "get invoice %s", id)
	}

	var rec invoice.Record
	if err := doc.DataTo(&rec); err != nil {
		return nil, common.Internal(err, "decode invoice %s", id)
	}
	return &rec, nil
}

func (s *FirestoreStore) DeleteInvoice(ctx context.Context, id string) error {
	if _, err := s.doc(id).Delete(ctx); err != nil {
		return common.Internal(err, "delete invoice %s", id)
	}
	return nil
}

func (s *FirestoreStore) ListInvoices(ctx context.Context, userID string, pageSize int32, pageToken string) ([]*invoice.Record, string, error) {
	query := s.client.Collection(invoicesCollection).
		Where("userId", "==", userID).
		OrderBy(firestore.DocumentID, firestore.Asc)

	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return nil, "", common.InvalidArgument("invalid page token")
		}
		query = query.StartAfter(docID)
	}

	if pageSize <= 0 {
		pageSize = 100
	}
	// +1 to detect whether a next page exists.
	docs, err := query.Limit(int(pageSize) + 1).Documents(ctx).GetAll()
	if err != nil {
		return nil, "", common.Internal(err, "list invoices for %s", userID)
	}

	records := make([]*invoice.Record, 0, len(docs))
	for _, doc := range docs {
		var rec invoice.Record
		if err := doc.DataTo(&rec); err != nil {
			return nil, "", common.Internal(err, "decode invoice %s", doc.Ref.ID)
		}
		records = append(records, &rec)
	}

	nextToken := ""
	if len(records) > int(pageSize) {
		records = records[:pageSize]
		nextToken = EncodePageToken(records[len(records)-1].ID)
	}
	return records, nextToken, nil
}

// TransitionStatus runs as a transaction so two near-simultaneous triggers
// cannot both claim the same transition.
func (s *FirestoreStore) TransitionStatus(ctx context.Context, id string, from []invoice.Status, to invoice.Status) error {
	ref := s.doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		rec, err := s.txGet(tx, ref, id)
		if err != nil {
			return err
		}
		if !statusIn(rec.Status, from) {
			return common.FailedPrecondition("invoice %s is %s, not in a transitionable state", id, rec.Status)
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: to},
			{Path: "errorMessage", Value: ""},
			{Path: "updatedAt", Value: time.Now()},
		})
	})
	if err != nil {
		if _, ok := err.(*common.Error); ok {
			return err
		}
		return common.Internal(err, "transition invoice %s to %s", id, to)
	}
	return nil
}

// ApplyExtraction runs as a transaction: the result only lands if the record
// is still processing. A record the owner finalized mid-flight stays
// finalized and the write fails with FailedPrecondition.
func (s *FirestoreStore) ApplyExtraction(ctx context.Context, id string, fields invoice.Fields, extractedAt time.Time) error {
	ref := s.doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		rec, err := s.txGet(tx, ref, id)
		if err != nil {
			return err
		}
		if rec.Status != invoice.StatusProcessing {
			return common.FailedPrecondition("invoice %s is %s, no longer processing", id, rec.Status)
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "fields", Value: fields},
			{Path: "status", Value: invoice.StatusNeedsReview},
			{Path: "errorMessage", Value: ""},
			{Path: "extractedAt", Value: extractedAt},
			{Path: "updatedAt", Value: time.Now()},
		})
	})
	if err != nil {
		if _, ok := err.(*common.Error); ok {
			return err
		}
		return common.Internal(err, "apply extraction to invoice %s", id)
	}
	return nil
}

func (s *FirestoreStore) RecordProcessingFailure(ctx context.Context, id string, message string) error {
	ref := s.doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		rec, err := s.txGet(tx, ref, id)
		if err != nil {
			return err
		}
		if rec.Status != invoice.StatusProcessing {
			return common.FailedPrecondition("invoice %s is %s, no longer processing", id, rec.Status)
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: invoice.StatusError},
			{Path: "errorMessage", Value: message},
			{Path: "updatedAt", Value: time.Now()},
		})
	})
	if err != nil {
		if _, ok := err.(*common.Error); ok {
			return err
		}
		return common.Internal(err, "record failure on invoice %s", id)
	}
	return nil
}

func (s *FirestoreStore) txGet(tx *firestore.Transaction, ref *firestore.DocumentRef, id string) (*invoice.Record, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.NotFound("invoice %s not found", id)
		}
		return nil, err
	}

	var rec invoice.Record
	if err := doc.DataTo(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *FirestoreStore) Finalize(ctx context.Context, id string, at time.Time) error {
	ref := s.doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		rec, err := s.txGet(tx, ref, id)
		if err != nil {
			return err
		}
		if rec.Status == invoice.StatusFinalized {
			return common.FailedPrecondition("invoice %s is already finalized", id)
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: invoice.StatusFinalized},
			{Path: "finalizedAt", Value: at},
			{Path: "updatedAt", Value: time.Now()},
		})
	})
	if err != nil {
		if _, ok := err.(*common.Error); ok {
			return err
		}
		return common.Internal(err, "finalize invoice %s", id)
	}
	return nil
}

func (s *FirestoreStore) UpdateFields(ctx context.Context, id string, patch invoice.FieldsPatch) error {
	updates := patchUpdates(patch)
	if len(updates) == 0 {
		return nil
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: time.Now()})

	if _, err := s.doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return common.NotFound("invoice %s not found", id)
		}
		return common.Internal(err, "update fields on invoice %s", id)
	}
	return nil
}

// patchUpdates converts a fields patch to per-field-path updates so untouched
// fields survive concurrent writers.
func patchUpdates(patch invoice.FieldsPatch) []firestore.Update {
	var updates []firestore.Update
	add := func(path string, value any) {
		updates = append(updates, firestore.Update{Path: "fields." + path, Value: value})
	}

	if patch.SupplierName != nil {
		add("supplierName", *patch.SupplierName)
	}
	if patch.SupplierAddress != nil {
		add("supplierAddress", *patch.SupplierAddress)
	}
	if patch.InvoiceNumber != nil {
		add("invoiceNumber", *patch.InvoiceNumber)
	}
	if patch.PurchaseOrder != nil {
		add("purchaseOrder", *patch.PurchaseOrder)
	}
	if patch.InvoiceDate != nil {
		add("invoiceDate", *patch.InvoiceDate)
	}
	if patch.DueDate != nil {
		add("dueDate", *patch.DueDate)
	}
	if patch.Subtotal != nil {
		add("subtotal", *patch.Subtotal)
	}
	if patch.Tax != nil {
		add("tax", *patch.Tax)
	}
	if patch.Total != nil {
		add("total", *patch.Total)
	}
	if patch.LineItems != nil {
		add("lineItems", *patch.LineItems)
	}
	return updates
}

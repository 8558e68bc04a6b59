package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicepilot/backend/internal/common"
	"github.com/invoicepilot/backend/internal/invoice"
)

func newRecord(id, userID string, status invoice.Status) *invoice.Record {
	now := time.Now()
	return &invoice.Record{
		ID:          id,
		UserID:      userID,
		Status:      status,
		StoragePath: "invoices/" + userID + "/" + id + ".pdf",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMemoryStoreCreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec := newRecord("inv-1", "user-a", invoice.StatusUploaded)
	require.NoError(t, s.CreateInvoice(ctx, rec))

	got, err := s.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", got.ID)
	assert.Equal(t, invoice.StatusUploaded, got.Status)

	// Returned record is a copy; mutating it must not leak into the store.
	got.Status = invoice.StatusError
	again, err := s.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusUploaded, again.Status)

	err = s.CreateInvoice(ctx, rec)
	assert.Equal(t, common.KindFailedPrecondition, common.KindOf(err))

	_, err = s.GetInvoice(ctx, "missing")
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestMemoryStoreTransitionStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec := newRecord("inv-1", "user-a", invoice.StatusUploaded)
	rec.ErrorMessage = "previous failure"
	require.NoError(t, s.CreateInvoice(ctx, rec))

	err := s.TransitionStatus(ctx, "inv-1", []invoice.Status{invoice.StatusUploaded}, invoice.StatusProcessing)
	require.NoError(t, err)

	got, err := s.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusProcessing, got.Status)
	assert.Empty(t, got.ErrorMessage, "transition clears the previous error message")

	// A second identical transition sees a stale pre-state.
	err = s.TransitionStatus(ctx, "inv-1", []invoice.Status{invoice.StatusUploaded}, invoice.StatusProcessing)
	assert.Equal(t, common.KindFailedPrecondition, common.KindOf(err))

	err = s.TransitionStatus(ctx, "missing", []invoice.Status{invoice.StatusUploaded}, invoice.StatusProcessing)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestMemoryStoreApplyExtraction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec := newRecord("inv-1", "user-a", invoice.StatusProcessing)
	rec.ErrorMessage = "stale failure"
	require.NoError(t, s.CreateInvoice(ctx, rec))

	name := "Acme Corp"
	extractedAt := time.Now()
	err := s.ApplyExtraction(ctx, "inv-1", invoice.Fields{SupplierName: &name}, extractedAt)
	require.NoError(t, err)

	got, err := s.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusNeedsReview, got.Status)
	assert.Equal(t, "Acme Corp", *got.Fields.SupplierName)
	require.NotNil(t, got.ExtractedAt)
	assert.True(t, got.ExtractedAt.Equal(extractedAt))
	assert.Empty(t, got.ErrorMessage)
}

func TestMemoryStoreApplyExtractionRequiresProcessing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateInvoice(ctx, newRecord("inv-1", "user-a", invoice.StatusFinalized)))

	name := "Acme Corp"
	err := s.ApplyExtraction(ctx, "inv-1", invoice.Fields{SupplierName: &name}, time.Now())
	assert.Equal(t, common.KindFailedPrecondition, common.KindOf(err))

	got, err := s.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusFinalized, got.Status)
	assert.Nil(t, got.Fields.SupplierName, "record untouched by the rejected write")
}

func TestMemoryStoreRecordProcessingFailureRequiresProcessing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateInvoice(ctx, newRecord("inv-1", "user-a", invoice.StatusFinalized)))

	err := s.RecordProcessingFailure(ctx, "inv-1", "too late")
	assert.Equal(t, common.KindFailedPrecondition, common.KindOf(err))

	got, err := s.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusFinalized, got.Status)
	assert.Empty(t, got.ErrorMessage)
}

func TestMemoryStoreRecordProcessingFailure(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec := newRecord("inv-1", "user-a", invoice.StatusProcessing)
	name := "Acme Corp"
	rec.Fields.SupplierName = &name
	require.NoError(t, s.CreateInvoice(ctx, rec))

	require.NoError(t, s.RecordProcessingFailure(ctx, "inv-1", "processor call failed"))

	got, err := s.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusError, got.Status)
	assert.Equal(t, "processor call failed", got.ErrorMessage)
	assert.Equal(t, "Acme Corp", *got.Fields.SupplierName, "prior fields stay untouched")
}

func TestMemoryStoreFinalize(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateInvoice(ctx, newRecord("inv-1", "user-a", invoice.StatusNeedsReview)))

	at := time.Now()
	require.NoError(t, s.Finalize(ctx, "inv-1", at))

	got, err := s.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusFinalized, got.Status)
	require.NotNil(t, got.FinalizedAt)

	err = s.Finalize(ctx, "inv-1", time.Now())
	assert.Equal(t, common.KindFailedPrecondition, common.KindOf(err))
}

func TestMemoryStoreUpdateFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec := newRecord("inv-1", "user-a", invoice.StatusNeedsReview)
	name := "Acme Corp"
	total := 50.0
	rec.Fields.SupplierName = &name
	rec.Fields.Total = &total
	require.NoError(t, s.CreateInvoice(ctx, rec))

	newTotal := 100.0
	require.NoError(t, s.UpdateFields(ctx, "inv-1", invoice.FieldsPatch{Total: &newTotal}))

	got, err := s.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, *got.Fields.Total)
	assert.Equal(t, "Acme Corp", *got.Fields.SupplierName, "unnamed fields keep their values")
}

func TestMemoryStoreListInvoices(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, id := range []string{"inv-1", "inv-2", "inv-3"} {
		require.NoError(t, s.CreateInvoice(ctx, newRecord(id, "user-a", invoice.StatusUploaded)))
	}
	require.NoError(t, s.CreateInvoice(ctx, newRecord("inv-9", "user-b", invoice.StatusUploaded)))

	page, token, err := s.ListInvoices(ctx, "user-a", 2, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "inv-1", page[0].ID)
	assert.Equal(t, "inv-2", page[1].ID)
	require.NotEmpty(t, token)

	rest, token, err := s.ListInvoices(ctx, "user-a", 2, token)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "inv-3", rest[0].ID)
	assert.Empty(t, token)

	_, _, err = s.ListInvoices(ctx, "user-a", 2, "%%%not-base64%%%")
	assert.Equal(t, common.KindInvalidArgument, common.KindOf(err))

	other, _, err := s.ListInvoices(ctx, "user-b", 10, "")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "inv-9", other[0].ID)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateInvoice(ctx, newRecord("inv-1", "user-a", invoice.StatusUploaded)))
	require.NoError(t, s.DeleteInvoice(ctx, "inv-1"))

	_, err := s.GetInvoice(ctx, "inv-1")
	assert.Equal(t, common.KindNotFound, common.KindOf(err))

	// Deleting a missing record is not an error.
	require.NoError(t, s.DeleteInvoice(ctx, "inv-1"))
}

func TestPageTokenRoundTrip(t *testing.T) {
	token := EncodePageToken("inv-42")
	require.NotEmpty(t, token)

	id, err := DecodePageToken(token)
	require.NoError(t, err)
	assert.Equal(t, "inv-42", id)

	id, err = DecodePageToken("")
	require.NoError(t, err)
	assert.Empty(t, id)

	_, err = DecodePageToken("%%%")
	assert.Error(t, err)
}

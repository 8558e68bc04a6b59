package service

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/invoicepilot/backend/internal/auth"
	"github.com/invoicepilot/backend/internal/blob"
	"github.com/invoicepilot/backend/internal/common"
	"github.com/invoicepilot/backend/internal/invoice"
	"github.com/invoicepilot/backend/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// InvoiceService exposes the invoice record API over HTTP.
type InvoiceService struct {
	store     store.Store
	blobs     blob.ObjectStore
	processor *Processor
	log       *logrus.Logger
}

// NewInvoiceService creates the HTTP service.
func NewInvoiceService(st store.Store, blobs blob.ObjectStore, processor *Processor, log *logrus.Logger) *InvoiceService {
	return &InvoiceService{
		store:     st,
		blobs:     blobs,
		processor: processor,
		log:       log,
	}
}

// RegisterRoutes mounts the authenticated invoice routes.
func (s *InvoiceService) RegisterRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	v1 := router.Group("/v1", authMiddleware)
	v1.POST("/invoices", s.handleCreate)
	v1.GET("/invoices", s.handleList)
	v1.GET("/invoices/:id", s.handleGet)
	v1.PATCH("/invoices/:id", s.handlePatch)
	v1.DELETE("/invoices/:id", s.handleDelete)
	v1.POST("/invoices/:id/reprocess", s.handleReprocess)
	v1.POST("/invoices/:id/finalize", s.handleFinalize)
}

type createInvoiceRequest struct {
	FileName       string `json:"fileName"`
	StoragePath    string `json:"storagePath"`
	ContentType    string `json:"contentType"`
	SkipProcessing bool   `json:"skipProcessing"`
}

func (s *InvoiceService) handleCreate(c *gin.Context) {
	claims, err := auth.RequireAuth(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.InvalidArgument("invalid request body"))
		return
	}
	if req.StoragePath == "" {
		s.writeError(c, common.InvalidArgument("storagePath is required"))
		return
	}

	now := time.Now()
	rec := &invoice.Record{
		ID:             uuid.New().String(),
		UserID:         claims.UID,
		Status:         invoice.StatusUploaded,
		StoragePath:    req.StoragePath,
		ContentType:    req.ContentType,
		FileName:       req.FileName,
		SkipProcessing: req.SkipProcessing,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreateInvoice(c.Request.Context(), rec); err != nil {
		s.writeError(c, err)
		return
	}

	// Kick off processing out of band, same as the storage trigger would.
	evt := DocumentCreatedEvent{
		InvoiceID:      rec.ID,
		UserID:         rec.UserID,
		Status:         rec.Status,
		StoragePath:    rec.StoragePath,
		ContentType:    rec.ContentType,
		SkipProcessing: rec.SkipProcessing,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.processor.HandleDocumentCreated(ctx, evt); err != nil {
			s.log.WithError(err).WithField("invoice_id", rec.ID).Warn("background processing failed")
		}
	}()

	c.JSON(http.StatusCreated, rec)
}

func (s *InvoiceService) handleGet(c *gin.Context) {
	rec, err := s.loadOwned(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *InvoiceService) handleList(c *gin.Context) {
	claims, err := auth.RequireAuth(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	pageSize := int32(defaultPageSize)
	if raw := c.Query("pageSize"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 {
			s.writeError(c, common.InvalidArgument("pageSize must be a positive integer"))
			return
		}
		pageSize = int32(parsed)
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	records, nextToken, err := s.store.ListInvoices(c.Request.Context(), claims.UID, pageSize, c.Query("pageToken"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if records == nil {
		records = []*invoice.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices":      records,
		"nextPageToken": nextToken,
	})
}

func (s *InvoiceService) handlePatch(c *gin.Context) {
	rec, err := s.loadOwned(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	claims, _ := auth.GetUserClaims(c.Request.Context())
	if err := invoice.CheckEdit(rec, claims.UID); err != nil {
		s.writeError(c, err)
		return
	}

	var patch invoice.FieldsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.writeError(c, common.InvalidArgument("invalid request body"))
		return
	}
	if patch.Empty() {
		s.writeError(c, common.InvalidArgument("patch names no fields"))
		return
	}

	if err := s.store.UpdateFields(c.Request.Context(), rec.ID, patch); err != nil {
		s.writeError(c, err)
		return
	}

	updated, err := s.store.GetInvoice(c.Request.Context(), rec.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *InvoiceService) handleDelete(c *gin.Context) {
	rec, err := s.loadOwned(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	claims, _ := auth.GetUserClaims(c.Request.Context())
	if err := invoice.CheckDelete(rec, claims.UID); err != nil {
		s.writeError(c, err)
		return
	}

	if rec.StoragePath != "" {
		if err := s.blobs.Delete(c.Request.Context(), rec.StoragePath); err != nil {
			s.log.WithError(err).WithField("invoice_id", rec.ID).Warn("failed to delete stored document")
		}
	}
	if err := s.store.DeleteInvoice(c.Request.Context(), rec.ID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *InvoiceService) handleReprocess(c *gin.Context) {
	if err := s.processor.Reprocess(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *InvoiceService) handleFinalize(c *gin.Context) {
	rec, err := s.loadOwned(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	claims, _ := auth.GetUserClaims(c.Request.Context())
	if err := invoice.CheckFinalize(rec, claims.UID); err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.store.Finalize(c.Request.Context(), rec.ID, time.Now()); err != nil {
		s.writeError(c, err)
		return
	}

	updated, err := s.store.GetInvoice(c.Request.Context(), rec.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// loadOwned fetches the :id record and enforces ownership. Non-owners get
// PermissionDenied rather than NotFound so the two cases stay distinguishable
// in logs; records are not secret by existence here.
func (s *InvoiceService) loadOwned(c *gin.Context) (*invoice.Record, error) {
	claims, err := auth.RequireAuth(c.Request.Context())
	if err != nil {
		return nil, err
	}

	id := c.Param("id")
	if id == "" {
		return nil, common.InvalidArgument("invoice id is required")
	}

	rec, err := s.store.GetInvoice(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != claims.UID {
		return nil, common.PermissionDenied("invoice %s does not belong to caller", id)
	}
	return rec, nil
}

func (s *InvoiceService) writeError(c *gin.Context, err error) {
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	c.JSON(status, gin.H{
		"code":  string(common.KindOf(err)),
		"error": err.Error(),
	})
}

package service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicepilot/backend/internal/invoice"
)

func pushBody(t *testing.T, evt DocumentCreatedEvent) []byte {
	t.Helper()
	data, err := json.Marshal(evt)
	require.NoError(t, err)

	body, err := json.Marshal(gin.H{
		"message": gin.H{
			"data":      base64.StdEncoding.EncodeToString(data),
			"messageId": "msg-1",
		},
		"subscription": "projects/p/subscriptions/s",
	})
	require.NoError(t, err)
	return body
}

func newPushRouter(fx *processorFixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	router := gin.New()
	router.POST("/pubsub/push", PushHandler(fx.processor, log))
	return router
}

func TestPushHandlerProcessesEvent(t *testing.T) {
	fx := newProcessorFixture()
	router := newPushRouter(fx)

	rec := uploadedRecord("inv-1", "owner")
	fx.seed(t, rec)

	req := httptest.NewRequest(http.MethodPost, "/pubsub/push", bytes.NewReader(pushBody(t, eventFor(rec))))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	stored, err := fx.store.GetInvoice(t.Context(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusNeedsReview, stored.Status)
	assert.Equal(t, 1, fx.extractor.callCount())
}

func TestPushHandlerRejectsBadEnvelope(t *testing.T) {
	fx := newProcessorFixture()
	router := newPushRouter(fx)

	req := httptest.NewRequest(http.MethodPost, "/pubsub/push", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPushHandlerAcksUndecodablePayload(t *testing.T) {
	fx := newProcessorFixture()
	router := newPushRouter(fx)

	body, err := json.Marshal(gin.H{
		"message": gin.H{
			"data":      base64.StdEncoding.EncodeToString([]byte("not an event")),
			"messageId": "msg-2",
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/pubsub/push", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code, "malformed payloads are acknowledged, not retried")
	assert.Equal(t, 0, fx.extractor.callCount())
}

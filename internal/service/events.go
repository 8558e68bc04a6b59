package service

import (
	"context"
	"encoding/json"
	"net/http"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Worker pulls document-created events from a Pub/Sub subscription and feeds
// them to the processor.
type Worker struct {
	sub       *pubsub.Subscription
	processor *Processor
	log       *logrus.Logger
}

// NewWorker binds a subscription to the processor.
func NewWorker(client *pubsub.Client, subscriptionID string, processor *Processor, log *logrus.Logger) *Worker {
	return &Worker{
		sub:       client.Subscription(subscriptionID),
		processor: processor,
		log:       log,
	}
}

// Run blocks receiving messages until the context is cancelled. Messages that
// cannot be decoded are acked, since redelivery would never help; transient
// store failures are nacked for redelivery.
func (w *Worker) Run(ctx context.Context) error {
	w.log.WithField("subscription", w.sub.ID()).Info("event worker started")

	return w.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		var evt DocumentCreatedEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			w.log.WithError(err).WithField("message_id", msg.ID).Warn("undecodable event, acking")
			msg.Ack()
			return
		}

		if err := w.processor.HandleDocumentCreated(ctx, evt); err != nil {
			w.log.WithError(err).WithField("invoice_id", evt.InvoiceID).Warn("event handling failed, nacking")
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// pushEnvelope is the wrapper Pub/Sub wraps around push deliveries. Data is
// base64 in the JSON body; encoding/json decodes it into the byte slice.
type pushEnvelope struct {
	Message struct {
		Data       []byte            `json:"data"`
		MessageID  string            `json:"messageId"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PushHandler accepts Pub/Sub push deliveries of document-created events.
// It is mounted without auth middleware; the endpoint should be reachable
// only by the push service account.
func PushHandler(processor *Processor, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var envelope pushEnvelope
		if err := c.ShouldBindJSON(&envelope); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid push envelope"})
			return
		}

		var evt DocumentCreatedEvent
		if err := json.Unmarshal(envelope.Message.Data, &evt); err != nil {
			// Acknowledge by responding 2xx; a malformed payload will never
			// decode on retry.
			log.WithError(err).WithField("message_id", envelope.Message.MessageID).Warn("undecodable push event")
			c.Status(http.StatusNoContent)
			return
		}

		if err := processor.HandleDocumentCreated(c.Request.Context(), evt); err != nil {
			log.WithError(err).WithField("invoice_id", evt.InvoiceID).Warn("push event handling failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "event handling failed"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

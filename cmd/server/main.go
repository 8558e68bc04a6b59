package main

import (
	"context"
	"fmt"
	"net/http"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	gcsstorage "cloud.google.com/go/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/invoicepilot/backend/internal/auth"
	"github.com/invoicepilot/backend/internal/blob"
	"github.com/invoicepilot/backend/internal/common"
	"github.com/invoicepilot/backend/internal/entity"
	"github.com/invoicepilot/backend/internal/extraction"
	"github.com/invoicepilot/backend/internal/service"
	"github.com/invoicepilot/backend/internal/store"
)

// stubExtractor stands in for Document AI in local development: every upload
// lands in needs_review with empty fields.
type stubExtractor struct{}

func (stubExtractor) ProcessDocument(context.Context, []byte, string) ([]entity.RawEntity, error) {
	return nil, nil
}

func main() {
	cfg := common.LoadConfig()
	log := common.Logger()
	ctx := context.Background()

	var (
		storeImpl store.Store
		blobs     blob.ObjectStore
		extractor service.Extractor
	)

	if cfg.UseMemoryStore {
		log.Info("using in-memory store for local development")
		storeImpl = store.NewMemoryStore()
		blobs = blob.NewMemoryStore()
		extractor = stubExtractor{}
	} else {
		if cfg.ProjectID == "" {
			log.Fatal("GOOGLE_CLOUD_PROJECT is required")
		}

		firestoreClient, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			log.WithError(err).Fatal("failed to create firestore client")
		}
		defer firestoreClient.Close()
		storeImpl = store.NewFirestoreStore(firestoreClient)

		gcsClient, err := gcsstorage.NewClient(ctx)
		if err != nil {
			log.WithError(err).Fatal("failed to create storage client")
		}
		defer gcsClient.Close()
		if cfg.StorageBucket == "" {
			log.Fatal("STORAGE_BUCKET is required")
		}
		blobs = blob.NewGCSStore(gcsClient.Bucket(cfg.StorageBucket))

		docai, err := extraction.NewDocAIClient(ctx, cfg.ProjectID, cfg.DocAILocation, cfg.DocAIProcessorID)
		if err != nil {
			log.WithError(err).Fatal("failed to create document ai client")
		}
		defer docai.Close()
		extractor = docai
	}

	// Auth is decided by SKIP_AUTH alone; running on the memory store does
	// not waive token verification.
	var authMiddleware gin.HandlerFunc
	if cfg.SkipAuth {
		log.Warn("SKIP_AUTH enabled, using local development identity")
		authMiddleware = auth.LocalDevMiddleware()
	} else {
		verifier, err := auth.NewFirebaseAuth(ctx)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize firebase auth")
		}
		authMiddleware = auth.Middleware(verifier)
	}

	processor := service.NewProcessor(storeImpl, blobs, extractor, log)
	invoiceService := service.NewInvoiceService(storeImpl, blobs, processor, log)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:1234", "http://127.0.0.1:1234"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Debug-User-ID"},
		AllowCredentials: true,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.POST("/pubsub/push", service.PushHandler(processor, log))
	invoiceService.RegisterRoutes(router, authMiddleware)

	if cfg.PubSubSubscription != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			log.WithError(err).Fatal("failed to create pubsub client")
		}
		defer pubsubClient.Close()

		worker := service.NewWorker(pubsubClient, cfg.PubSubSubscription, processor, log)
		go func() {
			if err := worker.Run(ctx); err != nil {
				log.WithError(err).Error("event worker stopped")
			}
		}()
	}

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.WithField("addr", addr).Info("starting server")
	if err := router.Run(addr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

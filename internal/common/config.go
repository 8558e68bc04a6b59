package common

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries all environment-driven settings for the server.
type Config struct {
	Port string

	// GCP wiring
	ProjectID     string
	StorageBucket string

	// Document AI processor used for invoice parsing.
	DocAILocation    string
	DocAIProcessorID string

	// Pub/Sub subscription delivering document-created events. Empty disables
	// the pull worker (push endpoint still works).
	PubSubSubscription string

	// Local development switches
	UseMemoryStore bool
	SkipAuth       bool
}

// LoadConfig reads configuration from the environment, loading .env first when
// present.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:               getEnv("PORT", "8111"),
		ProjectID:          os.Getenv("GOOGLE_CLOUD_PROJECT"),
		StorageBucket:      os.Getenv("STORAGE_BUCKET"),
		DocAILocation:      getEnv("DOCAI_LOCATION", "us"),
		DocAIProcessorID:   os.Getenv("DOCAI_PROCESSOR_ID"),
		PubSubSubscription: os.Getenv("PUBSUB_SUBSCRIPTION"),
		UseMemoryStore:     envBool("USE_MEMORY_STORE") || os.Getenv("ENV") == "local",
		SkipAuth:           envBool("SKIP_AUTH"),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}

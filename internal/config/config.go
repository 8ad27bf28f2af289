package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains MongoDB and embedding parameters shared by every service.
type Common struct {
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	VectorIndex     string
	EmbeddingDims   int
	VoyageURL       string
	VoyageAPIKey    string
	VoyageModel     string
}

// Ingest holds configuration for the one-shot dataset -> MongoDB pipeline.
type Ingest struct {
	Common
	DatasetURLs  []string
	DatasetToken string
	BatchSize    int
}

// Worker holds configuration for the Kafka -> MongoDB streaming worker.
type Worker struct {
	Common
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaConsumer  string
	DedupeCapacity int
	DedupeTTL      time.Duration
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr         string
	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicMaxTok  int
	SearchCandidates int
	DefaultLimit     int
	MaxLimit         int
}

func loadCommon() Common {
	return Common{
		MongoURI:        getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGODB_DATABASE", "news"),
		MongoCollection: getEnv("MONGODB_COLLECTION", "articles"),
		VectorIndex:     getEnv("VECTOR_INDEX", "vector_index"),
		EmbeddingDims:   getInt("EMBEDDING_DIMS", 1024),
		VoyageURL:       getEnv("VOYAGE_URL", "https://api.voyageai.com/v1/embeddings"),
		VoyageAPIKey:    getEnv("VOYAGE_API_KEY", ""),
		VoyageModel:     getEnv("VOYAGE_MODEL", "voyage-2"),
	}
}

func (c Common) validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI must not be empty")
	}
	if c.EmbeddingDims <= 0 {
		return fmt.Errorf("EMBEDDING_DIMS must be positive")
	}
	return nil
}

// LoadIngest builds an Ingest config from environment variables.
func LoadIngest() (*Ingest, error) {
	c := &Ingest{
		Common:       loadCommon(),
		DatasetURLs:  splitAndTrim(getEnv("DATASET_URLS", "")),
		DatasetToken: getEnv("DATASET_TOKEN", ""),
		BatchSize:    getInt("INGEST_BATCH_SIZE", 100),
	}

	if err := c.Common.validate(); err != nil {
		return nil, err
	}
	if len(c.DatasetURLs) == 0 {
		return nil, fmt.Errorf("DATASET_URLS must contain at least one location")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("INGEST_BATCH_SIZE must be positive")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common:         loadCommon(),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "articles_raw"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "articles-worker"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
	}

	if err := c.Common.validate(); err != nil {
		return nil, err
	}
	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common:           loadCommon(),
		BindAddr:         getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		AnthropicMaxTok:  getInt("ANTHROPIC_MAX_TOKENS", 1024),
		SearchCandidates: getInt("SEARCH_CANDIDATES", 100),
		DefaultLimit:     getInt("SEARCH_LIMIT", 10),
		MaxLimit:         getInt("SEARCH_MAX_LIMIT", 50),
	}

	if err := c.Common.validate(); err != nil {
		return nil, err
	}
	if c.AnthropicMaxTok <= 0 {
		return nil, fmt.Errorf("ANTHROPIC_MAX_TOKENS must be positive")
	}
	if c.SearchCandidates <= 0 {
		return nil, fmt.Errorf("SEARCH_CANDIDATES must be positive")
	}
	if c.DefaultLimit <= 0 {
		return nil, fmt.Errorf("SEARCH_LIMIT must be positive")
	}
	if c.MaxLimit <= 0 {
		return nil, fmt.Errorf("SEARCH_MAX_LIMIT must be positive")
	}
	if c.DefaultLimit > c.MaxLimit {
		return nil, fmt.Errorf("SEARCH_LIMIT cannot exceed SEARCH_MAX_LIMIT")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

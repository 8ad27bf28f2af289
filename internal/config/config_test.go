package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hexfold/newsrag/internal/config"
)

func TestLoadIngestDefaults(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("MONGODB_DATABASE", "")
	t.Setenv("MONGODB_COLLECTION", "")
	t.Setenv("VECTOR_INDEX", "")
	t.Setenv("EMBEDDING_DIMS", "")
	t.Setenv("VOYAGE_MODEL", "")
	t.Setenv("INGEST_BATCH_SIZE", "")
	t.Setenv("DATASET_URLS", "https://example.org/part1.csv")
	t.Setenv("DATASET_TOKEN", "")

	cfg, err := config.LoadIngest()
	require.NoError(t, err)

	require.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	require.Equal(t, "news", cfg.MongoDatabase)
	require.Equal(t, "articles", cfg.MongoCollection)
	require.Equal(t, "vector_index", cfg.VectorIndex)
	require.Equal(t, 1024, cfg.EmbeddingDims)
	require.Equal(t, "voyage-2", cfg.VoyageModel)
	require.Equal(t, 100, cfg.BatchSize)
	require.Len(t, cfg.DatasetURLs, 1)
}

func TestLoadIngestRequiresURLs(t *testing.T) {
	t.Setenv("DATASET_URLS", "")

	_, err := config.LoadIngest()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATASET_URLS")
}

func TestLoadIngestSplitsURLs(t *testing.T) {
	t.Setenv("DATASET_URLS", " https://a/x.csv , https://b/y.csv ,")

	cfg, err := config.LoadIngest()
	require.NoError(t, err)
	require.Equal(t, []string{"https://a/x.csv", "https://b/y.csv"}, cfg.DatasetURLs)
}

func TestLoadWorkerDefaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_CONSUMER_GROUP", "")
	t.Setenv("WORKER_DEDUPE_CAPACITY", "")
	t.Setenv("WORKER_DEDUPE_TTL", "")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Len(t, cfg.KafkaBrokers, 1)
	require.Equal(t, "kafka:9092", cfg.KafkaBrokers[0])
	require.Equal(t, "articles_raw", cfg.KafkaTopic)
	require.Equal(t, "articles-worker", cfg.KafkaConsumer)
	require.Equal(t, 20000, cfg.DedupeCapacity)
	require.Equal(t, 24*time.Hour, cfg.DedupeTTL)
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "one:9092,two:9092")
	t.Setenv("KAFKA_TOPIC", "feed")
	t.Setenv("WORKER_DEDUPE_TTL", "30m")
	t.Setenv("EMBEDDING_DIMS", "512")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, []string{"one:9092", "two:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "feed", cfg.KafkaTopic)
	require.Equal(t, 30*time.Minute, cfg.DedupeTTL)
	require.Equal(t, 512, cfg.EmbeddingDims)
}

func TestLoadWorkerRejectsBadDims(t *testing.T) {
	t.Setenv("EMBEDDING_DIMS", "-1")

	_, err := config.LoadWorker()
	require.Error(t, err)
	require.Contains(t, err.Error(), "EMBEDDING_DIMS")
}

func TestLoadAPIDefaults(t *testing.T) {
	t.Setenv("API_BIND_ADDR", "")
	t.Setenv("SEARCH_CANDIDATES", "")
	t.Setenv("SEARCH_LIMIT", "")
	t.Setenv("SEARCH_MAX_LIMIT", "")
	t.Setenv("ANTHROPIC_MAX_TOKENS", "")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.BindAddr)
	require.Equal(t, 100, cfg.SearchCandidates)
	require.Equal(t, 10, cfg.DefaultLimit)
	require.Equal(t, 50, cfg.MaxLimit)
	require.Equal(t, 1024, cfg.AnthropicMaxTok)
}

func TestLoadAPIRejectsLimitAboveMax(t *testing.T) {
	t.Setenv("SEARCH_LIMIT", "60")
	t.Setenv("SEARCH_MAX_LIMIT", "50")

	_, err := config.LoadAPI()
	require.Error(t, err)
	require.Contains(t, err.Error(), "SEARCH_LIMIT")
}

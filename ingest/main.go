package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/hexfold/newsrag/internal/config"
	"github.com/hexfold/newsrag/internal/dataset"
	"github.com/hexfold/newsrag/internal/embedding"
	"github.com/hexfold/newsrag/internal/logger"
	"github.com/hexfold/newsrag/internal/models"
	"github.com/hexfold/newsrag/internal/mongodb"
	"github.com/hexfold/newsrag/internal/processing"
)

type recordEmbedder interface {
	Embed(ctx context.Context, text string, kind embedding.InputType) ([]float32, error)
}

type batchIngester interface {
	Clear(ctx context.Context) (int64, error)
	Ingest(ctx context.Context, records []models.ArticleRecord) error
	Count(ctx context.Context) (int64, error)
}

func main() {
	_ = godotenv.Load()

	log := logger.FromEnv("ingest")
	cfg, err := config.LoadIngest()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := mongodb.New(connectCtx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, cfg.VectorIndex, log)
	cancel()
	if err != nil {
		log.Error("init mongodb", slog.Any("err", err))
		os.Exit(1)
	}
	defer store.Close(context.Background())

	loader := dataset.NewLoader(cfg.DatasetToken, log)
	embedder := embedding.NewClient(cfg.VoyageURL, cfg.VoyageAPIKey, cfg.VoyageModel, cfg.EmbeddingDims)

	if err := run(ctx, log, cfg, loader, embedder, store); err != nil {
		log.Error("ingest failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cfg *config.Ingest, loader *dataset.Loader, embedder recordEmbedder, store batchIngester) error {
	records, err := loader.Load(ctx, cfg.DatasetURLs)
	if err != nil {
		return err
	}
	log.Info("corpus loaded", slog.Int("records", len(records)))

	embedded, err := embedRecords(ctx, log, embedder, records)
	if err != nil {
		return err
	}
	log.Info("corpus embedded",
		slog.Int("embedded", len(embedded)),
		slog.Int("skipped", len(records)-len(embedded)),
	)

	deleted, err := store.Clear(ctx)
	if err != nil {
		return err
	}
	log.Info("collection cleared", slog.Int64("deleted", deleted))

	for start := 0; start < len(embedded); start += cfg.BatchSize {
		end := min(start+cfg.BatchSize, len(embedded))
		if err := store.Ingest(ctx, embedded[start:end]); err != nil {
			return err
		}
	}

	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	log.Info("ingest complete", slog.Int64("stored", total))

	return nil
}

// embedRecords fills in embeddings and deterministic IDs. Records whose
// description is blank get an empty vector from the embedder; storing those
// would make them unsearchable, so they are dropped with a warning instead.
// Repeated corpus rows are stored, not merged: a colliding deterministic ID
// would sink the whole InsertMany on a duplicate key, so later occurrences
// fall back to a generated id.
func embedRecords(ctx context.Context, log *slog.Logger, embedder recordEmbedder, records []models.ArticleRecord) ([]models.ArticleRecord, error) {
	out := make([]models.ArticleRecord, 0, len(records))
	ids := make(map[string]struct{}, len(records))

	for _, rec := range records {
		vector, err := embedder.Embed(ctx, processing.NormalizeText(rec.Description), embedding.InputDocument)
		if err != nil {
			if errors.Is(err, embedding.ErrEmptyInput) {
				log.Warn("record skipped: blank description", slog.String("title", rec.Title))
				continue
			}
			return nil, err
		}

		rec.Embedding = vector
		if rec.ID == "" {
			rec.ID = processing.BuildDocumentID(rec.Title, rec.ArticleURL)
		}
		if _, dup := ids[rec.ID]; dup || rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		ids[rec.ID] = struct{}{}
		out = append(out, rec)
	}

	return out, nil
}

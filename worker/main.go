package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	"github.com/hexfold/newsrag/internal/config"
	"github.com/hexfold/newsrag/internal/dedupe"
	"github.com/hexfold/newsrag/internal/embedding"
	"github.com/hexfold/newsrag/internal/logger"
	"github.com/hexfold/newsrag/internal/models"
	"github.com/hexfold/newsrag/internal/mongodb"
	"github.com/hexfold/newsrag/internal/processing"
)

type rawArticle struct {
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	CompanyURL  string `json:"company_url"`
	PublishedAt string `json:"published_at"`
	ArticleURL  string `json:"article_url"`
	Description string `json:"description"`
}

type recordInserter interface {
	Insert(ctx context.Context, rec models.ArticleRecord) error
}

type textEmbedder interface {
	Embed(ctx context.Context, text string, kind embedding.InputType) ([]float32, error)
}

func main() {
	_ = godotenv.Load()

	log := logger.FromEnv("worker")
	cfg, err := config.LoadWorker()
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

	embedder := embedding.NewClient(cfg.VoyageURL, cfg.VoyageAPIKey, cfg.VoyageModel, cfg.EmbeddingDims)
	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // Disable auto-commit; manual commit only
	})
	defer reader.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic + "_dlq",
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", cfg.KafkaTopic+"_dlq"),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, store, embedder, cache, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			if !sendToDLQ(ctx, log, dlqWriter, msg, err) {
				log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// sendToDLQ forwards a failed message with error context, retrying with
// exponential backoff. Returns false when every attempt failed; the caller
// must then skip the commit so the message is reprocessed on restart.
func sendToDLQ(ctx context.Context, log *slog.Logger, writer *kafka.Writer, msg kafka.Message, cause error) bool {
	dlqMsg := kafka.Message{
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := 0; attempt < 5; attempt++ {
		if err := writer.WriteMessages(ctx, dlqMsg); err == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		} else {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			log.Warn("DLQ write failed, retrying",
				slog.Any("err", err),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return false
			}
		}
	}

	return false
}

func processMessage(ctx context.Context, log *slog.Logger, store recordInserter, embedder textEmbedder, cache *dedupe.Cache, msg kafka.Message) error {
	var payload rawArticle
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return err
	}

	title := strings.TrimSpace(payload.Title)
	description := processing.NormalizeText(payload.Description)
	if title == "" && description == "" {
		return errors.New("empty payload")
	}

	ts := parseTimestamp(payload.PublishedAt)
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	rec := models.ArticleRecord{
		ID:          processing.BuildDocumentID(title, strings.TrimSpace(payload.ArticleURL)),
		Title:       title,
		CompanyName: strings.TrimSpace(payload.CompanyName),
		CompanyURL:  strings.TrimSpace(payload.CompanyURL),
		PublishedAt: ts,
		ArticleURL:  strings.TrimSpace(payload.ArticleURL),
		Description: strings.TrimSpace(payload.Description),
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	if cache.IsSeen(rec.ID) {
		log.Debug("duplicate article", slog.String("id", rec.ID))
		return nil
	}

	vector, err := embedder.Embed(ctx, description, embedding.InputDocument)
	if err != nil {
		if errors.Is(err, embedding.ErrEmptyInput) {
			log.Warn("article skipped: blank description", slog.String("id", rec.ID))
			return nil
		}
		return err
	}
	rec.Embedding = vector

	if err := store.Insert(ctx, rec); err != nil {
		return err
	}

	cache.MarkSeen(rec.ID)
	log.Info("article indexed", slog.String("id", rec.ID), slog.String("title", rec.Title))
	return nil
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, f := range formats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts
		}
	}

	return time.Time{}
}

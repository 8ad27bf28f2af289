package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/hexfold/newsrag/internal/dedupe"
	"github.com/hexfold/newsrag/internal/embedding"
	"github.com/hexfold/newsrag/internal/models"
)

type stubInserter struct {
	records []models.ArticleRecord
	err     error
}

func (s *stubInserter) Insert(_ context.Context, rec models.ArticleRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

type stubEmbedder struct {
	vector []float32
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, text string, _ embedding.InputType) ([]float32, error) {
	if len(text) == 0 {
		return nil, embedding.ErrEmptyInput
	}
	s.calls++
	return s.vector, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func articleMessage(t *testing.T, payload rawArticle) kafka.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestProcessMessageInsertsRecord(t *testing.T) {
	cache := dedupe.NewCache(100, time.Hour)
	store := &stubInserter{}
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2}}

	msg := articleMessage(t, rawArticle{
		Title:       "Acme ships widgets",
		CompanyName: "Acme",
		CompanyURL:  "https://acme.test",
		PublishedAt: "2024-01-02T15:04:05Z",
		ArticleURL:  "https://news.test/acme",
		Description: "Acme announced &amp; shipped widgets.",
	})

	require.NoError(t, processMessage(context.Background(), testLogger(), store, embedder, cache, msg))
	require.Len(t, store.records, 1)

	rec := store.records[0]
	require.Equal(t, "Acme ships widgets", rec.Title)
	require.Equal(t, "Acme", rec.CompanyName)
	require.Equal(t, []float32{0.1, 0.2}, rec.Embedding)
	require.NotEmpty(t, rec.ID)
	require.Equal(t, 2024, rec.PublishedAt.Year())

	// Redelivery of the same article is absorbed by the dedupe cache.
	require.NoError(t, processMessage(context.Background(), testLogger(), store, embedder, cache, msg))
	require.Len(t, store.records, 1)
	require.Equal(t, 1, embedder.calls)
}

func TestProcessMessageSkipsBlankDescription(t *testing.T) {
	cache := dedupe.NewCache(100, time.Hour)
	store := &stubInserter{}
	embedder := &stubEmbedder{}

	msg := articleMessage(t, rawArticle{
		Title:       "No body",
		ArticleURL:  "https://news.test/empty",
		Description: "   ",
	})

	require.NoError(t, processMessage(context.Background(), testLogger(), store, embedder, cache, msg))
	require.Empty(t, store.records)
	require.Zero(t, embedder.calls)
}

func TestProcessMessageRejectsEmptyPayload(t *testing.T) {
	cache := dedupe.NewCache(100, time.Hour)
	store := &stubInserter{}
	embedder := &stubEmbedder{vector: []float32{1}}

	msg := articleMessage(t, rawArticle{})
	require.Error(t, processMessage(context.Background(), testLogger(), store, embedder, cache, msg))
}

func TestProcessMessageRejectsBadJSON(t *testing.T) {
	cache := dedupe.NewCache(100, time.Hour)
	store := &stubInserter{}
	embedder := &stubEmbedder{vector: []float32{1}}

	msg := kafka.Message{Value: []byte("{not json")}
	require.Error(t, processMessage(context.Background(), testLogger(), store, embedder, cache, msg))
}

func TestProcessMessagePropagatesInsertFailure(t *testing.T) {
	cache := dedupe.NewCache(100, time.Hour)
	store := &stubInserter{err: errors.New("mongo down")}
	embedder := &stubEmbedder{vector: []float32{1}}

	msg := articleMessage(t, rawArticle{Title: "x", Description: "y"})
	err := processMessage(context.Background(), testLogger(), store, embedder, cache, msg)
	require.Error(t, err)

	// Failed inserts must stay unmarked so a retry can succeed.
	msg2 := articleMessage(t, rawArticle{Title: "x", Description: "y"})
	store.err = nil
	require.NoError(t, processMessage(context.Background(), testLogger(), store, embedder, cache, msg2))
	require.Len(t, store.records, 1)
}

func TestParseTimestamp(t *testing.T) {
	ts := parseTimestamp("2024-02-03T04:05:06Z")
	require.False(t, ts.IsZero())
	require.Equal(t, 2024, ts.Year())
	require.Equal(t, 2, int(ts.Month()))

	legacy := parseTimestamp("2024-02-03 04:05:06")
	require.False(t, legacy.IsZero())
	require.Equal(t, 3, legacy.Day())

	dateOnly := parseTimestamp("2024-02-03")
	require.False(t, dateOnly.IsZero())

	require.True(t, parseTimestamp("invalid").IsZero())
	require.True(t, parseTimestamp("").IsZero())
}

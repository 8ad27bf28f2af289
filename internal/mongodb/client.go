package mongodb

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hexfold/newsrag/internal/models"
)

// Client wraps the MongoDB driver with helpers tailored to this project.
// Vector search relies on an Atlas index over the "embedding" field,
// configured out-of-band with cosine similarity and a fixed dimensionality.
type Client struct {
	mc    *mongo.Client
	coll  *mongo.Collection
	index string
	log   *slog.Logger
}

// New connects to MongoDB and verifies reachability with a ping.
func New(ctx context.Context, uri, database, collection, index string, logger *slog.Logger) (*Client, error) {
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := mc.Ping(ctx, readpref.Primary()); err != nil {
		_ = mc.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		mc:    mc,
		coll:  mc.Database(database).Collection(collection),
		index: index,
		log:   logger,
	}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close(ctx context.Context) error {
	return c.mc.Disconnect(ctx)
}

// Ping checks if MongoDB is available.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.mc.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}
	return nil
}

// Clear deletes every record in the collection. Destructive; used to make
// re-ingestion idempotent.
func (c *Client) Clear(ctx context.Context) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("clear collection: %w", err)
	}
	return res.DeletedCount, nil
}

// Count returns the number of records in the collection.
func (c *Client) Count(ctx context.Context) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Ingest inserts a batch of records in one ordered InsertMany. Every record
// must already carry an embedding; a record without one would be stored but
// never found by vector search, so the whole batch is rejected up front.
func (c *Client) Ingest(ctx context.Context, records []models.ArticleRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(records))
	for i, rec := range records {
		if len(rec.Embedding) == 0 {
			return fmt.Errorf("record %d (%q) has no embedding", i, rec.Title)
		}
		docs = append(docs, rec)
	}

	if _, err := c.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert batch of %d: %w", len(docs), err)
	}

	c.log.Debug("batch inserted", slog.Int("records", len(docs)))
	return nil
}

// Insert stores a single record; the streaming worker's path. ReplaceOne
// with upsert keeps re-delivered messages idempotent under deterministic
// document IDs.
func (c *Client) Insert(ctx context.Context, rec models.ArticleRecord) error {
	if len(rec.Embedding) == 0 {
		return fmt.Errorf("record %q has no embedding", rec.Title)
	}

	filter := bson.D{{Key: "_id", Value: rec.ID}}
	opts := options.Replace().SetUpsert(true)
	if _, err := c.coll.ReplaceOne(ctx, filter, rec, opts); err != nil {
		return fmt.Errorf("insert record %q: %w", rec.ID, err)
	}

	return nil
}

// VectorSearch returns up to limit records nearest to the query vector by
// cosine similarity, scored and ordered non-increasing. Internal id and
// embedding fields are projected away. Tie order among equal scores is
// whatever the store returns.
func (c *Client) VectorSearch(ctx context.Context, vector []float32, numCandidates, limit int) ([]models.ScoredArticle, error) {
	pipeline := searchPipeline(c.index, vector, numCandidates, limit)

	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer cur.Close(ctx)

	var results []models.ScoredArticle
	if err := cur.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}

	return results, nil
}

// searchPipeline builds the two-stage aggregation: a $vectorSearch over the
// embedding field followed by a projection that drops _id and embedding and
// surfaces the similarity score.
func searchPipeline(index string, vector []float32, numCandidates, limit int) mongo.Pipeline {
	if limit <= 0 {
		limit = 10
	}
	if numCandidates < limit {
		numCandidates = limit * 10
	}

	return mongo.Pipeline{
		bson.D{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: index},
			{Key: "path", Value: "embedding"},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: numCandidates},
			{Key: "limit", Value: limit},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "embedding", Value: 0},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}
}

package models

import "time"

// ArticleRecord is the canonical structure stored in MongoDB. The embedding
// lives next to the article fields so a single Atlas vector index over
// "embedding" covers the whole collection.
type ArticleRecord struct {
	ID          string    `bson:"_id,omitempty" json:"id,omitempty"`
	Title       string    `bson:"title" json:"title"`
	CompanyName string    `bson:"company_name" json:"company_name"`
	CompanyURL  string    `bson:"company_url" json:"company_url"`
	PublishedAt time.Time `bson:"published_at" json:"published_at"`
	ArticleURL  string    `bson:"article_url" json:"article_url"`
	Description string    `bson:"description" json:"description"`
	Embedding   []float32 `bson:"embedding,omitempty" json:"-"`
}

// ScoredArticle is what vector search returns: the article fields without
// the internal id and embedding, annotated with a similarity score.
type ScoredArticle struct {
	Title       string    `bson:"title" json:"title"`
	CompanyName string    `bson:"company_name" json:"company_name"`
	CompanyURL  string    `bson:"company_url" json:"company_url"`
	PublishedAt time.Time `bson:"published_at" json:"published_at"`
	ArticleURL  string    `bson:"article_url" json:"article_url"`
	Description string    `bson:"description" json:"description"`
	Score       float64   `bson:"score" json:"score"`
}

// Answer bundles the generated text with the retrieval it was conditioned on.
type Answer struct {
	Text    string          `json:"answer"`
	Context string          `json:"context"`
	Sources []ScoredArticle `json:"sources"`
}

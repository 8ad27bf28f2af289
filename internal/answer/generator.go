package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hexfold/newsrag/internal/models"
)

const systemPrompt = "You are a helpful assistant that answers questions " +
	"about technology news. Base your answer only on the article context " +
	"you are given; if the context does not contain the answer, say so."

const instruction = "Answer the following question using only the context below.\n\nQuestion: "

// Generator turns a question plus retrieved articles into a grounded
// natural-language answer via one synchronous Messages call.
type Generator struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewGenerator builds a generator bound to one model and token budget.
func NewGenerator(apiKey, model string, maxTokens int) *Generator {
	return &Generator{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
	}
}

// Answer renders the results into a context block, issues a single request,
// and returns the model's first text segment together with the context it
// was conditioned on. An empty result list still produces a valid request
// with an empty context block. Errors propagate to the caller; there is no
// retry.
func (g *Generator) Answer(ctx context.Context, question string, results []models.ScoredArticle) (*models.Answer, error) {
	contextBlock := BuildContext(results)

	prompt := instruction + question + "\n\nContext:\n" + contextBlock

	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, Type: "text"},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text content returned")
	}

	return &models.Answer{
		Text:    text,
		Context: contextBlock,
		Sources: results,
	}, nil
}

// BuildContext renders each retrieved article into a fixed line format and
// concatenates the blocks. Deterministic and side-effect free so prompt
// construction stays testable without the API.
func BuildContext(results []models.ScoredArticle) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "Title: %s\n", r.Title)
		fmt.Fprintf(&b, "Company Name: %s\n", r.CompanyName)
		fmt.Fprintf(&b, "Company URL: %s\n", r.CompanyURL)
		fmt.Fprintf(&b, "Date Published: %s\n", formatDate(r.PublishedAt))
		fmt.Fprintf(&b, "Article URL: %s\n", r.ArticleURL)
		fmt.Fprintf(&b, "Description: %s\n", r.Description)
		b.WriteString("\n")
	}
	return b.String()
}

func formatDate(ts time.Time) string {
	if ts.IsZero() {
		return "unknown"
	}
	return ts.Format("2006-01-02")
}

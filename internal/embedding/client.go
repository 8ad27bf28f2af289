package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrEmptyInput is returned together with an empty vector when the text to
// embed is blank. The remote service is not called in that case; callers
// that want the historical lenient behavior can ignore the error and treat
// the empty vector as "nothing to index".
var ErrEmptyInput = errors.New("embedding: empty input text")

// InputType tags a request so the service can optimize document versus
// query embeddings.
type InputType string

const (
	InputDocument InputType = "document"
	InputQuery    InputType = "query"
)

// Client talks to a Voyage-style embedding HTTP API.
type Client struct {
	url    string
	apiKey string
	model  string
	dims   int
	http   *http.Client
}

// NewClient creates a reusable HTTP client. dims > 0 enables a
// dimensionality check on every response; a mismatched vector would be
// unsearchable once stored, so it is rejected here.
func NewClient(url, apiKey, model string, dims int) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		model:  model,
		dims:   dims,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

type embedRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed converts one text into one embedding vector with a single
// synchronous call. Blank or whitespace-only text yields a nil vector and
// ErrEmptyInput without touching the remote service.
func (c *Client) Embed(ctx context.Context, text string, kind InputType) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	body, err := json.Marshal(embedRequest{
		Input:     []string{text},
		Model:     c.model,
		InputType: string(kind),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("embedding service %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}

	if len(parsed.Data) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(parsed.Data))
	}

	vector := parsed.Data[0].Embedding
	if c.dims > 0 && len(vector) != c.dims {
		return nil, fmt.Errorf("embedding has %d dimensions, index expects %d", len(vector), c.dims)
	}

	return vector, nil
}

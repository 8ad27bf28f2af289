package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hexfold/newsrag/internal/models"
)

// FetchError signals that a single dataset location could not be retrieved.
// The loader logs it and moves on to the next location.
type FetchError struct {
	URL    string
	Status string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %s", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Loader fetches remote CSV dataset files with bearer-token auth and
// flattens them into a single ordered slice of article records.
type Loader struct {
	token string
	http  *http.Client
	log   *slog.Logger
}

// NewLoader creates a reusable loader.
func NewLoader(token string, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		token: token,
		http:  &http.Client{Timeout: 60 * time.Second},
		log:   log,
	}
}

// Load retrieves every location in order. A failed location is logged and
// skipped; rows from successful locations are concatenated in request
// order. An error is returned only when no location could be fetched.
func (l *Loader) Load(ctx context.Context, urls []string) ([]models.ArticleRecord, error) {
	var records []models.ArticleRecord
	succeeded := 0

	for _, url := range urls {
		rows, err := l.fetch(ctx, url)
		if err != nil {
			l.log.Warn("dataset location skipped", slog.String("url", url), slog.Any("err", err))
			continue
		}
		succeeded++
		records = append(records, rows...)
		l.log.Info("dataset location loaded", slog.String("url", url), slog.Int("rows", len(rows)))
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("all %d dataset locations failed", len(urls))
	}

	return records, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]models.ArticleRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Status: resp.Status}
	}

	records, err := parseCSV(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	return records, nil
}

// parseCSV decodes a header-first CSV stream into article records. Column
// order is taken from the header so files may arrange columns freely.
func parseCSV(r io.Reader) ([]models.ArticleRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"title", "description"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []models.ArticleRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		records = append(records, models.ArticleRecord{
			Title:       field(row, "title"),
			CompanyName: field(row, "company_name"),
			CompanyURL:  field(row, "company_url"),
			PublishedAt: parseTimestamp(field(row, "published_at")),
			ArticleURL:  field(row, "article_url"),
			Description: field(row, "description"),
		})
	}

	return records, nil
}

func parseTimestamp(raw string) time.Time {
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

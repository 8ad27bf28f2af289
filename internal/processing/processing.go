package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeText decodes HTML entities and squeezes whitespace so the
// embedding service sees clean prose. Punctuation and URLs are kept: both
// carry meaning for the embedding model.
func NormalizeText(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	decoded = whitespace.ReplaceAllString(decoded, " ")
	return strings.TrimSpace(decoded)
}

// BuildDocumentID hashes the most stable fields to form deterministic IDs,
// so the streaming worker's upsert overwrites a redelivered article instead
// of duplicating it. Batch ingestion stores repeated rows as-is and must
// uniquify colliding IDs itself.
func BuildDocumentID(title, articleURL string) string {
	title = strings.TrimSpace(title)
	articleURL = strings.TrimSpace(articleURL)
	if title == "" && articleURL == "" {
		return ""
	}
	s := sha1.Sum([]byte(title + "|" + articleURL))
	return hex.EncodeToString(s[:])
}

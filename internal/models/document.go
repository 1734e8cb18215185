package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Document is a single knowledge-base entry. Documents are keyed by ID;
// re-ingesting an existing ID replaces content, metadata and embedding.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"-"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// Validate checks the fields ingestion requires. A document that fails
// validation is marked failed in the queue without blocking its batch.
func (d Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ValidationError{Field: "id", Message: "document id must not be empty"}
	}
	if strings.TrimSpace(d.Content) == "" {
		return ValidationError{Field: "content", Message: "document content must not be empty"}
	}
	return nil
}

// Excerpt returns the first n runes of the content, with an ellipsis when
// the content was longer.
func (d Document) Excerpt(n int) string {
	if utf8.RuneCountInString(d.Content) <= n {
		return d.Content
	}
	runes := []rune(d.Content)
	return string(runes[:n]) + "..."
}

// ValidationError marks input that is rejected immediately and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

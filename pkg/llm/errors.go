package llm

import "fmt"

// GenerationError means the generation API failed after exhausting retries.
// Callers treat it as a degraded-path signal and fall back to an extractive
// answer, not as a crash.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// EmbeddingError means the embedding API failed after exhausting retries.
type EmbeddingError struct {
	Attempts int
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// RateLimitError marks a transient rate-limit signal from the provider.
// It triggers the backoff schedule before becoming terminal, at which point
// it is wrapped in GenerationError or EmbeddingError.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

package types

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	"github.com/arogyaswarm/medrag/internal/models"
)

// LanguageModel is the narrow capability surface consumed from a hosted
// model provider. Both langchaingo providers used here (googleai, ollama)
// satisfy it, as do the deterministic stubs in tests.
type LanguageModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces text for a grounded prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// DocumentStore is the durable document table. Upserts are atomic per
// document; readers never observe a half-written row.
type DocumentStore interface {
	Upsert(ctx context.Context, doc models.Document) error
	FetchAll(ctx context.Context) ([]models.Document, error)
	FetchByIDs(ctx context.Context, ids []string) ([]models.Document, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// QueueStore persists ingestion queue items across restarts.
type QueueStore interface {
	EnqueueItems(ctx context.Context, items []models.QueueItem) error
	ItemsByStatus(ctx context.Context, statuses ...models.QueueStatus) ([]models.QueueItem, error)
	UpdateItem(ctx context.Context, item models.QueueItem) error
}

// EmbeddingCache maps previously embedded text to its vector so identical
// text is never embedded twice.
type EmbeddingCache interface {
	Get(text string) ([]float32, bool)
	Put(text string, embedding []float32) error
}

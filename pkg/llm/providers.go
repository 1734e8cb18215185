package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/arogyaswarm/medrag/internal/types"
)

// NewGoogleAI returns a hosted Gemini-backed model. This is the provider the
// production deployment uses.
func NewGoogleAI(ctx context.Context, apiKey, model, embeddingModel string) (types.LanguageModel, error) {
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
		googleai.WithDefaultEmbeddingModel(embeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize googleai provider: %w", err)
	}
	return client, nil
}

// NewOllama returns a local Ollama-backed model, useful for air-gapped
// development.
func NewOllama(baseURL, model string) (types.LanguageModel, error) {
	client, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama provider: %w", err)
	}
	return client, nil
}

package llm_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/arogyaswarm/medrag/internal/models"
	"github.com/arogyaswarm/medrag/pkg/llm"
)

// stubModel scripts provider behavior: it returns the queued errors in order,
// then succeeds.
type stubModel struct {
	mu            sync.Mutex
	generateCalls int
	embedCalls    int
	generateErrs  []error
	embedErrs     []error
	response      string
	embedding     []float32
}

func (s *stubModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generateCalls++
	if len(s.generateErrs) > 0 {
		err := s.generateErrs[0]
		s.generateErrs = s.generateErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: s.response}},
	}, nil
}

func (s *stubModel) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedCalls++
	if len(s.embedErrs) > 0 {
		err := s.embedErrs[0]
		s.embedErrs = s.embedErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.embedding
	}
	return out, nil
}

func fastPolicy() llm.RetryPolicy {
	return llm.RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		PerCallTimeout: time.Second,
	}
}

func newTestClient(t *testing.T, model *stubModel) *llm.Client {
	t.Helper()
	client, err := llm.NewClient(llm.ClientConfig{
		Model:             model,
		Policy:            fastPolicy(),
		RequestsPerSecond: 10000,
	})
	require.NoError(t, err)
	return client
}

func TestGenerateSuccess(t *testing.T) {
	model := &stubModel{response: "the answer"}
	client := newTestClient(t, model)

	out, err := client.Generate(context.Background(), "prompt", 512)
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)
	assert.Equal(t, 1, model.generateCalls)
}

func TestGenerateRetriesRateLimitThenSucceeds(t *testing.T) {
	model := &stubModel{
		response: "eventually",
		generateErrs: []error{
			errors.New("429 rate limit exceeded"),
			errors.New("429 rate limit exceeded"),
		},
	}
	client := newTestClient(t, model)

	out, err := client.Generate(context.Background(), "prompt", 512)
	require.NoError(t, err)
	assert.Equal(t, "eventually", out)
	assert.Equal(t, 3, model.generateCalls)
}

func TestGenerateNonTransientFailsImmediately(t *testing.T) {
	model := &stubModel{
		generateErrs: []error{errors.New("API key not valid")},
	}
	client := newTestClient(t, model)

	_, err := client.Generate(context.Background(), "prompt", 512)

	var genErr *llm.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 1, genErr.Attempts)
	assert.Equal(t, 1, model.generateCalls)
}

func TestGenerateExhaustsRetries(t *testing.T) {
	model := &stubModel{
		generateErrs: []error{
			errors.New("429 rate limit exceeded"),
			errors.New("429 rate limit exceeded"),
			errors.New("429 rate limit exceeded"),
		},
	}
	client := newTestClient(t, model)

	_, err := client.Generate(context.Background(), "prompt", 512)

	var genErr *llm.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 3, genErr.Attempts)
	assert.Equal(t, 3, model.generateCalls)

	var rle *llm.RateLimitError
	assert.ErrorAs(t, err, &rle)
}

func TestGenerateEmptyPrompt(t *testing.T) {
	client := newTestClient(t, &stubModel{response: "x"})

	_, err := client.Generate(context.Background(), "", 512)

	var verr models.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestGenerateEmptyResponseIsTerminal(t *testing.T) {
	model := &stubModel{response: ""}
	client := newTestClient(t, model)

	_, err := client.Generate(context.Background(), "prompt", 512)

	var genErr *llm.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 1, model.generateCalls)
}

func TestGenerateStopsWhenBudgetExpires(t *testing.T) {
	model := &stubModel{
		generateErrs: []error{
			errors.New("503 service unavailable"),
			errors.New("503 service unavailable"),
			errors.New("503 service unavailable"),
		},
	}
	client, err := llm.NewClient(llm.ClientConfig{
		Model: model,
		Policy: llm.RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     time.Second,
			PerCallTimeout: time.Second,
		},
		RequestsPerSecond: 10000,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = client.Generate(ctx, "prompt", 512)

	var genErr *llm.GenerationError
	require.ErrorAs(t, err, &genErr)
	// The budget cuts the backoff short: no full 200ms+400ms retry schedule.
	assert.Less(t, time.Since(start), 300*time.Millisecond)
	assert.Less(t, model.generateCalls, 3)
}

func TestEmbedSuccess(t *testing.T) {
	model := &stubModel{embedding: []float32{0.1, 0.2}}
	client := newTestClient(t, model)

	vec, err := client.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
	assert.Equal(t, 1, model.embedCalls)
}

func TestEmbedExhaustsRetries(t *testing.T) {
	model := &stubModel{
		embedding: []float32{1},
		embedErrs: []error{
			errors.New("connection reset by peer"),
			errors.New("connection reset by peer"),
			errors.New("connection reset by peer"),
		},
	}
	client := newTestClient(t, model)

	_, err := client.Embed(context.Background(), "text")

	var embErr *llm.EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, 3, embErr.Attempts)
}

func TestEmbedNonTransientFailsImmediately(t *testing.T) {
	model := &stubModel{
		embedding: []float32{1},
		embedErrs: []error{errors.New("invalid request: text too long")},
	}
	client := newTestClient(t, model)

	_, err := client.Embed(context.Background(), "text")

	var embErr *llm.EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, 1, model.embedCalls)
}

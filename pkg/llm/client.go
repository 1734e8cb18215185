// Package llm wraps the hosted model behind a narrow embed/generate surface
// with retry, backoff, per-attempt timeouts and request rate limiting.
package llm

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"

	"github.com/arogyaswarm/medrag/internal/models"
	"github.com/arogyaswarm/medrag/internal/types"
)

type ClientConfig struct {
	Model             types.LanguageModel
	Policy            RetryPolicy
	RequestsPerSecond float64
	Temperature       float64
	Logger            *logrus.Logger
}

// Client calls the external model under a retry policy. It is safe for
// concurrent use.
type Client struct {
	model       types.LanguageModel
	policy      RetryPolicy
	limiter     *rate.Limiter
	temperature float64
	logger      *logrus.Entry
}

func NewClient(config ClientConfig) (*Client, error) {
	if config.Model == nil {
		return nil, errors.New("llm: model is required")
	}
	if config.Policy.MaxAttempts == 0 {
		config.Policy = DefaultRetryPolicy()
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = 2.0
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	return &Client{
		model:       config.Model,
		policy:      config.Policy,
		limiter:     rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		temperature: config.Temperature,
		logger:      config.Logger.WithField("component", "llm"),
	}, nil
}

// Generate produces text for prompt, bounded by maxTokens. Transient
// failures are retried per the policy; after exhaustion a GenerationError
// is returned for the caller to degrade on.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if prompt == "" {
		return "", models.ValidationError{Field: "prompt", Message: "prompt must not be empty"}
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var out string
	attempts, err := c.withRetry(ctx, "generate", func(attemptCtx context.Context) error {
		resp, err := c.model.GenerateContent(attemptCtx, messages,
			llms.WithMaxTokens(maxTokens),
			llms.WithTemperature(c.temperature),
		)
		if err != nil {
			return err
		}
		if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
			return errors.New("empty response from model")
		}
		out = resp.Choices[0].Content
		return nil
	})
	if err != nil {
		return "", &GenerationError{Attempts: attempts, Err: err}
	}

	return out, nil
}

// Embed returns the embedding vector for text, retried like Generate.
// After exhaustion an EmbeddingError is returned.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, models.ValidationError{Field: "text", Message: "text must not be empty"}
	}

	var out []float32
	attempts, err := c.withRetry(ctx, "embed", func(attemptCtx context.Context) error {
		vectors, err := c.model.CreateEmbedding(attemptCtx, []string{text})
		if err != nil {
			return err
		}
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			return errors.New("empty embedding from model")
		}
		out = vectors[0]
		return nil
	})
	if err != nil {
		return nil, &EmbeddingError{Attempts: attempts, Err: err}
	}

	return out, nil
}

// withRetry runs op under the retry policy: each attempt is rate limited and
// bounded by the per-call timeout, transient failures back off exponentially,
// and the loop stops early when ctx (the caller's overall budget) expires.
// It returns the number of attempts made.
func (c *Client) withRetry(ctx context.Context, op string, fn func(context.Context) error) (int, error) {
	var lastErr error

	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			if lastErr != nil {
				return attempt + 1, lastErr
			}
			return attempt + 1, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.policy.PerCallTimeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			return attempt + 1, nil
		}

		var rle *RateLimitError
		if rateLimited(err) && !errors.As(err, &rle) {
			err = &RateLimitError{Err: err}
		}
		lastErr = err

		if !retryable(err) {
			return attempt + 1, err
		}

		if attempt == c.policy.MaxAttempts-1 {
			break
		}

		c.logger.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"delay":   c.policy.backoff(attempt).String(),
		}).WithError(err).Warn("transient model failure, retrying")

		if serr := c.policy.sleepBackoff(ctx, attempt); serr != nil {
			// Overall budget exhausted mid-retry; surface the provider error.
			return attempt + 1, lastErr
		}
	}

	return c.policy.MaxAttempts, lastErr
}

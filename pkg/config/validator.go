package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	switch c.LLM.Provider {
	case "googleai":
		if c.LLM.APIKey == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.api_key",
				Message: "API key is required for the googleai provider",
			})
		}
	case "ollama":
		if c.LLM.BaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "base URL is required for the ollama provider",
			})
		} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "invalid ollama base URL",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider %q, must be googleai or ollama", c.LLM.Provider),
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.RequestsPerSecond <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.requests_per_second",
			Message: "requests_per_second must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate Retrieval config
	if c.Retrieval.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Retrieval.MaxPromptChars < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.max_prompt_chars",
			Message: "max_prompt_chars must be positive",
		})
	}

	// Validate Retry config
	if c.Retry.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "retry.max_attempts",
			Message: "max_attempts must be positive",
		})
	}

	if c.Retry.InitialBackoffMS < 1 {
		errors = append(errors, ValidationError{
			Field:   "retry.initial_backoff_ms",
			Message: "initial_backoff_ms must be positive",
		})
	}

	if c.Retry.MaxBackoffMS < c.Retry.InitialBackoffMS {
		errors = append(errors, ValidationError{
			Field:   "retry.max_backoff_ms",
			Message: "max_backoff_ms must be at least initial_backoff_ms",
		})
	}

	if c.Retry.PerCallTimeoutMS < 1 {
		errors = append(errors, ValidationError{
			Field:   "retry.per_call_timeout_ms",
			Message: "per_call_timeout_ms must be positive",
		})
	}

	if c.Retry.QueryBudgetMS < c.Retry.PerCallTimeoutMS {
		errors = append(errors, ValidationError{
			Field:   "retry.query_budget_ms",
			Message: "query_budget_ms must be at least per_call_timeout_ms",
		})
	}

	return errors
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  provider: "ollama"
  base_url: "http://localhost:11434"
  model: "llama3"
  max_tokens: 1000
  temperature: 0.5

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_docs"
  vector_dim: 768

cache:
  path: "/tmp/test-embeddings.json"

retrieval:
  top_k: 5

server:
  addr: ":9090"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "test_docs", config.Database.TableName)
	assert.Equal(t, "/tmp/test-embeddings.json", config.Cache.Path)
	assert.Equal(t, 5, config.Retrieval.TopK)
	assert.Equal(t, ":9090", config.Server.Addr)

	// Unset values pick up defaults.
	assert.Equal(t, "text-embedding-004", config.LLM.EmbeddingModel)
	assert.Equal(t, "rag_queue_items", config.Database.QueueTableName)
	assert.Equal(t, 3, config.Retry.MaxAttempts)
	assert.Equal(t, 45000, config.Retry.QueryBudgetMS)
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		config := &Config{}
		applyDefaults(config)
		config.LLM.APIKey = "test-key"
		config.Database.URL = "postgres://localhost:5432/medrag"
		return config
	}

	tests := []struct {
		name          string
		mutate        func(*Config)
		errorMessages []string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name: "googleai requires api key",
			mutate: func(c *Config) {
				c.LLM.APIKey = ""
			},
			errorMessages: []string{"llm.api_key: API key is required"},
		},
		{
			name: "unknown provider and bad ranges",
			mutate: func(c *Config) {
				c.LLM.Provider = "mystery"
				c.LLM.MaxTokens = 5000
				c.LLM.Temperature = 3.0
				c.Database.VectorDim = -1
			},
			errorMessages: []string{
				`llm.provider: unknown provider "mystery"`,
				"llm.max_tokens: max_tokens must be between 1 and 4096",
				"llm.temperature: temperature must be between 0 and 2",
				"database.vector_dim: vector_dim must be positive",
			},
		},
		{
			name: "backoff ceiling below initial backoff",
			mutate: func(c *Config) {
				c.Retry.InitialBackoffMS = 2000
				c.Retry.MaxBackoffMS = 1000
			},
			errorMessages: []string{"retry.max_backoff_ms: max_backoff_ms must be at least initial_backoff_ms"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			errors := config.Validate()
			require.Len(t, errors, len(tt.errorMessages))
			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("MEDRAG_CACHE_PATH", "/tmp/env-cache.json")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "env-key", config.LLM.APIKey)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "/tmp/env-cache.json", config.Cache.Path)
}

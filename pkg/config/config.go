package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		Provider          string  `yaml:"provider"` // "googleai" or "ollama"
		APIKey            string  `yaml:"api_key"`
		BaseURL           string  `yaml:"base_url"` // ollama server URL
		Model             string  `yaml:"model"`
		EmbeddingModel    string  `yaml:"embedding_model"`
		MaxTokens         int     `yaml:"max_tokens"`
		Temperature       float64 `yaml:"temperature"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"llm"`

	Database struct {
		URL            string `yaml:"url"`
		TableName      string `yaml:"table_name"`
		QueueTableName string `yaml:"queue_table_name"`
		VectorDim      int    `yaml:"vector_dim"`
	} `yaml:"database"`

	Cache struct {
		Path string `yaml:"path"`
	} `yaml:"cache"`

	Retrieval struct {
		TopK           int `yaml:"top_k"`
		MaxPromptChars int `yaml:"max_prompt_chars"`
	} `yaml:"retrieval"`

	Retry struct {
		MaxAttempts      int `yaml:"max_attempts"`
		InitialBackoffMS int `yaml:"initial_backoff_ms"`
		MaxBackoffMS     int `yaml:"max_backoff_ms"`
		PerCallTimeoutMS int `yaml:"per_call_timeout_ms"`
		QueryBudgetMS    int `yaml:"query_budget_ms"`
	} `yaml:"retry"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/medrag/config.yaml"),
			"/etc/medrag/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "googleai"
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "gemini-2.0-flash-exp"
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "text-embedding-004"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 512
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.2
	}
	if config.LLM.RequestsPerSecond == 0 {
		config.LLM.RequestsPerSecond = 2.0
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "documents"
	}
	if config.Database.QueueTableName == "" {
		config.Database.QueueTableName = "rag_queue_items"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}

	if config.Cache.Path == "" {
		config.Cache.Path = "cache/embeddings.json"
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 3
	}
	if config.Retrieval.MaxPromptChars == 0 {
		config.Retrieval.MaxPromptChars = 8000
	}

	if config.Retry.MaxAttempts == 0 {
		config.Retry.MaxAttempts = 3
	}
	if config.Retry.InitialBackoffMS == 0 {
		config.Retry.InitialBackoffMS = 1000
	}
	if config.Retry.MaxBackoffMS == 0 {
		config.Retry.MaxBackoffMS = 8000
	}
	if config.Retry.PerCallTimeoutMS == 0 {
		config.Retry.PerCallTimeoutMS = 10000
	}
	if config.Retry.QueryBudgetMS == 0 {
		config.Retry.QueryBudgetMS = 45000
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

func mergeWithEnv(config *Config) {
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if cachePath := os.Getenv("MEDRAG_CACHE_PATH"); cachePath != "" {
		config.Cache.Path = cachePath
	}
}

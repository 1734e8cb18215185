package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/arogyaswarm/medrag/internal/models"
	"github.com/arogyaswarm/medrag/internal/types"
	cfgPkg "github.com/arogyaswarm/medrag/pkg/config"
	"github.com/arogyaswarm/medrag/pkg/cache"
	"github.com/arogyaswarm/medrag/pkg/llm"
	"github.com/arogyaswarm/medrag/pkg/prompt"
	"github.com/arogyaswarm/medrag/pkg/queue"
	"github.com/arogyaswarm/medrag/pkg/rag"
	"github.com/arogyaswarm/medrag/pkg/retriever"
	"github.com/arogyaswarm/medrag/pkg/store"
	"github.com/arogyaswarm/medrag/server"
)

type options struct {
	configPath  string
	ingestPath  string
	serve       bool
	retryFailed bool
}

func main() {
	opts := parseFlags()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.configPath, "config", "", "Path to config file")
	flag.StringVar(&opts.ingestPath, "ingest", "", "Path to a JSON file of documents to ingest")
	flag.BoolVar(&opts.serve, "serve", false, "Serve the HTTP API instead of the interactive prompt")
	flag.BoolVar(&opts.retryFailed, "retry-failed", false, "Also retry previously failed queue items when ingesting")
	flag.Parse()

	return opts
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(opts options) error {
	config, err := cfgPkg.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}

	if errs := config.Validate(); len(errs) > 0 {
		for _, verr := range errs {
			color.Red("config: %v", verr)
		}
		return fmt.Errorf("invalid configuration (%d problem(s))", len(errs))
	}

	logger := logrus.New()
	ctx := context.Background()

	embeddingCache := cache.New(config.Cache.Path)
	if err := embeddingCache.Load(); err != nil {
		return fmt.Errorf("failed to load embedding cache: %v", err)
	}

	documentStore, err := store.NewWithConfig(ctx, store.Config{
		ConnString:     config.Database.URL,
		TableName:      config.Database.TableName,
		QueueTableName: config.Database.QueueTableName,
		VectorDim:      config.Database.VectorDim,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize document store: %v", err)
	}
	defer documentStore.Close()

	model, err := newModel(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to initialize model provider: %v", err)
	}

	client, err := llm.NewClient(llm.ClientConfig{
		Model: model,
		Policy: llm.RetryPolicy{
			MaxAttempts:    config.Retry.MaxAttempts,
			InitialBackoff: time.Duration(config.Retry.InitialBackoffMS) * time.Millisecond,
			MaxBackoff:     time.Duration(config.Retry.MaxBackoffMS) * time.Millisecond,
			PerCallTimeout: time.Duration(config.Retry.PerCallTimeoutMS) * time.Millisecond,
		},
		RequestsPerSecond: config.LLM.RequestsPerSecond,
		Temperature:       config.LLM.Temperature,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	ingestQueue := queue.New(documentStore, documentStore, embeddingCache, client, logger)

	service := rag.New(
		rag.Config{
			TopK:        config.Retrieval.TopK,
			MaxTokens:   config.LLM.MaxTokens,
			QueryBudget: time.Duration(config.Retry.QueryBudgetMS) * time.Millisecond,
		},
		embeddingCache,
		documentStore,
		ingestQueue,
		retriever.New(documentStore),
		prompt.NewWithConfig(prompt.Config{MaxChars: config.Retrieval.MaxPromptChars}),
		client,
		client,
		logger,
	)

	if opts.ingestPath != "" {
		if err := ingestFile(ctx, service, opts.ingestPath, opts.retryFailed); err != nil {
			return err
		}
	}

	if opts.serve {
		return server.New(service, logger).ListenAndServe(config.Server.Addr)
	}

	if opts.ingestPath != "" {
		return nil
	}

	return askLoop(ctx, service)
}

func newModel(ctx context.Context, config *cfgPkg.Config) (types.LanguageModel, error) {
	switch config.LLM.Provider {
	case "ollama":
		return llm.NewOllama(config.LLM.BaseURL, config.LLM.Model)
	default:
		return llm.NewGoogleAI(ctx, config.LLM.APIKey, config.LLM.Model, config.LLM.EmbeddingModel)
	}
}

func ingestFile(ctx context.Context, service *rag.Service, path string, retryFailed bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read document file: %v", err)
	}

	var docs []models.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("failed to parse document file: %v", err)
	}

	color.Blue("\nIngesting %d documents from %s\n", len(docs), path)

	summary, err := service.Ingest(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to enqueue documents: %v", err)
	}
	if summary.Rejected > 0 {
		color.Yellow("⚠ %d document(s) rejected by validation\n", summary.Rejected)
	}

	bar := getProgressBar(summary.Accepted, "💾 Embedding and storing...")
	opts := []queue.DrainOption{
		queue.WithOnItem(func(models.QueueItem) { bar.Add(1) }),
	}
	if retryFailed {
		opts = append(opts, queue.WithRetryFailed())
	}

	drained, err := service.DrainQueue(ctx, opts...)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("failed to drain queue: %v", err)
	}

	color.Green("\n✓ Stored %d documents\n", drained.Done)
	if drained.Failed > 0 {
		color.Red("✗ %d item(s) failed; re-run with -retry-failed to retry\n", drained.Failed)
	}
	return nil
}

func askLoop(ctx context.Context, service *rag.Service) error {
	color.Cyan("\nAsk about hospital operations (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := scanner.Text()
		if strings.ToLower(question) == "exit" {
			break
		}

		spinner := getSpinner("🔍 Searching the knowledge base...")
		result := service.Query(ctx, question, nil)
		spinner.Finish()
		fmt.Print("\r")

		if result.Mode == models.ModeError {
			color.Red("Error: %s\n", result.Answer)
			continue
		}

		assistantPrompt("\nAssistant: %s\n", result.Answer)

		if len(result.Sources) > 0 {
			ids := make([]string, 0, len(result.Sources))
			for _, source := range result.Sources {
				ids = append(ids, source.ID)
			}
			color.Blue("Sources: %s", strings.Join(ids, ", "))
		}
		color.Blue("Confidence: %.1f%% (%s)\n", result.Confidence, result.Mode)
	}

	return nil
}

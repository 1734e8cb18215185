// Package rag coordinates the query and ingestion paths: embed the question
// (cache first), retrieve, then generate a grounded answer or fall back to
// extractive excerpts. Every query resolves to a well-formed result; failures
// surface through the result's mode, never as a panic or a bare error to the
// API layer.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arogyaswarm/medrag/internal/models"
	"github.com/arogyaswarm/medrag/internal/types"
	"github.com/arogyaswarm/medrag/pkg/fallback"
	"github.com/arogyaswarm/medrag/pkg/prompt"
	"github.com/arogyaswarm/medrag/pkg/queue"
	"github.com/arogyaswarm/medrag/pkg/retriever"
)

const (
	emptyQuestionAnswer = "Please ask a question about hospital operations, protocols, or current conditions."

	storeUnavailableAnswer = "The knowledge base is currently unreachable. Please try again shortly."

	embedFailedAnswer = "I couldn't process your question right now because the embedding " +
		"service is unavailable. Please try again shortly."
)

// sourceExcerptChars bounds the excerpt attached to each cited source.
const sourceExcerptChars = 200

type Config struct {
	TopK        int
	MaxTokens   int
	QueryBudget time.Duration
}

// Service orchestrates queries and ingestion over the shared cache and store.
// It is safe for concurrent use; queries are read-only against shared state.
type Service struct {
	config    Config
	cache     types.EmbeddingCache
	docs      types.DocumentStore
	queue     *queue.Queue
	retriever *retriever.Retriever
	builder   prompt.Builder
	embedder  types.Embedder
	generator types.Generator
	logger    *logrus.Entry
}

func New(config Config, cache types.EmbeddingCache, docs types.DocumentStore, q *queue.Queue,
	r *retriever.Retriever, builder prompt.Builder, embedder types.Embedder,
	generator types.Generator, logger *logrus.Logger) *Service {

	if config.TopK <= 0 {
		config.TopK = 3
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 512
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Service{
		config:    config,
		cache:     cache,
		docs:      docs,
		queue:     q,
		retriever: r,
		builder:   builder,
		embedder:  embedder,
		generator: generator,
		logger:    logger.WithField("component", "rag"),
	}
}

// Ingest validates and enqueues a batch of documents for later draining.
func (s *Service) Ingest(ctx context.Context, docs []models.Document) (queue.Summary, error) {
	return s.queue.Enqueue(ctx, docs)
}

// DrainQueue processes all eligible queue items.
func (s *Service) DrainQueue(ctx context.Context, opts ...queue.DrainOption) (queue.Summary, error) {
	return s.queue.Drain(ctx, opts...)
}

// Query answers a question against the stored corpus. The stages run strictly
// in order: embed, retrieve, then generate or fall back. The whole query is
// bounded by the configured time budget; when generation cannot finish inside
// it, the answer degrades to extractive excerpts instead of hanging.
func (s *Service) Query(ctx context.Context, question string, qctx *models.QueryContext) models.QueryResult {
	if s.config.QueryBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.QueryBudget)
		defer cancel()
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return errorResult(emptyQuestionAnswer)
	}

	// Dashboard context sharpens retrieval, but the prompt and the fallback
	// always see the verbatim question.
	enhanced := enhanceQuestion(question, qctx)

	embedding, err := s.questionEmbedding(ctx, enhanced)
	if err != nil {
		s.logger.WithError(err).Warn("failed to embed question")
		return errorResult(embedFailedAnswer)
	}

	matches, err := s.retriever.Retrieve(ctx, embedding, s.config.TopK)
	if err != nil {
		s.logger.WithError(err).Warn("retrieval failed")
		return errorResult(storeUnavailableAnswer)
	}

	if len(matches) == 0 {
		answer, _ := fallback.Answer(question, nil)
		return models.QueryResult{
			Answer:     answer,
			Sources:    []models.Source{},
			Confidence: 0,
			Mode:       models.ModeNoDocuments,
		}
	}

	built := s.builder.Build(question, matches, qctx)

	answer, err := s.generator.Generate(ctx, built.Text, s.config.MaxTokens)
	if err != nil {
		s.logger.WithError(err).Warn("generation failed, answering from excerpts")
		text, confidence := fallback.Answer(question, matches)
		return models.QueryResult{
			Answer:     text,
			Sources:    sources(matches, nil),
			Confidence: confidence,
			Mode:       models.ModeOffline,
		}
	}

	return models.QueryResult{
		Answer:     answer,
		Sources:    sources(matches, built.Included),
		Confidence: fallback.GroundedConfidence(question, matches),
		Mode:       models.ModeGrounded,
	}
}

// Status reports the health probe consumed by external monitors.
func (s *Service) Status(ctx context.Context) models.Status {
	status := models.Status{Initialized: true}

	if err := s.docs.Ping(ctx); err != nil {
		s.logger.WithError(err).Warn("store unreachable")
		return status
	}
	status.StoreReachable = true

	count, err := s.docs.Count(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("failed to count documents")
		return status
	}
	status.DocumentCount = count

	return status
}

// questionEmbedding returns the embedding for text, consulting the cache
// before the external embedder.
func (s *Service) questionEmbedding(ctx context.Context, text string) ([]float32, error) {
	if embedding, ok := s.cache.Get(text); ok {
		return embedding, nil
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(text, embedding); err != nil {
		s.logger.WithError(err).Warn("failed to cache question embedding")
	}
	return embedding, nil
}

// enhanceQuestion appends the dashboard readings so retrieval can favor
// condition-specific protocols.
func enhanceQuestion(question string, qctx *models.QueryContext) string {
	if qctx == nil {
		return question
	}

	var parts []string
	if qctx.AQI != nil {
		parts = append(parts, fmt.Sprintf("Current AQI: %.0f", *qctx.AQI))
	}
	if qctx.BedCapacity != nil {
		parts = append(parts, fmt.Sprintf("Bed Capacity: %.0f%%", *qctx.BedCapacity))
	}
	if qctx.ActiveAlerts != nil {
		parts = append(parts, fmt.Sprintf("Active Alerts: %d", *qctx.ActiveAlerts))
	}

	if len(parts) == 0 {
		return question
	}
	return fmt.Sprintf("%s [Context: %s]", question, strings.Join(parts, ", "))
}

// sources builds the citation list for matches. When included is non-nil only
// the documents that made it into the prompt are cited, in rank order.
func sources(matches []retriever.Match, included []prompt.IncludedSource) []models.Source {
	wanted := make(map[string]bool, len(included))
	for _, inc := range included {
		wanted[inc.ID] = true
	}

	out := make([]models.Source, 0, len(matches))
	for _, match := range matches {
		if included != nil && !wanted[match.Document.ID] {
			continue
		}
		out = append(out, models.Source{
			ID:       match.Document.ID,
			Excerpt:  match.Document.Excerpt(sourceExcerptChars),
			Metadata: match.Document.Metadata,
		})
	}
	return out
}

func errorResult(answer string) models.QueryResult {
	return models.QueryResult{
		Answer:     answer,
		Sources:    []models.Source{},
		Confidence: 0,
		Mode:       models.ModeError,
	}
}

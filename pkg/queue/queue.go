// Package queue coordinates document ingestion: enqueue validates and
// persists items, drain embeds (through the cache) and upserts each pending
// item. One bad document never blocks the rest of its batch; failed items
// are retried only by an explicit re-drain.
package queue

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/arogyaswarm/medrag/internal/models"
	"github.com/arogyaswarm/medrag/internal/types"
)

type Queue struct {
	items    types.QueueStore
	docs     types.DocumentStore
	cache    types.EmbeddingCache
	embedder types.Embedder
	logger   *logrus.Entry
}

func New(items types.QueueStore, docs types.DocumentStore, cache types.EmbeddingCache, embedder types.Embedder, logger *logrus.Logger) *Queue {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Queue{
		items:    items,
		docs:     docs,
		cache:    cache,
		embedder: embedder,
		logger:   logger.WithField("component", "queue"),
	}
}

// Summary reports the outcome of an enqueue or drain call.
type Summary struct {
	Accepted int `json:"accepted,omitempty"`
	Rejected int `json:"rejected,omitempty"`
	Done     int `json:"done,omitempty"`
	Failed   int `json:"failed,omitempty"`
}

// Enqueue validates and persists a batch of documents for later draining.
// Documents that fail validation become failed items with the error recorded;
// the rest of the batch is unaffected.
func (q *Queue) Enqueue(ctx context.Context, docs []models.Document) (Summary, error) {
	items := make([]models.QueueItem, 0, len(docs))
	var summary Summary

	for _, doc := range docs {
		item := models.QueueItem{
			ID:       uuid.NewString(),
			Document: doc,
			Status:   models.StatusPending,
		}

		if err := doc.Validate(); err != nil {
			item.Status = models.StatusFailed
			item.LastError = err.Error()
			summary.Rejected++
			q.logger.WithField("doc_id", doc.ID).WithError(err).Warn("rejected document")
		} else {
			summary.Accepted++
		}

		items = append(items, item)
	}

	if err := q.items.EnqueueItems(ctx, items); err != nil {
		return Summary{}, err
	}

	return summary, nil
}

type drainConfig struct {
	retryFailed bool
	onItem      func(models.QueueItem)
}

type DrainOption func(*drainConfig)

// WithRetryFailed makes Drain pick up previously failed items as well as
// pending ones.
func WithRetryFailed() DrainOption {
	return func(c *drainConfig) {
		c.retryFailed = true
	}
}

// WithOnItem registers a callback invoked after each item settles, for
// progress reporting.
func WithOnItem(fn func(models.QueueItem)) DrainOption {
	return func(c *drainConfig) {
		c.onItem = fn
	}
}

// Drain processes every eligible item: embed (cache first), then upsert.
// Items settle as done or failed individually; a failure increments the
// item's attempt counter and records the error, and never aborts the batch.
// Processing is at-least-once; the terminal upsert is idempotent by id.
func (q *Queue) Drain(ctx context.Context, opts ...DrainOption) (Summary, error) {
	cfg := drainConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	statuses := []models.QueueStatus{models.StatusPending}
	if cfg.retryFailed {
		statuses = append(statuses, models.StatusFailed)
	}

	items, err := q.items.ItemsByStatus(ctx, statuses...)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, item := range items {
		item.Status = models.StatusProcessing
		if err := q.items.UpdateItem(ctx, item); err != nil {
			return summary, err
		}

		if err := q.processItem(ctx, &item); err != nil {
			item.Status = models.StatusFailed
			item.Attempts++
			item.LastError = err.Error()
			summary.Failed++
			q.logger.WithFields(logrus.Fields{
				"item_id": item.ID,
				"doc_id":  item.Document.ID,
			}).WithError(err).Warn("failed to process queue item")
		} else {
			item.Status = models.StatusDone
			item.Attempts++
			item.LastError = ""
			summary.Done++
		}

		if err := q.items.UpdateItem(ctx, item); err != nil {
			return summary, err
		}
		if cfg.onItem != nil {
			cfg.onItem(item)
		}

		// A canceled drain stops between items, not mid-item.
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
	}

	return summary, nil
}

func (q *Queue) processItem(ctx context.Context, item *models.QueueItem) error {
	doc := item.Document

	// Items that were enqueued as failed validation records carry their
	// original payload; re-validate in case a re-drain picked them up.
	if err := doc.Validate(); err != nil {
		return err
	}

	embedding, ok := q.cache.Get(doc.Content)
	if !ok {
		var err error
		embedding, err = q.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return err
		}
		if err := q.cache.Put(doc.Content, embedding); err != nil {
			// The embedding is still usable; losing a cache write only
			// costs a future API call.
			q.logger.WithError(err).Warn("failed to cache embedding")
		}
	}

	doc.Embedding = embedding
	if err := q.docs.Upsert(ctx, doc); err != nil {
		return err
	}

	return nil
}

// Pending returns the number of items still waiting to be drained.
func (q *Queue) Pending(ctx context.Context) (int, error) {
	items, err := q.items.ItemsByStatus(ctx, models.StatusPending)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

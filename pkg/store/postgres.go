// Package store persists documents and ingestion queue items in PostgreSQL.
// Document embeddings use the pgvector column type; similarity ranking itself
// happens in the retriever, which scans the whole (small, bounded) corpus.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/sirupsen/logrus"

	"github.com/arogyaswarm/medrag/internal/models"
)

// StoreError means the backing store was unreachable or rejected an
// operation. It is surfaced to callers, never swallowed: ingestion
// correctness depends on knowing a write failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

type Config struct {
	ConnString     string
	TableName      string
	QueueTableName string
	VectorDim      int
}

// Store is the durable document and queue-item store.
// It is safe for concurrent use.
type Store struct {
	config Config
	pool   *pgxpool.Pool
	logger *logrus.Entry
}

func NewWithConfig(ctx context.Context, config Config, logger *logrus.Logger) (*Store, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.QueueTableName == "" {
		config.QueueTableName = "rag_queue_items"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		config: config,
		pool:   pool,
		logger: logger.WithField("component", "store"),
	}

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return &StoreError{Op: "init", Err: fmt.Errorf("failed to create vector extension: %w", err)}
	}

	createDocuments := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.config.TableName, s.config.VectorDim)

	if _, err := s.pool.Exec(ctx, createDocuments); err != nil {
		return &StoreError{Op: "init", Err: fmt.Errorf("failed to create documents table: %w", err)}
	}

	createQueue := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.config.QueueTableName)

	if _, err := s.pool.Exec(ctx, createQueue); err != nil {
		return &StoreError{Op: "init", Err: fmt.Errorf("failed to create queue table: %w", err)}
	}

	return nil
}

// Upsert writes doc atomically: an existing id has its content, metadata and
// embedding replaced, never duplicated. The embedding must match the
// configured dimensionality.
func (s *Store) Upsert(ctx context.Context, doc models.Document) error {
	if len(doc.Embedding) != s.config.VectorDim {
		return models.ValidationError{
			Field:   "embedding",
			Message: fmt.Sprintf("expected %d dimensions, got %d", s.config.VectorDim, len(doc.Embedding)),
		}
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return models.ValidationError{Field: "metadata", Message: err.Error()}
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`,
		s.config.TableName)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &StoreError{Op: "upsert", Err: err}
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, stmt,
		doc.ID,
		doc.Content,
		metadataJSON,
		pgvector.NewVector(doc.Embedding),
		createdAt,
	)
	if err != nil {
		return &StoreError{Op: "upsert", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &StoreError{Op: "upsert", Err: err}
	}

	s.logger.WithField("id", doc.ID).Debug("upserted document")
	return nil
}

// FetchAll returns every stored document, embeddings included, ordered by id.
func (s *Store) FetchAll(ctx context.Context) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, content, metadata, embedding, created_at
		FROM %s
		ORDER BY id`, s.config.TableName)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, &StoreError{Op: "fetch_all", Err: err}
	}
	defer rows.Close()

	return s.scanDocuments(rows)
}

// FetchByIDs returns the stored documents matching ids, ordered by id.
// Unknown ids are silently absent from the result.
func (s *Store) FetchByIDs(ctx context.Context, ids []string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, content, metadata, embedding, created_at
		FROM %s
		WHERE id = ANY($1)
		ORDER BY id`, s.config.TableName)

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, &StoreError{Op: "fetch_by_ids", Err: err}
	}
	defer rows.Close()

	return s.scanDocuments(rows)
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.config.TableName)
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, &StoreError{Op: "count", Err: err}
	}
	return int(count), nil
}

// Ping reports whether the backing store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &StoreError{Op: "ping", Err: err}
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) scanDocuments(rows pgx.Rows) ([]models.Document, error) {
	docs := make([]models.Document, 0)

	for rows.Next() {
		var (
			doc          models.Document
			metadataJSON []byte
			embedding    pgvector.Vector
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &embedding, &doc.CreatedAt); err != nil {
			return nil, &StoreError{Op: "scan", Err: err}
		}

		doc.Embedding = embedding.Slice()
		doc.Metadata = unmarshalMetadata(s.logger, doc.ID, metadataJSON)
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "scan", Err: err}
	}
	return docs, nil
}

func unmarshalMetadata(logger *logrus.Entry, id string, data []byte) map[string]any {
	metadata := make(map[string]any)
	if len(data) == 0 {
		return metadata
	}
	if err := json.Unmarshal(data, &metadata); err != nil {
		logger.WithField("id", id).WithError(err).Warn("failed to parse metadata")
		return make(map[string]any)
	}
	return metadata
}

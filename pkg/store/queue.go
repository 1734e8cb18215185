package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arogyaswarm/medrag/internal/models"
)

// EnqueueItems persists queue items in a single transaction. Items keep
// whatever status the caller set, so validation failures arrive already
// marked failed and are retained for audit.
func (s *Store) EnqueueItems(ctx context.Context, items []models.QueueItem) error {
	if len(items) == 0 {
		return nil
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, doc_id, content, metadata, status, attempts, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.config.QueueTableName)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &StoreError{Op: "enqueue", Err: err}
	}
	defer tx.Rollback(ctx)

	for _, item := range items {
		metadataJSON, err := json.Marshal(item.Document.Metadata)
		if err != nil {
			return models.ValidationError{Field: "metadata", Message: err.Error()}
		}

		_, err = tx.Exec(ctx, stmt,
			item.ID,
			item.Document.ID,
			item.Document.Content,
			metadataJSON,
			string(item.Status),
			item.Attempts,
			item.LastError,
		)
		if err != nil {
			return &StoreError{Op: "enqueue", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &StoreError{Op: "enqueue", Err: err}
	}

	s.logger.WithField("count", len(items)).Debug("enqueued items")
	return nil
}

// ItemsByStatus returns queue items in any of the given statuses, oldest
// first.
func (s *Store) ItemsByStatus(ctx context.Context, statuses ...models.QueueStatus) ([]models.QueueItem, error) {
	wanted := make([]string, 0, len(statuses))
	for _, status := range statuses {
		wanted = append(wanted, string(status))
	}

	query := fmt.Sprintf(`
		SELECT id, doc_id, content, metadata, status, attempts, last_error, created_at, updated_at
		FROM %s
		WHERE status = ANY($1)
		ORDER BY created_at, id`,
		s.config.QueueTableName)

	rows, err := s.pool.Query(ctx, query, wanted)
	if err != nil {
		return nil, &StoreError{Op: "items_by_status", Err: err}
	}
	defer rows.Close()

	return s.scanQueueItems(rows)
}

// UpdateItem persists the mutable fields of a queue item.
func (s *Store) UpdateItem(ctx context.Context, item models.QueueItem) error {
	stmt := fmt.Sprintf(`
		UPDATE %s
		SET status = $2, attempts = $3, last_error = $4, updated_at = now()
		WHERE id = $1`,
		s.config.QueueTableName)

	tag, err := s.pool.Exec(ctx, stmt, item.ID, string(item.Status), item.Attempts, item.LastError)
	if err != nil {
		return &StoreError{Op: "update_item", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &StoreError{Op: "update_item", Err: fmt.Errorf("queue item %q not found", item.ID)}
	}
	return nil
}

func (s *Store) scanQueueItems(rows pgx.Rows) ([]models.QueueItem, error) {
	items := make([]models.QueueItem, 0)

	for rows.Next() {
		var (
			item         models.QueueItem
			metadataJSON []byte
			status       string
		)
		err := rows.Scan(
			&item.ID,
			&item.Document.ID,
			&item.Document.Content,
			&metadataJSON,
			&status,
			&item.Attempts,
			&item.LastError,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, &StoreError{Op: "scan", Err: err}
		}

		item.Status = models.QueueStatus(status)
		item.Document.Metadata = unmarshalMetadata(s.logger, item.Document.ID, metadataJSON)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "scan", Err: err}
	}
	return items, nil
}

package models

import "time"

// QueueStatus is the lifecycle state of a queued ingestion item.
type QueueStatus string

const (
	StatusPending    QueueStatus = "pending"
	StatusProcessing QueueStatus = "processing"
	StatusDone       QueueStatus = "done"
	StatusFailed     QueueStatus = "failed"
)

// QueueItem wraps a raw document awaiting embedding and storage.
// Items are retained after completion for auditability; processing is
// at-least-once and idempotent because the store write is an upsert.
type QueueItem struct {
	ID        string      `json:"id"`
	Document  Document    `json:"document"`
	Status    QueueStatus `json:"status"`
	Attempts  int         `json:"attempts"`
	LastError string      `json:"last_error,omitempty"`
	CreatedAt time.Time   `json:"created_at,omitempty"`
	UpdatedAt time.Time   `json:"updated_at,omitempty"`
}

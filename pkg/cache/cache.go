// Package cache persists text embeddings keyed by a content hash so identical
// text is never sent to the embedding API twice.
//
// The whole map lives in memory and is flushed to a single JSON file after
// every mutation. There is no expiry and no capacity bound; for the intended
// corpus (tens of documents plus query strings) the file stays small, but this
// is a known scaling limit.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is a single cached embedding.
type Entry struct {
	Embedding []float32 `json:"embedding"`
	CachedAt  time.Time `json:"cached_at"`
}

// Cache is a persistent content-addressed embedding store.
// It is safe for concurrent use.
type Cache struct {
	path string

	mu      sync.Mutex
	entries map[string]Entry
}

// New creates a cache backed by the file at path. Call Load before use.
func New(path string) *Cache {
	return &Cache{
		path:    path,
		entries: make(map[string]Entry),
	}
}

// Load reads the cache file into memory. A missing file is not an error;
// the cache simply starts empty.
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse cache file %s: %w", c.path, err)
	}

	c.entries = entries
	return nil
}

// Get returns the cached embedding for text, if present. The returned slice
// is a copy; callers may mutate it freely.
func (c *Cache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[hashText(text)]
	if !ok {
		return nil, false
	}

	embedding := make([]float32, len(entry.Embedding))
	copy(embedding, entry.Embedding)
	return embedding, true
}

// Put stores the embedding for text and flushes the file. The write goes
// through a temp file and rename so a crash never loses previously confirmed
// entries.
func (c *Cache) Put(text string, embedding []float32) error {
	stored := make([]float32, len(embedding))
	copy(stored, embedding)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[hashText(text)] = Entry{
		Embedding: stored,
		CachedAt:  time.Now().UTC(),
	}

	return c.flushLocked()
}

// Flush writes the current state to disk.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) flushLocked() error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "embeddings-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	return nil
}

// hashText fingerprints the exact text that was embedded. Identical text
// always hashes to the same key.
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Package retriever ranks stored documents against a query embedding.
//
// Ranking is a full scan with cosine similarity. The corpus is intentionally
// small and bounded, so no approximate index is used; ties are broken by
// ascending document id for deterministic results.
package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/arogyaswarm/medrag/internal/models"
	"github.com/arogyaswarm/medrag/internal/types"
)

// Match pairs a document with its similarity to the query.
type Match struct {
	Document   models.Document
	Similarity float64
}

// Retriever reads the document store and ranks documents by similarity.
type Retriever struct {
	store types.DocumentStore
}

func New(store types.DocumentStore) *Retriever {
	return &Retriever{store: store}
}

// Retrieve returns the topK most similar documents, most similar first.
// An empty corpus yields an empty, non-nil result; fewer than topK documents
// yields all of them.
func (r *Retriever) Retrieve(ctx context.Context, queryEmbedding []float32, topK int) ([]Match, error) {
	if topK < 1 {
		return nil, models.ValidationError{Field: "top_k", Message: fmt.Sprintf("top_k must be positive, got %d", topK)}
	}
	if len(queryEmbedding) == 0 {
		return nil, models.ValidationError{Field: "query_embedding", Message: "query embedding must not be empty"}
	}

	docs, err := r.store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	matches := make([]Match, 0, len(docs))
	for _, doc := range docs {
		matches = append(matches, Match{
			Document:   doc,
			Similarity: CosineSimilarity(queryEmbedding, doc.Embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Document.ID < matches[j].Document.ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// CosineSimilarity computes the cosine of the angle between a and b.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

package fallback_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arogyaswarm/medrag/internal/models"
	"github.com/arogyaswarm/medrag/pkg/fallback"
	"github.com/arogyaswarm/medrag/pkg/retriever"
)

func match(id, content string, sim float64) retriever.Match {
	return retriever.Match{
		Document:   models.Document{ID: id, Content: content},
		Similarity: sim,
	}
}

func TestAnswerQuotesTopDocumentVerbatim(t *testing.T) {
	content := "Reorder oxygen when stock falls below 50 cylinders."
	answer, confidence := fallback.Answer("When should we reorder oxygen?", []retriever.Match{
		match("oxygen_reorder_policy", content, 0.82),
	})

	assert.Contains(t, answer, content)
	assert.Contains(t, answer, "Oxygen Reorder Policy")
	assert.Greater(t, confidence, 0.0)
}

func TestAnswerExcerptsLowerRanks(t *testing.T) {
	long := strings.Repeat("protocol detail. ", 100) // well over 400 chars
	answer, _ := fallback.Answer("q", []retriever.Match{
		match("top", long, 0.9),
		match("second", long, 0.5),
	})

	// The top document appears in full (100 repetitions); the second is cut
	// to a 400-char excerpt, so far fewer repetitions survive from it.
	count := strings.Count(answer, "protocol detail.")
	assert.GreaterOrEqual(t, count, 100)
	assert.Less(t, count, 130)
	assert.Contains(t, answer, "Second:")
	assert.Contains(t, answer, "...")
}

func TestAnswerEmptyMatches(t *testing.T) {
	answer, confidence := fallback.Answer("anything", nil)
	assert.NotEmpty(t, answer)
	assert.Zero(t, confidence)
}

func TestOfflineStrictlyBelowGrounded(t *testing.T) {
	matches := []retriever.Match{
		match("d1", "oxygen cylinders reorder threshold", 0.8),
		match("d2", "bed capacity surge protocol", 0.6),
	}
	question := "when do we reorder oxygen cylinders"

	grounded := fallback.GroundedConfidence(question, matches)
	offline := fallback.OfflineConfidence(question, matches)

	assert.Greater(t, grounded, 0.0)
	assert.Less(t, offline, grounded)
}

func TestConfidenceBounds(t *testing.T) {
	tests := []struct {
		name    string
		matches []retriever.Match
	}{
		{"no matches", nil},
		{"perfect similarity", []retriever.Match{match("d1", "c", 1.0)}},
		{"negative similarity no overlap", []retriever.Match{match("d1", "zzz", -0.5)}},
		{"token overlap fallback", []retriever.Match{match("d1", "oxygen reorder stock", 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, conf := range []float64{
				fallback.GroundedConfidence("oxygen reorder", tt.matches),
				fallback.OfflineConfidence("oxygen reorder", tt.matches),
			} {
				assert.GreaterOrEqual(t, conf, 0.0)
				assert.LessOrEqual(t, conf, 100.0)
			}
		})
	}
}

func TestGroundedCappedAt95(t *testing.T) {
	matches := []retriever.Match{match("d1", "c", 1.0)}
	assert.Equal(t, 95.0, fallback.GroundedConfidence("q", matches))
	require.LessOrEqual(t, fallback.OfflineConfidence("q", matches), 60.0)
}

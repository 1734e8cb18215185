package prompt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arogyaswarm/medrag/internal/models"
	"github.com/arogyaswarm/medrag/pkg/prompt"
	"github.com/arogyaswarm/medrag/pkg/retriever"
)

func match(id, content string) retriever.Match {
	return retriever.Match{Document: models.Document{ID: id, Content: content}}
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestBuildContainsAllParts(t *testing.T) {
	b := prompt.NewWithConfig(prompt.Config{})

	qctx := &models.QueryContext{
		AQI:          floatPtr(412),
		BedCapacity:  floatPtr(88),
		ActiveAlerts: intPtr(2),
	}

	res := b.Build("When should we reorder oxygen?", []retriever.Match{
		match("oxygen_protocol", "Reorder oxygen when stock falls below 50 cylinders."),
	}, qctx)

	assert.Contains(t, res.Text, "medical AI assistant")
	assert.Contains(t, res.Text, "Air Quality Index: 412")
	assert.Contains(t, res.Text, "Bed Capacity: 88%")
	assert.Contains(t, res.Text, "Active Alerts: 2")
	assert.Contains(t, res.Text, "Document 1 (source: oxygen_protocol):")
	assert.Contains(t, res.Text, "Reorder oxygen when stock falls below 50 cylinders.")
	assert.Contains(t, res.Text, "Question: When should we reorder oxygen?")

	require.Len(t, res.Included, 1)
	assert.Equal(t, "oxygen_protocol", res.Included[0].ID)
	assert.False(t, res.Included[0].Truncated)
}

func TestBuildNoContext(t *testing.T) {
	b := prompt.NewWithConfig(prompt.Config{})

	res := b.Build("question", []retriever.Match{match("d1", "content")}, nil)
	assert.NotContains(t, res.Text, "Current System Status")
}

func TestBuildQuestionIsVerbatim(t *testing.T) {
	b := prompt.NewWithConfig(prompt.Config{})

	question := "What is the surge protocol? [Context: Current AQI: 400]"
	res := b.Build(question, nil, nil)
	assert.Contains(t, res.Text, "Question: "+question)
}

func TestBuildTruncatesLowestRankedFirst(t *testing.T) {
	big := strings.Repeat("x", 600)
	b := prompt.NewWithConfig(prompt.Config{MaxChars: 1400})

	res := b.Build("q", []retriever.Match{
		match("first", big),
		match("second", big),
		match("third", big),
	}, nil)

	// The top-ranked document survives intact; the budget runs out further
	// down the ranking.
	require.NotEmpty(t, res.Included)
	assert.Equal(t, "first", res.Included[0].ID)
	assert.False(t, res.Included[0].Truncated)
	assert.Less(t, len(res.Included), 3)

	if len(res.Included) == 2 {
		assert.Equal(t, "second", res.Included[1].ID)
		assert.True(t, res.Included[1].Truncated)
	}
	assert.NotContains(t, res.Text, "source: third")
	assert.LessOrEqual(t, len(res.Text), 1400)
}

func TestBuildTinyBudgetKeepsQuestion(t *testing.T) {
	b := prompt.NewWithConfig(prompt.Config{MaxChars: 10})

	res := b.Build("still here?", []retriever.Match{match("d1", strings.Repeat("x", 500))}, nil)

	// Excerpts are dropped (and recorded as such) before the question ever is.
	assert.Empty(t, res.Included)
	assert.Contains(t, res.Text, "Question: still here?")
}

func TestBuildIncludedOrderMatchesRank(t *testing.T) {
	b := prompt.NewWithConfig(prompt.Config{})

	res := b.Build("q", []retriever.Match{
		match("b", "short"),
		match("a", "short"),
	}, nil)

	require.Len(t, res.Included, 2)
	assert.Equal(t, "b", res.Included[0].ID)
	assert.Equal(t, "a", res.Included[1].ID)
}

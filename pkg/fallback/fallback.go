// Package fallback produces extractive answers when the generation provider
// is unavailable, and computes the confidence heuristics for both grounded
// and offline answers.
package fallback

import (
	"fmt"
	"strings"

	"github.com/arogyaswarm/medrag/pkg/retriever"
)

const offlinePrefix = "The answer generator is currently unreachable, so here are the most " +
	"relevant excerpts from the operations knowledge base:\n\n"

const offlineSuffix = "These are direct excerpts from stored protocols, not a generated answer."

const emptyAnswer = "I searched the knowledge base but couldn't find relevant documents for " +
	"your question. Try asking about hospital surge protocols, bed management, " +
	"staff coordination, infection control, or emergency procedures."

// excerptChars bounds the excerpt shown for documents below the top rank.
const excerptChars = 400

// Answer synthesizes an extractive answer from the retrieved excerpts.
// The highest-ranked document is quoted in full; lower ranks are excerpted.
// No generation call is made.
func Answer(question string, matches []retriever.Match) (string, float64) {
	if len(matches) == 0 {
		return emptyAnswer, 0
	}

	var sb strings.Builder
	sb.WriteString(offlinePrefix)

	for i, match := range matches {
		doc := match.Document
		sb.WriteString(fmt.Sprintf("%s:\n", titleize(doc.ID)))
		if i == 0 {
			sb.WriteString(doc.Content)
		} else {
			sb.WriteString(doc.Excerpt(excerptChars))
		}
		sb.WriteString("\n\n")
	}

	sb.WriteString(offlineSuffix)

	return sb.String(), OfflineConfidence(question, matches)
}

// titleize turns a document id like "oxygen_reorder_policy" into a heading.
func titleize(id string) string {
	words := strings.Split(strings.ReplaceAll(id, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

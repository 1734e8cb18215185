// Package prompt assembles grounded prompts from retrieved excerpts,
// situational dashboard context and the user's question.
package prompt

import (
	"fmt"
	"strings"

	"github.com/arogyaswarm/medrag/internal/models"
	"github.com/arogyaswarm/medrag/pkg/retriever"
)

const defaultPreamble = "You are a medical AI assistant for a hospital operations command center. " +
	"Use the following documents to answer the question. " +
	"If the answer is not in the documents, say you don't know."

const closingInstruction = "Answer concisely and mention which document(s) you are referencing. " +
	"If discussing medical procedures, include safety considerations."

// minExcerptChars is the smallest excerpt worth including; below this the
// source is dropped (and recorded as not included) rather than reduced to
// a meaningless fragment.
const minExcerptChars = 80

type Config struct {
	Preamble string
	MaxChars int
}

// Builder assembles bounded-size prompts. Excerpts from the lowest-ranked
// documents are truncated first when the budget would be exceeded.
type Builder struct {
	config Config
}

func NewWithConfig(config Config) Builder {
	if config.Preamble == "" {
		config.Preamble = defaultPreamble
	}
	if config.MaxChars == 0 {
		config.MaxChars = 8000
	}
	return Builder{config: config}
}

// IncludedSource records a document that made it into the prompt.
type IncludedSource struct {
	ID        string
	Truncated bool
}

// Result is the assembled prompt plus the sources actually included,
// in rank order.
type Result struct {
	Text     string
	Included []IncludedSource
}

// Build assembles the prompt. The preamble, situational context and question
// are always present in full; retrieved excerpts consume whatever budget
// remains, highest-ranked first.
func (b Builder) Build(question string, matches []retriever.Match, qctx *models.QueryContext) Result {
	var sb strings.Builder
	sb.WriteString(b.config.Preamble)
	sb.WriteString("\n\n")

	if block := contextBlock(qctx); block != "" {
		sb.WriteString(block)
		sb.WriteString("\n")
	}

	tail := fmt.Sprintf("Question: %s\n\n%s", question, closingInstruction)

	included := make([]IncludedSource, 0, len(matches))
	remaining := b.config.MaxChars - sb.Len() - len(tail)

	for i, match := range matches {
		label := fmt.Sprintf("Document %d (source: %s):\n", i+1, match.Document.ID)
		content := match.Document.Content

		need := len(label) + len(content) + 2
		if need <= remaining {
			sb.WriteString(label)
			sb.WriteString(content)
			sb.WriteString("\n\n")
			remaining -= need
			included = append(included, IncludedSource{ID: match.Document.ID})
			continue
		}

		// Not enough room for the full excerpt: truncate this one and stop.
		// Lower-ranked documents are dropped entirely, which the caller can
		// see from the Included list.
		available := remaining - len(label) - len("...") - 2
		if available >= minExcerptChars {
			sb.WriteString(label)
			sb.WriteString(truncateRunes(content, available))
			sb.WriteString("...\n\n")
			included = append(included, IncludedSource{ID: match.Document.ID, Truncated: true})
		}
		break
	}

	sb.WriteString(tail)

	return Result{Text: sb.String(), Included: included}
}

func contextBlock(qctx *models.QueryContext) string {
	if qctx == nil {
		return ""
	}

	var sb strings.Builder
	if qctx.AQI != nil {
		fmt.Fprintf(&sb, "- Air Quality Index: %.0f\n", *qctx.AQI)
	}
	if qctx.BedCapacity != nil {
		fmt.Fprintf(&sb, "- Bed Capacity: %.0f%%\n", *qctx.BedCapacity)
	}
	if qctx.ActiveAlerts != nil {
		fmt.Fprintf(&sb, "- Active Alerts: %d\n", *qctx.ActiveAlerts)
	}

	if sb.Len() == 0 {
		return ""
	}
	return "Current System Status:\n" + sb.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

package fallback

import (
	"math"
	"regexp"
	"strings"

	"github.com/arogyaswarm/medrag/pkg/retriever"
)

// Confidence ceilings. The offline ceiling sits well below the grounded one
// so an extractive answer is never reported as more confident than a
// successful generation over the same retrieval.
const (
	groundedCeiling = 95.0
	offlineCeiling  = 60.0
	offlineScale    = 0.6
)

var wordPattern = regexp.MustCompile(`\w+`)

// GroundedConfidence scores a successfully generated answer from retrieval
// quality, on a 0-100 scale capped at 95.
func GroundedConfidence(question string, matches []retriever.Match) float64 {
	return round1(math.Min(retrievalScore(question, matches)*100, groundedCeiling))
}

// OfflineConfidence scores an extractive answer. It is derived from the same
// retrieval score as GroundedConfidence but scaled down and capped lower, so
// for any non-zero score offline < grounded holds strictly.
func OfflineConfidence(question string, matches []retriever.Match) float64 {
	return round1(math.Min(retrievalScore(question, matches)*100*offlineScale, offlineCeiling))
}

// retrievalScore averages per-document similarity on a 0-1 scale. Cosine
// similarity from retrieval is preferred; when a match carries no usable
// score, token overlap between question and content stands in.
func retrievalScore(question string, matches []retriever.Match) float64 {
	if len(matches) == 0 {
		return 0
	}

	queryTokens := tokenize(question)

	var total float64
	for _, match := range matches {
		sim := match.Similarity
		if sim <= 0 {
			sim = tokenOverlap(queryTokens, tokenize(match.Document.Content))
		}
		total += clamp01(sim)
	}

	return clamp01(total / float64(len(matches)))
}

// tokenOverlap is the Jaccard index of two token sets.
func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		tokens[word] = struct{}{}
	}
	return tokens
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

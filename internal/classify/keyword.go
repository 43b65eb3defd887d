package classify

import (
	"context"
	"strings"

	"marketflow/internal/domain"
	"marketflow/internal/ports"
)

// Fixed confidences for the deterministic fallback path: a unilateral cue
// hit is a moderate-conviction call, everything else is a weak Neutral.
const (
	directionalConfidence = 60
	neutralConfidence     = 30
)

// KeywordClassifier is the deterministic fallback: two disjoint cue lists
// scanned against the lowercased headline plus context. It never fails, so
// the pipeline is never blocked by classifier unavailability.
type KeywordClassifier struct {
	bullish []string
	bearish []string
}

var _ ports.Classifier = (*KeywordClassifier)(nil)

// NewKeywordClassifier lowercases and stores the cue lists.
func NewKeywordClassifier(bullish, bearish []string) *KeywordClassifier {
	return &KeywordClassifier{
		bullish: lowerAll(bullish),
		bearish: lowerAll(bearish),
	}
}

// Classify scans title+context. Exactly one list hitting yields that
// direction; both or neither yields Neutral.
func (k *KeywordClassifier) Classify(_ context.Context, title, _, contextText string) domain.ClassificationResult {
	text := strings.ToLower(title + " " + contextText)
	if direction, ok := k.Scan(text); ok {
		return domain.ClassificationResult{
			Sentiment:  direction,
			Confidence: directionalConfidence,
		}
	}
	return domain.ClassificationResult{
		Sentiment:  domain.SentimentNeutral,
		Confidence: neutralConfidence,
	}
}

// Scan reports a direction only when exactly one cue list matches the
// already-lowercased text.
func (k *KeywordClassifier) Scan(lowered string) (domain.Sentiment, bool) {
	bull := containsAny(lowered, k.bullish)
	bear := containsAny(lowered, k.bearish)
	switch {
	case bull && !bear:
		return domain.SentimentBullish, true
	case bear && !bull:
		return domain.SentimentBearish, true
	default:
		return domain.SentimentNeutral, false
	}
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		out = append(out, strings.ToLower(strings.TrimSpace(term)))
	}
	return out
}

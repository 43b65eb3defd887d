package domain

import "time"

// Sentiment is the directional verdict for the tracked index.
type Sentiment string

const (
	SentimentBullish Sentiment = "Bullish"
	SentimentBearish Sentiment = "Bearish"
	SentimentNeutral Sentiment = "Neutral"
)

// Arrow maps a sentiment to its alert indicator.
func (s Sentiment) Arrow() string {
	switch s {
	case SentimentBullish:
		return "\U0001F53A" // 🔺
	case SentimentBearish:
		return "\U0001F53B" // 🔻
	default:
		return "\U0001F7E8" // 🟨
	}
}

// Valid reports whether s is one of the three enumerated verdicts.
func (s Sentiment) Valid() bool {
	return s == SentimentBullish || s == SentimentBearish || s == SentimentNeutral
}

// Candidate is one normalized news item considered for delivery in a cycle.
// A zero PublishedAt means the feed carried no usable timestamp; that is a
// valid state, not an error.
type Candidate struct {
	Title       string
	Link        string
	SourceLabel string
	RawSummary  string
	PublishedAt time.Time
}

// HasPublishTime reports whether the publish timestamp is known.
func (c Candidate) HasPublishTime() bool {
	return !c.PublishedAt.IsZero()
}

// ClassificationResult is the classifier verdict attached to a candidate.
// Confidence and Impact are 0-100; Impact measures how market-moving the
// story is independent of direction.
type ClassificationResult struct {
	Sentiment  Sentiment
	Confidence int
	Impact     int
	Summary    string
}

// EffectiveImpact returns Impact, falling back to Confidence when the
// classifier did not distinguish the two.
func (r ClassificationResult) EffectiveImpact() int {
	if r.Impact > 0 {
		return r.Impact
	}
	return r.Confidence
}

// ScoredCandidate pairs a candidate with its verdict and ranking score.
// It lives only between ranking and delivery and is never persisted.
type ScoredCandidate struct {
	Candidate Candidate
	Result    ClassificationResult
	Score     float64
}

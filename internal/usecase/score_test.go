package usecase

import (
	"testing"
	"time"

	"marketflow/internal/domain"
)

func TestRecencyScoreDecays(t *testing.T) {
	t.Parallel()

	r := NewRanker()

	atZero := r.RecencyScore(0)
	if atZero != 100 {
		t.Fatalf("age zero must score 100, got %f", atZero)
	}

	atHalfLife := r.RecencyScore(r.HalfLife)
	if atHalfLife < 49.9 || atHalfLife > 50.1 {
		t.Fatalf("one half-life must score ~50, got %f", atHalfLife)
	}

	if r.RecencyScore(time.Hour) <= r.RecencyScore(2*time.Hour) {
		t.Fatalf("recency score must decrease with age")
	}

	if r.RecencyScore(-time.Minute) != 100 {
		t.Fatalf("future timestamps must score as brand new")
	}
}

func TestScoreMonotonicity(t *testing.T) {
	t.Parallel()

	r := NewRanker()
	age := 30 * time.Minute

	strong := domain.ClassificationResult{Sentiment: domain.SentimentBullish, Confidence: 80, Impact: 90}
	weak := domain.ClassificationResult{Sentiment: domain.SentimentBullish, Confidence: 80, Impact: 40}
	if r.Score(strong, age) <= r.Score(weak, age) {
		t.Fatalf("equal recency: higher impact must never rank below lower impact")
	}

	same := domain.ClassificationResult{Sentiment: domain.SentimentBearish, Confidence: 70, Impact: 60}
	if r.Score(same, 10*time.Minute) <= r.Score(same, 3*time.Hour) {
		t.Fatalf("equal impact: the more recent candidate must never rank below the older one")
	}
}

func TestScoreImpactDefaultsToConfidence(t *testing.T) {
	t.Parallel()

	r := NewRanker()
	noImpact := domain.ClassificationResult{Sentiment: domain.SentimentBullish, Confidence: 80}
	withImpact := domain.ClassificationResult{Sentiment: domain.SentimentBullish, Confidence: 80, Impact: 80}

	if r.Score(noImpact, 0) != r.Score(withImpact, 0) {
		t.Fatalf("zero impact must fall back to confidence")
	}
}

func TestSelectTop(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	scored := []domain.ScoredCandidate{
		{Candidate: domain.Candidate{Title: "low", PublishedAt: base}, Score: 10},
		{Candidate: domain.Candidate{Title: "high", PublishedAt: base}, Score: 90},
		{Candidate: domain.Candidate{Title: "mid", PublishedAt: base}, Score: 50},
	}

	top := SelectTop(scored, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 winners, got %d", len(top))
	}
	if top[0].Candidate.Title != "high" || top[1].Candidate.Title != "mid" {
		t.Fatalf("expected the two highest-scoring candidates, got %q, %q",
			top[0].Candidate.Title, top[1].Candidate.Title)
	}
}

func TestSelectTopTieBreaksOnRecency(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	scored := []domain.ScoredCandidate{
		{Candidate: domain.Candidate{Title: "older", PublishedAt: base.Add(-time.Hour)}, Score: 50},
		{Candidate: domain.Candidate{Title: "newer", PublishedAt: base}, Score: 50},
	}

	top := SelectTop(scored, 1)
	if top[0].Candidate.Title != "newer" {
		t.Fatalf("equal scores must break toward the more recent candidate, got %q", top[0].Candidate.Title)
	}
}

func TestSelectTopUnlimitedBudget(t *testing.T) {
	t.Parallel()

	scored := []domain.ScoredCandidate{
		{Candidate: domain.Candidate{Title: "a"}, Score: 1},
		{Candidate: domain.Candidate{Title: "b"}, Score: 2},
	}

	if got := SelectTop(scored, 0); len(got) != 2 {
		t.Fatalf("budget 0 means unlimited, got %d winners", len(got))
	}
}

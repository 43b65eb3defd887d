package usecase

import (
	"math"
	"sort"
	"time"

	"marketflow/internal/domain"
)

// Ranker combines classification strength and recency into one score when
// more admissible candidates exist than the posting budget allows.
type Ranker struct {
	ImpactWeight  float64
	RecencyWeight float64
	HalfLife      time.Duration
}

// NewRanker returns the reference weighting: impact dominates, recency
// decays with a two-hour half-life.
func NewRanker() Ranker {
	return Ranker{
		ImpactWeight:  0.7,
		RecencyWeight: 0.3,
		HalfLife:      2 * time.Hour,
	}
}

// RecencyScore saturates near 100 at age zero and decays exponentially
// toward zero. Negative ages (future timestamps) score as brand new.
func (r Ranker) RecencyScore(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	halfLives := float64(age) / float64(r.HalfLife)
	return 100 * math.Pow(0.5, halfLives)
}

// Score computes the weighted final score for one classified candidate.
func (r Ranker) Score(result domain.ClassificationResult, age time.Duration) float64 {
	impact := float64(result.EffectiveImpact())
	return r.ImpactWeight*impact + r.RecencyWeight*r.RecencyScore(age)
}

// SelectTop sorts descending by (score, published time) and returns the top
// n entries. n <= 0 means no budget: everything is returned, still sorted.
func SelectTop(scored []domain.ScoredCandidate, n int) []domain.ScoredCandidate {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Candidate.PublishedAt.After(scored[j].Candidate.PublishedAt)
	})
	if n <= 0 || len(scored) <= n {
		return scored
	}
	return scored[:n]
}

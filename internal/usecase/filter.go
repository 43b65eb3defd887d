package usecase

import (
	"strings"
	"time"

	"marketflow/internal/domain"
)

// Fresh admits candidates inside the recency window. Unknown publish times
// are admitted (real-time items often lack timestamps), and future-dated
// items count as fresh rather than being dropped for clock skew.
func Fresh(c domain.Candidate, now time.Time, maxAge time.Duration) bool {
	if !c.HasPublishTime() {
		return true
	}
	return now.Sub(c.PublishedAt) <= maxAge
}

// RelevanceFilter is the cheap keyword gate applied before spending a
// classifier call. An empty term set admits everything.
type RelevanceFilter struct {
	terms []string
}

// NewRelevanceFilter lowercases the configured term set.
func NewRelevanceFilter(terms []string) *RelevanceFilter {
	lowered := make([]string, 0, len(terms))
	for _, term := range terms {
		if t := strings.ToLower(strings.TrimSpace(term)); t != "" {
			lowered = append(lowered, t)
		}
	}
	return &RelevanceFilter{terms: lowered}
}

// LooksRelevant is a case-insensitive substring match over title and summary.
func (f *RelevanceFilter) LooksRelevant(title, summary string) bool {
	if len(f.terms) == 0 {
		return true
	}
	haystack := strings.ToLower(title + " " + summary)
	for _, term := range f.terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

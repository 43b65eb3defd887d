package usecase

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"

	"marketflow/internal/domain"
)

var nonAlnumExpr = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeTitle lowercases, strips punctuation and removes all whitespace,
// so minor rewording like "50bps" vs "50 bps" collapses to one story across
// any feed that carries it.
func NormalizeTitle(title string) string {
	lowered := strings.ToLower(title)
	return nonAlnumExpr.ReplaceAllString(lowered, "")
}

// ComputeKey derives the deduplication fingerprint for a candidate. It is a
// pure function of the normalized title: the same story from two different
// feeds maps to the same key.
func ComputeKey(c domain.Candidate) string {
	sum := sha1.Sum([]byte(NormalizeTitle(c.Title)))
	return hex.EncodeToString(sum[:])
}

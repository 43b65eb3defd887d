package usecase

import (
	"strings"
	"testing"
	"time"

	"marketflow/internal/domain"
)

func TestExchangeTime(t *testing.T) {
	t.Parallel()

	eastern, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 14:30 UTC in January is 9:30 AM in New York.
	at := time.Date(2026, time.January, 5, 14, 30, 0, 0, time.UTC)
	if got := exchangeTime(at, eastern); got != "9:30 AM EST · Jan 05" {
		t.Fatalf("exchangeTime = %q", got)
	}

	if got := exchangeTime(time.Time{}, eastern); got != "" {
		t.Fatalf("zero time must render empty, got %q", got)
	}
}

func TestFormatAlert(t *testing.T) {
	t.Parallel()

	eastern, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	msg := formatAlert(domain.ScoredCandidate{
		Candidate: domain.Candidate{
			Title:       "Nvidia beats estimates & raises guidance",
			Link:        "https://news.example/nvda",
			SourceLabel: "Example Wire",
			PublishedAt: time.Date(2026, time.January, 5, 14, 30, 0, 0, time.UTC),
		},
		Result: domain.ClassificationResult{
			Sentiment:  domain.SentimentBullish,
			Confidence: 85,
			Summary:    "Guidance lifts megacap sentiment.",
		},
	}, eastern)

	for _, want := range []string{
		"\U0001F53A <b>NASDAQ Bullish</b>",
		"Nvidia beats estimates &amp; raises guidance",
		"Guidance lifts megacap sentiment.",
		"Example Wire",
		"https://news.example/nvda",
		"9:30 AM EST · Jan 05",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("alert missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatAlertOmitsEmptyParts(t *testing.T) {
	t.Parallel()

	msg := formatAlert(domain.ScoredCandidate{
		Candidate: domain.Candidate{
			Title:       "Quiet headline",
			SourceLabel: "Wire",
		},
		Result: domain.ClassificationResult{Sentiment: domain.SentimentNeutral, Confidence: 30},
	}, time.UTC)

	if strings.Contains(msg, "✍️") {
		t.Fatalf("empty summary must be omitted:\n%s", msg)
	}
	if strings.Contains(msg, "\U0001F552") {
		t.Fatalf("unknown publish time must be omitted:\n%s", msg)
	}
	if strings.HasSuffix(msg, "\n") {
		t.Fatalf("alert must not end with a trailing newline")
	}
}

func TestOrDash(t *testing.T) {
	t.Parallel()

	if got := orDash(""); got != "—" {
		t.Fatalf("empty value must render a dash, got %q", got)
	}
	if got := orDash("0.3%"); got != "0.3%" {
		t.Fatalf("non-empty value must pass through, got %q", got)
	}
}

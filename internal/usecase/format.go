package usecase

import (
	"fmt"
	"html"
	"strings"
	"time"

	"marketflow/internal/domain"
)

const indexLabel = "NASDAQ"

// exchangeTime renders a UTC timestamp in the exchange's local time, the
// way readers of US market alerts expect it.
func exchangeTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	local := t.In(loc)
	return local.Format("3:04 PM") + " EST · " + local.Format("Jan 02")
}

// formatAlert builds the fixed-structure news alert: direction line,
// headline, optional rationale, source attribution and published time.
func formatAlert(sc domain.ScoredCandidate, loc *time.Location) string {
	c := sc.Candidate
	result := sc.Result

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s %s</b>\n", result.Sentiment.Arrow(), indexLabel, result.Sentiment)
	fmt.Fprintf(&b, "\U0001F4F0 %s\n", html.EscapeString(c.Title))
	if result.Summary != "" {
		fmt.Fprintf(&b, "✍️ %s\n", html.EscapeString(result.Summary))
	}
	if c.Link != "" {
		fmt.Fprintf(&b, "\U0001F517 <i>Source:</i> %s —\n%s\n", html.EscapeString(c.SourceLabel), html.EscapeString(c.Link))
	} else {
		fmt.Fprintf(&b, "\U0001F517 <i>Source:</i> %s\n", html.EscapeString(c.SourceLabel))
	}
	if when := exchangeTime(c.PublishedAt, loc); when != "" {
		fmt.Fprintf(&b, "\U0001F552 %s", html.EscapeString(when))
	}

	return strings.TrimRight(b.String(), "\n")
}

// orDash substitutes the em-dash placeholder for empty calendar values.
func orDash(v string) string {
	if v == "" {
		return "—"
	}
	return v
}

package feed

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"marketflow/internal/domain"
	"marketflow/internal/ports"
)

// Some publishers 403 default Go clients; a browser-style UA keeps them open.
const userAgent = "Mozilla/5.0 (compatible; MarketFlowBot/1.0; +https://example.com/bot)"

const defaultFetchTimeout = 25 * time.Second

// RSSSource pulls candidates from a single RSS/Atom feed.
type RSSSource struct {
	name    string
	url     string
	parser  *gofeed.Parser
	timeout time.Duration
}

var _ ports.CandidateSource = (*RSSSource)(nil)

// NewRSSSource wires a gofeed parser for one feed URL.
func NewRSSSource(name, url string) *RSSSource {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &RSSSource{
		name:    name,
		url:     url,
		parser:  parser,
		timeout: defaultFetchTimeout,
	}
}

// Name identifies the feed in logs.
func (s *RSSSource) Name() string {
	return s.name
}

// Fetch parses the feed and converts its entries into candidates. Entries
// without a usable title or link are dropped here; a missing publish time is
// carried as unknown, never fabricated.
func (s *RSSSource) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	parsed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, err
	}

	label := strings.TrimSpace(parsed.Title)
	if label == "" {
		label = s.name
	}

	candidates := make([]domain.Candidate, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		title := strings.TrimSpace(entry.Title)
		link := strings.TrimSpace(entry.Link)
		if title == "" || link == "" {
			continue
		}

		var published time.Time
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		candidates = append(candidates, domain.Candidate{
			Title:       title,
			Link:        link,
			SourceLabel: label,
			RawSummary:  strings.TrimSpace(entry.Description),
			PublishedAt: published,
		})
	}

	return candidates, nil
}

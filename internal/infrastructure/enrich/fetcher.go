package enrich

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"marketflow/internal/config"
	"marketflow/internal/ports"
)

const userAgent = "Mozilla/5.0 (compatible; MarketFlowBot/1.0; +https://example.com/bot)"

// Preferred content containers, tried in order before the whole-page text.
var contentSelectors = []string{"article", "main", "div#content", "div.story", "div.article"}

// Fetcher pulls best-effort article text to give the classifier more context.
// Every failure mode degrades to an empty string; the pipeline then falls
// back to the feed summary and finally the bare headline.
type Fetcher struct {
	client      *http.Client
	maxChars    int
	skipDomains []string
	logger      *slog.Logger
}

var _ ports.Enricher = (*Fetcher)(nil)

// NewFetcher builds a fetcher from configuration.
func NewFetcher(cfg config.EnrichmentConfig, logger *slog.Logger) *Fetcher {
	skip := make([]string, 0, len(cfg.SkipDomains))
	for _, d := range cfg.SkipDomains {
		skip = append(skip, strings.ToLower(strings.TrimSpace(d)))
	}
	return &Fetcher{
		client:      &http.Client{Timeout: cfg.Timeout()},
		maxChars:    cfg.MaxChars,
		skipDomains: skip,
		logger:      logger,
	}
}

// FetchContext downloads the article behind link and extracts readable text.
func (f *Fetcher) FetchContext(ctx context.Context, link string) string {
	if link == "" || f.skipped(link) {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.debug("article fetch failed", "link", link, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.debug("article fetch rejected", "link", link, "status", resp.Status)
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	for _, selector := range contentSelectors {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if text := collapse(node.Text()); text != "" {
			return f.clip(text)
		}
	}

	return f.clip(collapse(doc.Text()))
}

// skipped reports whether the link's host is on the do-not-fetch list
// (paywalled publishers that always reject automated fetches).
func (f *Fetcher) skipped(link string) bool {
	parsed, err := url.Parse(link)
	if err != nil {
		return true
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range f.skipDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func (f *Fetcher) clip(text string) string {
	if f.maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= f.maxChars {
		return text
	}
	return string(runes[:f.maxChars])
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

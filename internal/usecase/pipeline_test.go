package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"marketflow/internal/domain"
	"marketflow/internal/ports"
)

type fakeSource struct {
	name  string
	items []domain.Candidate
	err   error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(context.Context) ([]domain.Candidate, error) {
	return f.items, f.err
}

type memStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newMemStore() *memStore {
	return &memStore{seen: map[string]struct{}{}}
}

func (s *memStore) IsSeen(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

func (s *memStore) Commit(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[key] = struct{}{}
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	sent     []string
	failNext int
}

func (n *fakeNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failNext > 0 {
		n.failNext--
		return fmt.Errorf("channel unavailable")
	}
	n.sent = append(n.sent, text)
	return nil
}

func (n *fakeNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

type stubClassifier struct {
	results map[string]domain.ClassificationResult
}

func (s *stubClassifier) Classify(_ context.Context, title, _, _ string) domain.ClassificationResult {
	if r, ok := s.results[title]; ok {
		return r
	}
	return domain.ClassificationResult{Sentiment: domain.SentimentBullish, Confidence: 70, Impact: 70}
}

var _ ports.CandidateSource = (*fakeSource)(nil)
var _ ports.SeenStore = (*memStore)(nil)
var _ ports.Notifier = (*fakeNotifier)(nil)
var _ ports.Classifier = (*stubClassifier)(nil)

func fixedNow() time.Time {
	return time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
}

func TestPipelineDedupAcrossCyclesAndSources(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	notifier := &fakeNotifier{}
	store := newMemStore()

	srcA := &fakeSource{name: "wire-a", items: []domain.Candidate{{
		Title:       "Fed cuts rates by 50bps",
		Link:        "https://a.example/fed",
		SourceLabel: "Wire A",
		PublishedAt: now.Add(-10 * time.Minute),
	}}}
	srcB := &fakeSource{name: "wire-b", items: []domain.Candidate{{
		Title:       "Fed cuts rates by 50 bps",
		Link:        "https://b.example/fed",
		SourceLabel: "Wire B",
		PublishedAt: now.Add(-5 * time.Minute),
	}}}

	p := NewPipeline(PipelineDeps{
		Sources:    []ports.CandidateSource{srcA, srcB},
		Store:      store,
		Classifier: &stubClassifier{},
		Notifier:   notifier,
		MaxAge:     4 * time.Hour,
		Now:        fixedNow,
	})

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}

	if got := len(notifier.messages()); got != 1 {
		t.Fatalf("same normalized title across sources and cycles must deliver once, got %d", got)
	}
}

func TestPipelinePostingCap(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	notifier := &fakeNotifier{}

	var items []domain.Candidate
	results := map[string]domain.ClassificationResult{}
	for i := 0; i < 5; i++ {
		title := fmt.Sprintf("Headline number %d", i)
		items = append(items, domain.Candidate{
			Title:       title,
			Link:        fmt.Sprintf("https://news.example/%d", i),
			SourceLabel: "Wire",
			PublishedAt: now.Add(-time.Minute),
		})
		results[title] = domain.ClassificationResult{
			Sentiment:  domain.SentimentBullish,
			Confidence: 70,
			Impact:     20 * (i + 1),
		}
	}

	p := NewPipeline(PipelineDeps{
		Sources:    []ports.CandidateSource{&fakeSource{name: "wire", items: items}},
		Store:      newMemStore(),
		Classifier: &stubClassifier{results: results},
		Notifier:   notifier,
		MaxAge:     4 * time.Hour,
		PostingCap: 2,
		Now:        fixedNow,
	})

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	sent := notifier.messages()
	if len(sent) != 2 {
		t.Fatalf("posting cap 2 must deliver exactly 2, got %d", len(sent))
	}
	if !strings.Contains(sent[0], "Headline number 4") || !strings.Contains(sent[1], "Headline number 3") {
		t.Fatalf("expected the two highest-impact headlines in score order, got %q then %q", sent[0], sent[1])
	}
}

func TestPipelineFailedDeliveryRetriesNextCycle(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	notifier := &fakeNotifier{failNext: 1}

	src := &fakeSource{name: "wire", items: []domain.Candidate{{
		Title:       "Nvidia beats estimates",
		Link:        "https://news.example/nvda",
		SourceLabel: "Wire",
		PublishedAt: now.Add(-time.Minute),
	}}}

	p := NewPipeline(PipelineDeps{
		Sources:    []ports.CandidateSource{src},
		Store:      newMemStore(),
		Classifier: &stubClassifier{},
		Notifier:   notifier,
		MaxAge:     4 * time.Hour,
		Now:        fixedNow,
	})

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if got := len(notifier.messages()); got != 0 {
		t.Fatalf("failed send must deliver nothing, got %d", got)
	}

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if got := len(notifier.messages()); got != 1 {
		t.Fatalf("story must stay eligible after a failed send, got %d deliveries", got)
	}

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("third cycle: %v", err)
	}
	if got := len(notifier.messages()); got != 1 {
		t.Fatalf("delivered story must not repeat, got %d deliveries", got)
	}
}

func TestPipelineConfidenceAndNeutralGates(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	notifier := &fakeNotifier{}

	items := []domain.Candidate{
		{Title: "Weak signal story", Link: "https://news.example/weak", SourceLabel: "Wire", PublishedAt: now.Add(-time.Minute)},
		{Title: "Sideways market story", Link: "https://news.example/flat", SourceLabel: "Wire", PublishedAt: now.Add(-time.Minute)},
		{Title: "Strong bullish story", Link: "https://news.example/up", SourceLabel: "Wire", PublishedAt: now.Add(-time.Minute)},
	}
	results := map[string]domain.ClassificationResult{
		"Weak signal story":     {Sentiment: domain.SentimentBullish, Confidence: 20},
		"Sideways market story": {Sentiment: domain.SentimentNeutral, Confidence: 90},
		"Strong bullish story":  {Sentiment: domain.SentimentBullish, Confidence: 90, Impact: 80},
	}

	p := NewPipeline(PipelineDeps{
		Sources:       []ports.CandidateSource{&fakeSource{name: "wire", items: items}},
		Store:         newMemStore(),
		Classifier:    &stubClassifier{results: results},
		Notifier:      notifier,
		MaxAge:        4 * time.Hour,
		MinConfidence: 50,
		HideNeutral:   true,
		Now:           fixedNow,
	})

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	sent := notifier.messages()
	if len(sent) != 1 {
		t.Fatalf("gates must drop low-confidence and neutral stories, got %d deliveries", len(sent))
	}
	if !strings.Contains(sent[0], "Strong bullish story") {
		t.Fatalf("unexpected delivery: %q", sent[0])
	}
}

func TestPipelineSkipsFailingFeed(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	notifier := &fakeNotifier{}

	broken := &fakeSource{name: "broken", err: fmt.Errorf("dns failure")}
	healthy := &fakeSource{name: "healthy", items: []domain.Candidate{{
		Title:       "Apple raises guidance",
		Link:        "https://news.example/aapl",
		SourceLabel: "Wire",
		PublishedAt: now.Add(-time.Minute),
	}}}

	p := NewPipeline(PipelineDeps{
		Sources:    []ports.CandidateSource{broken, healthy},
		Store:      newMemStore(),
		Classifier: &stubClassifier{},
		Notifier:   notifier,
		MaxAge:     4 * time.Hour,
		Now:        fixedNow,
	})

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if got := len(notifier.messages()); got != 1 {
		t.Fatalf("a failing feed must not block the healthy one, got %d deliveries", got)
	}
}

func TestPipelineDropsStaleAndMalformed(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	notifier := &fakeNotifier{}

	items := []domain.Candidate{
		{Title: "", Link: "https://news.example/untitled", SourceLabel: "Wire", PublishedAt: now},
		{Title: "No link story", SourceLabel: "Wire", PublishedAt: now},
		{Title: "Yesterday's news", Link: "https://news.example/old", SourceLabel: "Wire", PublishedAt: now.Add(-5 * time.Hour)},
		{Title: "Breaking story", Link: "https://news.example/new", SourceLabel: "Wire", PublishedAt: now.Add(-time.Minute)},
	}

	p := NewPipeline(PipelineDeps{
		Sources:    []ports.CandidateSource{&fakeSource{name: "wire", items: items}},
		Store:      newMemStore(),
		Classifier: &stubClassifier{},
		Notifier:   notifier,
		MaxAge:     4 * time.Hour,
		Now:        fixedNow,
	})

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	sent := notifier.messages()
	if len(sent) != 1 || !strings.Contains(sent[0], "Breaking story") {
		t.Fatalf("only the fresh, well-formed story must survive, got %v", sent)
	}
}

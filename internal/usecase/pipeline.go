package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"marketflow/internal/domain"
	"marketflow/internal/ports"
)

const feedFanout = 4

// PipelineDeps wires all driven adapters into the news pipeline.
type PipelineDeps struct {
	Sources       []ports.CandidateSource
	Store         ports.SeenStore
	Enricher      ports.Enricher
	Classifier    ports.Classifier
	Notifier      ports.Notifier
	Relevance     *RelevanceFilter
	Ranker        Ranker
	MaxAge        time.Duration
	PostingCap    int
	MinConfidence int
	HideNeutral   bool
	Location      *time.Location
	Logger        *slog.Logger
	Now           func() time.Time
}

// Pipeline implements one fetch→dedup→filter→classify→rank→deliver cycle.
type Pipeline struct {
	sources       []ports.CandidateSource
	store         ports.SeenStore
	enricher      ports.Enricher
	classifier    ports.Classifier
	notifier      ports.Notifier
	relevance     *RelevanceFilter
	ranker        Ranker
	maxAge        time.Duration
	postingCap    int
	minConfidence int
	hideNeutral   bool
	loc           *time.Location
	logger        *slog.Logger
	now           func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Relevance == nil {
		deps.Relevance = NewRelevanceFilter(nil)
	}
	if deps.Ranker.HalfLife == 0 {
		deps.Ranker = NewRanker()
	}
	if deps.Location == nil {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.UTC
		}
		deps.Location = loc
	}
	return &Pipeline{
		sources:       deps.Sources,
		store:         deps.Store,
		enricher:      deps.Enricher,
		classifier:    deps.Classifier,
		notifier:      deps.Notifier,
		relevance:     deps.Relevance,
		ranker:        deps.Ranker,
		maxAge:        deps.MaxAge,
		postingCap:    deps.PostingCap,
		minConfidence: deps.MinConfidence,
		hideNeutral:   deps.HideNeutral,
		loc:           deps.Location,
		logger:        deps.Logger,
		now:           deps.Now,
	}
}

// RunCycle executes one full pass across all configured sources. Per-feed
// and per-item failures are logged and skipped; only context cancellation
// escapes to the cycle boundary.
func (p *Pipeline) RunCycle(ctx context.Context) error {
	candidates := p.harvest(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	now := p.now().UTC()
	admissible := p.admit(ctx, candidates, now)
	scored := p.classifyAll(ctx, admissible, now)
	winners := SelectTop(scored, p.postingCap)

	delivered := 0
	for _, winner := range winners {
		if err := ctx.Err(); err != nil {
			return err
		}

		message := formatAlert(winner, p.loc)
		if err := p.notifier.Send(ctx, message); err != nil {
			// No commit: the story stays eligible for a later cycle.
			p.warn("delivery failed", "title", winner.Candidate.Title, "error", err)
			continue
		}

		key := ComputeKey(winner.Candidate)
		if err := p.store.Commit(ctx, key); err != nil {
			p.warn("dedup commit failed", "key", key, "error", err)
		}
		delivered++
	}

	p.info("cycle complete",
		"harvested", len(candidates),
		"admissible", len(admissible),
		"selected", len(winners),
		"delivered", delivered,
	)
	return nil
}

// harvest fetches all feeds with bounded concurrency and merges the results.
// One bad feed never blocks the others; its failure is logged and skipped.
func (p *Pipeline) harvest(ctx context.Context) []domain.Candidate {
	var (
		mu  sync.Mutex
		all []domain.Candidate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(feedFanout)
	for _, source := range p.sources {
		source := source
		g.Go(func() error {
			items, err := source.Fetch(gctx)
			if err != nil {
				p.warn("feed fetch failed", "feed", source.Name(), "error", err)
				return nil
			}
			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return all
}

// admit applies identity, freshness and relevance gates. All feeds are
// merged before the identity check so a story carried by two feeds in the
// same cycle cannot be delivered twice.
func (p *Pipeline) admit(ctx context.Context, candidates []domain.Candidate, now time.Time) []domain.Candidate {
	inCycle := make(map[string]struct{}, len(candidates))
	admitted := make([]domain.Candidate, 0, len(candidates))

	for _, c := range candidates {
		if c.Title == "" || c.Link == "" {
			continue
		}

		key := ComputeKey(c)
		if _, dup := inCycle[key]; dup {
			continue
		}
		inCycle[key] = struct{}{}

		if p.store.IsSeen(ctx, key) {
			continue
		}
		if !Fresh(c, now, p.maxAge) {
			continue
		}
		if !p.relevance.LooksRelevant(c.Title, c.RawSummary) {
			continue
		}

		admitted = append(admitted, c)
	}

	return admitted
}

// classifyAll enriches and classifies the admissible candidates, applying
// the confidence threshold and the neutral-hiding toggle.
func (p *Pipeline) classifyAll(ctx context.Context, candidates []domain.Candidate, now time.Time) []domain.ScoredCandidate {
	scored := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if ctx.Err() != nil {
			return scored
		}

		contextText := c.RawSummary
		if contextText == "" && p.enricher != nil {
			contextText = p.enricher.FetchContext(ctx, c.Link)
		}

		result := p.classifier.Classify(ctx, c.Title, c.SourceLabel, contextText)
		if result.Confidence < p.minConfidence {
			continue
		}
		if p.hideNeutral && result.Sentiment == domain.SentimentNeutral {
			continue
		}

		var age time.Duration
		if c.HasPublishTime() {
			age = now.Sub(c.PublishedAt)
		}

		scored = append(scored, domain.ScoredCandidate{
			Candidate: c,
			Result:    result,
			Score:     p.ranker.Score(result, age),
		})
	}
	return scored
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

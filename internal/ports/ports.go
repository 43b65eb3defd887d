package ports

import (
	"context"

	"marketflow/internal/domain"
)

// CandidateSource pulls raw candidates from one upstream feed. Transport and
// parse failures surface as errors so the pipeline can log and skip the feed;
// a failed source never blocks the others.
type CandidateSource interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Candidate, error)
}

// CalendarSource pulls scheduled economic events, pre-filtered to the
// tracked currency and impact tier.
type CalendarSource interface {
	Fetch(ctx context.Context) ([]domain.CalendarEvent, error)
}

// SeenStore tracks delivered identity keys across process restarts.
// Commit is idempotent; IsSeen fails open to "not seen" on storage trouble.
type SeenStore interface {
	IsSeen(ctx context.Context, key string) bool
	Commit(ctx context.Context, key string) error
}

// Enricher fetches best-effort article text for classification context.
// It returns an empty string on any failure and never an error.
type Enricher interface {
	FetchContext(ctx context.Context, link string) string
}

// Classifier maps a headline plus context to a directional verdict. It must
// always return a well-formed result, even when its backend is down.
type Classifier interface {
	Classify(ctx context.Context, title, source, contextText string) domain.ClassificationResult
}

// Notifier delivers one formatted alert to the output channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Scheduler drives the recurring cycle job until the context is cancelled.
type Scheduler interface {
	Start(ctx context.Context, job func(context.Context) error) error
	Stop(ctx context.Context) error
}

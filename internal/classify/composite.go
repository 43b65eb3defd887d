package classify

import (
	"context"
	"log/slog"
	"strings"

	"marketflow/internal/domain"
	"marketflow/internal/ports"
)

// Backend is a remote inference service that may refuse a verdict.
type Backend interface {
	Infer(ctx context.Context, title, source, contextText string) (domain.ClassificationResult, error)
}

// Composite runs the remote backend first and the keyword fallback whenever
// the backend is absent or yields no verdict. With DirectionalBias set, a
// unilateral keyword hit overrides an explicit Neutral from the backend.
type Composite struct {
	backend         Backend
	fallback        *KeywordClassifier
	directionalBias bool
	logger          *slog.Logger
}

var _ ports.Classifier = (*Composite)(nil)

// NewComposite wires the backend (may be nil) over the keyword fallback.
func NewComposite(backend Backend, fallback *KeywordClassifier, directionalBias bool, logger *slog.Logger) *Composite {
	return &Composite{
		backend:         backend,
		fallback:        fallback,
		directionalBias: directionalBias,
		logger:          logger,
	}
}

// Classify always returns a well-formed result with one of the three
// enumerated sentiments.
func (c *Composite) Classify(ctx context.Context, title, source, contextText string) domain.ClassificationResult {
	if c.backend == nil {
		return c.fallback.Classify(ctx, title, source, contextText)
	}

	result, err := c.backend.Infer(ctx, title, source, contextText)
	if err != nil {
		c.debug("inference unavailable, using keyword fallback", "title", title, "error", err)
		return c.fallback.Classify(ctx, title, source, contextText)
	}

	if result.Sentiment == domain.SentimentNeutral && c.directionalBias {
		lowered := strings.ToLower(title + " " + contextText)
		if direction, ok := c.fallback.Scan(lowered); ok {
			result.Sentiment = direction
			if result.Confidence < directionalConfidence {
				result.Confidence = directionalConfidence
			}
		}
	}

	return result
}

func (c *Composite) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

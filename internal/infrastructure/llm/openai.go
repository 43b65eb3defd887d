package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"marketflow/internal/config"
	"marketflow/internal/domain"
)

// ErrNoVerdict marks responses that could not be turned into a usable
// verdict; callers fall back to the keyword classifier instead of erroring.
var ErrNoVerdict = errors.New("no verdict from inference backend")

const systemPrompt = `You are a veteran US equities day trader. ` +
	`Classify the headline's likely impact on the NASDAQ (US tech-heavy index) ` +
	`over the next 1-3 sessions as Bullish, Bearish, or Neutral. ` +
	`Consider: Fed policy, yields, inflation, geopolitics, earnings, guidance, ` +
	`chips/AI, regulation, fiscal news, big-cap tech moves. ` +
	`Return JSON only, no other text: ` +
	`{"sentiment":"Bullish|Bearish|Neutral","confidence":0-100,"impact":0-100,"summary":"one sentence, <=25 words"}`

// OpenAIClassifier issues one chat-completion request per candidate and
// parses the strictly-structured reply defensively.
type OpenAIClassifier struct {
	client  *openai.Client
	model   openai.ChatModel
	timeout time.Duration
}

// NewOpenAIClassifier builds a classifier, or nil when no API key is
// configured (the pipeline then runs on the keyword fallback alone).
func NewOpenAIClassifier(cfg config.OpenAIConfig) *OpenAIClassifier {
	if cfg.APIKey == "" {
		return nil
	}
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	model := openai.ChatModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.ChatModelGPT4oMini
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAIClassifier{client: &client, model: model, timeout: timeout}
}

// Infer requests a verdict for one headline. Transport failures, empty
// responses and malformed payloads all collapse into ErrNoVerdict.
func (c *OpenAIClassifier) Infer(ctx context.Context, title, source, contextText string) (domain.ClassificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	user := fmt.Sprintf("Source: %s\nHeadline: %s\nContext:\n%s", source, title, clipRunes(contextText, 1200))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: %v", ErrNoVerdict, err)
	}
	if len(resp.Choices) == 0 {
		return domain.ClassificationResult{}, fmt.Errorf("%w: empty response", ErrNoVerdict)
	}

	return ParseVerdict(resp.Choices[0].Message.Content)
}

// ParseVerdict validates the model reply at the boundary. Anything missing
// or out of range becomes ErrNoVerdict rather than a half-formed result.
func ParseVerdict(content string) (domain.ClassificationResult, error) {
	payload := extractJSON(content)
	if payload == "" {
		return domain.ClassificationResult{}, fmt.Errorf("%w: no JSON object in %q", ErrNoVerdict, clipRunes(content, 120))
	}

	var parsed struct {
		Sentiment  string `json:"sentiment"`
		Confidence int    `json:"confidence"`
		Impact     int    `json:"impact"`
		Summary    string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: %v", ErrNoVerdict, err)
	}

	var sentiment domain.Sentiment
	switch strings.ToLower(strings.TrimSpace(parsed.Sentiment)) {
	case "bullish":
		sentiment = domain.SentimentBullish
	case "bearish":
		sentiment = domain.SentimentBearish
	case "neutral":
		sentiment = domain.SentimentNeutral
	default:
		return domain.ClassificationResult{}, fmt.Errorf("%w: sentiment %q", ErrNoVerdict, parsed.Sentiment)
	}

	return domain.ClassificationResult{
		Sentiment:  sentiment,
		Confidence: clampScore(parsed.Confidence),
		Impact:     clampScore(parsed.Impact),
		Summary:    clipRunes(strings.TrimSpace(parsed.Summary), 300),
	}, nil
}

// extractJSON strips code fences and surrounding prose around the reply's
// JSON object.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clipRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "MARKETFLOW_CONFIG"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
	openAIKeyEnv     = "OPENAI_API_KEY"
	openAIModelEnv   = "OPENAI_MODEL"
	databasePathEnv  = "DATABASE_PATH"
	pollSecondsEnv   = "POLL_SECONDS"
	maxAgeHoursEnv   = "MAX_AGE_HOURS"
	maxPostsEnv      = "MAX_POSTS_PER_CYCLE"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Poll       PollConfig       `yaml:"poll"`
	News       NewsConfig       `yaml:"news"`
	Calendar   CalendarConfig   `yaml:"calendar"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Storage    StorageConfig    `yaml:"storage"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PollConfig defines the cycle cadence and the failure backoff envelope.
type PollConfig struct {
	IntervalSeconds   int `yaml:"intervalSeconds"`
	BackoffMinSeconds int `yaml:"backoffMinSeconds"`
	BackoffMaxSeconds int `yaml:"backoffMaxSeconds"`
}

// Interval is the pause between cycle completions.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// BackoffMin is the initial retry delay after a failed cycle.
func (p PollConfig) BackoffMin() time.Duration {
	return time.Duration(p.BackoffMinSeconds) * time.Second
}

// BackoffMax caps the exponential retry delay.
func (p PollConfig) BackoffMax() time.Duration {
	return time.Duration(p.BackoffMaxSeconds) * time.Second
}

// FeedConfig describes one RSS feed endpoint.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// NewsConfig groups the news-pipeline admission and budget knobs.
type NewsConfig struct {
	Feeds            []FeedConfig `yaml:"feeds"`
	MaxAgeHours      float64      `yaml:"maxAgeHours"`
	MaxPostsPerCycle int          `yaml:"maxPostsPerCycle"`
	MinConfidence    int          `yaml:"minConfidence"`
	HideNeutral      bool         `yaml:"hideNeutral"`
	RelevanceTerms   []string     `yaml:"relevanceTerms"`
}

// MaxAge converts the freshness window into a duration.
func (n NewsConfig) MaxAge() time.Duration {
	return time.Duration(n.MaxAgeHours * float64(time.Hour))
}

// CalendarConfig describes the economic-calendar alert source.
type CalendarConfig struct {
	Enabled             bool   `yaml:"enabled"`
	URL                 string `yaml:"url"`
	Currency            string `yaml:"currency"`
	LookaheadMinutes    int    `yaml:"lookaheadMinutes"`
	ResultWindowMinutes int    `yaml:"resultWindowMinutes"`
}

// Lookahead is the pre-event reminder window.
func (c CalendarConfig) Lookahead() time.Duration {
	return time.Duration(c.LookaheadMinutes) * time.Minute
}

// ResultWindow is the post-event window for result alerts.
func (c CalendarConfig) ResultWindow() time.Duration {
	return time.Duration(c.ResultWindowMinutes) * time.Minute
}

// EnrichmentConfig bounds the article-text fetch.
type EnrichmentConfig struct {
	TimeoutSeconds int      `yaml:"timeoutSeconds"`
	MaxChars       int      `yaml:"maxChars"`
	SkipDomains    []string `yaml:"skipDomains"`
}

// Timeout is the per-article request deadline.
func (e EnrichmentConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// OpenAIConfig defines how to contact the inference backend. An empty APIKey
// disables the backend entirely; the keyword fallback then carries the load.
type OpenAIConfig struct {
	APIKey         string `yaml:"apiKey"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// Timeout is the per-call inference deadline.
func (o OpenAIConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// ClassifierConfig wires the inference backend with the keyword fallback.
// DirectionalBias lets a unilateral keyword hit override an explicit Neutral
// verdict from the backend; this is a deliberate tilt toward issuing
// directional calls.
type ClassifierConfig struct {
	OpenAI          OpenAIConfig `yaml:"openai"`
	DirectionalBias bool         `yaml:"directionalBias"`
	BullishCues     []string     `yaml:"bullishCues"`
	BearishCues     []string     `yaml:"bearishCues"`
}

// TelegramConfig wires all data required to send alerts.
type TelegramConfig struct {
	BotToken      string `yaml:"botToken"`
	ChatID        string `yaml:"chatId"`
	SendGapMillis int    `yaml:"sendGapMillis"`
	StartupBanner bool   `yaml:"startupBanner"`
}

// SendGap is the minimum spacing between consecutive deliveries.
func (t TelegramConfig) SendGap() time.Duration {
	return time.Duration(t.SendGapMillis) * time.Millisecond
}

// StorageConfig describes the durable seen-key store.
type StorageConfig struct {
	Path         string `yaml:"path"`
	RetentionCap int    `yaml:"retentionCap"`
}

// Load reads YAML configuration (if present) over the defaults and applies
// environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// Validate reports fatal misconfiguration. Only missing delivery credentials
// are fatal; everything else has a safe default.
func (c Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is not configured")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram chat id is not configured")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.Classifier.OpenAI.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.Classifier.OpenAI.Model = v
	}
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Storage.Path = v
	}
	if v, ok := envInt(pollSecondsEnv); ok {
		c.Poll.IntervalSeconds = v
	}
	if v, ok := envFloat(maxAgeHoursEnv); ok {
		c.News.MaxAgeHours = v
	}
	if v, ok := envInt(maxPostsEnv); ok {
		c.News.MaxPostsPerCycle = v
	}
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: ignoring %s=%q: %v", name, raw, err)
		return 0, false
	}
	return v, true
}

func envFloat(name string) (float64, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config: ignoring %s=%q: %v", name, raw, err)
		return 0, false
	}
	return v, true
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Poll: PollConfig{
			IntervalSeconds:   60,
			BackoffMinSeconds: 5,
			BackoffMaxSeconds: 180,
		},
		News: NewsConfig{
			Feeds:            defaultFeeds(),
			MaxAgeHours:      4,
			MaxPostsPerCycle: 25,
			MinConfidence:    0,
			HideNeutral:      false,
			RelevanceTerms:   defaultRelevanceTerms(),
		},
		Calendar: CalendarConfig{
			Enabled:             true,
			URL:                 "https://nfs.faireconomy.media/ff_calendar_thisweek.xml",
			Currency:            "USD",
			LookaheadMinutes:    5,
			ResultWindowMinutes: 15,
		},
		Enrichment: EnrichmentConfig{
			TimeoutSeconds: 25,
			MaxChars:       4000,
			SkipDomains:    []string{"wsj.com", "ft.com", "bloomberg.com"},
		},
		Classifier: ClassifierConfig{
			OpenAI: OpenAIConfig{
				Model:          "gpt-4o-mini",
				TimeoutSeconds: 20,
			},
			DirectionalBias: true,
			BullishCues:     defaultBullishCues(),
			BearishCues:     defaultBearishCues(),
		},
		Telegram: TelegramConfig{
			SendGapMillis: 500,
			StartupBanner: true,
		},
		Storage: StorageConfig{
			Path:         "marketflow.db",
			RetentionCap: 10000,
		},
	}
}

func defaultFeeds() []FeedConfig {
	return []FeedConfig{
		{Name: "Reuters Markets", URL: "https://www.reuters.com/markets/us/rss"},
		{Name: "Reuters Earnings", URL: "https://www.reuters.com/markets/earnings/rss"},
		{Name: "Reuters Technology", URL: "https://www.reuters.com/technology/rss"},
		{Name: "CNBC Top News", URL: "https://www.cnbc.com/id/100003114/device/rss/rss.html"},
		{Name: "CNBC Technology", URL: "https://www.cnbc.com/id/100727362/device/rss/rss.html"},
		{Name: "Yahoo Finance", URL: "https://finance.yahoo.com/news/rssindex"},
		{Name: "MarketWatch", URL: "https://www.marketwatch.com/rss/topstories"},
		{Name: "AP Business", URL: "https://apnews.com/hub/business?output=rss"},
		{Name: "CBS Business", URL: "https://www.cbsnews.com/latest/rss/business"},
		{Name: "BBC Business", URL: "https://feeds.bbci.co.uk/news/business/rss.xml"},
		{Name: "NYT Business", URL: "https://rss.nytimes.com/services/xml/rss/nyt/Business.xml"},
		{Name: "Nasdaq Market News", URL: "https://www.nasdaq.com/feed/rssoutbound?category=MarketNews"},
		{Name: "Nasdaq Earnings", URL: "https://www.nasdaq.com/feed/rssoutbound?category=Earnings"},
		{Name: "Federal Reserve", URL: "https://www.federalreserve.gov/feeds/press_all.xml"},
		{Name: "Fed Monetary Policy", URL: "https://www.federalreserve.gov/feeds/press_monetary.xml"},
		{Name: "US Treasury", URL: "https://home.treasury.gov/news/press-releases/all/feed"},
		{Name: "BLS", URL: "https://www.bls.gov/feed/news.rss"},
		{Name: "BEA", URL: "https://www.bea.gov/news/rss.xml"},
		{Name: "SEC Press", URL: "https://www.sec.gov/news/pressreleases.rss"},
	}
}

// The prefilter must stay broad: a wrongly rejected story is gone for good,
// while a false positive just costs one classifier call.
func defaultRelevanceTerms() []string {
	return []string{
		"fed", "fomc", "rate", "inflation", "cpi", "ppi", "pce",
		"jobs", "payroll", "unemployment", "gdp", "treasury", "yield",
		"earnings", "guidance", "revenue", "forecast", "outlook",
		"nasdaq", "s&p", "dow", "stocks", "shares", "market",
		"tech", "ai", "chip", "semiconductor", "cloud", "software",
		"tariff", "sanction", "regulation", "antitrust", "sec",
		"oil", "energy", "china", "economy", "recession", "stimulus",
	}
}

func defaultBullishCues() []string {
	return []string{
		"beats estimates", "tops estimates", "beats expectations",
		"raises guidance", "lifts guidance", "record revenue",
		"rate cut", "cuts rates", "dovish", "stimulus",
		"strong demand", "upgrade", "buyback", "cooling inflation",
		"inflation eases", "surges", "rallies",
	}
}

func defaultBearishCues() []string {
	return []string{
		"misses estimates", "misses expectations", "cuts guidance",
		"lowers guidance", "rate hike", "hikes rates", "hawkish",
		"lawsuit", "probe", "investigation", "downgrade", "layoffs",
		"recession fears", "default", "sanctions", "tumbles",
		"plunges", "inflation accelerates", "hot inflation",
	}
}

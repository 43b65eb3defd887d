package app

import (
	"context"
	"log/slog"

	"marketflow/internal/classify"
	"marketflow/internal/config"
	"marketflow/internal/infrastructure/enrich"
	"marketflow/internal/infrastructure/feed"
	"marketflow/internal/infrastructure/llm"
	"marketflow/internal/infrastructure/scheduler"
	"marketflow/internal/infrastructure/storage"
	"marketflow/internal/infrastructure/telegram"
	"marketflow/internal/logging"
	"marketflow/internal/ports"
	"marketflow/internal/usecase"
)

const startupBanner = "✅ MarketFlow live — curated US market feeds + economic calendar."

// Seen-set scopes; news, reminders and results deduplicate independently.
const (
	scopeNews     = "news"
	scopeReminded = "calendar_reminded"
	scopeReleased = "calendar_released"
)

// Application wires configuration to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *storage.DB
	notifier  ports.Notifier
	pipeline  *usecase.Pipeline
	calendar  *usecase.CalendarAlerts
	scheduler ports.Scheduler
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db := storage.Open(cfg.Storage.Path, baseLogger.With("component", "storage"))
	notifier := telegram.NewNotifier(cfg.Telegram)

	sources := make([]ports.CandidateSource, 0, len(cfg.News.Feeds))
	for _, fc := range cfg.News.Feeds {
		sources = append(sources, feed.NewRSSSource(fc.Name, fc.URL))
	}

	var backend classify.Backend
	if remote := llm.NewOpenAIClassifier(cfg.Classifier.OpenAI); remote != nil {
		backend = remote
	}
	classifier := classify.NewComposite(
		backend,
		classify.NewKeywordClassifier(cfg.Classifier.BullishCues, cfg.Classifier.BearishCues),
		cfg.Classifier.DirectionalBias,
		baseLogger.With("component", "classifier"),
	)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:       sources,
		Store:         db.Scope(scopeNews, cfg.Storage.RetentionCap),
		Enricher:      enrich.NewFetcher(cfg.Enrichment, baseLogger.With("component", "enrich")),
		Classifier:    classifier,
		Notifier:      notifier,
		Relevance:     usecase.NewRelevanceFilter(cfg.News.RelevanceTerms),
		Ranker:        usecase.NewRanker(),
		MaxAge:        cfg.News.MaxAge(),
		PostingCap:    cfg.News.MaxPostsPerCycle,
		MinConfidence: cfg.News.MinConfidence,
		HideNeutral:   cfg.News.HideNeutral,
		Logger:        baseLogger.With("component", "pipeline"),
	})

	var calendar *usecase.CalendarAlerts
	if cfg.Calendar.Enabled {
		calendar = usecase.NewCalendarAlerts(usecase.CalendarAlertsDeps{
			Source:       feed.NewCalendarSource(cfg.Calendar.URL, cfg.Calendar.Currency, nil),
			Reminded:     db.Scope(scopeReminded, cfg.Storage.RetentionCap),
			Released:     db.Scope(scopeReleased, cfg.Storage.RetentionCap),
			Notifier:     notifier,
			Lookahead:    cfg.Calendar.Lookahead(),
			ResultWindow: cfg.Calendar.ResultWindow(),
			Logger:       baseLogger.With("component", "calendar"),
		})
	}

	driver := scheduler.NewInterval(
		cfg.Poll.Interval(),
		cfg.Poll.BackoffMin(),
		cfg.Poll.BackoffMax(),
		baseLogger.With("component", "scheduler"),
	)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		notifier:  notifier,
		pipeline:  pipeline,
		calendar:  calendar,
		scheduler: driver,
	}
}

// Run starts the cycle loop and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing seen store", "error", err)
		}
	}()

	if a.cfg.Telegram.StartupBanner {
		if err := a.notifier.Send(ctx, startupBanner); err != nil {
			a.logger.Warn("startup banner failed", "error", err)
		}
	}

	job := func(ctx context.Context) error {
		if err := a.pipeline.RunCycle(ctx); err != nil {
			return err
		}
		if a.calendar != nil {
			return a.calendar.RunCycle(ctx)
		}
		return nil
	}

	if err := a.scheduler.Start(ctx, job); err != nil {
		return err
	}
	<-ctx.Done()
	return a.scheduler.Stop(context.Background())
}

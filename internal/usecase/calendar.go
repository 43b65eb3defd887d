package usecase

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"marketflow/internal/domain"
	"marketflow/internal/ports"
)

// CalendarAlertsDeps wires the economic-calendar alert flow.
type CalendarAlertsDeps struct {
	Source       ports.CalendarSource
	Reminded     ports.SeenStore
	Released     ports.SeenStore
	Notifier     ports.Notifier
	Lookahead    time.Duration
	ResultWindow time.Duration
	Location     *time.Location
	Logger       *slog.Logger
	Now          func() time.Time
}

// CalendarAlerts fires two alert types per scheduled release: a reminder in
// the lookahead window before it, and a result once the actual value lands
// inside the post-window. Each type keeps its own seen set, independent of
// the news dedup store.
type CalendarAlerts struct {
	source       ports.CalendarSource
	reminded     ports.SeenStore
	released     ports.SeenStore
	notifier     ports.Notifier
	lookahead    time.Duration
	resultWindow time.Duration
	loc          *time.Location
	logger       *slog.Logger
	now          func() time.Time
}

// NewCalendarAlerts constructs the calendar flow.
func NewCalendarAlerts(deps CalendarAlertsDeps) *CalendarAlerts {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.UTC
		}
		deps.Location = loc
	}
	return &CalendarAlerts{
		source:       deps.Source,
		reminded:     deps.Reminded,
		released:     deps.Released,
		notifier:     deps.Notifier,
		lookahead:    deps.Lookahead,
		resultWindow: deps.ResultWindow,
		loc:          deps.Location,
		logger:       deps.Logger,
		now:          deps.Now,
	}
}

// RunCycle fetches the calendar and fires any due reminders and results.
func (a *CalendarAlerts) RunCycle(ctx context.Context) error {
	events, err := a.source.Fetch(ctx)
	if err != nil {
		a.warn("calendar fetch failed", "error", err)
		return nil
	}

	now := a.now().UTC()
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.maybeRemind(ctx, event, now)
		a.maybeReport(ctx, event, now)
	}
	return nil
}

func (a *CalendarAlerts) maybeRemind(ctx context.Context, event domain.CalendarEvent, now time.Time) {
	untilEvent := event.At.Sub(now)
	if untilEvent < 0 || untilEvent > a.lookahead {
		return
	}
	if a.reminded.IsSeen(ctx, event.ID) {
		return
	}

	message := fmt.Sprintf(
		"⏳ <b>%s</b> in ~%d min\nForecast: %s | Previous: %s\n\U0001F552 %s",
		html.EscapeString(event.Title),
		int(untilEvent.Minutes()),
		html.EscapeString(orDash(event.Forecast)),
		html.EscapeString(orDash(event.Previous)),
		html.EscapeString(exchangeTime(event.At, a.loc)),
	)
	if err := a.notifier.Send(ctx, message); err != nil {
		a.warn("reminder delivery failed", "event", event.Title, "error", err)
		return
	}
	if err := a.reminded.Commit(ctx, event.ID); err != nil {
		a.warn("reminder commit failed", "event", event.ID, "error", err)
	}
}

func (a *CalendarAlerts) maybeReport(ctx context.Context, event domain.CalendarEvent, now time.Time) {
	sinceEvent := now.Sub(event.At)
	if sinceEvent < 0 || sinceEvent > a.resultWindow {
		return
	}
	if !event.Released() {
		return
	}
	if a.released.IsSeen(ctx, event.ID) {
		return
	}

	direction := InferDirection(event.Title, event.Actual, event.Forecast)
	message := fmt.Sprintf(
		"\U0001F4CA <b>%s</b>\nActual: %s | Forecast: %s | Previous: %s\n%s %s %s\n\U0001F552 %s",
		html.EscapeString(event.Title),
		html.EscapeString(event.Actual),
		html.EscapeString(orDash(event.Forecast)),
		html.EscapeString(orDash(event.Previous)),
		direction.Arrow(),
		indexLabel,
		direction,
		html.EscapeString(exchangeTime(event.At, a.loc)),
	)
	if err := a.notifier.Send(ctx, message); err != nil {
		a.warn("result delivery failed", "event", event.Title, "error", err)
		return
	}
	if err := a.released.Commit(ctx, event.ID); err != nil {
		a.warn("result commit failed", "event", event.ID, "error", err)
	}
}

// InferDirection maps an economic print to its likely index direction.
// Inflation and unemployment surprises to the upside read bearish; growth
// prints (payrolls, retail sales, ISM/PMI) follow the surprise.
func InferDirection(title, actual, forecast string) domain.Sentiment {
	a, okA := parseNumber(actual)
	f, okF := parseNumber(forecast)
	if !okA || !okF || a == f {
		return domain.SentimentNeutral
	}

	lowered := strings.ToLower(title)
	inverse := containsAnyOf(lowered, "cpi", "pce", "ppi", "inflation", "unemployment")
	direct := containsAnyOf(lowered, "nonfarm", "payroll", "retail sales", "ism", "pmi", "gdp")

	switch {
	case inverse:
		if a > f {
			return domain.SentimentBearish
		}
		return domain.SentimentBullish
	case direct:
		if a > f {
			return domain.SentimentBullish
		}
		return domain.SentimentBearish
	default:
		return domain.SentimentNeutral
	}
}

var nonNumericExpr = regexp.MustCompile(`[^\d.\-]`)

// parseNumber extracts a float from calendar values like "3.2%" or "250K".
func parseNumber(raw string) (float64, bool) {
	cleaned := nonNumericExpr.ReplaceAllString(raw, "")
	if cleaned == "" || cleaned == "." || cleaned == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func containsAnyOf(text string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func (a *CalendarAlerts) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}

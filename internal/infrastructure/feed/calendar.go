package feed

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"marketflow/internal/domain"
	"marketflow/internal/ports"
)

// CalendarSource fetches the weekly economic-calendar XML and keeps only
// high-impact events for the tracked currency.
type CalendarSource struct {
	url      string
	currency string
	client   *http.Client
	eastern  *time.Location
}

var _ ports.CalendarSource = (*CalendarSource)(nil)

// NewCalendarSource wires an HTTP client for the calendar feed.
func NewCalendarSource(url, currency string, client *http.Client) *CalendarSource {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	eastern, err := time.LoadLocation("America/New_York")
	if err != nil {
		eastern = time.UTC
	}
	return &CalendarSource{
		url:      url,
		currency: currency,
		client:   client,
		eastern:  eastern,
	}
}

type calendarDocument struct {
	Events []calendarEvent `xml:"event"`
}

type calendarEvent struct {
	ID       string `xml:"id"`
	Title    string `xml:"title"`
	Country  string `xml:"country"`
	Impact   string `xml:"impact"`
	Date     string `xml:"date"`
	Time     string `xml:"time"`
	Timezone string `xml:"timezone"`
	Forecast string `xml:"forecast"`
	Previous string `xml:"previous"`
	Actual   string `xml:"actual"`
}

// Fetch downloads and filters the calendar. Events without a concrete
// schedule time (all-day rows) are skipped; they cannot drive timed alerts.
func (s *CalendarSource) Fetch(ctx context.Context) ([]domain.CalendarEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar returned %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}

	var doc calendarDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var events []domain.CalendarEvent
	for _, ev := range doc.Events {
		if strings.TrimSpace(ev.Country) != s.currency {
			continue
		}
		if !strings.Contains(strings.ToLower(ev.Impact), "high") {
			continue
		}

		timeText := strings.TrimSpace(ev.Time)
		if timeText == "" || strings.HasPrefix(strings.ToLower(timeText), "all") {
			continue
		}

		at, ok := s.parseSchedule(strings.TrimSpace(ev.Date), timeText, ev.Timezone)
		if !ok {
			continue
		}

		id := strings.TrimSpace(ev.ID)
		if id == "" {
			id = eventUID(ev.Title, ev.Date, ev.Time)
		}

		events = append(events, domain.CalendarEvent{
			ID:       id,
			Title:    strings.TrimSpace(ev.Title),
			At:       at,
			Forecast: strings.TrimSpace(ev.Forecast),
			Previous: strings.TrimSpace(ev.Previous),
			Actual:   strings.TrimSpace(ev.Actual),
		})
	}

	return events, nil
}

func (s *CalendarSource) parseSchedule(date, clock, tz string) (time.Time, bool) {
	loc := time.UTC
	lowered := strings.ToLower(tz)
	if strings.Contains(lowered, "est") || strings.Contains(lowered, "edt") || strings.Contains(lowered, "new york") {
		loc = s.eastern
	}

	at, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, false
	}
	return at.UTC(), true
}

func eventUID(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "||")))
	return hex.EncodeToString(sum[:])
}

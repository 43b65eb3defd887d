package domain

import "time"

// CalendarEvent is one scheduled economic release from the calendar feed,
// already filtered to the tracked currency and impact tier. Forecast,
// Previous and Actual are carried verbatim; Actual stays empty until the
// print is released.
type CalendarEvent struct {
	ID       string
	Title    string
	At       time.Time
	Forecast string
	Previous string
	Actual   string
}

// Released reports whether the actual value has been published.
func (e CalendarEvent) Released() bool {
	return e.Actual != ""
}

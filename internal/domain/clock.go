package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// DateLayout is the calendar-date form used for date and date_retrieved
// columns and for partition directory values.
const DateLayout = "2006-01-02"

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic
// retrieval dates and commit timestamps.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock, in UTC.
func Now() time.Time {
	return clock.Now().UTC()
}

// Today returns the current UTC calendar date in DateLayout form. Used to
// stamp date_retrieved on extracted rows.
func Today() string {
	return Now().Format(DateLayout)
}

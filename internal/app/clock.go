package app

import (
	"time"

	"recurring_payments/internal/recurrence"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Clock returns the current instant. Services take one so tests can pin "today".
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

// In returns a clock that reports instants in loc, so "today" follows that
// zone's calendar. A nil loc leaves the clock unchanged.
func (c Clock) In(loc *time.Location) Clock {
	if loc == nil {
		return c
	}
	return func() time.Time {
		if c == nil {
			return SystemClock().In(loc)
		}
		return c().In(loc)
	}
}

func (c Clock) today() time.Time {
	if c == nil {
		return recurrence.Day(SystemClock())
	}
	return recurrence.Day(c())
}

func (c Clock) now() time.Time {
	if c == nil {
		return SystemClock()
	}
	return c().UTC()
}

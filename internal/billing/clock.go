package billing

import (
	"fmt"
	"time"
)

// Clock supplies "today" as a civil date in the studio's calendar. Every
// caller of the cycle engine receives dates from a single clock so that a
// payment registered at 23:50 and the status board rendered at 00:10 agree
// on which day it is.
type Clock interface {
	Today() time.Time
}

// StudioClock resolves today against a fixed IANA location.
type StudioClock struct {
	loc *time.Location
}

// NewStudioClock loads the studio timezone. The studio operates on a fixed
// UTC-5 civil calendar, so the configured zone should be one without DST.
func NewStudioClock(timezone string) (*StudioClock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load billing timezone %q: %w", timezone, err)
	}
	return &StudioClock{loc: loc}, nil
}

// Today returns the current civil date at midnight UTC.
func (c *StudioClock) Today() time.Time {
	return DateOf(time.Now().In(c.loc))
}

// FixedClock always reports the same day. Used in tests and replays.
type FixedClock struct {
	Day time.Time
}

// Today implements Clock.
func (c FixedClock) Today() time.Time {
	return DateOf(c.Day)
}

// DateOf strips the clock portion of t, yielding a civil date anchored at
// midnight UTC. All cycle arithmetic operates on these normalized values so
// that Sub on two of them is always a whole number of days.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns b - a in whole days. Both arguments are normalized
// first, so callers may pass arbitrary timestamps.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

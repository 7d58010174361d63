// Package clock answers whether the A-share market is trading at a given
// instant and when the next session opens. All calendar arithmetic happens
// in exchange-local time.
package clock

import "time"

type Session string

const (
	SessionMorning   Session = "上午"
	SessionAfternoon Session = "下午"
	SessionClosed    Session = ""
)

// Session boundaries in minutes after exchange-local midnight.
const (
	morningOpen    = 9*60 + 30
	morningClose   = 11*60 + 30
	afternoonOpen  = 13 * 60
	afternoonClose = 15 * 60
)

const DefaultFallbackDelay = time.Minute

// State is recomputed from wall time on every call and carries no identity.
type State struct {
	Trading  bool
	Session  Session
	NextOpen time.Time
	Delay    time.Duration
}

type Clock struct {
	loc      *time.Location
	fallback time.Duration
}

// New returns a Clock for the given exchange location. A non-positive
// fallback selects DefaultFallbackDelay.
func New(loc *time.Location, fallback time.Duration) *Clock {
	if loc == nil {
		loc = time.FixedZone("CST", 8*60*60)
	}
	if fallback <= 0 {
		fallback = DefaultFallbackDelay
	}
	return &Clock{loc: loc, fallback: fallback}
}

func (c *Clock) Location() *time.Location { return c.loc }

// IsTradingTime reports whether t falls on a weekday inside [09:30, 11:30)
// or [13:00, 15:00) exchange-local.
func (c *Clock) IsTradingTime(t time.Time) bool {
	return c.SessionAt(t) != SessionClosed
}

func (c *Clock) SessionAt(t time.Time) Session {
	local := t.In(c.loc)
	if !isWeekday(local.Weekday()) {
		return SessionClosed
	}

	m := local.Hour()*60 + local.Minute()
	switch {
	case m >= morningOpen && m < morningClose:
		return SessionMorning
	case m >= afternoonOpen && m < afternoonClose:
		return SessionAfternoon
	default:
		return SessionClosed
	}
}

// NextOpen returns the start of the next trading session after t. Inside a
// session that is the following session's start. Boundaries are built with
// time.Date, so seconds and sub-seconds of t never leak into the result.
func (c *Clock) NextOpen(t time.Time) time.Time {
	local := t.In(c.loc)
	y, mo, d := local.Date()
	m := local.Hour()*60 + local.Minute()

	if isWeekday(local.Weekday()) {
		switch {
		case m < morningOpen:
			return at(y, mo, d, morningOpen, c.loc)
		case m < afternoonOpen:
			return at(y, mo, d, afternoonOpen, c.loc)
		}
	}

	next := time.Date(y, mo, d+1, 0, 0, 0, 0, c.loc)
	for !isWeekday(next.Weekday()) {
		next = next.AddDate(0, 0, 1)
	}
	ny, nmo, nd := next.Date()
	return at(ny, nmo, nd, morningOpen, c.loc)
}

// DelayUntilNextOpen never returns a non-positive duration; degenerate
// results are replaced by the fallback delay.
func (c *Clock) DelayUntilNextOpen(t time.Time) time.Duration {
	delay := c.NextOpen(t).Sub(t)
	if delay <= 0 {
		return c.fallback
	}
	return delay
}

func (c *Clock) State(t time.Time) State {
	return State{
		Trading:  c.IsTradingTime(t),
		Session:  c.SessionAt(t),
		NextOpen: c.NextOpen(t),
		Delay:    c.DelayUntilNextOpen(t),
	}
}

func isWeekday(wd time.Weekday) bool {
	return wd >= time.Monday && wd <= time.Friday
}

func at(y int, mo time.Month, d, minutes int, loc *time.Location) time.Time {
	return time.Date(y, mo, d, minutes/60, minutes%60, 0, 0, loc)
}

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var cst = time.FixedZone("CST", 8*60*60)

// 2025-06-02 is a Monday.
func cstTime(day, hour, min, sec int) time.Time {
	return time.Date(2025, 6, day, hour, min, sec, 0, cst)
}

func TestIsTradingTimeBoundaries(t *testing.T) {
	c := New(cst, 0)

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"before open", cstTime(2, 9, 29, 59), false},
		{"morning open inclusive", cstTime(2, 9, 30, 0), true},
		{"mid morning", cstTime(2, 10, 15, 0), true},
		{"last morning second", cstTime(2, 11, 29, 59), true},
		{"morning close exclusive", cstTime(2, 11, 30, 0), false},
		{"lunch", cstTime(2, 12, 0, 0), false},
		{"afternoon open inclusive", cstTime(2, 13, 0, 0), true},
		{"last afternoon second", cstTime(2, 14, 59, 59), true},
		{"afternoon close exclusive", cstTime(2, 15, 0, 0), false},
		{"evening", cstTime(2, 20, 0, 0), false},
		{"friday morning", cstTime(6, 10, 0, 0), true},
		{"saturday morning", cstTime(7, 10, 0, 0), false},
		{"sunday afternoon", cstTime(8, 14, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsTradingTime(tt.t))
		})
	}
}

func TestIsTradingTimeUsesExchangeCalendarDay(t *testing.T) {
	c := New(cst, 0)

	// Sunday 18:00 in New York is Monday 06:00 in Shanghai: closed but a weekday.
	ny := time.FixedZone("EDT", -4*60*60)
	sundayNY := time.Date(2025, 6, 1, 18, 0, 0, 0, ny)
	assert.False(t, c.IsTradingTime(sundayNY))
	assert.True(t, c.NextOpen(sundayNY).Equal(cstTime(2, 9, 30, 0)))

	// Friday 22:00 UTC is Saturday 06:00 in Shanghai.
	fridayUTC := time.Date(2025, 6, 6, 22, 0, 0, 0, time.UTC)
	assert.False(t, c.IsTradingTime(fridayUTC))
	assert.True(t, c.NextOpen(fridayUTC).Equal(cstTime(9, 9, 30, 0)))

	// Monday 02:00 UTC is Monday 10:00 in Shanghai.
	assert.True(t, c.IsTradingTime(time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC)))
}

func TestSessionAt(t *testing.T) {
	c := New(cst, 0)
	assert.Equal(t, SessionMorning, c.SessionAt(cstTime(3, 9, 31, 0)))
	assert.Equal(t, SessionAfternoon, c.SessionAt(cstTime(3, 13, 1, 0)))
	assert.Equal(t, SessionClosed, c.SessionAt(cstTime(3, 12, 0, 0)))
	assert.Equal(t, SessionClosed, c.SessionAt(cstTime(7, 10, 0, 0)))
}

func TestNextOpen(t *testing.T) {
	c := New(cst, 0)

	tests := []struct {
		name string
		t    time.Time
		want time.Time
	}{
		{"early weekday", cstTime(3, 8, 15, 42), cstTime(3, 9, 30, 0)},
		{"lunch break", cstTime(3, 12, 0, 0), cstTime(3, 13, 0, 0)},
		{"morning close", cstTime(3, 11, 30, 0), cstTime(3, 13, 0, 0)},
		{"during morning", cstTime(3, 10, 0, 0), cstTime(3, 13, 0, 0)},
		{"during afternoon", cstTime(3, 14, 0, 0), cstTime(4, 9, 30, 0)},
		{"weekday evening", cstTime(3, 16, 0, 0), cstTime(4, 9, 30, 0)},
		{"friday afternoon close", cstTime(6, 16, 0, 0), cstTime(9, 9, 30, 0)},
		{"friday close exact", cstTime(6, 15, 0, 0), cstTime(9, 9, 30, 0)},
		{"saturday", cstTime(7, 11, 0, 0), cstTime(9, 9, 30, 0)},
		{"sunday early", cstTime(8, 3, 0, 0), cstTime(9, 9, 30, 0)},
		{"sunday late", cstTime(8, 23, 59, 59), cstTime(9, 9, 30, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.NextOpen(tt.t)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
			assert.Zero(t, got.Second())
			assert.Zero(t, got.Nanosecond())
		})
	}
}

func TestNextOpenAcrossMonthEnd(t *testing.T) {
	c := New(cst, 0)
	// Friday 2025-01-31 evening rolls to Monday 2025-02-03.
	fri := time.Date(2025, 1, 31, 18, 0, 0, 0, cst)
	assert.True(t, c.NextOpen(fri).Equal(time.Date(2025, 2, 3, 9, 30, 0, 0, cst)))
}

func TestDelayUntilNextOpen(t *testing.T) {
	c := New(cst, 0)

	noon := cstTime(3, 12, 0, 0)
	assert.Equal(t, time.Hour, c.DelayUntilNextOpen(noon))

	// Sub-minute remainder is subtracted so the wake-up lands on the boundary.
	early := time.Date(2025, 6, 3, 9, 29, 15, 500_000_000, cst)
	d := c.DelayUntilNextOpen(early)
	assert.Equal(t, 44*time.Second+500*time.Millisecond, d)
	assert.True(t, early.Add(d).Equal(cstTime(3, 9, 30, 0)))

	friday := cstTime(6, 16, 0, 0)
	assert.Equal(t, 2*24*time.Hour+17*time.Hour+30*time.Minute, c.DelayUntilNextOpen(friday))
}

func TestDelayIsAlwaysPositive(t *testing.T) {
	c := New(cst, 0)
	start := cstTime(2, 0, 0, 0)
	for i := 0; i < 7*24*60; i += 7 {
		now := start.Add(time.Duration(i) * time.Minute)
		assert.Greater(t, c.DelayUntilNextOpen(now), time.Duration(0), "at %s", now)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(nil, 0)
	assert.Equal(t, DefaultFallbackDelay, c.fallback)
	_, offset := time.Now().In(c.Location()).Zone()
	assert.Equal(t, 8*60*60, offset)
}

func TestState(t *testing.T) {
	c := New(cst, 30*time.Second)

	open := c.State(cstTime(3, 10, 0, 0))
	assert.True(t, open.Trading)
	assert.Equal(t, SessionMorning, open.Session)

	closed := c.State(cstTime(3, 12, 30, 0))
	assert.False(t, closed.Trading)
	assert.Equal(t, SessionClosed, closed.Session)
	assert.True(t, closed.NextOpen.Equal(cstTime(3, 13, 0, 0)))
	assert.Equal(t, 30*time.Minute, closed.Delay)
}

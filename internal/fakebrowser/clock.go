package fakebrowser

import (
	"sort"
	"time"
)

// Clock is a manual clock. Sleep advances it and runs every event that
// became due, so page changes can be scheduled at exact instants.
type Clock struct {
	now    time.Time
	start  time.Time
	events []event
}

type event struct {
	at time.Time
	fn func()
}

// NewClock returns a clock starting at an arbitrary fixed instant.
func NewClock() *Clock {
	t := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Clock{now: t, start: t}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time { return c.now }

// Elapsed returns the time advanced since the clock was created.
func (c *Clock) Elapsed() time.Duration { return c.now.Sub(c.start) }

// Sleep advances the clock by d and fires due events in order.
func (c *Clock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	target := c.now.Add(d)
	for {
		sort.SliceStable(c.events, func(i, j int) bool { return c.events[i].at.Before(c.events[j].at) })
		if len(c.events) == 0 || c.events[0].at.After(target) {
			break
		}
		ev := c.events[0]
		c.events = c.events[1:]
		if ev.at.After(c.now) {
			c.now = ev.at
		}
		ev.fn()
	}
	c.now = target
}

// After schedules fn to run once the clock has advanced d past its start.
func (c *Clock) After(d time.Duration, fn func()) {
	c.events = append(c.events, event{at: c.start.Add(d), fn: fn})
}

// Package clock provides the notion of "now" used by reports, so tests can pin it.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// UTC is the production clock.
type UTC struct{}

func (UTC) Now() time.Time {
	return time.Now().UTC()
}

type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

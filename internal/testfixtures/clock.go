package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manually driven time source for services that take an injected
// now function.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock pinned to start, or to ReferenceTime when start is
// the zero value.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

// Now returns the pinned instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Current is an alias for Now for call sites that only read the clock.
func (c *Clock) Current() time.Time {
	return c.Now()
}

// NowFunc returns Now in the shape services expect for injection.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock forward and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

package engine

import "sync/atomic"

// Clock is the engine's logical event counter.
//
// Current is the timestamp of the event being processed; Next moves on to
// the following event. Stats readers may call Current from other goroutines.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new timestamp.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current timestamp without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Reset moves the clock back to 0.
func (c *Clock) Reset() {
	c.seq.Store(0)
}

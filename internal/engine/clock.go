package engine

import "sync/atomic"

// Clock is a monotonic logical clock. Every recorded exchange takes the
// next value, which fixes the order of a report independently of wall time.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

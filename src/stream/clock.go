package stream

import "time"

// Clock assigns timestamps to accepted samples. Two mutually exclusive modes
// are fixed at construction: wall-clock relative (zero interval) stamps each
// sample with the monotonic time elapsed since the first call, while fixed
// increment (positive interval) advances by the configured inter-sample
// interval per accepted sample regardless of real elapsed time.
type Clock struct {
	interval time.Duration
	start    time.Time
	acc      float64
}

// NewClock creates a clock. interval <= 0 selects wall-clock relative mode.
func NewClock(interval time.Duration) *Clock {
	if interval < 0 {
		interval = 0
	}
	return &Clock{interval: interval}
}

// Next returns the timestamp in seconds for the next accepted sample.
func (c *Clock) Next() float64 {
	if c.interval > 0 {
		c.acc += c.interval.Seconds()
		return c.acc
	}
	now := time.Now()
	if c.start.IsZero() {
		c.start = now
		return 0
	}
	return now.Sub(c.start).Seconds()
}

// Fixed reports whether the clock runs in fixed-increment mode.
func (c *Clock) Fixed() bool { return c.interval > 0 }

package engine

import "time"

// Clock is the engine's time source: monotonic seconds as a float64,
// matching the source's get_time()/get_time_accurate() convention.
type Clock interface {
	Now() float64
}

// systemClock reads the real monotonic clock.
type systemClock struct {
	start time.Time
}

func newSystemClock() *systemClock {
	return &systemClock{start: time.Now()}
}

// NewSystemClock returns the real monotonic clock used by production
// connections; loadtest.Harness shares one across every connection it
// builds so durations stay comparable within a run.
func NewSystemClock() Clock {
	return newSystemClock()
}

func (c *systemClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

// manualClock is a test double: time only advances when told to.
type manualClock struct {
	now float64
}

func newManualClock() *manualClock {
	return &manualClock{}
}

func (c *manualClock) Now() float64 {
	return c.now
}

func (c *manualClock) Advance(d float64) {
	c.now += d
}

func (c *manualClock) Set(now float64) {
	c.now = now
}

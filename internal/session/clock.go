package session

import (
	"math"
	"sync"
	"time"
)

// Clock supplies session-relative timestamps in seconds.
type Clock interface {
	Seconds() float64
}

// StepClock quantizes monotonic elapsed time to fixed ticks (100ms by default),
// so every frame inside one tick carries the same timestamp.
type StepClock struct {
	start     time.Time
	perSecond float64
	now       func() time.Time
}

// NewStepClock starts a clock now. step <= 0 means 100ms.
func NewStepClock(step time.Duration) *StepClock {
	if step <= 0 {
		step = 100 * time.Millisecond
	}
	return &StepClock{
		start:     time.Now(),
		perSecond: float64(time.Second) / float64(step),
		now:       time.Now,
	}
}

func (c *StepClock) Seconds() float64 {
	elapsed := c.now().Sub(c.start).Seconds()
	ticks := math.Floor(elapsed * c.perSecond)
	return ticks / c.perSecond
}

// ManualClock is set by hand. Used by tests and replays.
type ManualClock struct {
	mu sync.Mutex
	t  float64
}

func (c *ManualClock) Seconds() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *ManualClock) Set(t float64) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d float64) {
	c.mu.Lock()
	c.t += d
	c.mu.Unlock()
}
